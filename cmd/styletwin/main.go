package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dshills/styletwin/internal/engine"
	"github.com/dshills/styletwin/internal/llm"
	"github.com/dshills/styletwin/internal/schema"
	"github.com/dshills/styletwin/internal/store"
)

// Process exit codes.
const (
	exitCodeError    = 1
	exitCodeFailOn   = 2
	exitCodeBadInput = 3
	exitCodeAPIError = 4
	exitCodeNotFound = 5
)

// exitError carries a specific process exit code.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func badInput(err error) error {
	return &exitError{code: exitCodeBadInput, err: err}
}

// exitCode maps err to the process exit code.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	var ve *schema.ValidationError
	var pe *llm.ProviderError
	switch {
	case errors.Is(err, engine.ErrMissingInput), errors.As(err, &ve):
		return exitCodeBadInput
	case errors.Is(err, store.ErrNotFound), errors.Is(err, engine.ErrStyleVectorUnset):
		return exitCodeNotFound
	case errors.As(err, &pe):
		return exitCodeAPIError
	default:
		return exitCodeError
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := execute(ctx, os.Args[1:], os.Stdin, os.Stdout)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

// execute runs the command line args with the given stdio.
func execute(ctx context.Context, args []string, in io.Reader, out io.Writer) error {
	root := newRootCmd()
	root.SetArgs(args)
	root.SetIn(in)
	root.SetOut(out)
	return root.ExecuteContext(ctx)
}

type globalFlags struct {
	configPath string
	dbPath     string
	format     string
	lexicon    string
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:           "styletwin",
		Short:         "Learn a writer's style and generate text in their voice",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := root.PersistentFlags()
	pf.StringVar(&g.configPath, "config", "", "path to a YAML config file (default $STYLETWIN_CONFIG)")
	pf.StringVar(&g.dbPath, "db", "", "SQLite database path (overrides config)")
	pf.StringVar(&g.format, "format", "markdown", "output format: json or markdown")
	pf.StringVar(&g.lexicon, "lexicon", "", "lexicon name or YAML file (overrides config)")

	root.AddCommand(
		newChunkCmd(g),
		newAnalyzeCmd(g),
		newIngestCmd(g),
		newDriftCmd(g),
		newGenerateCmd(g),
		newChatCmd(g),
		newProfileCmd(g),
		newHistoryCmd(g),
		newServeCmd(g),
	)
	return root
}
