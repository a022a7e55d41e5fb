package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/dshills/styletwin/internal/chunker"
	"github.com/dshills/styletwin/internal/corpus"
	"github.com/dshills/styletwin/internal/drift"
	"github.com/dshills/styletwin/internal/engine"
	"github.com/dshills/styletwin/internal/httpapi"
	"github.com/dshills/styletwin/internal/lexicon"
	"github.com/dshills/styletwin/internal/metrics"
	"github.com/dshills/styletwin/internal/render"
	"github.com/dshills/styletwin/internal/schema"
)

// readText returns the text from --file, the positional args, or stdin, in
// that order of preference.
func readText(cmd *cobra.Command, args []string, file string) (string, error) {
	switch {
	case file != "":
		b, err := os.ReadFile(file)
		if err != nil {
			return "", badInput(fmt.Errorf("read %s: %w", file, err))
		}
		return string(b), nil
	case len(args) > 0:
		return strings.Join(args, " "), nil
	default:
		b, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(b), nil
	}
}

func requireUser(user string) error {
	if strings.TrimSpace(user) == "" {
		return badInput(errors.New("--user is required"))
	}
	return nil
}

func newChunkCmd(g *globalFlags) *cobra.Command {
	var (
		file   string
		maxLen int
	)
	cmd := &cobra.Command{
		Use:   "chunk [text]",
		Short: "Split text into embedding-sized chunks",
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := render.ParseFormat(g.format)
			if err != nil {
				return badInput(err)
			}
			if maxLen < 1 {
				return badInput(fmt.Errorf("--max must be at least 1, got %d", maxLen))
			}
			text, err := readText(cmd, args, file)
			if err != nil {
				return err
			}
			chunks := chunker.Chunk(text, maxLen)
			return render.Write(cmd.OutOrStdout(), format, chunks, func() string { return render.Chunks(chunks) })
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "read text from file")
	cmd.Flags().IntVar(&maxLen, "max", chunker.DefaultMaxLength, "maximum chunk length in characters")
	return cmd
}

type analysis struct {
	Metrics schema.StyleMetrics `json:"metrics"`
	Tally   metrics.Tally       `json:"tally"`
}

func newAnalyzeCmd(g *globalFlags) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "analyze [text]",
		Short: "Compute style metrics for text without storing it",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, format, err := loadConfig(g)
			if err != nil {
				return err
			}
			lex, err := lexicon.Resolve(cfg.Lexicon)
			if err != nil {
				return badInput(err)
			}
			text, err := readText(cmd, args, file)
			if err != nil {
				return err
			}
			a := metrics.Analyzer{Lexicon: lex}
			res := analysis{Metrics: a.Analyze(text), Tally: a.Tally(text)}
			return render.Write(cmd.OutOrStdout(), format, res, func() string { return render.Analysis(res.Metrics, res.Tally) })
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "read text from file")
	return cmd
}

// ingestedFile is one corpus document stored by ingest --dir.
type ingestedFile struct {
	Path     string `json:"path"`
	SampleID string `json:"sample_id"`
	Chunks   int    `json:"chunks"`
}

func newIngestCmd(g *globalFlags) *cobra.Command {
	var user, file, dir string
	cmd := &cobra.Command{
		Use:   "ingest [text]",
		Short: "Add writing samples to a user's style profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireUser(user); err != nil {
				return err
			}
			var docs []corpus.Document
			if dir != "" {
				c, err := corpus.Build(dir, nil)
				if err != nil {
					return badInput(err)
				}
				if len(c.Documents) == 0 {
					return badInput(fmt.Errorf("no sample files found in %s", dir))
				}
				docs = c.Documents
			} else {
				text, err := readText(cmd, args, file)
				if err != nil {
					return err
				}
				docs = []corpus.Document{{Text: text}}
			}

			a, err := openApp(g)
			if err != nil {
				return err
			}
			defer a.Close()
			svc, err := a.service(false)
			if err != nil {
				return err
			}

			if dir == "" {
				res, err := svc.AddSample(cmd.Context(), user, docs[0].Text)
				if err != nil {
					return err
				}
				return render.Write(cmd.OutOrStdout(), a.format, res, func() string {
					return fmt.Sprintf("Stored sample %s (%d chunks).\n\n", res.SampleID, res.Chunks) + render.Profile(&res.Profile)
				})
			}

			files := make([]ingestedFile, 0, len(docs))
			var last engine.SampleResult
			for _, d := range docs {
				res, err := svc.AddSample(cmd.Context(), user, d.Text)
				if err != nil {
					return fmt.Errorf("ingest %s: %w", d.Path, err)
				}
				files = append(files, ingestedFile{Path: d.Path, SampleID: res.SampleID, Chunks: res.Chunks})
				last = res
			}
			return render.Write(cmd.OutOrStdout(), a.format, files, func() string {
				var sb strings.Builder
				fmt.Fprintf(&sb, "Stored %d samples from %s.\n\n", len(files), dir)
				for _, f := range files {
					fmt.Fprintf(&sb, "- %s: %s (%d chunks)\n", f.Path, f.SampleID, f.Chunks)
				}
				sb.WriteString("\n")
				sb.WriteString(render.Profile(&last.Profile))
				return sb.String()
			})
		},
	}
	cmd.Flags().StringVarP(&user, "user", "u", "", "user ID")
	cmd.Flags().StringVarP(&file, "file", "f", "", "read sample from file")
	cmd.Flags().StringVar(&dir, "dir", "", "ingest every .txt and .md file under this directory")
	return cmd
}

func newDriftCmd(g *globalFlags) *cobra.Command {
	var user, file, failOn string
	cmd := &cobra.Command{
		Use:   "drift [text]",
		Short: "Score text against a user's style vector",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireUser(user); err != nil {
				return err
			}
			var threshold schema.DriftTier
			if failOn != "" {
				t, err := drift.ParseTier(failOn)
				if err != nil {
					return badInput(err)
				}
				threshold = t
			}
			text, err := readText(cmd, args, file)
			if err != nil {
				return err
			}
			a, err := openApp(g)
			if err != nil {
				return err
			}
			defer a.Close()
			svc, err := a.service(false)
			if err != nil {
				return err
			}
			res, err := svc.CheckDrift(cmd.Context(), user, text)
			if err != nil {
				return err
			}
			if err := render.Write(cmd.OutOrStdout(), a.format, res, func() string { return render.Drift(res) }); err != nil {
				return err
			}
			if threshold != "" && drift.TierOrdinal(res.Tier) >= drift.TierOrdinal(threshold) {
				return &exitError{code: exitCodeFailOn, err: fmt.Errorf("drift level %s meets --fail-on %s", res.Tier, threshold)}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&user, "user", "u", "", "user ID")
	cmd.Flags().StringVarP(&file, "file", "f", "", "read text from file")
	cmd.Flags().StringVar(&failOn, "fail-on", "", "exit 2 when drift is at or above this level: low, medium, high")
	return cmd
}

func newGenerateCmd(g *globalFlags) *cobra.Command {
	var (
		user       string
		checkDrift bool
	)
	cmd := &cobra.Command{
		Use:   "generate [prompt]",
		Short: "Write a response to a prompt in a user's voice",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireUser(user); err != nil {
				return err
			}
			prompt, err := readText(cmd, args, "")
			if err != nil {
				return err
			}
			a, err := openApp(g)
			if err != nil {
				return err
			}
			defer a.Close()
			svc, err := a.service(true)
			if err != nil {
				return err
			}
			res, err := svc.Generate(cmd.Context(), user, prompt, engine.GenerateOptions{CheckDrift: checkDrift})
			if err != nil {
				return err
			}
			return render.Write(cmd.OutOrStdout(), a.format, res, func() string {
				out := res.Text + "\n"
				if res.Record.Drift != nil {
					out += "\n" + render.Drift(*res.Record.Drift)
				}
				return out
			})
		},
	}
	cmd.Flags().StringVarP(&user, "user", "u", "", "user ID")
	cmd.Flags().BoolVar(&checkDrift, "check-drift", false, "score the generated text against the profile")
	return cmd
}

func newChatCmd(g *globalFlags) *cobra.Command {
	var user, historyFile string
	cmd := &cobra.Command{
		Use:   "chat [message]",
		Short: "Reply to a message in a user's voice",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireUser(user); err != nil {
				return err
			}
			var history []schema.Message
			if historyFile != "" {
				b, err := os.ReadFile(historyFile)
				if err != nil {
					return badInput(fmt.Errorf("read %s: %w", historyFile, err))
				}
				if err := json.Unmarshal(b, &history); err != nil {
					return badInput(fmt.Errorf("parse %s: %w", historyFile, err))
				}
			}
			message, err := readText(cmd, args, "")
			if err != nil {
				return err
			}
			a, err := openApp(g)
			if err != nil {
				return err
			}
			defer a.Close()
			svc, err := a.service(true)
			if err != nil {
				return err
			}
			res, err := svc.Chat(cmd.Context(), user, message, history)
			if err != nil {
				return err
			}
			return render.Write(cmd.OutOrStdout(), a.format, res, func() string { return res.Response + "\n" })
		},
	}
	cmd.Flags().StringVarP(&user, "user", "u", "", "user ID")
	cmd.Flags().StringVar(&historyFile, "history", "", "JSON file with prior messages [{role, content}]")
	return cmd
}

func newProfileCmd(g *globalFlags) *cobra.Command {
	var user string
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show a user's style profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireUser(user); err != nil {
				return err
			}
			a, err := openApp(g)
			if err != nil {
				return err
			}
			defer a.Close()
			p, err := a.store.GetProfile(cmd.Context(), user)
			if err != nil {
				return fmt.Errorf("profile %q: %w", user, err)
			}
			return render.Write(cmd.OutOrStdout(), a.format, p, func() string { return render.Profile(&p) })
		},
	}
	cmd.Flags().StringVarP(&user, "user", "u", "", "user ID")
	return cmd
}

func newHistoryCmd(g *globalFlags) *cobra.Command {
	var (
		user  string
		limit int
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List a user's generated texts, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireUser(user); err != nil {
				return err
			}
			if limit < 1 {
				return badInput(fmt.Errorf("--limit must be at least 1, got %d", limit))
			}
			a, err := openApp(g)
			if err != nil {
				return err
			}
			defer a.Close()
			recs, err := a.store.ListGenerations(cmd.Context(), user, limit)
			if err != nil {
				return err
			}
			if recs == nil {
				recs = []schema.GenerationRecord{}
			}
			return render.Write(cmd.OutOrStdout(), a.format, recs, func() string { return render.History(user, recs) })
		},
	}
	cmd.Flags().StringVarP(&user, "user", "u", "", "user ID")
	cmd.Flags().IntVar(&limit, "limit", httpapi.DefaultHistoryLimit, "maximum records to list")
	return cmd
}

func newServeCmd(g *globalFlags) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(g)
			if err != nil {
				return err
			}
			defer a.Close()
			svc, err := a.service(true)
			if err != nil {
				return err
			}
			if addr == "" {
				addr = a.cfg.HTTP.Addr
			}
			if a.cfg.Env == "production" || a.cfg.Env == "prod" {
				gin.SetMode(gin.ReleaseMode)
			}
			srv := httpapi.NewServer(addr, httpapi.RouterConfig{
				StyleHandler:    httpapi.NewStyleHandler(svc, a.log),
				Logger:          a.log,
				CORSOrigins:     a.cfg.HTTP.CORSOrigins,
				MaxRequestBytes: a.cfg.HTTP.MaxRequestBytes,
			}, a.cfg.HTTP.ShutdownTimeout.Duration)
			return srv.Run(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")
	return cmd
}
