package main

import (
	"fmt"

	"github.com/dshills/styletwin/internal/config"
	"github.com/dshills/styletwin/internal/engine"
	"github.com/dshills/styletwin/internal/lexicon"
	"github.com/dshills/styletwin/internal/llm"
	"github.com/dshills/styletwin/internal/logger"
	"github.com/dshills/styletwin/internal/render"
	"github.com/dshills/styletwin/internal/store"
)

// app holds the resources shared by a single command invocation.
type app struct {
	cfg    *config.Config
	format render.Format
	log    *logger.Logger
	store  store.Store
}

// loadConfig applies the global flags on top of the loaded configuration.
func loadConfig(g *globalFlags) (*config.Config, render.Format, error) {
	format, err := render.ParseFormat(g.format)
	if err != nil {
		return nil, "", badInput(err)
	}
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return nil, "", badInput(err)
	}
	if g.dbPath != "" {
		cfg.DBPath = g.dbPath
	}
	if g.lexicon != "" {
		cfg.Lexicon = g.lexicon
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", badInput(err)
	}
	return cfg, format, nil
}

// openApp loads configuration, builds the logger and opens the store.
func openApp(g *globalFlags) (*app, error) {
	cfg, format, err := loadConfig(g)
	if err != nil {
		return nil, err
	}
	log, err := logger.New(cfg.Env)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, format: format, log: log, store: st}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.log.Warn("closing store failed", "error", err)
	}
	a.log.Sync()
}

// service builds the engine. Completion providers are only created when
// withCompleters is set, so embedding-only commands need no completion key.
func (a *app) service(withCompleters bool) (*engine.Service, error) {
	lex, err := lexicon.Resolve(a.cfg.Lexicon)
	if err != nil {
		return nil, badInput(err)
	}
	emb, err := llm.NewEmbedder(a.cfg.Embedding.Provider, clientOptions(a.cfg.Embedding))
	if err != nil {
		return nil, badInput(err)
	}
	deps := engine.Deps{Store: a.store, Embedder: emb, Lexicon: lex, Logger: a.log}
	if withCompleters {
		if deps.Generator, err = llm.NewCompleter(a.cfg.Generation.Provider, clientOptions(a.cfg.Generation)); err != nil {
			return nil, badInput(err)
		}
		deps.Chat = deps.Generator
		if a.cfg.Chat != a.cfg.Generation {
			if deps.Chat, err = llm.NewCompleter(a.cfg.Chat.Provider, clientOptions(a.cfg.Chat)); err != nil {
				return nil, badInput(err)
			}
		}
	}
	opts, err := engine.OptionsFromConfig(a.cfg)
	if err != nil {
		return nil, badInput(err)
	}
	return engine.New(deps, opts)
}

func clientOptions(p config.ProviderConfig) llm.ClientOptions {
	return llm.ClientOptions{BaseURL: p.BaseURL, Model: p.Model}
}
