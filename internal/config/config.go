// Package config loads styletwin settings. Sources apply in order: built-in
// defaults, an optional YAML file, then environment variables. Command-line
// flags are applied by the caller afterwards.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dshills/styletwin/internal/aggregate"
	"github.com/dshills/styletwin/internal/lexicon"
	"github.com/dshills/styletwin/internal/schema"
)

// Duration is a time.Duration written as "5s" in YAML.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	s := strings.TrimSpace(node.Value)
	if s == "" {
		d.Duration = 0
		return nil
	}
	dd, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("duration must be a string like \"5s\": %w", err)
	}
	d.Duration = dd
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return d.String(), nil
}

type HTTPConfig struct {
	Addr            string   `yaml:"addr"`
	ShutdownTimeout Duration `yaml:"shutdown_timeout"`
	MaxRequestBytes int64    `yaml:"max_request_bytes"`
	CORSOrigins     []string `yaml:"cors_origins"`
}

// ProviderConfig selects a provider client and its default model.
type ProviderConfig struct {
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
	BaseURL  string `yaml:"base_url"`
}

type EngineConfig struct {
	ChunkSize        int      `yaml:"chunk_size"`
	RecentSamples    int      `yaml:"recent_samples"`
	Aggregation      string   `yaml:"aggregation"`
	EmbedConcurrency int      `yaml:"embed_concurrency"`
	EmbedRate        float64  `yaml:"embed_rate"`
	EmbedBurst       int      `yaml:"embed_burst"`
	RequestTimeout   Duration `yaml:"request_timeout"`
	MaxRetries       int      `yaml:"max_retries"`
	RetryBackoff     Duration `yaml:"retry_backoff"`
	// DriftCheckGenerations scores every generated text against the profile.
	DriftCheckGenerations bool `yaml:"drift_check_generations"`
}

type Config struct {
	Env        string         `yaml:"env"`
	DBPath     string         `yaml:"db_path"`
	Lexicon    string         `yaml:"lexicon"`
	HTTP       HTTPConfig     `yaml:"http"`
	Embedding  ProviderConfig `yaml:"embedding"`
	Generation ProviderConfig `yaml:"generation"`
	Chat       ProviderConfig `yaml:"chat"`
	Engine     EngineConfig   `yaml:"engine"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Env:     "development",
		DBPath:  "styletwin.db",
		Lexicon: "en",
		HTTP: HTTPConfig{
			Addr:            ":8080",
			ShutdownTimeout: Duration{15 * time.Second},
			MaxRequestBytes: 1 << 20,
			CORSOrigins:     []string{"*"},
		},
		Embedding:  ProviderConfig{Provider: "openai", Model: "text-embedding-3-small"},
		Generation: ProviderConfig{Provider: "openai", Model: "gpt-4o-mini"},
		Chat:       ProviderConfig{Provider: "openai", Model: "gpt-4o-mini"},
		Engine: EngineConfig{
			ChunkSize:        512,
			RecentSamples:    10,
			Aggregation:      string(aggregate.ModeFull),
			EmbedConcurrency: 4,
			EmbedRate:        0,
			EmbedBurst:       1,
			RequestTimeout:   Duration{30 * time.Second},
			MaxRetries:       2,
			RetryBackoff:     Duration{500 * time.Millisecond},
		},
	}
}

// Load builds a Config from defaults, the YAML file at path (skipped when
// path is empty; STYLETWIN_CONFIG is consulted first), and the environment.
// The result is validated.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		path = strings.TrimSpace(os.Getenv("STYLETWIN_CONFIG"))
	}
	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	str := func(key string, dst *string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	str("STYLETWIN_ENV", &c.Env)
	str("STYLETWIN_DB_PATH", &c.DBPath)
	str("STYLETWIN_LEXICON", &c.Lexicon)
	str("STYLETWIN_HTTP_ADDR", &c.HTTP.Addr)
	str("STYLETWIN_AGGREGATION", &c.Engine.Aggregation)
	str("STYLETWIN_EMBEDDING_PROVIDER", &c.Embedding.Provider)
	str("STYLETWIN_GENERATION_PROVIDER", &c.Generation.Provider)
	str("STYLETWIN_CHAT_PROVIDER", &c.Chat.Provider)
	str("EMBEDDING_MODEL", &c.Embedding.Model)
	str("GENERATION_MODEL", &c.Generation.Model)
	str("CHAT_MODEL", &c.Chat.Model)

	if v := strings.TrimSpace(os.Getenv("OPENAI_BASE_URL")); v != "" {
		for _, p := range []*ProviderConfig{&c.Embedding, &c.Generation, &c.Chat} {
			if strings.EqualFold(p.Provider, "openai") && p.BaseURL == "" {
				p.BaseURL = v
			}
		}
	}
	if v := strings.TrimSpace(os.Getenv("STYLETWIN_CHUNK_SIZE")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: STYLETWIN_CHUNK_SIZE: %w", err)
		}
		c.Engine.ChunkSize = n
	}
	if v := strings.TrimSpace(os.Getenv("STYLETWIN_DRIFT_CHECK")); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config: STYLETWIN_DRIFT_CHECK: %w", err)
		}
		c.Engine.DriftCheckGenerations = b
	}
	return nil
}

// Validate reports every invalid setting as a *schema.ValidationError,
// joined into one error.
func (c *Config) Validate() error {
	var errs []error
	bad := func(field, msg string) {
		errs = append(errs, &schema.ValidationError{Field: field, Message: msg})
	}
	if strings.TrimSpace(c.DBPath) == "" {
		bad("db_path", "must not be empty")
	}
	if _, err := lexicon.Resolve(c.Lexicon); err != nil {
		bad("lexicon", err.Error())
	}
	if c.HTTP.MaxRequestBytes <= 0 {
		bad("http.max_request_bytes", "must be positive")
	}
	providers := []struct {
		name string
		cfg  ProviderConfig
	}{
		{"embedding", c.Embedding},
		{"generation", c.Generation},
		{"chat", c.Chat},
	}
	for _, p := range providers {
		if strings.TrimSpace(p.cfg.Model) == "" {
			bad(p.name+".model", "must not be empty")
		}
	}
	switch strings.ToLower(c.Embedding.Provider) {
	case "openai", "google":
	default:
		bad("embedding.provider", fmt.Sprintf("unknown provider %q (available: openai, google)", c.Embedding.Provider))
	}
	for _, p := range providers[1:] {
		switch strings.ToLower(p.cfg.Provider) {
		case "openai", "anthropic", "google":
		default:
			bad(p.name+".provider", fmt.Sprintf("unknown provider %q (available: openai, anthropic, google)", p.cfg.Provider))
		}
	}
	e := c.Engine
	if e.ChunkSize < 1 {
		bad("engine.chunk_size", "must be at least 1")
	}
	if e.RecentSamples < 0 {
		bad("engine.recent_samples", "must not be negative")
	}
	if _, err := aggregate.ParseMode(e.Aggregation); err != nil {
		bad("engine.aggregation", err.Error())
	}
	if e.EmbedConcurrency < 1 {
		bad("engine.embed_concurrency", "must be at least 1")
	}
	if e.EmbedRate < 0 {
		bad("engine.embed_rate", "must not be negative")
	}
	if e.EmbedBurst < 1 {
		bad("engine.embed_burst", "must be at least 1")
	}
	if e.RequestTimeout.Duration <= 0 {
		bad("engine.request_timeout", "must be positive")
	}
	if e.MaxRetries < 0 {
		bad("engine.max_retries", "must not be negative")
	}
	if e.RetryBackoff.Duration < 0 {
		bad("engine.retry_backoff", "must not be negative")
	}
	return errors.Join(errs...)
}
