package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dshills/styletwin/internal/schema"
)

// clearEnv blanks every variable Load reads so the host environment cannot
// leak into a test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"STYLETWIN_CONFIG", "STYLETWIN_ENV", "STYLETWIN_DB_PATH", "STYLETWIN_LEXICON",
		"STYLETWIN_HTTP_ADDR", "STYLETWIN_AGGREGATION", "STYLETWIN_EMBEDDING_PROVIDER",
		"STYLETWIN_GENERATION_PROVIDER", "STYLETWIN_CHAT_PROVIDER", "EMBEDDING_MODEL",
		"GENERATION_MODEL", "CHAT_MODEL", "OPENAI_BASE_URL", "STYLETWIN_CHUNK_SIZE",
		"STYLETWIN_DRIFT_CHECK",
	} {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Engine.ChunkSize != 512 || cfg.Engine.RecentSamples != 10 {
		t.Errorf("engine defaults = %+v", cfg.Engine)
	}
	if cfg.Engine.Aggregation != "full" || cfg.Lexicon != "en" {
		t.Errorf("aggregation/lexicon = %q/%q", cfg.Engine.Aggregation, cfg.Lexicon)
	}
	if cfg.Embedding.Provider != "openai" || cfg.HTTP.Addr != ":8080" {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoad_File(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join("testdata", "styletwin.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Env != "production" || cfg.HTTP.Addr != ":9090" {
		t.Errorf("env/addr = %q/%q", cfg.Env, cfg.HTTP.Addr)
	}
	if cfg.Generation.Provider != "anthropic" || cfg.Generation.Model != "claude-sonnet-4-5" {
		t.Errorf("generation = %+v", cfg.Generation)
	}
	if cfg.Engine.ChunkSize != 256 || cfg.Engine.Aggregation != "incremental" || !cfg.Engine.DriftCheckGenerations {
		t.Errorf("engine = %+v", cfg.Engine)
	}
	if cfg.Engine.RequestTimeout.Duration != 10*time.Second {
		t.Errorf("request_timeout = %v", cfg.Engine.RequestTimeout)
	}
	// Unset keys keep their defaults.
	if cfg.Engine.RecentSamples != 10 || cfg.Chat.Model != "gpt-4o-mini" {
		t.Errorf("defaults lost: recent %d chat %q", cfg.Engine.RecentSamples, cfg.Chat.Model)
	}
}

func TestLoad_ConfigFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("STYLETWIN_CONFIG", filepath.Join("testdata", "styletwin.yaml"))
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.HTTP.Addr != ":9090" {
		t.Errorf("STYLETWIN_CONFIG not honored: addr %q", cfg.HTTP.Addr)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("STYLETWIN_AGGREGATION", "full")
	t.Setenv("EMBEDDING_MODEL", "qwen/qwen3-embedding-8b")
	t.Setenv("CHAT_MODEL", "qwen/qwen3-32b")
	t.Setenv("OPENAI_BASE_URL", "https://proxy.example.com/v1")
	t.Setenv("STYLETWIN_CHUNK_SIZE", "128")

	cfg, err := Load(filepath.Join("testdata", "styletwin.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Engine.Aggregation != "full" || cfg.Engine.ChunkSize != 128 {
		t.Errorf("engine = %+v", cfg.Engine)
	}
	if cfg.Embedding.Model != "qwen/qwen3-embedding-8b" || cfg.Chat.Model != "qwen/qwen3-32b" {
		t.Errorf("models = %q / %q", cfg.Embedding.Model, cfg.Chat.Model)
	}
	// OPENAI_BASE_URL applies to OpenAI providers only.
	if cfg.Embedding.BaseURL != "https://proxy.example.com/v1" || cfg.Chat.BaseURL != "https://proxy.example.com/v1" {
		t.Errorf("openai base urls = %q / %q", cfg.Embedding.BaseURL, cfg.Chat.BaseURL)
	}
	if cfg.Generation.BaseURL != "" {
		t.Errorf("anthropic generation picked up OPENAI_BASE_URL: %q", cfg.Generation.BaseURL)
	}
}

func TestLoad_BadEnvNumber(t *testing.T) {
	clearEnv(t)
	t.Setenv("STYLETWIN_CHUNK_SIZE", "lots")
	if _, err := Load(""); err == nil {
		t.Error("Load with non-numeric STYLETWIN_CHUNK_SIZE expected error")
	}
}

func TestLoad_UnknownKey(t *testing.T) {
	clearEnv(t)
	if _, err := Load(filepath.Join("testdata", "unknown_key.yaml")); err == nil {
		t.Error("Load(unknown_key.yaml) expected error")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	clearEnv(t)
	if _, err := Load(filepath.Join("testdata", "absent.yaml")); err == nil {
		t.Error("Load(absent.yaml) expected error")
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	clearEnv(t)
	_, err := Load(filepath.Join("testdata", "invalid.yaml"))
	if err == nil {
		t.Fatal("Load(invalid.yaml) expected error")
	}
	var ve *schema.ValidationError
	if !errors.As(err, &ve) {
		t.Errorf("err = %v, want ValidationError", err)
	}
	for _, field := range []string{"engine.chunk_size", "engine.aggregation", "engine.embed_concurrency"} {
		if !strings.Contains(err.Error(), field) {
			t.Errorf("error %q does not mention %s", err, field)
		}
	}
}

func TestValidate_Providers(t *testing.T) {
	cfg := Default()
	cfg.Embedding.Provider = "anthropic"
	cfg.Chat.Provider = "bogus"
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "embedding.provider") || !strings.Contains(err.Error(), "chat.provider") {
		t.Errorf("Validate = %v", err)
	}
}

func TestValidate_StableOrder(t *testing.T) {
	cfg := Default()
	cfg.Embedding.Model = ""
	cfg.Generation.Model = ""
	cfg.Chat.Model = ""
	cfg.Generation.Provider = "bogus"
	cfg.Chat.Provider = "bogus"

	want := []string{"embedding.model", "generation.model", "chat.model", "generation.provider", "chat.provider"}
	for i := 0; i < 20; i++ {
		joined, ok := cfg.Validate().(interface{ Unwrap() []error })
		if !ok {
			t.Fatal("Validate did not return a joined error")
		}
		var fields []string
		for _, err := range joined.Unwrap() {
			var ve *schema.ValidationError
			if errors.As(err, &ve) {
				fields = append(fields, ve.Field)
			}
		}
		if strings.Join(fields, ",") != strings.Join(want, ",") {
			t.Fatalf("run %d: fields = %v, want %v", i, fields, want)
		}
	}
}

func TestValidate_Lexicon(t *testing.T) {
	cfg := Default()
	cfg.Lexicon = "klingon"
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "lexicon") {
		t.Errorf("Validate = %v", err)
	}
}

func TestLoad_EmptyFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "empty.yaml")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load(empty): %v", err)
	}
	if cfg.Engine.ChunkSize != 512 {
		t.Errorf("ChunkSize = %d, want default 512", cfg.Engine.ChunkSize)
	}
}
