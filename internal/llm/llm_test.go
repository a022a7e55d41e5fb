package llm

import (
	"errors"
	"reflect"
	"testing"

	"github.com/dshills/styletwin/internal/schema"
)

func TestNewEmbedder_UnknownProvider(t *testing.T) {
	if _, err := NewEmbedder("anthropic", ClientOptions{}); err == nil {
		t.Error("NewEmbedder(anthropic) expected error: anthropic has no embedding API")
	}
	if _, err := NewEmbedder("bogus", ClientOptions{}); err == nil {
		t.Error("NewEmbedder(bogus) expected error")
	}
}

func TestNewCompleter_UnknownProvider(t *testing.T) {
	if _, err := NewCompleter("bogus", ClientOptions{}); err == nil {
		t.Error("NewCompleter(bogus) expected error")
	}
}

func TestFactories_MissingAPIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "")

	for _, name := range []string{"openai", "google", ""} {
		if _, err := NewEmbedder(name, ClientOptions{}); err == nil {
			t.Errorf("NewEmbedder(%q) without key expected error", name)
		}
	}
	for _, name := range []string{"openai", "anthropic", "google"} {
		if _, err := NewCompleter(name, ClientOptions{}); err == nil {
			t.Errorf("NewCompleter(%q) without key expected error", name)
		}
	}
}

func TestFactories_WithAPIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "k")
	t.Setenv("ANTHROPIC_API_KEY", "k")
	t.Setenv("GOOGLE_API_KEY", "k")

	for _, name := range []string{"openai", "OpenAI", "google"} {
		if _, err := NewEmbedder(name, ClientOptions{Model: "m"}); err != nil {
			t.Errorf("NewEmbedder(%q) error: %v", name, err)
		}
	}
	for _, name := range []string{"openai", "anthropic", "google"} {
		if _, err := NewCompleter(name, ClientOptions{Model: "m"}); err != nil {
			t.Errorf("NewCompleter(%q) error: %v", name, err)
		}
	}
}

func TestSplitSystem(t *testing.T) {
	msgs := []schema.Message{
		{Role: schema.RoleSystem, Content: "persona"},
		{Role: schema.RoleUser, Content: "hi"},
		{Role: schema.RoleSystem, Content: "extra"},
		{Role: schema.RoleAssistant, Content: "hello"},
	}
	system, rest := SplitSystem(msgs)
	if system != "persona\n\nextra" {
		t.Errorf("system = %q", system)
	}
	want := []schema.Message{msgs[1], msgs[3]}
	if !reflect.DeepEqual(rest, want) {
		t.Errorf("conversation = %+v, want %+v", rest, want)
	}
}

func TestModelFor(t *testing.T) {
	if got := modelFor(Params{}, "default"); got != "default" {
		t.Errorf("modelFor(empty) = %q", got)
	}
	if got := modelFor(Params{Model: "override"}, "default"); got != "override" {
		t.Errorf("modelFor(override) = %q", got)
	}
}

func TestGoogleHistory(t *testing.T) {
	conv := []schema.Message{
		{Role: schema.RoleUser, Content: "a"},
		{Role: schema.RoleAssistant, Content: "b"},
		{Role: schema.RoleUser, Content: "c"},
	}
	history, last, err := googleHistory(conv)
	if err != nil {
		t.Fatal(err)
	}
	if last != "c" {
		t.Errorf("last = %q, want c", last)
	}
	if len(history) != 2 || history[0].Role != "user" || history[1].Role != "model" {
		t.Errorf("history roles = %v", history)
	}

	var ve *schema.ValidationError
	if _, _, err := googleHistory(conv[:2]); !errors.As(err, &ve) {
		t.Errorf("conversation ending with assistant err = %v, want ValidationError", err)
	}
	if _, _, err := googleHistory(nil); !errors.As(err, &ve) {
		t.Errorf("empty conversation err = %v, want ValidationError", err)
	}
}

func TestAnthropicMessages_RejectsUnknownRole(t *testing.T) {
	_, err := anthropicMessages([]schema.Message{{Role: "tool", Content: "x"}})
	var ve *schema.ValidationError
	if !errors.As(err, &ve) {
		t.Errorf("err = %v, want ValidationError", err)
	}
}

func TestProviderError(t *testing.T) {
	cause := errors.New("503 upstream")
	var err error = &ProviderError{Provider: "openai", Op: "embeddings.new", Err: cause}
	if err.Error() != "openai: embeddings.new: 503 upstream" {
		t.Errorf("Error() = %q", err.Error())
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is(ProviderError, cause) = false")
	}
	var pe *ProviderError
	if !errors.As(err, &pe) || pe.Provider != "openai" {
		t.Errorf("errors.As failed: %+v", pe)
	}
}
