// Package llm wraps the embedding and completion providers behind two small
// interfaces. Provider failures are returned as *ProviderError and are never
// retried here; retry policy belongs to the caller.
package llm

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/dshills/styletwin/internal/schema"
)

// Embedder turns text into an embedding vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// Completer produces a completion for an ordered conversation.
type Completer interface {
	Complete(ctx context.Context, messages []schema.Message, params Params) (string, error)
}

// Params are per-call completion settings. An empty Model falls back to the
// model the Completer was created with.
type Params struct {
	Model       string
	Temperature float64
	MaxTokens   int
}

// ClientOptions configures a provider client.
type ClientOptions struct {
	// BaseURL overrides the provider endpoint. Ignored by Google.
	BaseURL string
	// Model is the default model for the client.
	Model string
}

// ErrNoContent is wrapped by a ProviderError when a provider answers without
// usable output.
var ErrNoContent = errors.New("llm: response contained no content")

// ProviderError records a failed provider call.
type ProviderError struct {
	Provider string
	Op       string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Provider, e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// NewEmbedder is the factory for embedding providers. It is a package-level
// variable so tests can replace it with a fake without modifying the call
// site. Tests must restore the original value; use t.Cleanup to do so safely.
var NewEmbedder func(providerName string, opts ClientOptions) (Embedder, error) = defaultNewEmbedder

// NewCompleter is the factory for completion providers. Same substitution
// rules as NewEmbedder.
var NewCompleter func(providerName string, opts ClientOptions) (Completer, error) = defaultNewCompleter

func defaultNewEmbedder(providerName string, opts ClientOptions) (Embedder, error) {
	switch strings.ToLower(providerName) {
	case "openai", "":
		return newOpenAIProvider(opts)
	case "google":
		return newGoogleProvider(opts)
	default:
		return nil, fmt.Errorf("llm: unknown embedding provider %q (available: openai, google)", providerName)
	}
}

func defaultNewCompleter(providerName string, opts ClientOptions) (Completer, error) {
	switch strings.ToLower(providerName) {
	case "openai", "":
		return newOpenAIProvider(opts)
	case "anthropic":
		return newAnthropicProvider(opts)
	case "google":
		return newGoogleProvider(opts)
	default:
		return nil, fmt.Errorf("llm: unknown completion provider %q (available: openai, anthropic, google)", providerName)
	}
}

func apiKey(env string) (string, error) {
	key := os.Getenv(env)
	if key == "" {
		return "", fmt.Errorf("llm: %s environment variable not set", env)
	}
	return key, nil
}

// SplitSystem separates system messages from the conversation. System
// contents are joined with blank lines; the remaining messages keep their
// order.
func SplitSystem(messages []schema.Message) (system string, conversation []schema.Message) {
	var parts []string
	for _, m := range messages {
		if m.Role == schema.RoleSystem {
			parts = append(parts, m.Content)
			continue
		}
		conversation = append(conversation, m)
	}
	return strings.Join(parts, "\n\n"), conversation
}

func modelFor(params Params, fallback string) string {
	if params.Model != "" {
		return params.Model
	}
	return fallback
}

func unsupportedRole(r schema.Role) error {
	return &schema.ValidationError{Field: "role", Message: fmt.Sprintf("unsupported role %q", r)}
}
