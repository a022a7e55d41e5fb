package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/dshills/styletwin/internal/schema"
)

// goldenServer serves testdata/<file> for requests whose path ends in
// suffix and records the last decoded request body.
func goldenServer(t *testing.T, suffix, file string, status int) (*httptest.Server, *map[string]any) {
	t.Helper()
	body, err := os.ReadFile(filepath.Join("testdata", file))
	if err != nil {
		t.Fatalf("read golden %s: %v", file, err)
	}
	var last map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, suffix) {
			http.NotFound(w, r)
			return
		}
		raw, _ := io.ReadAll(r.Body)
		last = map[string]any{}
		_ = json.Unmarshal(raw, &last)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status == http.StatusOK {
			_, _ = w.Write(body)
			return
		}
		_, _ = w.Write([]byte(`{"error":{"message":"bad request","type":"invalid_request_error"}}`))
	}))
	t.Cleanup(srv.Close)
	return srv, &last
}

func TestGolden_OpenAIEmbed(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "test-key")
	srv, last := goldenServer(t, "/embeddings", "openai_embedding.json", http.StatusOK)

	e, err := NewEmbedder("openai", ClientOptions{BaseURL: srv.URL + "/v1/", Model: "text-embedding-3-small"})
	if err != nil {
		t.Fatal(err)
	}
	got, err := e.Embed(context.Background(), "I love this.")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if !reflect.DeepEqual(got, []float64{0.25, -0.5, 1.0}) {
		t.Errorf("Embed = %v", got)
	}
	if (*last)["model"] != "text-embedding-3-small" || (*last)["input"] != "I love this." {
		t.Errorf("request body = %v", *last)
	}
}

func TestGolden_OpenAIEmbedError(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "test-key")
	srv, _ := goldenServer(t, "/embeddings", "openai_embedding.json", http.StatusBadRequest)

	e, err := NewEmbedder("openai", ClientOptions{BaseURL: srv.URL + "/v1/", Model: "m"})
	if err != nil {
		t.Fatal(err)
	}
	_, err = e.Embed(context.Background(), "x")
	var pe *ProviderError
	if !errors.As(err, &pe) || pe.Provider != "openai" || pe.Op != "embeddings.new" {
		t.Errorf("Embed err = %v, want openai ProviderError", err)
	}
	if Retryable(err) {
		t.Error("Retryable(400) = true, want false")
	}
}

func TestGolden_OpenAIComplete(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "test-key")
	srv, last := goldenServer(t, "/chat/completions", "openai_chat.json", http.StatusOK)

	c, err := NewCompleter("openai", ClientOptions{BaseURL: srv.URL + "/v1/", Model: "gpt-4o-mini"})
	if err != nil {
		t.Fatal(err)
	}
	msgs := []schema.Message{
		{Role: schema.RoleSystem, Content: "persona"},
		{Role: schema.RoleUser, Content: "hi"},
		{Role: schema.RoleAssistant, Content: "hey"},
		{Role: schema.RoleUser, Content: "how are you"},
	}
	got, err := c.Complete(context.Background(), msgs, Params{Temperature: 0.7, MaxTokens: 500})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got != "Honestly? I love this." {
		t.Errorf("Complete = %q", got)
	}

	body := *last
	if body["model"] != "gpt-4o-mini" || body["temperature"] != 0.7 || body["max_tokens"] != float64(500) {
		t.Errorf("request params = model %v temperature %v max_tokens %v", body["model"], body["temperature"], body["max_tokens"])
	}
	sent, _ := body["messages"].([]any)
	var roles []string
	for _, m := range sent {
		if mm, ok := m.(map[string]any); ok {
			roles = append(roles, mm["role"].(string))
		}
	}
	if strings.Join(roles, ",") != "system,user,assistant,user" {
		t.Errorf("roles = %v", roles)
	}
}

func TestGolden_AnthropicComplete(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "test-key")
	srv, last := goldenServer(t, "/messages", "anthropic_message.json", http.StatusOK)

	c, err := NewCompleter("anthropic", ClientOptions{BaseURL: srv.URL + "/", Model: "claude-test"})
	if err != nil {
		t.Fatal(err)
	}
	msgs := []schema.Message{
		{Role: schema.RoleSystem, Content: "persona"},
		{Role: schema.RoleUser, Content: "hi"},
	}
	got, err := c.Complete(context.Background(), msgs, Params{Model: "claude-override", Temperature: 0.8, MaxTokens: 300})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got != "Sounds great." {
		t.Errorf("Complete = %q, want text blocks joined", got)
	}
	body := *last
	if body["model"] != "claude-override" || body["max_tokens"] != float64(300) {
		t.Errorf("request params = %v", body)
	}
	if _, ok := body["system"]; !ok {
		t.Error("system prompt not sent")
	}
	if sent, _ := body["messages"].([]any); len(sent) != 1 {
		t.Errorf("messages = %v, want only the user turn", body["messages"])
	}
}
