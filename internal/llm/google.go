package llm

import (
	"context"
	"strings"

	"github.com/google/generative-ai-go/genai"
	googleoption "google.golang.org/api/option"

	"github.com/dshills/styletwin/internal/schema"
)

// googleProvider implements Embedder and Completer using the Google
// Generative AI SDK. A new genai.Client is created per call so that the
// caller's context governs the connection and the client is always closed.
type googleProvider struct {
	apiKey string
	model  string
}

func newGoogleProvider(opts ClientOptions) (*googleProvider, error) {
	key, err := apiKey("GOOGLE_API_KEY")
	if err != nil {
		return nil, err
	}
	return &googleProvider{apiKey: key, model: opts.Model}, nil
}

func (p *googleProvider) Embed(ctx context.Context, text string) ([]float64, error) {
	client, err := genai.NewClient(ctx, googleoption.WithAPIKey(p.apiKey))
	if err != nil {
		return nil, &ProviderError{Provider: "google", Op: "genai client", Err: err}
	}
	defer client.Close()

	resp, err := client.EmbeddingModel(p.model).EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, &ProviderError{Provider: "google", Op: "embed content", Err: err}
	}
	if resp.Embedding == nil || len(resp.Embedding.Values) == 0 {
		return nil, &ProviderError{Provider: "google", Op: "embed content", Err: ErrNoContent}
	}
	out := make([]float64, len(resp.Embedding.Values))
	for i, v := range resp.Embedding.Values {
		out[i] = float64(v)
	}
	return out, nil
}

// googleHistory converts a conversation into chat history plus the final
// user turn. Assistant turns map to the "model" role.
func googleHistory(conversation []schema.Message) ([]*genai.Content, string, error) {
	if len(conversation) == 0 || conversation[len(conversation)-1].Role != schema.RoleUser {
		return nil, "", &schema.ValidationError{Field: "messages", Message: "conversation must end with a user message"}
	}
	history := make([]*genai.Content, 0, len(conversation)-1)
	for _, m := range conversation[:len(conversation)-1] {
		var role string
		switch m.Role {
		case schema.RoleUser:
			role = "user"
		case schema.RoleAssistant:
			role = "model"
		default:
			return nil, "", unsupportedRole(m.Role)
		}
		history = append(history, &genai.Content{Role: role, Parts: []genai.Part{genai.Text(m.Content)}})
	}
	return history, conversation[len(conversation)-1].Content, nil
}

func (p *googleProvider) Complete(ctx context.Context, messages []schema.Message, params Params) (string, error) {
	system, conversation := SplitSystem(messages)
	history, last, err := googleHistory(conversation)
	if err != nil {
		return "", err
	}

	client, err := genai.NewClient(ctx, googleoption.WithAPIKey(p.apiKey))
	if err != nil {
		return "", &ProviderError{Provider: "google", Op: "genai client", Err: err}
	}
	defer client.Close()

	m := client.GenerativeModel(modelFor(params, p.model))
	if system != "" {
		m.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	}
	if params.MaxTokens > 0 {
		maxOut := int32(params.MaxTokens)
		m.MaxOutputTokens = &maxOut
	}
	temp32 := float32(params.Temperature)
	m.Temperature = &temp32

	cs := m.StartChat()
	cs.History = history
	resp, err := cs.SendMessage(ctx, genai.Text(last))
	if err != nil {
		return "", &ProviderError{Provider: "google", Op: "send message", Err: err}
	}

	var parts []string
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if t, ok := part.(genai.Text); ok {
				parts = append(parts, string(t))
			}
		}
	}
	if len(parts) == 0 {
		return "", &ProviderError{Provider: "google", Op: "send message", Err: ErrNoContent}
	}
	return strings.Join(parts, ""), nil
}
