package llm

import (
	"context"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/dshills/styletwin/internal/schema"
)

// openaiProvider implements Embedder and Completer using the OpenAI SDK.
// BaseURL allows OpenAI-compatible proxies.
type openaiProvider struct {
	client openai.Client
	model  string
}

func newOpenAIProvider(opts ClientOptions) (*openaiProvider, error) {
	key, err := apiKey("OPENAI_API_KEY")
	if err != nil {
		return nil, err
	}
	reqOpts := []option.RequestOption{option.WithAPIKey(key), option.WithMaxRetries(0)}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}
	return &openaiProvider{client: openai.NewClient(reqOpts...), model: opts.Model}, nil
}

func (p *openaiProvider) Embed(ctx context.Context, text string) ([]float64, error) {
	resp, err := p.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(p.model),
		Input: openai.EmbeddingNewParamsInputUnion{OfString: openai.String(text)},
	})
	if err != nil {
		return nil, &ProviderError{Provider: "openai", Op: "embeddings.new", Err: err}
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, &ProviderError{Provider: "openai", Op: "embeddings.new", Err: ErrNoContent}
	}
	return resp.Data[0].Embedding, nil
}

func (p *openaiProvider) Complete(ctx context.Context, messages []schema.Message, params Params) (string, error) {
	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case schema.RoleSystem:
			msgs = append(msgs, openai.SystemMessage(m.Content))
		case schema.RoleUser:
			msgs = append(msgs, openai.UserMessage(m.Content))
		case schema.RoleAssistant:
			msgs = append(msgs, openai.AssistantMessage(m.Content))
		default:
			return "", unsupportedRole(m.Role)
		}
	}

	req := openai.ChatCompletionNewParams{
		Model:       shared.ChatModel(modelFor(params, p.model)),
		Temperature: openai.Float(params.Temperature),
		Messages:    msgs,
	}
	if params.MaxTokens > 0 {
		req.MaxTokens = openai.Int(int64(params.MaxTokens))
	}
	resp, err := p.client.Chat.Completions.New(ctx, req)
	if err != nil {
		return "", &ProviderError{Provider: "openai", Op: "chat.completions.new", Err: err}
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", &ProviderError{Provider: "openai", Op: "chat.completions.new", Err: ErrNoContent}
	}
	return resp.Choices[0].Message.Content, nil
}
