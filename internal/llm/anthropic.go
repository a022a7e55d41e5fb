package llm

import (
	"context"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/dshills/styletwin/internal/schema"
)

// defaultAnthropicMaxTokens is used when Params.MaxTokens is unset; the
// Messages API requires a value.
const defaultAnthropicMaxTokens = 1024

// anthropicProvider implements Completer using the Anthropic SDK.
// anthropic.Client is a value type; the SDK's NewClient returns it by value.
type anthropicProvider struct {
	client anthropic.Client
	model  string
}

func newAnthropicProvider(opts ClientOptions) (*anthropicProvider, error) {
	key, err := apiKey("ANTHROPIC_API_KEY")
	if err != nil {
		return nil, err
	}
	reqOpts := []option.RequestOption{option.WithAPIKey(key), option.WithMaxRetries(0)}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}
	return &anthropicProvider{client: anthropic.NewClient(reqOpts...), model: opts.Model}, nil
}

// anthropicMessages converts the non-system part of a conversation.
func anthropicMessages(conversation []schema.Message) ([]anthropic.MessageParam, error) {
	out := make([]anthropic.MessageParam, 0, len(conversation))
	for _, m := range conversation {
		switch m.Role {
		case schema.RoleUser:
			out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		case schema.RoleAssistant:
			out = append(out, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		default:
			return nil, unsupportedRole(m.Role)
		}
	}
	return out, nil
}

func (p *anthropicProvider) Complete(ctx context.Context, messages []schema.Message, params Params) (string, error) {
	system, conversation := SplitSystem(messages)
	msgs, err := anthropicMessages(conversation)
	if err != nil {
		return "", err
	}
	maxTokens := params.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultAnthropicMaxTokens
	}

	req := anthropic.MessageNewParams{
		Model:       anthropic.Model(modelFor(params, p.model)),
		MaxTokens:   int64(maxTokens),
		Temperature: anthropic.Float(params.Temperature),
		Messages:    msgs,
	}
	if system != "" {
		req.System = []anthropic.TextBlockParam{{Text: system}}
	}
	msg, err := p.client.Messages.New(ctx, req)
	if err != nil {
		return "", &ProviderError{Provider: "anthropic", Op: "messages.new", Err: err}
	}

	var parts []string
	for _, block := range msg.Content {
		if block.Type == "text" {
			parts = append(parts, block.Text)
		}
	}
	if len(parts) == 0 {
		return "", &ProviderError{Provider: "anthropic", Op: "messages.new", Err: ErrNoContent}
	}
	return strings.Join(parts, ""), nil
}
