package provider

import (
	"context"
	"errors"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

var _ Backend = (*OpenAIBackend)(nil)

// OpenAIBackend obtains completions from the OpenAI chat API.
type OpenAIBackend struct {
	client openai.Client
	model  string
}

// NewOpenAIBackend creates the backend. Model defaults to gpt-4o-mini.
func NewOpenAIBackend(apiKey, model string) *OpenAIBackend {
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &OpenAIBackend{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}
}

func (b *OpenAIBackend) Name() string { return "openai" }

func (b *OpenAIBackend) Attempt(ctx context.Context, messages []Message, params Params) (string, error) {
	oaiMessages := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case "system":
			oaiMessages = append(oaiMessages, openai.SystemMessage(m.Content))
		case "assistant":
			oaiMessages = append(oaiMessages, openai.AssistantMessage(m.Content))
		default:
			oaiMessages = append(oaiMessages, openai.UserMessage(m.Content))
		}
	}

	resp, err := b.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages:    oaiMessages,
		Model:       b.model,
		MaxTokens:   openai.Int(int64(params.MaxTokens)),
		Temperature: openai.Float(params.Temperature),
	})
	if err != nil {
		status := 0
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			status = apiErr.StatusCode
		}
		return "", &ProviderError{Backend: b.Name(), Status: status, Err: err}
	}
	if len(resp.Choices) == 0 {
		return "", &ProviderError{Backend: b.Name(), Err: errors.New("no choices in response")}
	}
	return resp.Choices[0].Message.Content, nil
}
