package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

var _ Backend = (*OpenAICompatBackend)(nil)

// OpenAICompatBackend speaks the OpenAI chat-completions wire format
// against any compatible endpoint. DeepSeek and local vLLM servers are
// both wired through this one implementation.
type OpenAICompatBackend struct {
	name    string
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

// NewDeepSeekBackend creates a backend for the DeepSeek API.
func NewDeepSeekBackend(apiKey, baseURL string) *OpenAICompatBackend {
	if baseURL == "" {
		baseURL = "https://api.deepseek.com/v1"
	}
	return newOpenAICompat("deepseek", baseURL, apiKey, "deepseek-chat")
}

// NewVLLMBackend creates a backend for a local vLLM server. vLLM needs
// no credential; it is configured by its endpoint alone.
func NewVLLMBackend(baseURL, model string) *OpenAICompatBackend {
	if model == "" {
		model = "mistralai/Mistral-7B-Instruct-v0.2"
	}
	return newOpenAICompat("vllm", baseURL, "", model)
}

func newOpenAICompat(name, baseURL, apiKey, model string) *OpenAICompatBackend {
	return &OpenAICompatBackend{
		name:    name,
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

func (b *OpenAICompatBackend) Name() string { return b.name }

type compatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
	Stream      bool      `json:"stream"`
}

type compatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (b *OpenAICompatBackend) Attempt(ctx context.Context, messages []Message, params Params) (string, error) {
	body, err := json.Marshal(compatRequest{
		Model:       b.model,
		Messages:    messages,
		MaxTokens:   params.MaxTokens,
		Temperature: params.Temperature,
	})
	if err != nil {
		return "", &ProviderError{Backend: b.name, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", &ProviderError{Backend: b.name, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	if b.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+b.apiKey)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return "", &ProviderError{Backend: b.name, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &ProviderError{Backend: b.name, Status: resp.StatusCode, Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return "", &ProviderError{
			Backend: b.name,
			Status:  resp.StatusCode,
			Err:     fmt.Errorf("api error: %s", truncate(string(raw), 200)),
		}
	}

	var parsed compatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", &ProviderError{Backend: b.name, Status: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	if len(parsed.Choices) == 0 {
		return "", &ProviderError{Backend: b.name, Status: resp.StatusCode, Err: errors.New("no choices in response")}
	}
	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
