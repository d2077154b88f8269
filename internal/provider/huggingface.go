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

var _ Backend = (*HuggingFaceBackend)(nil)

// HuggingFaceBackend obtains completions from the Hugging Face Inference
// API, which takes a flattened conversation prompt rather than a message
// list.
type HuggingFaceBackend struct {
	apiKey string
	apiURL string
	client *http.Client
}

// NewHuggingFaceBackend creates the backend against the given model URL.
func NewHuggingFaceBackend(apiKey, apiURL string) *HuggingFaceBackend {
	return &HuggingFaceBackend{
		apiKey: apiKey,
		apiURL: apiURL,
		client: &http.Client{Timeout: 60 * time.Second},
	}
}

func (b *HuggingFaceBackend) Name() string { return "huggingface" }

type hfRequest struct {
	Inputs     string       `json:"inputs"`
	Parameters hfParameters `json:"parameters"`
}

type hfParameters struct {
	MaxNewTokens   int     `json:"max_new_tokens"`
	Temperature    float64 `json:"temperature"`
	TopP           float64 `json:"top_p"`
	DoSample       bool    `json:"do_sample"`
	ReturnFullText bool    `json:"return_full_text"`
}

type hfChoice struct {
	GeneratedText string `json:"generated_text"`
}

func (b *HuggingFaceBackend) Attempt(ctx context.Context, messages []Message, params Params) (string, error) {
	body, err := json.Marshal(hfRequest{
		Inputs: flattenConversation(messages),
		Parameters: hfParameters{
			MaxNewTokens:   params.MaxTokens,
			Temperature:    params.Temperature,
			TopP:           0.9,
			DoSample:       true,
			ReturnFullText: false,
		},
	})
	if err != nil {
		return "", &ProviderError{Backend: b.Name(), Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.apiURL, bytes.NewReader(body))
	if err != nil {
		return "", &ProviderError{Backend: b.Name(), Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+b.apiKey)

	resp, err := b.client.Do(req)
	if err != nil {
		return "", &ProviderError{Backend: b.Name(), Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &ProviderError{Backend: b.Name(), Status: resp.StatusCode, Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return "", &ProviderError{
			Backend: b.Name(),
			Status:  resp.StatusCode,
			Err:     fmt.Errorf("api error: %s", truncate(string(raw), 200)),
		}
	}

	// The inference API returns either a list of generations or a single
	// object, depending on the model.
	var list []hfChoice
	if err := json.Unmarshal(raw, &list); err == nil && len(list) > 0 {
		return strings.TrimSpace(list[0].GeneratedText), nil
	}
	var single hfChoice
	if err := json.Unmarshal(raw, &single); err == nil && single.GeneratedText != "" {
		return strings.TrimSpace(single.GeneratedText), nil
	}
	return "", &ProviderError{Backend: b.Name(), Status: resp.StatusCode, Err: errors.New("unexpected response format")}
}

// flattenConversation renders the message list as a plain text dialog
// ending with an open assistant turn, with any system message first.
func flattenConversation(messages []Message) string {
	var system, dialog strings.Builder
	for _, m := range messages {
		switch m.Role {
		case "system":
			system.WriteString("System: " + m.Content + "\n")
		case "assistant":
			dialog.WriteString("Assistant: " + m.Content + "\n")
		default:
			dialog.WriteString("User: " + m.Content + "\n")
		}
	}
	return system.String() + dialog.String() + "Assistant:"
}
