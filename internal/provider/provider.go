// Package provider routes chat completions across interchangeable remote
// backends with fallback-on-failure semantics.
package provider

import (
	"context"
	"fmt"
)

// Message is a single chat turn.
type Message struct {
	Role    string `json:"role"` // system | user | assistant
	Content string `json:"content"`
}

// Params are the generation parameters passed to every backend.
type Params struct {
	MaxTokens   int
	Temperature float64
}

// Backend is one remote completion service. Adding a backend means
// implementing this interface and appending it to the router's priority
// list; the dispatch loop never changes.
type Backend interface {
	Name() string
	// Attempt requests a completion. Any failure (transport error, error
	// status, empty payload) is returned as an error, normally a
	// *ProviderError carrying the HTTP status when one is available.
	Attempt(ctx context.Context, messages []Message, params Params) (string, error)
}

// ProviderError is a typed failure from one backend attempt. Status is
// the HTTP-like status code when available, 0 otherwise.
type ProviderError struct {
	Backend string
	Status  int
	Err     error
}

func (e *ProviderError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Backend, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Backend, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }
