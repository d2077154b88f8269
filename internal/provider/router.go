package provider

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"
)

const (
	// DefaultTimeout bounds each individual backend attempt.
	DefaultTimeout = 30 * time.Second

	defaultMaxTokens = 500
)

// ErrUnknownBackend is returned when a request names a backend that is
// not in the router's configured list.
var ErrUnknownBackend = errors.New("unknown backend")

// Result is the outcome of a completion request. Content is never empty:
// when every backend fails, Degraded is true and Content comes from the
// local canned-response generator.
type Result struct {
	Content     string
	BackendUsed string
	Degraded    bool
	Errors      []string
}

// Router tries configured backends in priority order until one succeeds.
// A request may pin a specific backend; a pinned backend that fails is
// never silently substituted by another.
type Router struct {
	backends []Backend
	timeout  time.Duration
	logger   *slog.Logger
}

// NewRouter creates a router over the given backends, highest priority
// first. A non-positive timeout falls back to DefaultTimeout.
func NewRouter(backends []Backend, timeout time.Duration, logger *slog.Logger) *Router {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{backends: backends, timeout: timeout, logger: logger}
}

// BackendNames lists the configured backends in priority order.
func (r *Router) BackendNames() []string {
	names := make([]string, len(r.backends))
	for i, b := range r.backends {
		names[i] = b.Name()
	}
	return names
}

// Complete obtains a completion. With preferred empty, backends are tried
// in priority order; otherwise only the named backend is attempted.
// Non-success (error, timeout, empty payload) moves on to the next
// candidate with the failure recorded. When every candidate fails the
// result is a degraded canned response, not an error; the only error
// return is an unknown preferred backend.
func (r *Router) Complete(ctx context.Context, messages []Message, params Params, preferred string) (*Result, error) {
	if params.MaxTokens <= 0 {
		params.MaxTokens = defaultMaxTokens
	}
	if params.Temperature < 0 {
		params.Temperature = 0
	}
	if params.Temperature > 2 {
		params.Temperature = 2
	}

	candidates := r.backends
	if preferred != "" {
		b := r.find(preferred)
		if b == nil {
			return nil, ErrUnknownBackend
		}
		candidates = []Backend{b}
	}

	var failures []string
	for _, b := range candidates {
		content, err := r.attempt(ctx, b, messages, params)
		if err != nil {
			failures = append(failures, err.Error())
			r.logger.Warn("backend failed, trying next",
				"backend", b.Name(),
				"error", err,
			)
			continue
		}
		if len(failures) > 0 {
			r.logger.Info("completion served by fallback backend",
				"backend", b.Name(),
				"failed_attempts", len(failures),
			)
		}
		return &Result{
			Content:     content,
			BackendUsed: b.Name(),
			Errors:      failures,
		}, nil
	}

	r.logger.Warn("all backends failed, serving canned response",
		"attempts", len(failures),
	)
	return &Result{
		Content:     CannedResponse(messages),
		BackendUsed: "fallback",
		Degraded:    true,
		Errors:      failures,
	}, nil
}

func (r *Router) attempt(ctx context.Context, b Backend, messages []Message, params Params) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	content, err := b.Attempt(ctx, messages, params)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(content) == "" {
		return "", &ProviderError{Backend: b.Name(), Err: errors.New("empty completion")}
	}
	return content, nil
}

func (r *Router) find(name string) Backend {
	for _, b := range r.backends {
		if b.Name() == name {
			return b
		}
	}
	return nil
}
