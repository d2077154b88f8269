// Package embedding maps text to fixed-dimension vectors using OpenAI's
// embedding API.
package embedding

import (
	"context"
	"fmt"
)

// Provider is the embedding capability consumed by the ingestion pipeline
// and the context assembler. Implementations return one vector per input
// text, in the same order.
type Provider interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}

// EmbeddingError marks a failure in embedding generation. During
// retrieval it degrades the request to an unaugmented response instead
// of failing it; during ingestion it fails the whole document.
type EmbeddingError struct {
	Err error
}

func (e *EmbeddingError) Error() string {
	return fmt.Sprintf("embedding failed: %v", e.Err)
}

func (e *EmbeddingError) Unwrap() error { return e.Err }
