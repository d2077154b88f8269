// Package extractor turns uploaded file bytes into page-tagged plain text.
package extractor

import (
	"context"
	"errors"
	"fmt"
)

// ErrNoText indicates the file was parsed but no extractable text was
// found. Ingestion treats this as a failure, not an empty success.
var ErrNoText = errors.New("no extractable text")

// Page is the extracted text of a single page. Page numbers start at 1.
type Page struct {
	PageNumber int
	Text       string
}

// Extractor converts raw file bytes into ordered pages of text.
type Extractor interface {
	Extract(ctx context.Context, fileBytes []byte) ([]Page, error)
}

// ExtractionError wraps a parser failure so callers can distinguish
// unreadable input from infrastructure errors.
type ExtractionError struct {
	Err error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction failed: %v", e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }
