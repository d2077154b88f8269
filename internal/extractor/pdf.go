package extractor

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

var _ Extractor = (*PDFExtractor)(nil)

// PDFExtractor extracts plain text page by page from PDF bytes.
type PDFExtractor struct{}

// NewPDFExtractor creates a PDF text extractor.
func NewPDFExtractor() *PDFExtractor {
	return &PDFExtractor{}
}

// Extract parses the PDF and returns one Page per document page.
// A document whose pages all come back empty yields ErrNoText so the
// caller can mark the upload failed instead of silently storing nothing.
func (e *PDFExtractor) Extract(_ context.Context, fileBytes []byte) (pages []Page, err error) {
	// The pdf library panics on some malformed files; contain that to an
	// ExtractionError like any other parse failure.
	defer func() {
		if r := recover(); r != nil {
			pages = nil
			err = &ExtractionError{Err: fmt.Errorf("pdf parser panic: %v", r)}
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(fileBytes), int64(len(fileBytes)))
	if err != nil {
		return nil, &ExtractionError{Err: err}
	}

	hasText := false
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, Page{PageNumber: i})
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, &ExtractionError{Err: fmt.Errorf("page %d: %w", i, err)}
		}
		if strings.TrimSpace(text) != "" {
			hasText = true
		}
		pages = append(pages, Page{PageNumber: i, Text: text})
	}

	if !hasText {
		return nil, &ExtractionError{Err: ErrNoText}
	}
	return pages, nil
}
