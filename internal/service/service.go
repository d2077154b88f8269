// Package service exposes the core operations of the StudyMate backend:
// ingest, chat, search, summarize, and document management.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bull/studymate-server/internal/extractor"
	"github.com/bull/studymate-server/internal/ingest"
	"github.com/bull/studymate-server/internal/provider"
	"github.com/bull/studymate-server/internal/retrieval"
	"github.com/bull/studymate-server/internal/storage"
)

// Validation errors, surfaced to the request layer as 400-equivalents.
var (
	ErrMissingMessages = errors.New("messages are required")
	ErrEmptyQuery      = errors.New("query is required")
	ErrNotPDF          = errors.New("only PDF files are supported")
	ErrTooLittleText   = errors.New("document contains insufficient text for summarization")
)

const (
	defaultSearchLimit = 5
	summarizeMaxChars  = 8000
)

// ChatRequest is a conversation to complete, optionally grounded in
// retrieved document context.
type ChatRequest struct {
	Messages      []provider.Message
	Params        provider.Params
	Preferred     string   // pin a specific backend; empty means priority order
	UseContext    bool     // retrieve document context for the last user turn
	DocumentScope []string // restrict retrieval to these documents
	TopK          int      // retrieved chunks; 0 means the configured default
}

// ChatResult is the served response. Degraded responses still carry
// non-empty content from the canned generator.
type ChatResult struct {
	Content           string
	BackendUsed       string
	Degraded          bool
	Errors            []string
	ContextChunksUsed int
}

// Service wires the ingestion pipeline, the context assembler, and the
// completion router behind the operations the request layer consumes.
type Service struct {
	pipeline  *ingest.Pipeline
	retriever *retrieval.Retriever
	router    *provider.Router
	extractor extractor.Extractor
	store     storage.Store
	indexer   ingest.Indexer
	topK      int
	logger    *slog.Logger
}

// New creates the service. topK is the default retrieval depth for chat.
func New(
	pipeline *ingest.Pipeline,
	retriever *retrieval.Retriever,
	router *provider.Router,
	ex extractor.Extractor,
	store storage.Store,
	indexer ingest.Indexer,
	topK int,
	logger *slog.Logger,
) *Service {
	if topK <= 0 {
		topK = 3
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		pipeline:  pipeline,
		retriever: retriever,
		router:    router,
		extractor: ex,
		store:     store,
		indexer:   indexer,
		topK:      topK,
		logger:    logger,
	}
}

// Ingest validates and processes an uploaded PDF.
func (s *Service) Ingest(ctx context.Context, fileBytes []byte, displayName string) (*ingest.Result, error) {
	if !strings.HasSuffix(strings.ToLower(displayName), ".pdf") {
		return nil, ErrNotPDF
	}
	return s.pipeline.Ingest(ctx, fileBytes, displayName)
}

// Chat completes a conversation, augmenting the last user turn with
// retrieved document context when enabled. Retrieval failures degrade to
// an unaugmented prompt; the user always gets a response.
func (s *Service) Chat(ctx context.Context, req ChatRequest) (*ChatResult, error) {
	if len(req.Messages) == 0 {
		return nil, ErrMissingMessages
	}

	var retrieved []retrieval.ScoredChunk
	if req.UseContext {
		if query := lastUserContent(req.Messages); query != "" {
			topK := req.TopK
			if topK <= 0 {
				topK = s.topK
			}
			var err error
			retrieved, err = s.retriever.Retrieve(ctx, query, topK, req.DocumentScope)
			if err != nil {
				s.logger.Warn("retrieval failed, answering without context", "error", err)
				retrieved = nil
			}
		}
	}

	messages := retrieval.AssemblePrompt(req.Messages, retrieved)
	result, err := s.router.Complete(ctx, messages, req.Params, req.Preferred)
	if err != nil {
		return nil, err
	}

	return &ChatResult{
		Content:           result.Content,
		BackendUsed:       result.BackendUsed,
		Degraded:          result.Degraded,
		Errors:            result.Errors,
		ContextChunksUsed: len(retrieved),
	}, nil
}

// Search returns the k most similar chunks for a query, most-similar
// first, optionally restricted to a document scope.
func (s *Service) Search(ctx context.Context, query string, k int, documentScope []string) ([]retrieval.ScoredChunk, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	if k <= 0 {
		k = defaultSearchLimit
	}
	return s.retriever.Retrieve(ctx, query, k, documentScope)
}

// SummarizeResult is a one-shot document summary; the document is not
// persisted.
type SummarizeResult struct {
	Summary         string
	BackendUsed     string
	Degraded        bool
	PageCount       int
	TotalCharacters int
}

// Summarize extracts a PDF's text and asks the router for a summary.
func (s *Service) Summarize(ctx context.Context, fileBytes []byte, displayName, preferred string) (*SummarizeResult, error) {
	if !strings.HasSuffix(strings.ToLower(displayName), ".pdf") {
		return nil, ErrNotPDF
	}
	pages, err := s.extractor.Extract(ctx, fileBytes)
	if err != nil {
		return nil, fmt.Errorf("extract: %w", err)
	}

	var fullText strings.Builder
	for _, p := range pages {
		fullText.WriteString(p.Text)
		fullText.WriteString("\n")
	}
	text := fullText.String()
	if len(strings.TrimSpace(text)) < 50 {
		return nil, ErrTooLittleText
	}
	if len(text) > summarizeMaxChars {
		text = text[:summarizeMaxChars]
	}

	messages := []provider.Message{
		{Role: "system", Content: "You are StudyMate, a helpful AI learning assistant. Provide comprehensive summaries of documents, focusing on key points, main ideas, and important details."},
		{Role: "user", Content: "Please provide a comprehensive summary of the following document:\n\n" + text},
	}
	result, err := s.router.Complete(ctx, messages, provider.Params{MaxTokens: 1000, Temperature: 0.3}, preferred)
	if err != nil {
		return nil, err
	}

	return &SummarizeResult{
		Summary:         result.Content,
		BackendUsed:     result.BackendUsed,
		Degraded:        result.Degraded,
		PageCount:       len(pages),
		TotalCharacters: len(fullText.String()),
	}, nil
}

// GetDocument returns one document record.
func (s *Service) GetDocument(ctx context.Context, id string) (*storage.Document, error) {
	return s.store.GetDocument(ctx, id)
}

// ListDocuments returns all document records.
func (s *Service) ListDocuments(ctx context.Context) ([]*storage.Document, error) {
	return s.store.ListDocuments(ctx)
}

// DeleteDocument removes a document, its chunks, and its index vectors.
func (s *Service) DeleteDocument(ctx context.Context, id string) error {
	if err := s.store.DeleteDocument(ctx, id); err != nil {
		return err
	}
	if err := s.indexer.RemoveDocument(ctx, id); err != nil {
		return fmt.Errorf("remove from index: %w", err)
	}
	return nil
}

// RebuildIndex repopulates the similarity index from the store.
func (s *Service) RebuildIndex(ctx context.Context) (int, error) {
	return s.pipeline.RebuildIndex(ctx)
}

// BackendNames lists configured completion backends in priority order.
func (s *Service) BackendNames() []string {
	return s.router.BackendNames()
}

func lastUserContent(messages []provider.Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "user" {
			return messages[i].Content
		}
	}
	return ""
}
