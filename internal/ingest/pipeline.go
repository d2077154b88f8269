// Package ingest orchestrates document ingestion: extract page text,
// chunk it, embed the chunks, then publish everything in one atomic step.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/bull/studymate-server/internal/chunker"
	"github.com/bull/studymate-server/internal/embedding"
	"github.com/bull/studymate-server/internal/extractor"
	"github.com/bull/studymate-server/internal/index"
	"github.com/bull/studymate-server/internal/storage"
)

// Indexer is the similarity index mutation surface the pipeline and the
// service publish to. The in-memory index implements it directly; the
// Qdrant store persists vectors with its chunks and implements these as
// no-ops.
type Indexer interface {
	Add(ctx context.Context, entries []index.Entry) error
	Replace(ctx context.Context, entries []index.Entry) error
	RemoveDocument(ctx context.Context, documentID string) error
}

// Result reports a completed ingestion.
type Result struct {
	Document        *storage.Document
	TotalCharacters int
	Duration        time.Duration
}

// Pipeline runs the full ingestion flow for one uploaded document.
// Ingestion is all-or-nothing: chunks and vectors are staged fully in
// memory and only published once embedding has succeeded for every
// chunk, so readers never observe a half-ingested document.
type Pipeline struct {
	extractor extractor.Extractor
	chunker   *chunker.Chunker
	embedder  embedding.Provider
	store     storage.Store
	indexer   Indexer
	logger    *slog.Logger
}

// NewPipeline creates an ingestion pipeline with the given components.
func NewPipeline(
	ex extractor.Extractor,
	ch *chunker.Chunker,
	emb embedding.Provider,
	store storage.Store,
	indexer Indexer,
	logger *slog.Logger,
) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		extractor: ex,
		chunker:   ch,
		embedder:  emb,
		store:     store,
		indexer:   indexer,
		logger:    logger,
	}
}

// Ingest processes uploaded file bytes into a ready document. On any
// failure the document record is stored with status failed and no chunks
// are committed.
func (p *Pipeline) Ingest(ctx context.Context, fileBytes []byte, displayName string) (*Result, error) {
	start := time.Now()
	doc := &storage.Document{
		ID:          uuid.New().String(),
		DisplayName: displayName,
		UploadTime:  time.Now().UTC(),
		Status:      storage.StatusPending,
	}

	pages, err := p.extractor.Extract(ctx, fileBytes)
	if err != nil {
		p.markFailed(ctx, doc)
		return nil, fmt.Errorf("extract: %w", err)
	}
	doc.PageCount = len(pages)

	chunks, totalChars := p.chunkPages(doc.ID, pages)
	if len(chunks) == 0 {
		p.markFailed(ctx, doc)
		return nil, fmt.Errorf("extract: %w", &extractor.ExtractionError{Err: extractor.ErrNoText})
	}
	p.logger.Debug("chunked document", "document_id", doc.ID, "chunks", len(chunks))

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	vectors, err := p.embedder.Embed(ctx, texts)
	if err != nil {
		p.markFailed(ctx, doc)
		return nil, fmt.Errorf("embed: %w", err)
	}

	entries := make([]index.Entry, len(chunks))
	for i, c := range chunks {
		c.Embedding = vectors[i]
		entries[i] = index.Entry{ChunkID: c.ID, DocumentID: doc.ID, Vector: vectors[i]}
	}

	// Publish: everything staged, now make it visible in one step.
	doc.Status = storage.StatusReady
	doc.TotalChunks = len(chunks)
	if err := p.store.PutDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("store document: %w", err)
	}
	if err := p.store.PutChunks(ctx, doc.ID, chunks); err != nil {
		p.markFailed(ctx, doc)
		return nil, fmt.Errorf("store chunks: %w", err)
	}
	if err := p.indexer.Add(ctx, entries); err != nil {
		p.markFailed(ctx, doc)
		return nil, fmt.Errorf("index chunks: %w", err)
	}

	p.logger.Info("ingested document",
		"document_id", doc.ID,
		"name", displayName,
		"pages", doc.PageCount,
		"chunks", doc.TotalChunks,
		"duration", time.Since(start),
	)

	return &Result{
		Document:        doc,
		TotalCharacters: totalChars,
		Duration:        time.Since(start),
	}, nil
}

// RebuildIndex repopulates the similarity index from stored chunks,
// replacing its previous contents atomically. Chunks without embeddings
// are skipped.
func (p *Pipeline) RebuildIndex(ctx context.Context) (int, error) {
	chunks, err := p.store.ListChunks(ctx)
	if err != nil {
		return 0, fmt.Errorf("list chunks: %w", err)
	}
	entries := make([]index.Entry, 0, len(chunks))
	for _, c := range chunks {
		if len(c.Embedding) == 0 {
			continue
		}
		entries = append(entries, index.Entry{ChunkID: c.ID, DocumentID: c.DocumentID, Vector: c.Embedding})
	}
	if err := p.indexer.Replace(ctx, entries); err != nil {
		return 0, fmt.Errorf("replace index: %w", err)
	}
	return len(entries), nil
}

// chunkPages splits each page and assigns document-wide sequence indices
// in extraction order.
func (p *Pipeline) chunkPages(documentID string, pages []extractor.Page) ([]*storage.Chunk, int) {
	var chunks []*storage.Chunk
	totalChars := 0
	seq := 0
	for _, page := range pages {
		totalChars += len(page.Text)
		for _, c := range p.chunker.Split(page.Text, page.PageNumber) {
			chunks = append(chunks, &storage.Chunk{
				ID:            uuid.New().String(),
				DocumentID:    documentID,
				Content:       c.Content,
				PageNumber:    c.PageNumber,
				SequenceIndex: seq,
				StartOffset:   c.StartOffset,
				EndOffset:     c.EndOffset,
			})
			seq++
		}
	}
	return chunks, totalChars
}

func (p *Pipeline) markFailed(ctx context.Context, doc *storage.Document) {
	doc.Status = storage.StatusFailed
	doc.TotalChunks = 0
	if err := p.store.PutDocument(ctx, doc); err != nil {
		p.logger.Warn("failed to record failed document", "document_id", doc.ID, "error", err)
	}
}
