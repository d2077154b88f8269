// Package retrieval implements the context assembler: embed a query,
// search the similarity index, resolve chunks from the store, and build
// a context-augmented prompt for the completion router.
package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bull/studymate-server/internal/embedding"
	"github.com/bull/studymate-server/internal/index"
	"github.com/bull/studymate-server/internal/provider"
	"github.com/bull/studymate-server/internal/storage"
)

// Searcher is the nearest-neighbor search capability the retriever
// consumes. The in-memory index implements it directly; the Qdrant store
// implements it over a remote query.
type Searcher interface {
	Search(ctx context.Context, vector []float32, k int, documentScope []string) ([]index.Hit, error)
}

// ScoredChunk pairs a resolved chunk with its similarity score.
type ScoredChunk struct {
	Chunk *storage.Chunk
	Score float64
}

// Retriever resolves queries to the most similar stored chunks.
type Retriever struct {
	embedder embedding.Provider
	searcher Searcher
	store    storage.Store
	logger   *slog.Logger
}

// NewRetriever wires the retriever's collaborators.
func NewRetriever(embedder embedding.Provider, searcher Searcher, store storage.Store, logger *slog.Logger) *Retriever {
	if logger == nil {
		logger = slog.Default()
	}
	return &Retriever{embedder: embedder, searcher: searcher, store: store, logger: logger}
}

// Retrieve embeds the query, searches the index (restricted to
// documentScope when non-empty), and resolves the hits to chunk records
// in similarity order. Hits whose chunk has since been deleted are
// skipped; the index is a cache and may briefly run ahead of the store.
func (r *Retriever) Retrieve(ctx context.Context, query string, k int, documentScope []string) ([]ScoredChunk, error) {
	vectors, err := r.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	hits, err := r.searcher.Search(ctx, vectors[0], k, documentScope)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}
	if len(hits) == 0 {
		return nil, nil
	}

	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.ChunkID
	}
	chunks, err := r.store.GetChunks(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("resolve chunks: %w", err)
	}

	byID := make(map[string]*storage.Chunk, len(chunks))
	for _, c := range chunks {
		byID[c.ID] = c
	}

	results := make([]ScoredChunk, 0, len(hits))
	for _, h := range hits {
		chunk, ok := byID[h.ChunkID]
		if !ok {
			r.logger.Debug("skipping stale index entry", "chunk_id", h.ChunkID)
			continue
		}
		results = append(results, ScoredChunk{Chunk: chunk, Score: h.Score})
	}
	return results, nil
}

// AssemblePrompt injects retrieved chunk contents into the conversation.
// With nothing retrieved the messages pass through unchanged. Otherwise
// the final user turn is replaced by a prompt embedding the labeled
// context block followed by the original question; every other message,
// and the overall order, is preserved.
func AssemblePrompt(baseMessages []provider.Message, retrieved []ScoredChunk) []provider.Message {
	if len(retrieved) == 0 {
		return baseMessages
	}

	last := -1
	for i := len(baseMessages) - 1; i >= 0; i-- {
		if baseMessages[i].Role == "user" {
			last = i
			break
		}
	}
	if last == -1 {
		return baseMessages
	}

	blocks := make([]string, len(retrieved))
	for i, sc := range retrieved {
		blocks[i] = fmt.Sprintf("Document Context %d:\n%s", i+1, sc.Chunk.Content)
	}

	augmented := fmt.Sprintf(`You are StudyMate, an AI learning assistant. Use the following document context to answer the user's question. If the context doesn't contain relevant information, provide a helpful general response.

Document Context:
%s

User Question: %s

Please provide a helpful and accurate response based on the context above:`,
		strings.Join(blocks, "\n\n"), baseMessages[last].Content)

	out := make([]provider.Message, len(baseMessages))
	copy(out, baseMessages)
	out[last] = provider.Message{Role: "user", Content: augmented}
	return out
}
