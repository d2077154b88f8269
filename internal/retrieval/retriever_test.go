package retrieval

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bull/studymate-server/internal/index"
	"github.com/bull/studymate-server/internal/provider"
	"github.com/bull/studymate-server/internal/storage"
)

type fakeEmbedder struct {
	vector []float32
	err    error
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = f.vector
	}
	return out, nil
}

func (f *fakeEmbedder) Dimension() int { return len(f.vector) }

type fakeSearcher struct {
	hits     []index.Hit
	err      error
	gotScope []string
}

func (f *fakeSearcher) Search(_ context.Context, _ []float32, _ int, scope []string) ([]index.Hit, error) {
	f.gotScope = scope
	return f.hits, f.err
}

func seedStore(t *testing.T, chunks ...*storage.Chunk) storage.Store {
	t.Helper()
	store := storage.NewMemoryStore()
	require.NoError(t, store.PutChunks(context.Background(), "doc-1", chunks))
	return store
}

func TestRetrieve_ResolvesInHitOrder(t *testing.T) {
	store := seedStore(t,
		&storage.Chunk{ID: "c1", DocumentID: "doc-1", Content: "mitochondria"},
		&storage.Chunk{ID: "c2", DocumentID: "doc-1", Content: "chloroplast"},
	)
	searcher := &fakeSearcher{hits: []index.Hit{
		{ChunkID: "c2", Score: 0.9},
		{ChunkID: "c1", Score: 0.5},
	}}
	r := NewRetriever(&fakeEmbedder{vector: []float32{1, 0}}, searcher, store, nil)

	results, err := r.Retrieve(context.Background(), "photosynthesis", 2, []string{"doc-1"})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "chloroplast", results[0].Chunk.Content)
	assert.Equal(t, 0.9, results[0].Score)
	assert.Equal(t, "mitochondria", results[1].Chunk.Content)
	assert.Equal(t, []string{"doc-1"}, searcher.gotScope)
}

func TestRetrieve_SkipsStaleHits(t *testing.T) {
	store := seedStore(t, &storage.Chunk{ID: "c1", DocumentID: "doc-1", Content: "kept"})
	searcher := &fakeSearcher{hits: []index.Hit{
		{ChunkID: "deleted", Score: 0.95},
		{ChunkID: "c1", Score: 0.6},
	}}
	r := NewRetriever(&fakeEmbedder{vector: []float32{1, 0}}, searcher, store, nil)

	results, err := r.Retrieve(context.Background(), "query", 2, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "kept", results[0].Chunk.Content)
}

func TestRetrieve_NoHits(t *testing.T) {
	store := storage.NewMemoryStore()
	r := NewRetriever(&fakeEmbedder{vector: []float32{1, 0}}, &fakeSearcher{}, store, nil)

	results, err := r.Retrieve(context.Background(), "query", 3, nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestRetrieve_EmbedError(t *testing.T) {
	r := NewRetriever(&fakeEmbedder{err: errors.New("quota exceeded")}, &fakeSearcher{}, storage.NewMemoryStore(), nil)

	_, err := r.Retrieve(context.Background(), "query", 3, nil)
	assert.Error(t, err)
}

func TestAssemblePrompt_NoContext(t *testing.T) {
	base := []provider.Message{{Role: "user", Content: "what is osmosis?"}}

	out := AssemblePrompt(base, nil)
	assert.Equal(t, base, out)
}

func TestAssemblePrompt_InjectsContext(t *testing.T) {
	base := []provider.Message{
		{Role: "system", Content: "be concise"},
		{Role: "user", Content: "what is osmosis?"},
	}
	retrieved := []ScoredChunk{
		{Chunk: &storage.Chunk{Content: "Osmosis is diffusion of water."}, Score: 0.9},
		{Chunk: &storage.Chunk{Content: "Across a semipermeable membrane."}, Score: 0.7},
	}

	out := AssemblePrompt(base, retrieved)
	require.Len(t, out, 2)
	assert.Equal(t, base[0], out[0], "system message passes through")

	prompt := out[1].Content
	assert.Equal(t, "user", out[1].Role)
	assert.Contains(t, prompt, "Document Context 1:\nOsmosis is diffusion of water.")
	assert.Contains(t, prompt, "Document Context 2:\nAcross a semipermeable membrane.")
	assert.Contains(t, prompt, "User Question: what is osmosis?")
	assert.True(t, strings.Contains(prompt, "StudyMate"))

	// The input slice is not mutated.
	assert.Equal(t, "what is osmosis?", base[1].Content)
}

func TestAssemblePrompt_ReplacesLastUserTurn(t *testing.T) {
	base := []provider.Message{
		{Role: "user", Content: "first question"},
		{Role: "assistant", Content: "first answer"},
		{Role: "user", Content: "second question"},
	}
	retrieved := []ScoredChunk{{Chunk: &storage.Chunk{Content: "ctx"}, Score: 1}}

	out := AssemblePrompt(base, retrieved)
	require.Len(t, out, 3)
	assert.Equal(t, "first question", out[0].Content)
	assert.Equal(t, "first answer", out[1].Content)
	assert.Contains(t, out[2].Content, "User Question: second question")
}

func TestAssemblePrompt_NoUserTurn(t *testing.T) {
	base := []provider.Message{{Role: "system", Content: "be concise"}}
	retrieved := []ScoredChunk{{Chunk: &storage.Chunk{Content: "ctx"}, Score: 1}}

	out := AssemblePrompt(base, retrieved)
	assert.Equal(t, base, out)
}
