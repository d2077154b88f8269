package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDocument(id string) *Document {
	return &Document{
		ID:          id,
		DisplayName: id + ".pdf",
		UploadTime:  time.Now().UTC(),
		PageCount:   2,
		TotalChunks: 2,
		Status:      StatusReady,
	}
}

func testChunks(docID string) []*Chunk {
	return []*Chunk{
		{ID: docID + "-c0", DocumentID: docID, Content: "first chunk", PageNumber: 1, SequenceIndex: 0},
		{ID: docID + "-c1", DocumentID: docID, Content: "second chunk", PageNumber: 2, SequenceIndex: 1},
	}
}

func TestMemoryStore_DocumentRoundTrip(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	doc := testDocument("doc-1")
	require.NoError(t, store.PutDocument(ctx, doc))

	got, err := store.GetDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, doc.DisplayName, got.DisplayName)
	assert.Equal(t, StatusReady, got.Status)

	// The store holds a copy; mutating the returned record changes nothing.
	got.Status = StatusFailed
	again, err := store.GetDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, StatusReady, again.Status)
}

func TestMemoryStore_GetDocumentNotFound(t *testing.T) {
	store := NewMemoryStore()

	_, err := store.GetDocument(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrDocumentNotFound)
}

func TestMemoryStore_PutDocumentReplaces(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	doc := testDocument("doc-1")
	doc.Status = StatusPending
	require.NoError(t, store.PutDocument(ctx, doc))

	doc.Status = StatusReady
	require.NoError(t, store.PutDocument(ctx, doc))

	got, err := store.GetDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, StatusReady, got.Status)
}

func TestMemoryStore_ChunkRetrieval(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.PutDocument(ctx, testDocument("doc-1")))
	require.NoError(t, store.PutChunks(ctx, "doc-1", testChunks("doc-1")))

	// Requested order is preserved, unknown IDs are skipped.
	chunks, err := store.GetChunks(ctx, []string{"doc-1-c1", "ghost", "doc-1-c0"})
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, "doc-1-c1", chunks[0].ID)
	assert.Equal(t, "doc-1-c0", chunks[1].ID)
}

func TestMemoryStore_ListChunks(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.PutChunks(ctx, "doc-a", testChunks("doc-a")))
	require.NoError(t, store.PutChunks(ctx, "doc-b", testChunks("doc-b")))

	chunks, err := store.ListChunks(ctx)
	require.NoError(t, err)
	assert.Len(t, chunks, 4)
}

func TestMemoryStore_DeleteDocument(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.PutDocument(ctx, testDocument("doc-1")))
	require.NoError(t, store.PutChunks(ctx, "doc-1", testChunks("doc-1")))

	require.NoError(t, store.DeleteDocument(ctx, "doc-1"))

	_, err := store.GetDocument(ctx, "doc-1")
	assert.ErrorIs(t, err, ErrDocumentNotFound)

	chunks, err := store.GetChunks(ctx, []string{"doc-1-c0", "doc-1-c1"})
	require.NoError(t, err)
	assert.Empty(t, chunks, "chunks must be deleted with their document")

	assert.ErrorIs(t, store.DeleteDocument(ctx, "doc-1"), ErrDocumentNotFound)
}

func TestMemoryStore_ListDocuments(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	docs, err := store.ListDocuments(ctx)
	require.NoError(t, err)
	assert.Empty(t, docs)

	require.NoError(t, store.PutDocument(ctx, testDocument("doc-b")))
	require.NoError(t, store.PutDocument(ctx, testDocument("doc-a")))

	docs, err = store.ListDocuments(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "doc-a", docs[0].ID)
	assert.Equal(t, "doc-b", docs[1].ID)
}
