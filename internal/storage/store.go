// Package storage owns document and chunk records. The similarity index is
// a derived cache over this data and can be rebuilt from it at any time.
package storage

import "context"

// Store is the document/chunk store consumed by the ingestion pipeline and
// the context assembler. Implementations must make PutChunks atomic with
// respect to concurrent readers: either all chunks of a document are
// visible, or none.
type Store interface {
	// PutDocument creates or replaces a document record.
	PutDocument(ctx context.Context, doc *Document) error

	// PutChunks appends all chunks for one document as a single atomic batch.
	PutChunks(ctx context.Context, documentID string, chunks []*Chunk) error

	// GetDocument returns a document by ID, or ErrDocumentNotFound.
	GetDocument(ctx context.Context, id string) (*Document, error)

	// GetChunks resolves chunk IDs to records. Unknown IDs are skipped, not
	// errors: the index may briefly hold vectors for deleted chunks.
	GetChunks(ctx context.Context, ids []string) ([]*Chunk, error)

	// ListChunks returns every stored chunk; used to rebuild the index.
	ListChunks(ctx context.Context) ([]*Chunk, error)

	// DeleteDocument removes a document and all of its chunks.
	// Returns ErrDocumentNotFound if the document does not exist.
	DeleteDocument(ctx context.Context, id string) error

	// ListDocuments returns all document records.
	ListDocuments(ctx context.Context) ([]*Document, error)
}
