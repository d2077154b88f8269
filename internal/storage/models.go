package storage

import "time"

// DocumentStatus tracks a document through its ingestion lifecycle.
type DocumentStatus string

const (
	StatusPending DocumentStatus = "pending"
	StatusReady   DocumentStatus = "ready"
	StatusFailed  DocumentStatus = "failed"
)

// Document represents an uploaded PDF and its ingestion state.
// Status and TotalChunks are the only fields mutated after creation.
type Document struct {
	ID          string         `json:"id"`
	DisplayName string         `json:"filename"`
	UploadTime  time.Time      `json:"upload_time"`
	PageCount   int            `json:"total_pages"`
	TotalChunks int            `json:"total_chunks"`
	Status      DocumentStatus `json:"status"`
}

// Chunk is a bounded contiguous slice of a document's extracted text,
// independently embeddable and retrievable. Chunks are immutable once
// stored; deleting a document removes its chunks and their index vectors.
type Chunk struct {
	ID            string    `json:"chunk_id"`
	DocumentID    string    `json:"document_id"`
	Content       string    `json:"content"`
	PageNumber    int       `json:"page_number"`
	SequenceIndex int       `json:"chunk_index"`
	StartOffset   int       `json:"start_position"`
	EndOffset     int       `json:"end_position"`
	Embedding     []float32 `json:"-"`
}
