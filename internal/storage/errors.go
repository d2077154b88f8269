package storage

import "errors"

var (
	ErrDocumentNotFound  = errors.New("document not found")
	ErrChunkNotFound     = errors.New("chunk not found")
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	ErrStoreUnreachable  = errors.New("store unreachable")
)
