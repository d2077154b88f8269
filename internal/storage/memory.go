package storage

import (
	"context"
	"sort"
	"sync"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore is the default in-process Store implementation. A single
// RWMutex covers documents and chunks so a chunk batch becomes visible
// in one step, never partially.
type MemoryStore struct {
	mu        sync.RWMutex
	documents map[string]Document
	chunks    map[string]Chunk   // chunk ID -> chunk
	byDoc     map[string][]string // document ID -> chunk IDs in sequence order
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		documents: make(map[string]Document),
		chunks:    make(map[string]Chunk),
		byDoc:     make(map[string][]string),
	}
}

func (s *MemoryStore) PutDocument(_ context.Context, doc *Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.documents[doc.ID] = *doc
	return nil
}

func (s *MemoryStore) PutChunks(_ context.Context, documentID string, chunks []*Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, len(chunks))
	for i, c := range chunks {
		s.chunks[c.ID] = *c
		ids[i] = c.ID
	}
	s.byDoc[documentID] = append(s.byDoc[documentID], ids...)
	return nil
}

func (s *MemoryStore) GetDocument(_ context.Context, id string) (*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.documents[id]
	if !ok {
		return nil, ErrDocumentNotFound
	}
	return &doc, nil
}

func (s *MemoryStore) GetChunks(_ context.Context, ids []string) ([]*Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Chunk, 0, len(ids))
	for _, id := range ids {
		if c, ok := s.chunks[id]; ok {
			chunk := c
			out = append(out, &chunk)
		}
	}
	return out, nil
}

func (s *MemoryStore) ListChunks(_ context.Context) ([]*Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Chunk, 0, len(s.chunks))
	for _, docID := range sortedKeys(s.byDoc) {
		for _, chunkID := range s.byDoc[docID] {
			c := s.chunks[chunkID]
			chunk := c
			out = append(out, &chunk)
		}
	}
	return out, nil
}

func (s *MemoryStore) DeleteDocument(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.documents[id]; !ok {
		return ErrDocumentNotFound
	}
	delete(s.documents, id)
	for _, chunkID := range s.byDoc[id] {
		delete(s.chunks, chunkID)
	}
	delete(s.byDoc, id)
	return nil
}

func (s *MemoryStore) ListDocuments(_ context.Context) ([]*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Document, 0, len(s.documents))
	for _, id := range sortedKeys(s.documents) {
		doc := s.documents[id]
		out = append(out, &doc)
	}
	return out, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
