// Package index provides an exact in-memory cosine similarity index over
// chunk embeddings. It is a derived, disposable cache: the store remains
// the source of truth and the index can be rebuilt from it at any time.
package index

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
)

// Entry associates a chunk's embedding with its identifiers. The index
// holds no chunk content, only the back-reference into the store.
type Entry struct {
	ChunkID    string
	DocumentID string
	Vector     []float32
}

// Hit is a search result: a chunk ID with its cosine similarity score.
type Hit struct {
	ChunkID string
	Score   float64
}

type entry struct {
	chunkID    string
	documentID string
	vector     []float32 // L2-normalized
}

// Index performs brute-force nearest-neighbor search by inner product.
// Vectors are L2-normalized on insertion and query vectors on search, so
// the inner product equals cosine similarity. Safe for concurrent use;
// Replace swaps the whole vector set atomically.
type Index struct {
	mu      sync.RWMutex
	dim     int
	entries []entry
}

// New creates an empty index expecting vectors of the given dimension.
func New(dimension int) *Index {
	return &Index{dim: dimension}
}

// Add appends a batch of entries. The batch becomes searchable in one
// step; concurrent searches never observe part of it.
func (x *Index) Add(_ context.Context, batch []Entry) error {
	prepared, err := x.prepare(batch)
	if err != nil {
		return err
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	x.entries = append(x.entries, prepared...)
	return nil
}

// Replace rebuilds the index from scratch with the given entries,
// atomically from the caller's perspective.
func (x *Index) Replace(_ context.Context, batch []Entry) error {
	prepared, err := x.prepare(batch)
	if err != nil {
		return err
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	x.entries = prepared
	return nil
}

// RemoveDocument drops every vector belonging to the given document.
func (x *Index) RemoveDocument(_ context.Context, documentID string) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	kept := x.entries[:0]
	for _, e := range x.entries {
		if e.documentID != documentID {
			kept = append(kept, e)
		}
	}
	x.entries = kept
	return nil
}

// Search returns up to k hits ordered by descending similarity. When
// documentScope is non-empty, only vectors from those documents are
// candidates. Searching an empty index returns an empty slice.
func (x *Index) Search(_ context.Context, query []float32, k int, documentScope []string) ([]Hit, error) {
	if len(query) != x.dim {
		return nil, fmt.Errorf("query has %d dimensions, expected %d", len(query), x.dim)
	}
	q := normalize(query)

	var scope map[string]struct{}
	if len(documentScope) > 0 {
		scope = make(map[string]struct{}, len(documentScope))
		for _, id := range documentScope {
			scope[id] = struct{}{}
		}
	}

	x.mu.RLock()
	defer x.mu.RUnlock()

	hits := make([]Hit, 0, len(x.entries))
	for _, e := range x.entries {
		if scope != nil {
			if _, ok := scope[e.documentID]; !ok {
				continue
			}
		}
		hits = append(hits, Hit{ChunkID: e.chunkID, Score: dot(e.vector, q)})
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if k < 0 {
		k = 0
	}
	if k > len(hits) {
		k = len(hits)
	}
	return hits[:k], nil
}

// Len reports the number of indexed vectors.
func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.entries)
}

func (x *Index) prepare(batch []Entry) ([]entry, error) {
	prepared := make([]entry, 0, len(batch))
	for _, e := range batch {
		if len(e.Vector) != x.dim {
			return nil, fmt.Errorf("chunk %s has %d dimensions, expected %d", e.ChunkID, len(e.Vector), x.dim)
		}
		prepared = append(prepared, entry{
			chunkID:    e.ChunkID,
			documentID: e.DocumentID,
			vector:     normalize(e.Vector),
		})
	}
	return prepared, nil
}

// normalize returns a unit-length copy of v. Zero vectors are returned
// as-is; they score 0 against everything.
func normalize(v []float32) []float32 {
	var sum float64
	for _, f := range v {
		sum += float64(f) * float64(f)
	}
	norm := math.Sqrt(sum)
	out := make([]float32, len(v))
	if norm == 0 {
		copy(out, v)
		return out
	}
	for i, f := range v {
		out[i] = float32(float64(f) / norm)
	}
	return out
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
