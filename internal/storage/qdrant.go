package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/qdrant/go-client/qdrant"

	"github.com/bull/studymate-server/internal/index"
)

// CollectionName is the single Qdrant collection for documents and chunks.
const CollectionName = "studymate"

const vectorName = "content"

var _ Store = (*QdrantStore)(nil)

// QdrantStore persists documents and chunks in Qdrant. Document points
// carry no vector; chunk points carry their embedding under the named
// vector "content", so the store doubles as the similarity searcher and
// the separate index mutation calls become no-ops.
type QdrantStore struct {
	client    *qdrant.Client
	dimension int
}

// NewQdrantStore connects to Qdrant and validates health with retry,
// failing fast if the server stays unreachable.
func NewQdrantStore(host string, port int, dimension int) (*QdrantStore, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host: host,
		Port: port,
	})
	if err != nil {
		return nil, fmt.Errorf("create qdrant client: %w", err)
	}

	store := &QdrantStore{client: client, dimension: dimension}

	if err := store.healthCheckWithRetry(context.Background()); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %v", ErrStoreUnreachable, err)
	}
	return store, nil
}

func (s *QdrantStore) healthCheckWithRetry(ctx context.Context) error {
	exponentialBackoff := backoff.NewExponentialBackOff()
	exponentialBackoff.InitialInterval = 500 * time.Millisecond
	exponentialBackoff.MaxInterval = 10 * time.Second
	exponentialBackoff.MaxElapsedTime = 30 * time.Second

	return backoff.Retry(func() error { return s.Health(ctx) }, exponentialBackoff)
}

// Health performs a single health check against Qdrant.
func (s *QdrantStore) Health(ctx context.Context) error {
	result, err := s.client.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	if result == nil || result.Title == "" {
		return fmt.Errorf("health check returned invalid response")
	}
	return nil
}

// EnsureCollection creates the collection and payload indexes if they do
// not exist yet. Idempotent.
func (s *QdrantStore) EnsureCollection(ctx context.Context) error {
	collections, err := s.client.ListCollections(ctx)
	if err != nil {
		return fmt.Errorf("list collections: %w", err)
	}
	for _, name := range collections {
		if name == CollectionName {
			return nil
		}
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: CollectionName,
		VectorsConfig: qdrant.NewVectorsConfigMap(map[string]*qdrant.VectorParams{
			vectorName: {
				Size:     uint64(s.dimension),
				Distance: qdrant.Distance_Cosine,
			},
		}),
	})
	if err != nil {
		return fmt.Errorf("create collection: %w", err)
	}

	// Without payload indexes, filtered queries degrade badly.
	for _, field := range []string{"type", "document_id"} {
		_, err := s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
			CollectionName: CollectionName,
			FieldName:      field,
			FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
		})
		if err != nil {
			return fmt.Errorf("create index for field %s: %w", field, err)
		}
	}
	return nil
}

// Close closes the Qdrant client connection.
func (s *QdrantStore) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

func (s *QdrantStore) upsertWithRetry(ctx context.Context, points []*qdrant.PointStruct) error {
	exponentialBackoff := backoff.NewExponentialBackOff()
	exponentialBackoff.InitialInterval = 500 * time.Millisecond
	exponentialBackoff.MaxInterval = 10 * time.Second
	exponentialBackoff.MaxElapsedTime = 30 * time.Second

	operation := func() error {
		_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: CollectionName,
			Points:         points,
		})
		return err
	}
	return backoff.Retry(operation, backoff.WithContext(exponentialBackoff, ctx))
}

func (s *QdrantStore) PutDocument(ctx context.Context, doc *Document) error {
	point := &qdrant.PointStruct{
		Id:      qdrant.NewIDUUID(doc.ID),
		Vectors: qdrant.NewVectorsMap(map[string]*qdrant.Vector{}),
		Payload: qdrant.NewValueMap(map[string]any{
			"type":         "document",
			"filename":     doc.DisplayName,
			"upload_time":  doc.UploadTime.Format(time.RFC3339),
			"total_pages":  doc.PageCount,
			"total_chunks": doc.TotalChunks,
			"status":       string(doc.Status),
		}),
	}
	return s.upsertWithRetry(ctx, []*qdrant.PointStruct{point})
}

func (s *QdrantStore) PutChunks(ctx context.Context, documentID string, chunks []*Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	for i, chunk := range chunks {
		if len(chunk.Embedding) != s.dimension {
			return fmt.Errorf("%w: chunk %d has %d dimensions, expected %d",
				ErrDimensionMismatch, i, len(chunk.Embedding), s.dimension)
		}
	}

	batchSize := 100
	for i := 0; i < len(chunks); i += batchSize {
		end := min(i+batchSize, len(chunks))
		batch := chunks[i:end]
		points := make([]*qdrant.PointStruct, len(batch))
		for j, chunk := range batch {
			points[j] = &qdrant.PointStruct{
				Id: qdrant.NewIDUUID(chunk.ID),
				Vectors: qdrant.NewVectorsMap(map[string]*qdrant.Vector{
					vectorName: qdrant.NewVector(chunk.Embedding...),
				}),
				Payload: qdrant.NewValueMap(map[string]any{
					"type":           "chunk",
					"document_id":    documentID,
					"content":        chunk.Content,
					"page_number":    chunk.PageNumber,
					"chunk_index":    chunk.SequenceIndex,
					"start_position": chunk.StartOffset,
					"end_position":   chunk.EndOffset,
				}),
			}
		}
		if err := s.upsertWithRetry(ctx, points); err != nil {
			return fmt.Errorf("upsert batch %d-%d: %w", i, end, err)
		}
	}
	return nil
}

func (s *QdrantStore) GetDocument(ctx context.Context, id string) (*Document, error) {
	result, err := s.client.Get(ctx, &qdrant.GetPoints{
		CollectionName: CollectionName,
		Ids:            []*qdrant.PointId{qdrant.NewIDUUID(id)},
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	if len(result) == 0 {
		return nil, ErrDocumentNotFound
	}

	payload := result[0].Payload
	if typeVal, ok := payload["type"]; !ok || typeVal.GetStringValue() != "document" {
		return nil, ErrDocumentNotFound
	}
	return documentFromPayload(id, payload), nil
}

func (s *QdrantStore) GetChunks(ctx context.Context, ids []string) ([]*Chunk, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	pointIDs := make([]*qdrant.PointId, len(ids))
	for i, id := range ids {
		pointIDs[i] = qdrant.NewIDUUID(id)
	}
	result, err := s.client.Get(ctx, &qdrant.GetPoints{
		CollectionName: CollectionName,
		Ids:            pointIDs,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("get chunks: %w", err)
	}

	// Preserve the requested order; Get does not guarantee it.
	byID := make(map[string]*Chunk, len(result))
	for _, point := range result {
		payload := point.Payload
		if typeVal, ok := payload["type"]; !ok || typeVal.GetStringValue() != "chunk" {
			continue
		}
		c := chunkFromPayload(point.Id.GetUuid(), payload)
		byID[c.ID] = c
	}
	chunks := make([]*Chunk, 0, len(byID))
	for _, id := range ids {
		if c, ok := byID[id]; ok {
			chunks = append(chunks, c)
		}
	}
	return chunks, nil
}

func (s *QdrantStore) ListChunks(ctx context.Context) ([]*Chunk, error) {
	var chunks []*Chunk
	var offset *qdrant.PointId
	batchSize := uint32(100)

	for {
		results, err := s.client.Scroll(ctx, &qdrant.ScrollPoints{
			CollectionName: CollectionName,
			Filter: &qdrant.Filter{
				Must: []*qdrant.Condition{qdrant.NewMatch("type", "chunk")},
			},
			Limit:       qdrant.PtrOf(batchSize),
			Offset:      offset,
			WithPayload: qdrant.NewWithPayload(true),
		})
		if err != nil {
			return nil, fmt.Errorf("scroll chunks: %w", err)
		}
		for _, point := range results {
			chunks = append(chunks, chunkFromPayload(point.Id.GetUuid(), point.Payload))
		}
		if uint32(len(results)) < batchSize {
			break
		}
		offset = results[len(results)-1].Id
	}
	return chunks, nil
}

func (s *QdrantStore) DeleteDocument(ctx context.Context, id string) error {
	if _, err := s.GetDocument(ctx, id); err != nil {
		return err
	}

	// Drop the document point, then every chunk point referencing it.
	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: CollectionName,
		Points:         qdrant.NewPointsSelector(qdrant.NewIDUUID(id)),
	})
	if err != nil {
		return fmt.Errorf("delete document point: %w", err)
	}
	_, err = s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: CollectionName,
		Points: qdrant.NewPointsSelectorFilter(&qdrant.Filter{
			Must: []*qdrant.Condition{qdrant.NewMatch("document_id", id)},
		}),
	})
	if err != nil {
		return fmt.Errorf("delete chunk points: %w", err)
	}
	return nil
}

func (s *QdrantStore) ListDocuments(ctx context.Context) ([]*Document, error) {
	var docs []*Document
	var offset *qdrant.PointId
	batchSize := uint32(100)

	for {
		results, err := s.client.Scroll(ctx, &qdrant.ScrollPoints{
			CollectionName: CollectionName,
			Filter: &qdrant.Filter{
				Must: []*qdrant.Condition{qdrant.NewMatch("type", "document")},
			},
			Limit:       qdrant.PtrOf(batchSize),
			Offset:      offset,
			WithPayload: qdrant.NewWithPayload(true),
		})
		if err != nil {
			return nil, fmt.Errorf("scroll documents: %w", err)
		}
		for _, point := range results {
			docs = append(docs, documentFromPayload(point.Id.GetUuid(), point.Payload))
		}
		if uint32(len(results)) < batchSize {
			break
		}
		offset = results[len(results)-1].Id
	}
	return docs, nil
}

// Search performs vector similarity search over chunk points, restricted
// to documentScope when non-empty. Scores come back as cosine similarity.
func (s *QdrantStore) Search(ctx context.Context, vector []float32, k int, documentScope []string) ([]index.Hit, error) {
	if len(vector) != s.dimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, expected %d",
			ErrDimensionMismatch, len(vector), s.dimension)
	}
	if k <= 0 {
		return nil, nil
	}

	must := []*qdrant.Condition{qdrant.NewMatch("type", "chunk")}
	if len(documentScope) > 0 {
		must = append(must, qdrant.NewMatchKeywords("document_id", documentScope...))
	}

	using := vectorName
	results, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: CollectionName,
		Query:          qdrant.NewQuery(vector...),
		Using:          &using,
		Filter:         &qdrant.Filter{Must: must},
		Limit:          qdrant.PtrOf(uint64(k)),
	})
	if err != nil {
		return nil, fmt.Errorf("search chunks: %w", err)
	}

	hits := make([]index.Hit, 0, len(results))
	for _, result := range results {
		hits = append(hits, index.Hit{
			ChunkID: result.Id.GetUuid(),
			Score:   float64(result.Score),
		})
	}
	return hits, nil
}

// Add is a no-op: chunk vectors are persisted by PutChunks.
func (s *QdrantStore) Add(context.Context, []index.Entry) error { return nil }

// Replace is a no-op: the collection already holds every chunk vector.
func (s *QdrantStore) Replace(context.Context, []index.Entry) error { return nil }

// RemoveDocument is a no-op: DeleteDocument drops the chunk points.
func (s *QdrantStore) RemoveDocument(context.Context, string) error { return nil }

func documentFromPayload(id string, payload map[string]*qdrant.Value) *Document {
	uploadTime, err := time.Parse(time.RFC3339, payload["upload_time"].GetStringValue())
	if err != nil {
		uploadTime = time.Time{}
	}
	return &Document{
		ID:          id,
		DisplayName: payload["filename"].GetStringValue(),
		UploadTime:  uploadTime,
		PageCount:   int(payload["total_pages"].GetIntegerValue()),
		TotalChunks: int(payload["total_chunks"].GetIntegerValue()),
		Status:      DocumentStatus(payload["status"].GetStringValue()),
	}
}

func chunkFromPayload(id string, payload map[string]*qdrant.Value) *Chunk {
	return &Chunk{
		ID:            id,
		DocumentID:    payload["document_id"].GetStringValue(),
		Content:       payload["content"].GetStringValue(),
		PageNumber:    int(payload["page_number"].GetIntegerValue()),
		SequenceIndex: int(payload["chunk_index"].GetIntegerValue()),
		StartOffset:   int(payload["start_position"].GetIntegerValue()),
		EndOffset:     int(payload["end_position"].GetIntegerValue()),
	}
}
