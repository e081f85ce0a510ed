package store

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/dshills/fileindex-mcp/internal/embedder"
)

// memoryRecord pairs a stored record with its embedded vector.
type memoryRecord struct {
	record Record
	vector []float32
}

// Memory is an embedder-backed in-process Store. Records are embedded on
// upsert and ranked by cosine distance on query. It exists for single-node
// deployments and tests; nothing is persisted across restarts.
type Memory struct {
	embedder embedder.Embedder

	mu          sync.RWMutex
	collections map[string]map[string]memoryRecord
}

// NewMemory creates an in-memory store with the two standard collections.
func NewMemory(emb embedder.Embedder) *Memory {
	return &Memory{
		embedder: emb,
		collections: map[string]map[string]memoryRecord{
			CollectionMetadata: {},
			CollectionContent:  {},
		},
	}
}

func (m *Memory) Upsert(ctx context.Context, collection, key, text string, attrs map[string]string) error {
	emb, err := m.embedder.GenerateEmbedding(ctx, embedder.EmbeddingRequest{Text: text})
	if err != nil {
		return fmt.Errorf("embed record %s: %w", key, err)
	}

	// Copy attrs so later caller mutations cannot leak into the store.
	attrsCopy := make(map[string]string, len(attrs))
	for k, v := range attrs {
		attrsCopy[k] = v
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	coll, ok := m.collections[collection]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCollection, collection)
	}

	coll[key] = memoryRecord{
		record: Record{Key: key, Text: text, Attributes: attrsCopy},
		vector: emb.Vector,
	}
	return nil
}

func (m *Memory) Delete(ctx context.Context, collection, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	coll, ok := m.collections[collection]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCollection, collection)
	}

	// Absent key is not an error; delete is idempotent.
	delete(coll, key)
	return nil
}

func (m *Memory) Get(ctx context.Context, collection string, filter map[string]string) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	coll, ok := m.collections[collection]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCollection, collection)
	}

	var out []Record
	for _, rec := range coll {
		if attributesMatch(rec.record.Attributes, filter) {
			out = append(out, rec.record)
		}
	}
	return out, nil
}

func (m *Memory) Query(ctx context.Context, collection, queryText string, k int) ([]Hit, error) {
	if k <= 0 {
		return nil, nil
	}

	queryEmb, err := m.embedder.GenerateEmbedding(ctx, embedder.EmbeddingRequest{Text: queryText})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	coll, ok := m.collections[collection]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCollection, collection)
	}

	hits := make([]Hit, 0, len(coll))
	for _, rec := range coll {
		dist, err := cosineDistance(queryEmb.Vector, rec.vector)
		if err != nil {
			return nil, fmt.Errorf("distance for %s: %w", rec.record.Key, err)
		}
		hits = append(hits, Hit{
			Key:        rec.record.Key,
			Attributes: rec.record.Attributes,
			Distance:   dist,
		})
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Distance < hits[j].Distance })
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

func (m *Memory) Close() error {
	return nil
}

// attributesMatch reports whether attrs satisfies every pair in filter.
func attributesMatch(attrs, filter map[string]string) bool {
	for k, want := range filter {
		if attrs[k] != want {
			return false
		}
	}
	return true
}

// cosineDistance computes the cosine distance between two vectors.
// Result is in [0, 2]: 0 identical, 1 orthogonal, 2 opposite. A zero
// vector is treated as orthogonal to everything.
func cosineDistance(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("vector dimension mismatch: %d != %d", len(a), len(b))
	}
	if len(a) == 0 {
		return 0, fmt.Errorf("empty vectors")
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 1.0, nil
	}

	dist := 1.0 - dot/(math.Sqrt(normA)*math.Sqrt(normB))
	// Clamp float error outside [0, 2]
	if dist < 0 {
		dist = 0
	} else if dist > 2 {
		dist = 2
	}
	return dist, nil
}
