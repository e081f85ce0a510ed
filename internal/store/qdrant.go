package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/fileindex-mcp/internal/embedder"
)

// QdrantConfig contains connection details for a Qdrant vector store.
type QdrantConfig struct {
	URL     string
	APIKey  string
	Timeout time.Duration
}

// Qdrant is a minimal REST client implementing Store against a Qdrant
// server. It assumes cosine distance and creates the two collections if
// missing. Qdrant point IDs must be UUIDs, so namespaced record keys are
// mapped to deterministic UUIDv5 values; the original key travels in the
// payload.
type Qdrant struct {
	url      string
	apiKey   string
	embedder embedder.Embedder
	client   *http.Client
}

// NewQdrant creates a Qdrant-backed store and ensures both collections
// exist.
func NewQdrant(ctx context.Context, cfg QdrantConfig, emb embedder.Embedder) (*Qdrant, error) {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}

	q := &Qdrant{
		url:      cfg.URL,
		apiKey:   cfg.APIKey,
		embedder: emb,
		client:   &http.Client{Timeout: timeout},
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, coll := range []string{CollectionMetadata, CollectionContent} {
		g.Go(func() error {
			if err := q.ensureCollection(gctx, coll); err != nil {
				return fmt.Errorf("%w: ensure collection %s: %v", ErrStoreUnavailable, coll, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return q, nil
}

func (q *Qdrant) ensureCollection(ctx context.Context, collection string) error {
	body := map[string]any{
		"vectors": map[string]any{
			"size":     q.embedder.Dimension(),
			"distance": "Cosine",
		},
	}
	// Qdrant returns 200 if the collection already exists with the same
	// schema; a conflict error propagates.
	return q.do(ctx, http.MethodPut, fmt.Sprintf("/collections/%s", collection), body, nil)
}

func (q *Qdrant) Upsert(ctx context.Context, collection, key, text string, attrs map[string]string) error {
	emb, err := q.embedder.GenerateEmbedding(ctx, embedder.EmbeddingRequest{Text: text})
	if err != nil {
		return fmt.Errorf("embed record %s: %w", key, err)
	}

	payload := map[string]any{"key": key, "text": text}
	for k, v := range attrs {
		payload[k] = v
	}

	body := map[string]any{
		"points": []map[string]any{{
			"id":      pointID(key),
			"vector":  emb.Vector,
			"payload": payload,
		}},
	}
	path := fmt.Sprintf("/collections/%s/points?wait=true", collection)
	if err := q.do(ctx, http.MethodPut, path, body, nil); err != nil {
		return fmt.Errorf("upsert %s: %w", key, err)
	}
	return nil
}

func (q *Qdrant) Delete(ctx context.Context, collection, key string) error {
	body := map[string]any{"points": []string{pointID(key)}}
	path := fmt.Sprintf("/collections/%s/points/delete?wait=true", collection)
	if err := q.do(ctx, http.MethodPost, path, body, nil); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

func (q *Qdrant) Get(ctx context.Context, collection string, filter map[string]string) ([]Record, error) {
	must := make([]map[string]any, 0, len(filter))
	for k, v := range filter {
		must = append(must, map[string]any{
			"key":   k,
			"match": map[string]any{"value": v},
		})
	}

	body := map[string]any{
		"filter":       map[string]any{"must": must},
		"with_payload": true,
		"limit":        100,
	}

	var resp struct {
		Result struct {
			Points []struct {
				Payload map[string]any `json:"payload"`
			} `json:"points"`
		} `json:"result"`
	}
	path := fmt.Sprintf("/collections/%s/points/scroll", collection)
	if err := q.do(ctx, http.MethodPost, path, body, &resp); err != nil {
		return nil, fmt.Errorf("scroll: %w", err)
	}

	records := make([]Record, 0, len(resp.Result.Points))
	for _, p := range resp.Result.Points {
		records = append(records, recordFromPayload(p.Payload))
	}
	return records, nil
}

func (q *Qdrant) Query(ctx context.Context, collection, queryText string, k int) ([]Hit, error) {
	if k <= 0 {
		return nil, nil
	}

	emb, err := q.embedder.GenerateEmbedding(ctx, embedder.EmbeddingRequest{Text: queryText})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	body := map[string]any{
		"vector":       emb.Vector,
		"limit":        k,
		"with_payload": true,
	}

	var resp struct {
		Result []struct {
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	path := fmt.Sprintf("/collections/%s/points/search", collection)
	if err := q.do(ctx, http.MethodPost, path, body, &resp); err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	hits := make([]Hit, 0, len(resp.Result))
	for _, r := range resp.Result {
		rec := recordFromPayload(r.Payload)
		hits = append(hits, Hit{
			Key:        rec.Key,
			Attributes: rec.Attributes,
			// Qdrant reports cosine similarity; convert to distance.
			Distance: 1.0 - r.Score,
		})
	}
	return hits, nil
}

func (q *Qdrant) Close() error {
	q.client.CloseIdleConnections()
	return nil
}

func (q *Qdrant) do(ctx context.Context, method, path string, body any, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, q.url+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if q.apiKey != "" {
		req.Header.Set("api-key", q.apiKey)
	}

	resp, err := q.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("qdrant %s %s: status %d: %s", method, path, resp.StatusCode, string(msg))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// pointID maps a namespaced record key to a deterministic Qdrant point ID.
func pointID(key string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(key)).String()
}

// recordFromPayload rebuilds a Record from a Qdrant point payload. The
// "key" and "text" entries are lifted out; everything else is an attribute.
func recordFromPayload(payload map[string]any) Record {
	rec := Record{Attributes: make(map[string]string, len(payload))}
	for k, v := range payload {
		s, ok := v.(string)
		if !ok {
			continue
		}
		switch k {
		case "key":
			rec.Key = s
		case "text":
			rec.Text = s
		default:
			rec.Attributes[k] = s
		}
	}
	return rec
}
