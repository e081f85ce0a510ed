package store

import (
	"context"
	"errors"
	"strings"
)

// Collection names. Each holds one record per file identity.
const (
	CollectionMetadata = "file_metadata"
	CollectionContent  = "file_content"
)

// Key namespace prefixes. Metadata and content records for the same file
// share an identity and differ only in prefix, so the searcher can
// re-associate them after independent queries.
const (
	MetaKeyPrefix    = "meta-"
	ContentKeyPrefix = "content-"
)

// Common errors
var (
	ErrNotFound          = errors.New("record not found")
	ErrUnknownCollection = errors.New("unknown collection")
	ErrStoreUnavailable  = errors.New("store unavailable")
)

// MetaKey returns the metadata-collection key for a file identity.
func MetaKey(identity string) string { return MetaKeyPrefix + identity }

// ContentKey returns the content-collection key for a file identity.
func ContentKey(identity string) string { return ContentKeyPrefix + identity }

// IdentityFromKey strips a namespace prefix from a store key. Keys without
// a known prefix are returned unchanged.
func IdentityFromKey(key string) string {
	if id, ok := strings.CutPrefix(key, MetaKeyPrefix); ok {
		return id
	}
	if id, ok := strings.CutPrefix(key, ContentKeyPrefix); ok {
		return id
	}
	return key
}

// Record is a stored (key, text, attributes) triple.
type Record struct {
	Key        string
	Text       string
	Attributes map[string]string
}

// Hit is one ranked result from a similarity query. Distance is a cosine
// distance in [0, 2]: 0 is identical, 1 orthogonal, 2 maximally dissimilar.
type Hit struct {
	Key        string
	Attributes map[string]string
	Distance   float64
}

// Store is the similarity-searchable record store the pipeline writes to
// and the fusion engine reads from. Implementations must make Upsert and
// Delete idempotent and must be safe for concurrent use from multiple
// goroutines.
type Store interface {
	// Upsert creates or replaces the record under key. Re-upserting an
	// identical record is a no-op from the caller's point of view.
	Upsert(ctx context.Context, collection, key, text string, attrs map[string]string) error

	// Delete removes the record under key. Deleting an absent key is not
	// an error.
	Delete(ctx context.Context, collection, key string) error

	// Get returns records whose attributes match every key/value pair in
	// filter. An empty result is not an error.
	Get(ctx context.Context, collection string, filter map[string]string) ([]Record, error)

	// Query returns up to k records ranked by similarity to queryText,
	// nearest first.
	Query(ctx context.Context, collection, queryText string, k int) ([]Hit, error)

	// Close releases the store handle.
	Close() error
}
