package recovery

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/fileindex-mcp/internal/store"
)

// mockStore records upserts and can be told to fail.
type mockStore struct {
	mu       sync.Mutex
	upserts  map[string]string // collection/key -> text
	failWith error
}

func newMockStore() *mockStore {
	return &mockStore{upserts: make(map[string]string)}
}

func (m *mockStore) Upsert(ctx context.Context, collection, key, text string, attrs map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}
	m.upserts[collection+"/"+key] = text
	return nil
}

func (m *mockStore) Delete(ctx context.Context, collection, key string) error { return nil }

func (m *mockStore) Get(ctx context.Context, collection string, filter map[string]string) ([]store.Record, error) {
	return nil, nil
}

func (m *mockStore) Query(ctx context.Context, collection, queryText string, k int) ([]store.Hit, error) {
	return nil, nil
}

func (m *mockStore) Close() error { return nil }

func (m *mockStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.upserts)
}

func snapshotPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "pending.json")
}

func TestLog_AppendMirrorsToDisk(t *testing.T) {
	path := snapshotPath(t)
	l := New(path, newMockStore())
	l.SetFlushThreshold(0) // no auto flush

	err := l.Append(context.Background(), Entry{
		Collection: store.CollectionMetadata,
		Key:        store.MetaKey("id1"),
		Text:       "meta text",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, l.Pending())

	// Mirror exists after every append.
	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestLog_FlushClearsAndDeletesMirror(t *testing.T) {
	path := snapshotPath(t)
	st := newMockStore()
	l := New(path, st)
	l.SetFlushThreshold(0)

	ctx := context.Background()
	require.NoError(t, l.Append(ctx, Entry{Collection: store.CollectionMetadata, Key: store.MetaKey("a"), Text: "m"}))
	require.NoError(t, l.Append(ctx, Entry{Collection: store.CollectionContent, Key: store.ContentKey("a"), Text: "c"}))

	require.NoError(t, l.Flush(ctx))
	assert.Equal(t, 0, l.Pending())
	assert.Equal(t, 2, st.count())

	_, err := os.Stat(path)
	assert.True(t, errors.Is(err, os.ErrNotExist), "mirror must be deleted after flush")

	// Flushing an empty batch is a no-op.
	require.NoError(t, l.Flush(ctx))
}

func TestLog_AutoFlushAtThreshold(t *testing.T) {
	path := snapshotPath(t)
	st := newMockStore()
	l := New(path, st)
	l.SetFlushThreshold(2)

	ctx := context.Background()
	require.NoError(t, l.Append(ctx, Entry{Collection: store.CollectionMetadata, Key: store.MetaKey("a"), Text: "m"}))
	assert.Equal(t, 1, l.Pending())
	assert.Equal(t, 0, st.count())

	require.NoError(t, l.Append(ctx, Entry{Collection: store.CollectionMetadata, Key: store.MetaKey("b"), Text: "m"}))
	assert.Equal(t, 0, l.Pending())
	assert.Equal(t, 2, st.count())
}

// TestLog_CrashRecovery simulates a crash: a first log writes a batch and
// never flushes; a fresh log over the same path recovers it into the store
// and deletes the snapshot, without duplicating records.
func TestLog_CrashRecovery(t *testing.T) {
	path := snapshotPath(t)
	ctx := context.Background()

	crashed := New(path, newMockStore())
	crashed.SetFlushThreshold(0)
	require.NoError(t, crashed.Append(ctx, Entry{Collection: store.CollectionMetadata, Key: store.MetaKey("a"), Text: "meta a"}))
	require.NoError(t, crashed.Append(ctx, Entry{Collection: store.CollectionContent, Key: store.ContentKey("a"), Text: "content a"}))
	// Process dies here; the mirror is left on disk.

	st := newMockStore()
	fresh := New(path, st)
	replayed, err := fresh.Recover(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, replayed)
	assert.Equal(t, 2, st.count())
	assert.Equal(t, 0, fresh.Pending())

	_, err = os.Stat(path)
	assert.True(t, errors.Is(err, os.ErrNotExist), "snapshot must be deleted after recovery")

	// A second recover finds nothing.
	replayed, err = fresh.Recover(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, replayed)
}

// TestLog_RecoverPoisonedBatch verifies that a batch the store rejects is
// discarded, not retried forever: the snapshot is deleted anyway.
func TestLog_RecoverPoisonedBatch(t *testing.T) {
	path := snapshotPath(t)
	ctx := context.Background()

	crashed := New(path, newMockStore())
	crashed.SetFlushThreshold(0)
	require.NoError(t, crashed.Append(ctx, Entry{Collection: store.CollectionMetadata, Key: store.MetaKey("a"), Text: "meta a"}))

	st := newMockStore()
	st.failWith = errors.New("store down")
	fresh := New(path, st)

	replayed, err := fresh.Recover(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, replayed)
	assert.Equal(t, 0, fresh.Pending(), "poisoned batch is discarded")

	_, err = os.Stat(path)
	assert.True(t, errors.Is(err, os.ErrNotExist), "snapshot deleted even when flush fails")
}

func TestLog_RecoverCorruptSnapshot(t *testing.T) {
	path := snapshotPath(t)
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	l := New(path, newMockStore())
	replayed, err := l.Recover(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, replayed)

	_, err = os.Stat(path)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestLog_AppendUnknownCollection(t *testing.T) {
	l := New(snapshotPath(t), newMockStore())
	err := l.Append(context.Background(), Entry{Collection: "bogus", Key: "k"})
	assert.ErrorIs(t, err, store.ErrUnknownCollection)
}
