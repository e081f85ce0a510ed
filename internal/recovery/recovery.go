// Package recovery provides the durable spool of not-yet-flushed store
// writes that makes the pipeline crash-safe.
//
// Batched upserts accumulate in memory and are mirrored to a single JSON
// snapshot file after every append. The mirror is a full-overwrite
// snapshot, not an append log: recovery never needs replay or compaction
// logic, at the cost of rewriting the file per mutation. A successful
// flush pushes the batch to the store, clears memory, and deletes the
// mirror. A mirror found at startup is the crash indicator: it is replayed
// into the store and then deleted regardless of the flush outcome, so a
// poisoned batch cannot wedge the process in a crash loop. That loss is
// surfaced as a warning, not hidden.
package recovery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"

	"github.com/dshills/fileindex-mcp/internal/store"
)

// DefaultFlushThreshold is the pending-entry count that triggers an
// automatic flush on append.
const DefaultFlushThreshold = 20

// Entry is one pending upsert.
type Entry struct {
	Collection string            `json:"collection"`
	Key        string            `json:"key"`
	Text       string            `json:"text"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// snapshot is the on-disk mirror format.
type snapshot struct {
	PendingMetadata []Entry `json:"pending_metadata"`
	PendingContent  []Entry `json:"pending_content"`
}

// Log accumulates pending upserts and keeps their on-disk mirror current.
// Safe for concurrent use by multiple workers.
type Log struct {
	path      string
	store     store.Store
	threshold int

	mu       sync.Mutex
	metadata []Entry
	content  []Entry
}

// New creates a recovery log whose mirror lives at path.
func New(path string, st store.Store) *Log {
	return &Log{
		path:      path,
		store:     st,
		threshold: DefaultFlushThreshold,
	}
}

// SetFlushThreshold overrides the automatic flush threshold. Values below 1
// disable automatic flushing.
func (l *Log) SetFlushThreshold(n int) {
	l.mu.Lock()
	l.threshold = n
	l.mu.Unlock()
}

// Append adds an entry to the pending batch and rewrites the mirror. When
// the batch reaches the flush threshold it is flushed to the store before
// returning.
func (l *Log) Append(ctx context.Context, e Entry) error {
	l.mu.Lock()
	switch e.Collection {
	case store.CollectionMetadata:
		l.metadata = append(l.metadata, e)
	case store.CollectionContent:
		l.content = append(l.content, e)
	default:
		l.mu.Unlock()
		return fmt.Errorf("%w: %s", store.ErrUnknownCollection, e.Collection)
	}

	if err := l.mirrorLocked(); err != nil {
		l.mu.Unlock()
		return fmt.Errorf("mirror batch: %w", err)
	}

	shouldFlush := l.threshold > 0 && len(l.metadata)+len(l.content) >= l.threshold
	l.mu.Unlock()

	if shouldFlush {
		return l.Flush(ctx)
	}
	return nil
}

// Pending returns the number of unflushed entries.
func (l *Log) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.metadata) + len(l.content)
}

// Flush pushes every pending entry to the store. On success the batch is
// cleared and the mirror deleted. On failure the batch and mirror are kept
// so the entries survive a crash and a later retry.
func (l *Log) Flush(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.flushLocked(ctx)
}

func (l *Log) flushLocked(ctx context.Context) error {
	if len(l.metadata)+len(l.content) == 0 {
		return nil
	}

	for _, batch := range [][]Entry{l.metadata, l.content} {
		for _, e := range batch {
			if err := l.store.Upsert(ctx, e.Collection, e.Key, e.Text, e.Attributes); err != nil {
				return fmt.Errorf("flush %s/%s: %w", e.Collection, e.Key, err)
			}
		}
	}

	l.metadata = nil
	l.content = nil
	if err := os.Remove(l.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove mirror: %w", err)
	}
	return nil
}

// Recover replays a mirror file left behind by a crashed process. The
// mirror is deleted whether or not the flush succeeds; a batch that cannot
// be flushed is discarded with a logged warning rather than retried
// forever. Returns the number of entries found in the mirror.
func (l *Log) Recover(ctx context.Context) (int, error) {
	data, err := os.ReadFile(l.path)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil // clean shutdown last time
	}
	if err != nil {
		return 0, fmt.Errorf("read mirror: %w", err)
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		// Corrupt mirror: discard it rather than crash-loop.
		log.Printf("WARNING: discarding corrupt recovery snapshot %s: %v", l.path, err)
		_ = os.Remove(l.path)
		return 0, nil
	}

	found := len(snap.PendingMetadata) + len(snap.PendingContent)
	if found == 0 {
		_ = os.Remove(l.path)
		return 0, nil
	}
	log.Printf("recovering %d unflushed entries from %s", found, l.path)

	l.mu.Lock()
	l.metadata = snap.PendingMetadata
	l.content = snap.PendingContent
	flushErr := l.flushLocked(ctx)
	if flushErr != nil {
		// Poisoned batch: drop it and clean up so the next start is clean.
		log.Printf("WARNING: discarding unrecoverable batch of %d entries: %v", found, flushErr)
		l.metadata = nil
		l.content = nil
		_ = os.Remove(l.path)
	}
	l.mu.Unlock()

	return found, nil
}

// mirrorLocked rewrites the full snapshot file. Caller holds l.mu.
func (l *Log) mirrorLocked() error {
	snap := snapshot{
		PendingMetadata: l.metadata,
		PendingContent:  l.content,
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return os.WriteFile(l.path, data, 0o644)
}
