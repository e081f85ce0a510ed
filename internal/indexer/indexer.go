// Package indexer wires the pipeline together: recovery replay, the task
// queue, the worker pool, the full-tree walk, and the optional filesystem
// watcher. It owns pipeline lifecycle; the store and embedder are handed
// in and closed by the caller.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"path/filepath"
	"sync"

	"github.com/dshills/fileindex-mcp/internal/processor"
	"github.com/dshills/fileindex-mcp/internal/queue"
	"github.com/dshills/fileindex-mcp/internal/recovery"
	"github.com/dshills/fileindex-mcp/internal/store"
	"github.com/dshills/fileindex-mcp/internal/watcher"
	"github.com/dshills/fileindex-mcp/internal/workers"
	"github.com/dshills/fileindex-mcp/pkg/types"
)

// ErrWalkInProgress is returned when a full-tree walk is requested while
// another one is still enqueueing.
var ErrWalkInProgress = errors.New("index walk already in progress")

// Options configures an Indexer.
type Options struct {
	// Root is the directory tree to index.
	Root string
	// Workers is the pool size; zero means the pool default.
	Workers int
	// SnapshotPath is the crash-recovery spool location.
	SnapshotPath string
	// Watcher overrides the watcher timing; zero fields use defaults.
	Watcher watcher.Config
}

// Stats is a point-in-time view of the pipeline.
type Stats struct {
	Queue        queue.Progress
	Outcomes     workers.Stats
	PendingFlush int
	Watching     bool
}

// Indexer orchestrates the indexing pipeline for one root directory.
type Indexer struct {
	root  string
	store store.Store
	queue *queue.Queue
	batch *recovery.Log
	pool  *workers.Pool

	watcherCfg watcher.Config
	adapterMu  sync.Mutex
	adapter    *watcher.Adapter

	walk walkLock
}

// New assembles a pipeline over the given store. Nothing runs until
// Start.
func New(st store.Store, opts Options) *Indexer {
	q := queue.New()
	batch := recovery.New(opts.SnapshotPath, st)
	newProc := func() *processor.Processor {
		return processor.New(st, batch)
	}

	return &Indexer{
		root:       opts.Root,
		store:      st,
		queue:      q,
		batch:      batch,
		pool:       workers.NewPool(q, newProc, opts.Workers),
		watcherCfg: opts.Watcher,
	}
}

// Start replays any crash-recovery snapshot and launches the workers.
func (ix *Indexer) Start(ctx context.Context) error {
	replayed, err := ix.batch.Recover(ctx)
	if err != nil {
		return fmt.Errorf("recover pending batch: %w", err)
	}
	if replayed > 0 {
		log.Printf("replayed %d pending upserts from a previous run", replayed)
	}

	ix.pool.Start(ctx)
	return nil
}

// WalkTree enqueues an index task for every file under the root, skipping
// hidden directory subtrees. Files with hidden names are still enqueued;
// the processor classifies them so the run statistics account for them.
// Returns the number of tasks enqueued. Only one walk runs at a time.
func (ix *Indexer) WalkTree(ctx context.Context) (int, error) {
	if !ix.walk.TryAcquire() {
		return 0, ErrWalkInProgress
	}
	defer ix.walk.Release()

	enqueued := 0
	err := filepath.WalkDir(ix.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			log.Printf("walk %s: %v", path, err)
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			if path != ix.root && types.IsHiddenName(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if ix.queue.Enqueue(types.FileTask{Kind: types.TaskIndex, Path: path}) {
			enqueued++
		}
		return nil
	})
	if err != nil {
		return enqueued, fmt.Errorf("walk %s: %w", ix.root, err)
	}
	return enqueued, nil
}

// Watch starts the filesystem watcher for the root. Idempotent: a second
// call is a no-op.
func (ix *Indexer) Watch() error {
	ix.adapterMu.Lock()
	defer ix.adapterMu.Unlock()
	if ix.adapter != nil {
		return nil
	}
	source, err := watcher.NewFSNotifySource(ix.root)
	if err != nil {
		return fmt.Errorf("watch %s: %w", ix.root, err)
	}
	ix.adapter = watcher.New(source, ix.queue, ix.watcherCfg)
	go ix.adapter.Run()
	return nil
}

// Stats snapshots queue progress, worker outcome counters, and the
// recovery spool depth.
func (ix *Indexer) Stats() Stats {
	ix.adapterMu.Lock()
	watching := ix.adapter != nil
	ix.adapterMu.Unlock()

	return Stats{
		Queue:        ix.queue.Progress(),
		Outcomes:     ix.pool.Stats(),
		PendingFlush: ix.batch.Pending(),
		Watching:     watching,
	}
}

// Flush pushes the pending upsert batch to the store.
func (ix *Indexer) Flush(ctx context.Context) error {
	return ix.batch.Flush(ctx)
}

// Shutdown stops the watcher, latches the queue closed, waits for the
// in-flight tasks, and flushes the pending batch. Tasks still queued are
// abandoned; the recovery spool covers results that never flushed.
func (ix *Indexer) Shutdown(ctx context.Context) error {
	ix.adapterMu.Lock()
	if ix.adapter != nil {
		if err := ix.adapter.Close(); err != nil {
			log.Printf("close watcher: %v", err)
		}
		ix.adapter = nil
	}
	ix.adapterMu.Unlock()

	ix.queue.Shutdown()
	ix.pool.Stop()

	if err := ix.batch.Flush(ctx); err != nil {
		return fmt.Errorf("final flush: %w", err)
	}
	return nil
}
