// Package watcher turns raw filesystem events into debounced file tasks.
//
// Editors and copy tools produce bursts of writes for a single logical
// change. The Adapter processes the first write in a burst right away and
// discards the rest of the burst per path, waits for newly created files
// to finish being written, and only then enqueues work for the pool.
// Deletes bypass the debounce: the file is already gone.
package watcher

import (
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dshills/fileindex-mcp/internal/queue"
	"github.com/dshills/fileindex-mcp/pkg/types"
)

// Config controls the adapter's timing. The defaults match the pipeline's
// tuning for human-driven edits; tests shrink them.
type Config struct {
	// DebounceWindow discards modification events arriving within this
	// long of the last accepted one for the same path.
	DebounceWindow time.Duration
	// CreateSettle delays processing of a just-created file, giving the
	// writer time to put the first bytes in place.
	CreateSettle time.Duration
	// ClosePollInterval is the wait between still-being-written probes.
	ClosePollInterval time.Duration
	// ClosePollAttempts bounds the probes before the event is dropped.
	ClosePollAttempts int
}

// DefaultConfig returns the production timing.
func DefaultConfig() Config {
	return Config{
		DebounceWindow:    2 * time.Second,
		CreateSettle:      time.Second,
		ClosePollInterval: time.Second,
		ClosePollAttempts: 30,
	}
}

// Adapter consumes an EventSource and feeds the task queue.
type Adapter struct {
	cfg    Config
	source EventSource
	queue  *queue.Queue

	mu           sync.Mutex
	pending      map[string]*time.Timer // create-settle timers by path
	lastModified map[string]time.Time   // last accepted modify by path

	wg        sync.WaitGroup
	stop      chan struct{}
	closeOnce sync.Once
}

// New creates an Adapter. Zero Config fields are filled from
// DefaultConfig.
func New(source EventSource, q *queue.Queue, cfg Config) *Adapter {
	def := DefaultConfig()
	if cfg.DebounceWindow <= 0 {
		cfg.DebounceWindow = def.DebounceWindow
	}
	if cfg.CreateSettle <= 0 {
		cfg.CreateSettle = def.CreateSettle
	}
	if cfg.ClosePollInterval <= 0 {
		cfg.ClosePollInterval = def.ClosePollInterval
	}
	if cfg.ClosePollAttempts <= 0 {
		cfg.ClosePollAttempts = def.ClosePollAttempts
	}
	return &Adapter{
		cfg:          cfg,
		source:       source,
		queue:        q,
		pending:      make(map[string]*time.Timer),
		lastModified: make(map[string]time.Time),
		stop:         make(chan struct{}),
	}
}

// Run consumes events until the source closes or Close is called. Run it
// in its own goroutine.
func (a *Adapter) Run() {
	events := a.source.Events()
	errs := a.source.Errors()

	for {
		select {
		case <-a.stop:
			return
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			log.Printf("watch error: %v", err)
		case ev, ok := <-events:
			if !ok {
				return
			}
			a.handle(ev)
		}
	}
}

// Close stops the adapter and its source and waits for in-flight
// deferred enqueues to settle.
func (a *Adapter) Close() error {
	var err error
	a.closeOnce.Do(func() {
		close(a.stop)
		err = a.source.Close()

		a.mu.Lock()
		for path, timer := range a.pending {
			if timer.Stop() {
				a.wg.Done()
			}
			delete(a.pending, path)
		}
		a.mu.Unlock()
	})
	a.wg.Wait()
	return err
}

func (a *Adapter) handle(ev Event) {
	if types.IsHiddenName(filepath.Base(ev.Path)) {
		return
	}

	switch ev.Type {
	case EventCreated:
		if ev.IsDir {
			a.enqueueTree(ev.Path)
			return
		}
		a.deferEnqueue(ev.Path, a.cfg.CreateSettle, types.FileTask{Kind: types.TaskIndex, Path: ev.Path})
	case EventModified:
		a.debouncedUpdate(ev.Path)
	case EventDeleted:
		a.cancelPending(ev.Path)
		a.queue.Enqueue(types.FileTask{Kind: types.TaskDelete, Path: ev.Path})
	case EventMoved:
		a.cancelPending(ev.OldPath)
		a.cancelPending(ev.Path)
		a.queue.Enqueue(types.FileTask{
			Kind:    types.TaskMove,
			OldPath: ev.OldPath,
			NewPath: ev.Path,
		})
	}
}

// debouncedUpdate enqueues an Update for path unless one was accepted
// within the debounce window. The first write of a burst goes through
// immediately; the followers are discarded, not deferred. The accepted
// event still passes the wait-until-closed gate off the event loop.
func (a *Adapter) debouncedUpdate(path string) {
	a.mu.Lock()
	now := time.Now()
	if last, ok := a.lastModified[path]; ok && now.Sub(last) < a.cfg.DebounceWindow {
		a.mu.Unlock()
		return
	}
	a.lastModified[path] = now
	a.mu.Unlock()

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()

		select {
		case <-a.stop:
			return
		default:
		}

		if !a.waitUntilClosed(path) {
			log.Printf("file still being written after %d probes, dropping: %s",
				a.cfg.ClosePollAttempts, path)
			return
		}
		a.queue.Enqueue(types.FileTask{Kind: types.TaskUpdate, Path: path})
	}()
}

// deferEnqueue schedules the task after the create-settle delay. A newer
// event for the same path resets the clock.
func (a *Adapter) deferEnqueue(path string, delay time.Duration, task types.FileTask) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if timer, ok := a.pending[path]; ok {
		// A stopped timer never runs its callback, so give back its
		// wait-group slot here.
		if timer.Stop() {
			a.wg.Done()
		}
	}
	a.wg.Add(1)
	var timer *time.Timer
	timer = time.AfterFunc(delay, func() {
		defer a.wg.Done()

		a.mu.Lock()
		// A replacement timer may already hold this slot.
		if a.pending[path] == timer {
			delete(a.pending, path)
		}
		a.mu.Unlock()

		select {
		case <-a.stop:
			return
		default:
		}

		if !a.waitUntilClosed(path) {
			log.Printf("file still being written after %d probes, dropping: %s",
				a.cfg.ClosePollAttempts, path)
			return
		}
		a.queue.Enqueue(task)
	})
	a.pending[path] = timer
}

func (a *Adapter) cancelPending(path string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if timer, ok := a.pending[path]; ok {
		if timer.Stop() {
			a.wg.Done()
		}
		delete(a.pending, path)
	}
	// The path is gone; a file recreated there starts a fresh window.
	delete(a.lastModified, path)
}

// enqueueTree indexes every non-hidden file under a just-created
// directory. Files copied in before the directory watch was registered
// would otherwise be missed.
func (a *Adapter) enqueueTree(root string) {
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // tree may be mutating under us
		}
		if types.IsHiddenName(d.Name()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.IsDir() {
			a.deferEnqueue(path, a.cfg.CreateSettle, types.FileTask{Kind: types.TaskIndex, Path: path})
		}
		return nil
	})
	if err != nil {
		log.Printf("walk created directory %s: %v", root, err)
	}
}

// waitUntilClosed polls until the file's size holds still between two
// probes and the file can be opened, then reports ready. A vanished file
// reports ready too; the processor resolves it. False means the probe
// budget ran out.
func (a *Adapter) waitUntilClosed(path string) bool {
	var lastSize int64 = -1
	for attempt := 0; attempt < a.cfg.ClosePollAttempts; attempt++ {
		info, err := os.Stat(path)
		if err != nil {
			return true
		}

		if info.Size() == lastSize && openable(path) {
			return true
		}
		lastSize = info.Size()

		select {
		case <-a.stop:
			return false
		case <-time.After(a.cfg.ClosePollInterval):
		}
	}
	return false
}

func openable(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	_ = f.Close()
	return true
}
