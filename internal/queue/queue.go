// Package queue provides the thread-safe FIFO of file-processing tasks
// shared by the directory walk, the watcher adapter, and the worker pool.
//
// The queue tracks progress counters for user-visible statistics and owns
// the shutdown latch for the pipeline: once Shutdown is called, Enqueue
// always fails and Dequeue always reports empty, even while items remain
// queued. Tasks already dequeued are still expected to be completed so the
// counters stay consistent.
package queue

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/dshills/fileindex-mcp/pkg/types"
)

// Progress is a snapshot of queue statistics.
type Progress struct {
	TotalAdded     int
	TotalProcessed int
	TotalFailed    int
	QueueDepth     int
	IsProcessing   bool    // completions still behind additions
	PercentDone    float64 // completed / added * 100
	Rate           float64 // completions per second since the first add
}

// Queue is a FIFO of FileTasks with shutdown semantics. The zero value is
// not usable; construct with New.
type Queue struct {
	mu    sync.Mutex
	items []types.FileTask
	wake  chan struct{}

	shutdown atomic.Bool
	done     chan struct{}
	doneOnce sync.Once

	statsMu   sync.Mutex
	added     int
	processed int
	failed    int
	startedAt time.Time
}

// New creates an empty queue.
func New() *Queue {
	return &Queue{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
}

// Enqueue appends a task. Returns false iff the queue has been shut down;
// the task is dropped in that case.
func (q *Queue) Enqueue(task types.FileTask) bool {
	if q.shutdown.Load() {
		return false
	}

	q.mu.Lock()
	q.items = append(q.items, task)
	q.mu.Unlock()

	q.statsMu.Lock()
	q.added++
	if q.startedAt.IsZero() {
		q.startedAt = time.Now()
	}
	q.statsMu.Unlock()

	// Nudge one sleeping consumer. A full wake channel means a wakeup is
	// already pending, which is enough.
	select {
	case q.wake <- struct{}{}:
	default:
	}
	return true
}

// Dequeue pops the oldest task, blocking up to timeout for one to arrive.
// The second return is false if the wait timed out or the queue has shut
// down. This timeout is the only designed blocking point inside a worker.
func (q *Queue) Dequeue(timeout time.Duration) (types.FileTask, bool) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		if q.shutdown.Load() {
			return types.FileTask{}, false
		}

		q.mu.Lock()
		if len(q.items) > 0 {
			task := q.items[0]
			q.items = q.items[1:]
			q.mu.Unlock()
			return task, true
		}
		q.mu.Unlock()

		select {
		case <-q.wake:
		case <-q.done:
			return types.FileTask{}, false
		case <-timer.C:
			return types.FileTask{}, false
		}
	}
}

// Complete records the completion of a previously dequeued task. Every
// dequeued task must be completed exactly once, successful or not.
func (q *Queue) Complete(task types.FileTask, success bool) {
	q.statsMu.Lock()
	if success {
		q.processed++
	} else {
		q.failed++
	}
	q.statsMu.Unlock()
}

// Progress returns a consistent snapshot of the queue statistics. Safe to
// call concurrently with producers and consumers.
func (q *Queue) Progress() Progress {
	q.mu.Lock()
	depth := len(q.items)
	q.mu.Unlock()

	q.statsMu.Lock()
	defer q.statsMu.Unlock()

	completed := q.processed + q.failed
	p := Progress{
		TotalAdded:     q.added,
		TotalProcessed: q.processed,
		TotalFailed:    q.failed,
		QueueDepth:     depth,
		IsProcessing:   completed < q.added,
	}
	if q.added > 0 {
		p.PercentDone = float64(completed) / float64(q.added) * 100
	}
	if !q.startedAt.IsZero() && completed > 0 {
		elapsed := time.Since(q.startedAt).Seconds()
		if elapsed > 0 {
			p.Rate = float64(completed) / elapsed
		}
	}
	return p
}

// Depth returns the number of queued tasks.
func (q *Queue) Depth() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Shutdown latches the queue closed. One-way: there is no restart.
func (q *Queue) Shutdown() {
	q.shutdown.Store(true)
	q.doneOnce.Do(func() { close(q.done) })
}

// IsShutdown reports whether Shutdown has been called.
func (q *Queue) IsShutdown() bool {
	return q.shutdown.Load()
}
