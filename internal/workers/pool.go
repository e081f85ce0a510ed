// Package workers runs a fixed pool of goroutines that drain the task
// queue through the file processor.
package workers

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dshills/fileindex-mcp/internal/processor"
	"github.com/dshills/fileindex-mcp/internal/queue"
	"github.com/dshills/fileindex-mcp/pkg/types"
)

const (
	// DefaultWorkers is the pool size when none is configured.
	DefaultWorkers = 4

	// dequeueTimeout bounds how long an idle worker sleeps before it
	// re-checks for shutdown.
	dequeueTimeout = 500 * time.Millisecond
)

// Stats aggregates task outcomes across all workers.
type Stats struct {
	Succeeded int64
	Skipped   int64
	Hidden    int64
	TooLarge  int64
	Failed    int64
}

// Pool drains the queue with a fixed number of workers. Each worker owns
// its own Processor; only the store and batch behind them are shared, and
// they handle their own locking.
type Pool struct {
	queue *queue.Queue
	procs []*processor.Processor
	size  int

	wg       sync.WaitGroup
	stop     chan struct{}
	stopOnce sync.Once

	succeeded atomic.Int64
	skipped   atomic.Int64
	hidden    atomic.Int64
	tooLarge  atomic.Int64
	failed    atomic.Int64
}

// NewPool creates a pool of size workers, each with a processor built by
// newProc. Sizes below 1 fall back to DefaultWorkers.
func NewPool(q *queue.Queue, newProc func() *processor.Processor, size int) *Pool {
	if size < 1 {
		size = DefaultWorkers
	}
	procs := make([]*processor.Processor, size)
	for i := range procs {
		procs[i] = newProc()
	}
	return &Pool{
		queue: q,
		procs: procs,
		size:  size,
		stop:  make(chan struct{}),
	}
}

// Start launches the workers. Call once.
func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.size; i++ {
		p.wg.Add(1)
		go p.worker(ctx, i)
	}
}

// Stop asks the workers to finish their current task and exit, then waits
// for them. Tasks still queued are left for a later run; with the queue
// shut down they are unreachable anyway.
func (p *Pool) Stop() {
	p.stopOnce.Do(func() { close(p.stop) })
	p.wg.Wait()
}

// Stats returns a snapshot of the outcome counters.
func (p *Pool) Stats() Stats {
	return Stats{
		Succeeded: p.succeeded.Load(),
		Skipped:   p.skipped.Load(),
		Hidden:    p.hidden.Load(),
		TooLarge:  p.tooLarge.Load(),
		Failed:    p.failed.Load(),
	}
}

// Size returns the number of workers.
func (p *Pool) Size() int { return p.size }

func (p *Pool) worker(ctx context.Context, id int) {
	defer p.wg.Done()

	for {
		select {
		case <-p.stop:
			return
		case <-ctx.Done():
			return
		default:
		}

		task, ok := p.queue.Dequeue(dequeueTimeout)
		if !ok {
			if p.queue.IsShutdown() {
				return
			}
			continue
		}

		outcome := p.runTask(ctx, id, task)
		p.record(outcome)
		p.queue.Complete(task, outcome.Succeeded())
	}
}

// runTask executes one task with a panic barrier, so a single poisoned
// file cannot take down the worker.
func (p *Pool) runTask(ctx context.Context, id int, task types.FileTask) (outcome types.Outcome) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("worker %d: panic processing %s: %v", id, task.Path, r)
			outcome = types.OutcomeFailure
		}
	}()
	return p.procs[id].Process(ctx, task)
}

func (p *Pool) record(outcome types.Outcome) {
	switch outcome {
	case types.OutcomeSuccess:
		p.succeeded.Add(1)
	case types.OutcomeSkipped:
		p.skipped.Add(1)
	case types.OutcomeHidden:
		p.hidden.Add(1)
	case types.OutcomeTooLarge:
		p.tooLarge.Add(1)
	default:
		p.failed.Add(1)
	}
}
