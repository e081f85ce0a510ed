package indexer

import "sync/atomic"

// walkLock provides non-blocking mutual exclusion for full-tree walks,
// so a second index request cannot double-enqueue the tree.
type walkLock struct {
	state atomic.Int32 // 0 = unlocked, 1 = locked
}

// TryAcquire attempts to acquire the lock without blocking. Returns true
// if the lock was acquired.
func (l *walkLock) TryAcquire() bool {
	return l.state.CompareAndSwap(0, 1)
}

// Release releases the lock. Must only be called after a successful
// TryAcquire.
func (l *walkLock) Release() {
	l.state.Store(0)
}
