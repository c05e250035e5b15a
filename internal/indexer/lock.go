package indexer

import "sync/atomic"

// buildLock provides non-blocking lock semantics so that a full rebuild
// requested while another is running fails fast instead of queueing.
type buildLock struct {
	state atomic.Int32 // 0 = unlocked, 1 = locked
}

// TryAcquire attempts to acquire the lock without blocking.
func (l *buildLock) TryAcquire() bool {
	return l.state.CompareAndSwap(0, 1)
}

// Release releases the lock. Must only be called after a successful
// TryAcquire.
func (l *buildLock) Release() {
	l.state.Store(0)
}
