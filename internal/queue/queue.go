// Package queue coalesces file change notifications into debounced,
// deduplicated batches and guarantees at most one batch is being
// processed at any time.
package queue

import (
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

type state int

const (
	stateEmpty state = iota
	statePending
	stateFlushing
)

// DefaultDebounce is the quiet period after the last enqueue before a
// batch is flushed.
const DefaultDebounce = 500 * time.Millisecond

// Handler processes one deduplicated batch of workspace-relative paths.
// It is never invoked concurrently with itself.
type Handler func(paths []string)

// Queue accumulates paths while Pending and hands them to the handler as
// one batch once no enqueue has arrived within the debounce interval.
// Paths enqueued during a flush are collected for the next batch, never
// merged into the one in flight.
type Queue struct {
	handler  Handler
	debounce time.Duration
	logger   *zap.Logger

	mu       sync.Mutex
	state    state
	pending  map[string]struct{}
	timer    *time.Timer
	disposed bool
}

// New creates a queue. debounce <= 0 selects DefaultDebounce.
func New(handler Handler, debounce time.Duration, logger *zap.Logger) *Queue {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Queue{
		handler:  handler,
		debounce: debounce,
		logger:   logger,
		pending:  make(map[string]struct{}),
	}
}

// Enqueue registers a path for the next batch. Duplicate paths collapse
// into one entry and each enqueue resets the debounce deadline. After
// Dispose, Enqueue is a no-op.
func (q *Queue) Enqueue(path string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.disposed {
		return
	}

	q.pending[path] = struct{}{}
	switch q.state {
	case stateEmpty:
		q.state = statePending
		q.timer = time.AfterFunc(q.debounce, q.flush)
	case statePending:
		q.timer.Reset(q.debounce)
	}
}

// Flush processes any pending paths immediately instead of waiting for
// the debounce deadline. If a batch is already in flight the pending
// paths are picked up when it finishes.
func (q *Queue) Flush() {
	q.mu.Lock()
	if q.timer != nil {
		q.timer.Stop()
	}
	q.mu.Unlock()
	q.flush()
}

// Dispose stops the queue and discards pending paths. A batch already in
// flight runs to completion; no further batches start.
func (q *Queue) Dispose() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.disposed = true
	if q.timer != nil {
		q.timer.Stop()
	}
	q.pending = make(map[string]struct{})
	if q.state != stateFlushing {
		q.state = stateEmpty
	}
}

// Len returns the number of paths waiting for the next batch.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

func (q *Queue) flush() {
	q.mu.Lock()
	if q.disposed || q.state == stateFlushing || len(q.pending) == 0 {
		if q.state == statePending && len(q.pending) == 0 {
			q.state = stateEmpty
		}
		q.mu.Unlock()
		return
	}

	batch := make([]string, 0, len(q.pending))
	for path := range q.pending {
		batch = append(batch, path)
	}
	sort.Strings(batch)
	q.pending = make(map[string]struct{})
	q.state = stateFlushing
	q.mu.Unlock()

	q.logger.Debug("flushing batch", zap.Int("paths", len(batch)))
	q.handler(batch)

	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.disposed && len(q.pending) > 0 {
		q.state = statePending
		q.timer = time.AfterFunc(q.debounce, q.flush)
		return
	}
	q.state = stateEmpty
}
