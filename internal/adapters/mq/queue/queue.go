// Package queue provides the bounded work queue that feeds assignments to
// the scout workers during a pass.
//
// A queue lives for exactly one pass: the coordinator enqueues the full
// worklist, closes the queue, and workers drain it.
package queue

import (
	"context"
	"sync"

	"github.com/sandlin/cma-scout/internal/domain/model"
	"github.com/sandlin/cma-scout/pkg/metrics"
)

// defaultCapacity bounds the queue when no option is given.
const defaultCapacity = 256

// Queue provides non-blocking enqueue and channel-based dequeue semantics
// for pass work items.
type Queue interface {
	// Enqueue adds an assignment to the queue.
	// Returns false if the queue is full or closed.
	Enqueue(ctx context.Context, a model.Assignment) bool

	// Dequeue returns a channel delivering assignments until the queue is
	// closed and drained.
	Dequeue(ctx context.Context) <-chan model.Assignment

	// Len returns the current number of queued assignments.
	Len(ctx context.Context) int

	// Close seals the queue; buffered items are still delivered.
	Close() error

	// IsClosed reports whether the queue has been closed.
	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	items    chan model.Assignment
	capacity int

	mu     sync.RWMutex
	closed bool
}

// Option applies a configuration option to the InMemoryQueue.
type Option func(*InMemoryQueue)

// WithCapacity bounds the queue.
func WithCapacity(n int) Option {
	return func(q *InMemoryQueue) {
		if n > 0 {
			q.capacity = n
		}
	}
}

// NewInMemoryQueue creates a new in-memory queue.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{capacity: defaultCapacity}
	for _, opt := range opts {
		opt(q)
	}
	q.items = make(chan model.Assignment, q.capacity)
	metrics.UpdateQueueSize(0)
	return q
}

// Enqueue adds an assignment to the queue.
func (q *InMemoryQueue) Enqueue(ctx context.Context, a model.Assignment) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return false
	}

	select {
	case q.items <- a:
		metrics.UpdateQueueSize(len(q.items))
		return true
	case <-ctx.Done():
		return false
	default:
		return false // queue is full
	}
}

// Dequeue returns a channel delivering assignments as workers pull them.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan model.Assignment {
	out := make(chan model.Assignment)
	go func() {
		defer close(out)
		for a := range q.items {
			select {
			case out <- a:
				metrics.UpdateQueueSize(len(q.items))
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Len returns the current number of queued assignments.
func (q *InMemoryQueue) Len(_ context.Context) int {
	return len(q.items)
}

// Close seals the queue. Already-buffered assignments still drain.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.items)
	q.closed = true
	return nil
}

// IsClosed reports whether Close has been called.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
