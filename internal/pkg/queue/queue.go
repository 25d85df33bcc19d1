// Package queue implements a bounded notification queue that never blocks the
// producer. When the queue is full the newest item is dropped.
package queue

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultCapacity is the size of every watcher queue.
const DefaultCapacity = 100

// Queue is a bounded, drop-on-full FIFO safe for one consumer and many producers.
type Queue[T any] struct {
	ch      chan T
	closed  chan struct{}
	once    sync.Once
	dropped atomic.Uint64
}

// New returns an empty queue holding at most capacity items.
func New[T any](capacity int) *Queue[T] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Queue[T]{
		ch:     make(chan T, capacity),
		closed: make(chan struct{}),
	}
}

// Push enqueues v unless the queue is full or closed. It never blocks and
// reports whether v was accepted.
func (q *Queue[T]) Push(v T) bool {
	select {
	case <-q.closed:
		return false
	default:
	}

	select {
	case q.ch <- v:
		return true
	default:
		q.dropped.Add(1)
		return false
	}
}

// Get waits up to timeout for an item. ok is false on timeout, on ctx
// cancellation or when the queue has been closed.
func (q *Queue[T]) Get(ctx context.Context, timeout time.Duration) (v T, ok bool) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case v = <-q.ch:
		return v, true
	case <-q.closed:
	case <-ctx.Done():
	case <-timer.C:
	}
	return v, false
}

// Close wakes a blocked Get and rejects further pushes. Items already queued
// are discarded.
func (q *Queue[T]) Close() {
	q.once.Do(func() { close(q.closed) })
}

// Closed is closed by Close.
func (q *Queue[T]) Closed() <-chan struct{} {
	return q.closed
}

// Len returns the number of queued items.
func (q *Queue[T]) Len() int { return len(q.ch) }

// Cap returns the queue capacity.
func (q *Queue[T]) Cap() int { return cap(q.ch) }

// Dropped returns how many pushes were rejected because the queue was full.
func (q *Queue[T]) Dropped() uint64 { return q.dropped.Load() }
