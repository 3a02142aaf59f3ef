// Package queue carries score submissions from the service to the workers
// that talk to the remote store.
package queue

import (
	"context"
	"fmt"
	"sync"

	"github.com/okian/bonk/internal/domain/model"
	"github.com/okian/bonk/pkg/metrics"
)

const defaultCapacity = 64

// Queue provides non-blocking enqueue and channel-based dequeue.
type Queue interface {
	// Enqueue adds s without blocking. It returns ErrFull when the queue
	// is at capacity and ErrStopped after Close.
	Enqueue(ctx context.Context, s model.Submission) error

	// Dequeue returns the receive side. It is closed once the queue is
	// closed and drained.
	Dequeue() <-chan model.Submission

	Len() int
	Close() error
	IsClosed() bool
}

// InMemoryQueue implements Queue with a buffered channel.
type InMemoryQueue struct {
	items    chan model.Submission
	capacity int

	mu     sync.RWMutex
	closed bool
}

// NewInMemoryQueue creates a bounded queue.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{capacity: defaultCapacity}
	for _, opt := range opts {
		opt(q)
	}
	q.items = make(chan model.Submission, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)
	return q
}

// Enqueue adds s to the queue.
func (q *InMemoryQueue) Enqueue(ctx context.Context, s model.Submission) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueRejected("closed")
		return ErrStopped
	}
	if err := ctx.Err(); err != nil {
		metrics.RecordQueueRejected("context_cancelled")
		return fmt.Errorf("enqueue: %w", err)
	}

	select {
	case q.items <- s:
		metrics.UpdateQueueSize(len(q.items))
		return nil
	default:
		metrics.RecordQueueRejected("full")
		return ErrFull
	}
}

// Dequeue returns the channel workers range over.
func (q *InMemoryQueue) Dequeue() <-chan model.Submission {
	return q.items
}

// Len returns the number of queued submissions.
func (q *InMemoryQueue) Len() int {
	n := len(q.items)
	metrics.UpdateQueueSize(n)
	return n
}

// Close stops accepting submissions. Queued ones remain readable.
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

// IsClosed reports whether Close was called.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
