// Package queue buffers notifications between the request path and the
// delivery workers.
package queue

import (
	"context"
	"sync"

	"github.com/okian/vibrapulse/internal/domain/model"
	"github.com/okian/vibrapulse/pkg/metrics"
)

const defaultCapacity = 1024

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds n without blocking. It returns false if the queue is
	// full or closed.
	Enqueue(ctx context.Context, n model.Notification) bool

	// Dequeue returns a channel of queued notifications. It is closed once
	// the queue is closed and drained, or ctx is done.
	Dequeue(ctx context.Context) <-chan model.Notification

	Len() int

	// Close stops accepting notifications. Queued ones can still be drained.
	Close() error
}

// InMemoryQueue implements Queue on a buffered channel.
type InMemoryQueue struct {
	items    chan model.Notification
	capacity int
	mu       sync.RWMutex
	closed   bool
}

// NewInMemoryQueue creates a bounded in-memory queue.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{capacity: defaultCapacity}
	for _, opt := range opts {
		opt(q)
	}
	q.items = make(chan model.Notification, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)
	return q
}

func (q *InMemoryQueue) Enqueue(ctx context.Context, n model.Notification) bool { //nolint:gocritic // value semantics across the channel
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "closed")
		return false
	}

	select {
	case <-ctx.Done():
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "context_cancelled")
		return false
	default:
	}

	select {
	case q.items <- n:
		metrics.RecordQueueEnqueue()
		metrics.UpdateQueueSize(len(q.items))
		return true
	default:
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "queue_full")
		return false
	}
}

func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan model.Notification {
	out := make(chan model.Notification)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case n, ok := <-q.items:
				if !ok {
					return
				}
				metrics.RecordQueueDequeue()
				metrics.UpdateQueueSize(len(q.items))
				select {
				case out <- n:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

func (q *InMemoryQueue) Len() int {
	return len(q.items)
}

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
