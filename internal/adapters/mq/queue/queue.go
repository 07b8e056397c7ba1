// Package queue holds the bounded FIFO of map commands drained by one
// dispatcher shard.
package queue

import (
	"context"
	"fmt"
	"sync"

	"github.com/okian/skymap/internal/domain/model"
	"github.com/okian/skymap/pkg/metrics"
)

const defaultCapacity = 1024

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a command without blocking.
	// Returns ErrFull when at capacity and ErrClosed after Close.
	Enqueue(ctx context.Context, c model.Command) error

	// Dequeue returns the channel commands are delivered on, in enqueue order.
	// The channel is closed when the queue is closed and drained.
	Dequeue() <-chan model.Command

	// Len returns the current number of queued commands.
	Len() int

	// Close stops accepting commands. Already queued commands are still delivered.
	Close() error

	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	shard    string
	capacity int
	commands chan model.Command

	mu     sync.RWMutex
	closed bool
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{
		shard:    "0",
		capacity: defaultCapacity,
	}
	for _, opt := range opts {
		opt(q)
	}
	q.commands = make(chan model.Command, q.capacity)
	metrics.UpdateQueueSize(q.shard, 0)
	return q
}

func (q *InMemoryQueue) Enqueue(ctx context.Context, c model.Command) error { //nolint:gocritic // hugeParam: commands travel by value
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueRejected("closed")
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		metrics.RecordQueueRejected("context_cancelled")
		return fmt.Errorf("enqueue: %w", err)
	}

	select {
	case q.commands <- c:
		metrics.UpdateQueueSize(q.shard, len(q.commands))
		return nil
	default:
		metrics.RecordQueueRejected("full")
		return fmt.Errorf("%w: shard %s at capacity %d", ErrFull, q.shard, q.capacity)
	}
}

func (q *InMemoryQueue) Dequeue() <-chan model.Command {
	return q.commands
}

func (q *InMemoryQueue) Len() int {
	n := len(q.commands)
	metrics.UpdateQueueSize(q.shard, n)
	return n
}

func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.commands)
	q.closed = true
	return nil
}

func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
