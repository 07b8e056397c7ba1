package queue

// Option applies a configuration option to the InMemoryQueue.
type Option func(*InMemoryQueue)

// WithCapacity sets the maximum number of queued commands.
func WithCapacity(capacity int) Option {
	return func(q *InMemoryQueue) {
		if capacity > 0 {
			q.capacity = capacity
		}
	}
}

// WithShard labels the queue's metrics with its dispatcher shard.
func WithShard(shard string) Option {
	return func(q *InMemoryQueue) {
		if shard != "" {
			q.shard = shard
		}
	}
}
