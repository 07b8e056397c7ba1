package worker

import (
	"github.com/okian/skymap/pkg/logger"
)

// Option applies a configuration option to the InMemoryWorker.
type Option func(*InMemoryWorker)

// WithName sets the worker name for identification and logging.
func WithName(name string) Option {
	return func(w *InMemoryWorker) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(l logger.Logger) Option {
	return func(w *InMemoryWorker) {
		if l != nil {
			w.logger = l
		}
	}
}

type poolConfig struct {
	queueCapacity int
	logger        logger.Logger
}

// PoolOption configures a Pool.
type PoolOption func(*poolConfig)

// WithQueueCapacity sets the capacity of each shard's queue.
func WithQueueCapacity(n int) PoolOption {
	return func(c *poolConfig) {
		if n > 0 {
			c.queueCapacity = n
		}
	}
}

// WithPoolLogger sets the pool's logger.
func WithPoolLogger(l logger.Logger) PoolOption {
	return func(c *poolConfig) {
		if l != nil {
			c.logger = l
		}
	}
}
