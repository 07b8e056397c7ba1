package repository

import (
	"time"

	"github.com/okian/skymap/pkg/logger"
)

// Option applies a configuration option to the LRUStore.
type Option func(*LRUStore)

// WithMaxSessions bounds the number of live sessions.
func WithMaxSessions(n int) Option {
	return func(s *LRUStore) {
		if n > 0 {
			s.maxSessions = n
		}
	}
}

// WithTTL sets how long an untouched session stays alive.
func WithTTL(ttl time.Duration) Option {
	return func(s *LRUStore) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithMetricsUpdateInterval sets the interval for background metrics updates.
func WithMetricsUpdateInterval(interval time.Duration) Option {
	return func(s *LRUStore) {
		if interval > 0 {
			s.metricsUpdateInterval = interval
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(s *LRUStore) {
		if l != nil {
			s.log = l
		}
	}
}
