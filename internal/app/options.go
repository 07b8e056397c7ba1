package service

import (
	"time"

	"github.com/paulmach/orb/geojson"

	"github.com/okian/skymap/internal/domain/model"
	"github.com/okian/skymap/internal/domain/skymap"
	"github.com/okian/skymap/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithShardCount sets the number of dispatcher shards.
func WithShardCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.shardCount = count
		}
	}
}

// WithQueueSize sets the capacity of each shard's command queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets the size of the deduplication cache.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithMaxSessions bounds the number of live sessions.
func WithMaxSessions(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxSessions = n
		}
	}
}

// WithSessionTTL sets how long an idle session survives.
func WithSessionTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.sessionTTL = ttl
		}
	}
}

// WithCommandTimeout caps how long Do waits for a command to be applied.
func WithCommandTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.commandTimeout = d
		}
	}
}

// WithMaxPNGPixels caps width*height of a rasterized scene.
func WithMaxPNGPixels(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxPNGPixels = n
		}
	}
}

// WithRenderConcurrency bounds concurrent PNG rasterizations.
func WithRenderConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.renderConcurrency = int64(n)
		}
	}
}

// WithMapOptions sets the options every new session's map is attached with.
func WithMapOptions(opts ...skymap.Option) Option {
	return func(s *Service) {
		s.mapOptions = append(s.mapOptions, opts...)
	}
}

// WithDefaultFields sets the field footprints new sessions start with.
func WithDefaultFields(fields []model.Field) Option {
	return func(s *Service) {
		s.fields = fields
	}
}

// WithDefaultLocalization sets the localization applied to new sessions.
func WithDefaultLocalization(fc *geojson.FeatureCollection) Option {
	return func(s *Service) {
		s.localization = fc
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
