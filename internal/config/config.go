// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - New() returns a Config populated with defaults.
// - Load layers a YAML file and the environment on top and validates the result.
// - External errors are wrapped with this package's sentinel kinds.
package config

import (
	"runtime"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level" validate:"oneof=debug info warn warning error"`

	// LogFormat selects the slog handler: text or json.
	LogFormat string `koanf:"log_format" validate:"oneof=text json"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr" validate:"required"`

	// FieldsPath names a GeoJSON FeatureCollection of field footprints
	// attached to every new session. Empty means no default fields.
	FieldsPath string `koanf:"fields_path"`

	// LocalizationPath names a contour collection applied to every new session.
	LocalizationPath string `koanf:"localization_path"`

	// Precision is the adaptive resampling tolerance in pixels.
	Precision float64 `koanf:"precision" validate:"gt=0"`

	// GraticuleStep is the minor graticule spacing in degrees.
	GraticuleStep float64 `koanf:"graticule_step" validate:"gt=0,lte=90"`

	// MinZoom and MaxZoom bound the zoom as multiples of the size-derived scale.
	MinZoom float64 `koanf:"min_zoom" validate:"gt=0"`
	MaxZoom float64 `koanf:"max_zoom" validate:"gtfield=MinZoom"`

	// WheelSensitivity is the exponent per wheel pixel.
	WheelSensitivity float64 `koanf:"wheel_sensitivity" validate:"gt=0"`

	// MaxSessions bounds the live session store.
	MaxSessions int `koanf:"max_sessions" validate:"gt=0"`

	// SessionTTLSec expires idle sessions.
	SessionTTLSec int `koanf:"session_ttl_sec" validate:"gt=0"`

	// DedupeSize sets the size of the command deduplication cache.
	DedupeSize int `koanf:"dedupe_size" validate:"gt=0"`

	// ShardCount sets the number of dispatcher shards.
	ShardCount int `koanf:"shard_count" validate:"gt=0"`

	// QueueSize bounds each shard's command queue.
	QueueSize int `koanf:"queue_size" validate:"gt=0"`

	// CommandTimeoutMS caps how long a request waits for its command to apply.
	CommandTimeoutMS int `koanf:"command_timeout_ms" validate:"gt=0"`

	// RenderConcurrency bounds concurrent PNG rasterizations.
	RenderConcurrency int `koanf:"render_concurrency" validate:"gt=0"`

	// MaxPNGPixels caps width*height of a rasterized scene.
	MaxPNGPixels int `koanf:"max_png_pixels" validate:"gt=0"`

	TracingEnabled     bool    `koanf:"tracing_enabled"`
	TracingSampleRatio float64 `koanf:"tracing_sample_ratio" validate:"gte=0,lte=1"`
}

// New creates a Config with default values.
func New() *Config {
	return &Config{
		LogLevel:           "info",
		LogFormat:          "text",
		Addr:               ":9080",
		Precision:          0.1,
		GraticuleStep:      10,
		MinZoom:            0.1,
		MaxZoom:            1000,
		WheelSensitivity:   0.002,
		MaxSessions:        1024,
		SessionTTLSec:      1800,
		DedupeSize:         50_000,
		ShardCount:         runtime.NumCPU(),
		QueueSize:          1024,
		CommandTimeoutMS:   2000,
		RenderConcurrency:  4,
		MaxPNGPixels:       16_777_216,
		TracingSampleRatio: 1.0,
	}
}

// SessionTTL returns the idle expiry as a duration.
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLSec) * time.Second
}

// CommandTimeout returns the command wait cap as a duration.
func (c *Config) CommandTimeout() time.Duration {
	return time.Duration(c.CommandTimeoutMS) * time.Millisecond
}
