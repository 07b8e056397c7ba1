package skymap

import (
	"math"

	"github.com/okian/skymap/pkg/logger"
)

// Option configures a Map at attach time.
type Option func(*Map)

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(m *Map) {
		if l != nil {
			m.log = l
		}
	}
}

// WithPrecision sets the resampling precision in pixels.
func WithPrecision(p float64) Option {
	return func(m *Map) {
		if p > 0 {
			m.precision = p
		}
	}
}

// WithGraticuleStep sets the minor graticule spacing in degrees.
func WithGraticuleStep(step float64) Option {
	return func(m *Map) {
		if step > 0 {
			m.graticuleStep = step
		}
	}
}

// WithZoomExtent bounds the scale to [lo, hi] times half the container width.
func WithZoomExtent(lo, hi float64) Option {
	return func(m *Map) {
		if lo > 0 && hi >= lo && !math.IsInf(hi, 0) {
			m.minZoom, m.maxZoom = lo, hi
		}
	}
}

// WithWheelSensitivity sets the zoom exponent per wheel pixel.
func WithWheelSensitivity(s float64) Option {
	return func(m *Map) {
		if s > 0 {
			m.wheelSensitivity = s
		}
	}
}
