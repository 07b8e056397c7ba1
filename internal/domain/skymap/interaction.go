package skymap

import (
	"context"
	"fmt"
	"math"

	"github.com/okian/skymap/internal/domain/model"
	"github.com/okian/skymap/internal/domain/projection"
	"github.com/okian/skymap/pkg/logger"
	"github.com/okian/skymap/pkg/metrics"
)

// Wheel delta multipliers relative to pixel mode, matching d3-zoom
// (pixels 0.002, lines 0.05, pages 1).
const (
	lineDeltaFactor = 25
	pageDeltaFactor = 500
)

// Gesture applies one pointer gesture and redraws synchronously.
//
// A drag keeps the sphere point grabbed at drag_start under the pointer.
// A drag without a preceding drag_start anchors at its own position.
// Wheel and pinch scale the projection, clamped to the zoom extent.
func (m *Map) Gesture(ctx context.Context, g model.Gesture) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch g.Kind {
	case model.GestureDragStart:
		d := projection.StartDrag(m.proj, g.X, g.Y)
		m.drag = &d
	case model.GestureDrag:
		if m.drag == nil {
			d := projection.StartDrag(m.proj, g.X, g.Y)
			m.drag = &d
		}
		m.proj.SetRotate(m.drag.Rotation(m.proj, g.X, g.Y))
		m.redraw(ctx)
	case model.GestureDragEnd:
		m.drag = nil
	case model.GestureWheel:
		m.zoomBy(ctx, m.wheelFactor(g))
		m.redraw(ctx)
	case model.GesturePinch:
		m.zoomBy(ctx, g.Scale)
		m.redraw(ctx)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownGesture, g.Kind)
	}
	metrics.RecordGesture(string(g.Kind))
	return nil
}

func (m *Map) wheelFactor(g model.Gesture) float64 {
	s := m.wheelSensitivity
	switch g.DeltaMode {
	case 1:
		s *= lineDeltaFactor
	case 2:
		s *= pageDeltaFactor
	}
	return math.Exp2(-g.DeltaY * s)
}

// zoomBy must be called with m.mu held. Non-positive or non-finite factors
// are ignored.
func (m *Map) zoomBy(ctx context.Context, factor float64) {
	if !(factor > 0) || math.IsInf(factor, 0) {
		return
	}
	base := m.baseScale()
	k := m.proj.Scale() * factor
	clamped := math.Max(m.minZoom*base, math.Min(m.maxZoom*base, k))
	if clamped != k {
		metrics.RecordZoomClamped()
		m.log.Debug(ctx, "zoom clamped",
			logger.Float64("requested", k),
			logger.Float64("scale", clamped),
		)
	}
	m.proj.SetScale(clamped)
}
