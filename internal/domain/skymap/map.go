// Package skymap is the interactive sky map: one orthographic projection
// shared by the graticule, field footprint and localization contour layers,
// mutated by resize, gestures and localization updates.
//
// Every mutation re-rasterizes all layers before it returns, so the Scene
// always reflects the current projection state. A Map is safe for concurrent
// use; callers that need arrival order must serialize commands themselves.
package skymap

import (
	"context"
	"fmt"
	"math"
	"slices"
	"sync"
	"time"

	"github.com/paulmach/orb"
	"github.com/samber/lo"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/okian/skymap/internal/domain/model"
	"github.com/okian/skymap/internal/domain/projection"
	"github.com/okian/skymap/internal/domain/render"
	"github.com/okian/skymap/internal/domain/tooltip"
	"github.com/okian/skymap/pkg/logger"
	"github.com/okian/skymap/pkg/metrics"
	"github.com/okian/skymap/pkg/tracing"
)

const (
	defaultPrecision        = 0.1
	defaultMinZoom          = 0.1
	defaultMaxZoom          = 1000
	defaultWheelSensitivity = 0.002
)

// Map is a sky map attached to a container.
type Map struct {
	log    logger.Logger
	tracer trace.Tracer

	precision        float64
	graticuleStep    float64
	minZoom, maxZoom float64
	wheelSensitivity float64

	mu        sync.Mutex
	size      model.Size
	proj      *projection.Orthographic
	paths     *render.PathBuilder
	graticule orb.MultiLineString
	fields    []model.Field
	contours  []render.Contour
	marker    orb.Geometry
	drag      *projection.Drag
	scene     render.Scene
	bindings  []int // field indices with a visible path, rebuilt on every redraw
	sequence  uint64
}

// Attach builds a map over fields, sizes it from c, registers it as an
// observer of c and performs the initial redraw. A zero-size container yields
// a zero-scale projection until the next resize.
func Attach(ctx context.Context, c Container, fields []model.Field, opts ...Option) *Map {
	m := &Map{
		tracer:           tracing.Tracer("github.com/okian/skymap/internal/domain/skymap"),
		precision:        defaultPrecision,
		graticuleStep:    render.DefaultGraticuleStep,
		minZoom:          defaultMinZoom,
		maxZoom:          defaultMaxZoom,
		wheelSensitivity: defaultWheelSensitivity,
		proj:             projection.NewOrthographic(),
		fields:           slices.Clone(fields),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.log == nil {
		m.log = logger.Get().Named("skymap")
	}
	m.paths = render.NewPathBuilder(m.proj, m.precision)
	m.graticule = render.Graticule(m.graticuleStep)

	m.mu.Lock()
	m.layout(c.Size())
	m.redraw(ctx)
	m.mu.Unlock()

	c.Observe(m)

	m.log.Debug(ctx, "map attached",
		logger.Int("fields", len(fields)),
		logger.Float64("width", m.size.Width),
		logger.Float64("height", m.size.Height),
	)
	return m
}

// Redraw re-rasterizes every layer from the current projection state.
func (m *Map) Redraw(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.redraw(ctx)
}

// Resize recomputes scale as half the width and centres the projection in
// the container. Rotation is kept; any zoom is reset.
func (m *Map) Resize(ctx context.Context, size model.Size) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.layout(size)
	metrics.RecordResize()
	m.log.Debug(ctx, "map resized",
		logger.Float64("width", size.Width),
		logger.Float64("height", size.Height),
		logger.Float64("scale", m.proj.Scale()),
	)
	m.redraw(ctx)
}

// layout must be called with m.mu held.
func (m *Map) layout(size model.Size) {
	m.size = size
	m.proj.SetScale(m.baseScale())
	m.proj.SetTranslate([2]float64{size.Width / 2, size.Height / 2})
}

func (m *Map) baseScale() float64 {
	if !(m.size.Width > 0) {
		return 0
	}
	return m.size.Width / 2
}

// redraw must be called with m.mu held.
func (m *Map) redraw(ctx context.Context) {
	_, span := m.tracer.Start(ctx, "skymap.redraw")
	defer span.End()
	start := time.Now()

	scene := m.paths.Scene(m.size, render.Layers{
		Graticule: m.graticule,
		Fields:    m.fields,
		Contours:  m.contours,
		Marker:    m.marker,
	})
	m.sequence++
	scene.Sequence = m.sequence
	m.scene = scene
	m.bindings = lo.FilterMap(scene.Fields, func(f render.FieldPath, _ int) (int, bool) {
		return f.Index, !f.Path.Empty()
	})

	for layer, n := range scene.PathCount() {
		metrics.UpdatePathCount(layer, n)
	}
	metrics.RecordRedraw(float64(time.Since(start).Microseconds()) / 1000)
	span.SetAttributes(
		attribute.Int64("skymap.sequence", int64(m.sequence)),
		attribute.Int("skymap.visible_fields", len(m.bindings)),
	)
}

// Scene returns the most recent rasterization.
func (m *Map) Scene() render.Scene {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.scene
}

// State returns the current projection state.
func (m *Map) State() model.State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.proj.State()
}

// Sequence returns the number of redraws performed so far.
func (m *Map) Sequence() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sequence
}

// Size returns the container size the map was last laid out for.
func (m *Map) Size() model.Size {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.size
}

// Fields returns the attached fields.
func (m *Map) Fields() []model.Field {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.fields)
}

// Contours returns the current contour layer, empty before any localization.
func (m *Map) Contours() []render.Contour {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.contours)
}

// Tooltip returns the tooltip HTML of field index. It is computed on every call.
func (m *Map) Tooltip(index int) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if index < 0 || index >= len(m.fields) {
		return "", fmt.Errorf("%w: %d", ErrFieldIndex, index)
	}
	return tooltip.Text(m.fields[index].Meta), nil
}

// FieldAt returns the topmost visible field under the pixel (x, y).
func (m *Map) FieldAt(x, y float64) (int, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fieldAt(x, y)
}

func (m *Map) fieldAt(x, y float64) (int, bool) {
	k := m.proj.Scale()
	t := m.proj.Translate()
	if !(k > 0) || math.Hypot(x-t[0], y-t[1]) > k {
		return 0, false
	}
	lon, lat := m.proj.Invert(x, y)
	for i := len(m.bindings) - 1; i >= 0; i-- {
		idx := m.bindings[i]
		if render.FieldContains(m.fields[idx].Geometry, lon, lat) {
			return idx, true
		}
	}
	return 0, false
}

// HoverTooltip returns the tooltip of the field under (x, y), if any.
func (m *Map) HoverTooltip(x, y float64) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx, ok := m.fieldAt(x, y)
	metrics.RecordTooltip(ok)
	if !ok {
		return "", false
	}
	return tooltip.Text(m.fields[idx].Meta), true
}
