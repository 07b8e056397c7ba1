package skymap

import (
	"context"
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/okian/skymap/internal/domain/model"
	"github.com/okian/skymap/internal/domain/render"
	"github.com/okian/skymap/pkg/logger"
	"github.com/okian/skymap/pkg/metrics"
)

// CredibleLevelProperty is the contour feature property holding the credible
// level in percent.
const CredibleLevelProperty = "credible_level"

// Localization recenters the map on the leading point feature of fc and
// replaces the contour layer with the remaining features, in order.
//
// fc is not modified. Invalid input is rejected before any state changes.
func (m *Map) Localization(ctx context.Context, fc *geojson.FeatureCollection) error {
	center, err := localizationCenter(fc)
	if err != nil {
		reason := "empty"
		if fc != nil && len(fc.Features) > 0 {
			reason = "invalid_center"
		}
		metrics.RecordLocalizationRejected(reason)
		m.log.Warn(ctx, "localization rejected", logger.Error(err))
		return err
	}

	contours := make([]render.Contour, 0, len(fc.Features)-1)
	for _, f := range fc.Features[1:] {
		// a null feature keeps its slot so contour indexes match the input
		if f == nil {
			contours = append(contours, render.Contour{})
			continue
		}
		contours = append(contours, render.Contour{
			Geometry:      f.Geometry,
			CredibleLevel: credibleLevel(f.Properties),
		})
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.proj.SetRotate(model.Rotation{Lambda: -center.Lon(), Phi: -center.Lat()})
	m.contours = contours
	m.marker = center
	// A drag in progress was anchored to the old rotation.
	m.drag = nil

	metrics.RecordLocalization()
	m.log.Debug(ctx, "localization applied",
		logger.Float64("lon", center.Lon()),
		logger.Float64("lat", center.Lat()),
		logger.Int("contours", len(contours)),
	)
	m.redraw(ctx)
	return nil
}

// Recenter turns the sphere so (lon, lat) is at the view centre, keeping
// every layer, and redraws.
func (m *Map) Recenter(ctx context.Context, lon, lat float64) error {
	if !finite(lon) || !finite(lat) {
		return fmt.Errorf("%w: (%v, %v)", ErrInvalidCenter, lon, lat)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.proj.SetRotate(model.Rotation{Lambda: -lon, Phi: -lat})
	m.drag = nil
	m.redraw(ctx)
	return nil
}

func localizationCenter(fc *geojson.FeatureCollection) (orb.Point, error) {
	if fc == nil || len(fc.Features) == 0 {
		return orb.Point{}, ErrEmptyLocalization
	}
	first := fc.Features[0]
	if first == nil {
		return orb.Point{}, fmt.Errorf("%w: missing feature", ErrInvalidCenter)
	}
	pt, ok := first.Geometry.(orb.Point)
	if !ok {
		return orb.Point{}, fmt.Errorf("%w: got %T", ErrInvalidCenter, first.Geometry)
	}
	if !finite(pt.Lon()) || !finite(pt.Lat()) {
		return orb.Point{}, fmt.Errorf("%w: %v", ErrInvalidCenter, pt)
	}
	return pt, nil
}

func credibleLevel(p geojson.Properties) *float64 {
	v, ok := p[CredibleLevelProperty].(float64)
	if !ok || !finite(v) {
		return nil
	}
	return &v
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
