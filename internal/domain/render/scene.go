// Package render rasterizes sky map layers into screen-space paths and
// serializes them as SVG or PNG.
package render

import (
	"github.com/paulmach/orb"
	"github.com/samber/lo"

	"github.com/okian/skymap/internal/domain/model"
)

// Layer names, also used as SVG classes.
const (
	LayerGraticule = "graticule"
	LayerField     = "field"
	LayerContour   = "contour"
	LayerMarker    = "map-marker"
)

// Contour is one localization contour with its optional credible level in percent.
type Contour struct {
	Geometry      orb.Geometry
	CredibleLevel *float64
}

// Layers is the geometry a map draws, in drawing order.
type Layers struct {
	Graticule orb.Geometry
	Fields    []model.Field
	Contours  []Contour
	// Marker is the most likely position; nil before any localization.
	Marker orb.Geometry
}

// FieldPath is a rendered field footprint. Index refers to the map's field list.
type FieldPath struct {
	Index int
	Path  Path
}

// ContourPath is a rendered localization contour.
type ContourPath struct {
	Index         int
	CredibleLevel *float64
	Path          Path
}

// Scene is one full rasterization of a map.
type Scene struct {
	Size      model.Size
	State     model.State
	Graticule Path
	Fields    []FieldPath
	Contours  []ContourPath
	Marker    *Path
	Sequence  uint64
}

// Scene rasterizes every layer with the builder's current projection state.
func (pb *PathBuilder) Scene(size model.Size, l Layers) Scene {
	s := Scene{
		Size:  size,
		State: pb.proj.State(),
		Fields: lo.Map(l.Fields, func(f model.Field, i int) FieldPath {
			return FieldPath{Index: i, Path: pb.Path(f.Geometry)}
		}),
		Contours: lo.Map(l.Contours, func(c Contour, i int) ContourPath {
			return ContourPath{Index: i, CredibleLevel: c.CredibleLevel, Path: pb.Path(c.Geometry)}
		}),
	}
	if l.Graticule != nil {
		s.Graticule = pb.Path(l.Graticule)
	}
	if l.Marker != nil {
		m := pb.Path(l.Marker)
		s.Marker = &m
	}
	return s
}

// PathCount returns the number of non-empty paths per layer.
func (s Scene) PathCount() map[string]int {
	counts := map[string]int{
		LayerGraticule: len(s.Graticule.Subpaths),
		LayerField:     lo.CountBy(s.Fields, func(f FieldPath) bool { return !f.Path.Empty() }),
		LayerContour:   lo.CountBy(s.Contours, func(c ContourPath) bool { return !c.Path.Empty() }),
		LayerMarker:    0,
	}
	if s.Marker != nil && !s.Marker.Empty() {
		counts[LayerMarker] = 1
	}
	return counts
}
