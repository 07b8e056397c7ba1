package render

import (
	"github.com/golang/geo/r3"
	"github.com/paulmach/orb"

	"github.com/okian/skymap/internal/domain/projection"
)

// FieldContains reports whether the celestial coordinate lies inside a field
// footprint. Polygons and closed line strings count as areas; the test runs in
// a gnomonic projection centred on the query point, where great-circle edges
// are straight, so rings reaching 90° or more away never contain it.
func FieldContains(geom orb.Geometry, lon, lat float64) bool {
	q := projection.Cartesian(lon, lat)
	return contains(geom, q, tangentBasis(q))
}

type basis struct {
	q, e, n r3.Vector
}

func tangentBasis(q r3.Vector) basis {
	e := r3.Vector{Z: 1}.Cross(q)
	if e.Norm2() < 1e-24 {
		e = r3.Vector{Y: 1}
	}
	e = e.Normalize()
	return basis{q: q, e: e, n: q.Cross(e)}
}

func contains(geom orb.Geometry, q r3.Vector, b basis) bool {
	switch g := geom.(type) {
	case orb.Polygon:
		return polygonContains(g, b)
	case orb.MultiPolygon:
		for _, p := range g {
			if polygonContains(p, b) {
				return true
			}
		}
	case orb.Ring:
		return polygonContains(orb.Polygon{g}, b)
	case orb.Bound:
		return polygonContains(g.ToPolygon(), b)
	case orb.LineString:
		return orb.Ring(g).Closed() && len(g) >= 4 && polygonContains(orb.Polygon{orb.Ring(g)}, b)
	case orb.MultiLineString:
		inside := false
		for _, ls := range g {
			if orb.Ring(ls).Closed() && len(ls) >= 4 && ringCrossings(orb.Ring(ls), b) {
				inside = !inside
			}
		}
		return inside
	case orb.Collection:
		for _, c := range g {
			if contains(c, q, b) {
				return true
			}
		}
	}
	return false
}

// polygonContains applies the even-odd rule across all rings.
func polygonContains(p orb.Polygon, b basis) bool {
	inside := false
	for _, r := range p {
		if ringCrossings(r, b) {
			inside = !inside
		}
	}
	return inside
}

// ringCrossings reports whether a ray from the query point crosses the ring an
// odd number of times.
func ringCrossings(r orb.Ring, b basis) bool {
	r = closeRing(r)
	if len(r) < 4 {
		return false
	}
	pts := make([][2]float64, len(r))
	for i, p := range r {
		v := projection.Cartesian(p.Lon(), p.Lat())
		d := v.Dot(b.q)
		if d <= 0 {
			return false
		}
		v = v.Mul(1 / d)
		pts[i] = [2]float64{v.Dot(b.e), v.Dot(b.n)}
	}

	odd := false
	for i := 0; i+1 < len(pts); i++ {
		a, c := pts[i], pts[i+1]
		if (a[1] > 0) != (c[1] > 0) {
			x := a[0] + (0-a[1])*(c[0]-a[0])/(c[1]-a[1])
			if x > 0 {
				odd = !odd
			}
		}
	}
	return odd
}
