package projection

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/golang/geo/s2"

	"github.com/okian/skymap/internal/domain/model"
)

// Rotator applies a three-axis Euler rotation to unit vectors.
// The axis order and sign conventions match d3-geo's rotate([λ, φ, γ]):
// spin about the pole by λ, tilt by φ, then roll by γ.
type Rotator struct {
	m [3][3]float64
}

// NewRotator builds the rotation matrix for r.
func NewRotator(r model.Rotation) Rotator {
	l, p, g := r.Lambda*radians, r.Phi*radians, r.Gamma*radians
	cl, sl := math.Cos(l), math.Sin(l)
	cp, sp := math.Cos(p), math.Sin(p)
	cg, sg := math.Cos(g), math.Sin(g)

	rz := [3][3]float64{{cl, -sl, 0}, {sl, cl, 0}, {0, 0, 1}}
	ry := [3][3]float64{{cp, 0, -sp}, {0, 1, 0}, {sp, 0, cp}}
	rx := [3][3]float64{{1, 0, 0}, {0, cg, -sg}, {0, sg, cg}}
	return Rotator{m: mul(rx, mul(ry, rz))}
}

// Apply rotates v.
func (r Rotator) Apply(v r3.Vector) r3.Vector {
	m := r.m
	return r3.Vector{
		X: m[0][0]*v.X + m[0][1]*v.Y + m[0][2]*v.Z,
		Y: m[1][0]*v.X + m[1][1]*v.Y + m[1][2]*v.Z,
		Z: m[2][0]*v.X + m[2][1]*v.Y + m[2][2]*v.Z,
	}
}

// Invert undoes Apply.
func (r Rotator) Invert(v r3.Vector) r3.Vector {
	m := r.m
	return r3.Vector{
		X: m[0][0]*v.X + m[1][0]*v.Y + m[2][0]*v.Z,
		Y: m[0][1]*v.X + m[1][1]*v.Y + m[2][1]*v.Z,
		Z: m[0][2]*v.X + m[1][2]*v.Y + m[2][2]*v.Z,
	}
}

func mul(a, b [3][3]float64) [3][3]float64 {
	var out [3][3]float64
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out[i][j] = a[i][0]*b[0][j] + a[i][1]*b[1][j] + a[i][2]*b[2][j]
		}
	}
	return out
}

// Cartesian converts a celestial coordinate in degrees to a unit vector.
func Cartesian(lon, lat float64) r3.Vector {
	return s2.PointFromLatLng(s2.LatLngFromDegrees(lat, lon)).Vector
}

// Spherical converts a vector to a celestial coordinate [lon, lat] in degrees.
func Spherical(v r3.Vector) (lon, lat float64) {
	ll := s2.LatLngFromPoint(s2.Point{Vector: v})
	return ll.Lng.Degrees(), ll.Lat.Degrees()
}

const (
	radians = math.Pi / 180
	degrees = 180 / math.Pi
)
