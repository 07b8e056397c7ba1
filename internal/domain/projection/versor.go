package projection

import (
	"math"

	"github.com/golang/geo/r3"

	"github.com/okian/skymap/internal/domain/model"
)

// Versor is a unit quaternion [w, x, y, z] describing a rotation of the sphere.
type Versor [4]float64

// Identity is the versor of no rotation.
var Identity = Versor{1, 0, 0, 0}

// FromRotation converts Euler angles in degrees to a versor.
func FromRotation(r model.Rotation) Versor {
	l, p, g := r.Lambda/2*radians, r.Phi/2*radians, r.Gamma/2*radians
	sl, cl := math.Sin(l), math.Cos(l)
	sp, cp := math.Sin(p), math.Cos(p)
	sg, cg := math.Sin(g), math.Cos(g)
	return Versor{
		cl*cp*cg + sl*sp*sg,
		sl*cp*cg - cl*sp*sg,
		cl*sp*cg + sl*cp*sg,
		cl*cp*sg - sl*sp*cg,
	}
}

// Rotation converts the versor back to Euler angles in degrees.
func (q Versor) Rotation() model.Rotation {
	return model.Rotation{
		Lambda: math.Atan2(2*(q[0]*q[1]+q[2]*q[3]), 1-2*(q[1]*q[1]+q[2]*q[2])) * degrees,
		Phi:    math.Asin(clamp(2*(q[0]*q[2]-q[3]*q[1]), -1, 1)) * degrees,
		Gamma:  math.Atan2(2*(q[0]*q[3]+q[1]*q[2]), 1-2*(q[2]*q[2]+q[3]*q[3])) * degrees,
	}
}

// Multiply returns the composition q * p.
func (q Versor) Multiply(p Versor) Versor {
	return Versor{
		q[0]*p[0] - q[1]*p[1] - q[2]*p[2] - q[3]*p[3],
		q[0]*p[1] + q[1]*p[0] + q[2]*p[3] - q[3]*p[2],
		q[0]*p[2] - q[1]*p[3] + q[2]*p[0] + q[3]*p[1],
		q[0]*p[3] + q[1]*p[2] - q[2]*p[1] + q[3]*p[0],
	}
}

// Delta returns the versor that carries unit vector v0 onto v1 along the
// great circle through both. Parallel vectors yield Identity.
func Delta(v0, v1 r3.Vector) Versor {
	w := v0.Cross(v1)
	l := w.Norm()
	if l == 0 {
		return Identity
	}
	t := math.Acos(clamp(v0.Dot(v1), -1, 1)) / 2
	s := math.Sin(t)
	return Versor{math.Cos(t), w.Z / l * s, -w.Y / l * s, w.X / l * s}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// Drag anchors a versor drag at the sphere point grabbed on drag start, so
// that the same point stays under the pointer while it moves.
type Drag struct {
	r0 model.Rotation
	q0 Versor
	v0 r3.Vector
}

// StartDrag records the grabbed point and the rotation at drag start.
func StartDrag(o *Orthographic, x, y float64) Drag {
	r0 := o.Rotate()
	return Drag{r0: r0, q0: FromRotation(r0), v0: o.InvertVector(x, y)}
}

// Rotation returns the rotation that brings the grabbed point under (x, y).
func (d Drag) Rotation(o *Orthographic, x, y float64) model.Rotation {
	anchored := *o
	anchored.SetRotate(d.r0)
	v1 := anchored.InvertVector(x, y)
	return d.q0.Multiply(Delta(d.v0, v1)).Rotation()
}
