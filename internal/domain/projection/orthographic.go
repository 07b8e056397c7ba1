// Package projection implements the rotated orthographic projection of the
// celestial sphere onto the screen, and the versor math used for dragging.
package projection

import (
	"math"

	"github.com/golang/geo/r3"

	"github.com/okian/skymap/internal/domain/model"
)

// Orthographic projects the sphere as seen from infinitely far away.
// Only the hemisphere facing the viewer is visible (clip angle 90°).
// The zero value is the identity rotation with zero scale.
type Orthographic struct {
	rotation  model.Rotation
	rotator   Rotator
	scale     float64
	translate [2]float64
}

// NewOrthographic returns a projection with identity rotation, zero scale and
// origin translate.
func NewOrthographic() *Orthographic {
	return &Orthographic{rotator: NewRotator(model.Rotation{})}
}

// Rotate returns the current rotation.
func (o *Orthographic) Rotate() model.Rotation { return o.rotation }

// SetRotate replaces the rotation.
func (o *Orthographic) SetRotate(r model.Rotation) {
	o.rotation = r
	o.rotator = NewRotator(r)
}

// Scale returns the radius of the visible disk in pixels.
func (o *Orthographic) Scale() float64 { return o.scale }

// SetScale replaces the scale.
func (o *Orthographic) SetScale(k float64) { o.scale = k }

// Translate returns the pixel position of the projection centre.
func (o *Orthographic) Translate() [2]float64 { return o.translate }

// SetTranslate replaces the translate.
func (o *Orthographic) SetTranslate(t [2]float64) { o.translate = t }

// State snapshots rotation, scale and translate.
func (o *Orthographic) State() model.State {
	return model.State{Rotation: o.rotation, Scale: o.scale, Translate: o.translate}
}

// SetState restores a snapshot.
func (o *Orthographic) SetState(s model.State) {
	o.SetRotate(s.Rotation)
	o.scale = s.Scale
	o.translate = s.Translate
}

// Rotated returns the rotated unit vector of a celestial coordinate in degrees.
func (o *Orthographic) Rotated(lon, lat float64) r3.Vector {
	return o.rotator.Apply(Cartesian(lon, lat))
}

// RotateVector rotates an unrotated unit vector into view space.
func (o *Orthographic) RotateVector(v r3.Vector) r3.Vector {
	return o.rotator.Apply(v)
}

// Visible reports whether a rotated vector lies on the near hemisphere.
func Visible(v r3.Vector) bool {
	return v.X > 0
}

// ProjectRotated maps a rotated vector to screen pixels regardless of visibility.
func (o *Orthographic) ProjectRotated(v r3.Vector) (x, y float64) {
	return o.translate[0] + o.scale*v.Y, o.translate[1] - o.scale*v.Z
}

// Project maps a celestial coordinate in degrees to screen pixels.
func (o *Orthographic) Project(lon, lat float64) (x, y float64, visible bool) {
	v := o.Rotated(lon, lat)
	x, y = o.ProjectRotated(v)
	return x, y, Visible(v)
}

// InvertVector returns the unrotated unit vector under a screen pixel.
// Pixels outside the disk map to the nearest point on the limb.
func (o *Orthographic) InvertVector(px, py float64) r3.Vector {
	if o.scale == 0 {
		return o.rotator.Invert(r3.Vector{X: 1})
	}
	x := (px - o.translate[0]) / o.scale
	y := (o.translate[1] - py) / o.scale
	if z := math.Hypot(x, y); z > 1 {
		x, y = x/z, y/z
	}
	depth := math.Sqrt(math.Max(0, 1-x*x-y*y))
	return o.rotator.Invert(r3.Vector{X: depth, Y: x, Z: y})
}

// Invert maps a screen pixel back to a celestial coordinate in degrees.
func (o *Orthographic) Invert(px, py float64) (lon, lat float64) {
	return Spherical(o.InvertVector(px, py))
}
