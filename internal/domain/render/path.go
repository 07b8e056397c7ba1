package render

import (
	"math"
	"strconv"
	"strings"

	"github.com/golang/geo/r3"
	"github.com/paulmach/orb"

	"github.com/okian/skymap/internal/domain/projection"
)

const (
	// PointRadius is the pixel radius of rendered point geometries.
	PointRadius = 4.5

	maxDepth      = 16
	limbStepLimit = 6 * math.Pi / 180
)

var cosMinDistance = math.Cos(30 * math.Pi / 180)

// Subpath is one connected run of screen points.
type Subpath struct {
	Points [][2]float64
	Closed bool
}

// Marker is a circle drawn for point geometries.
type Marker struct {
	X, Y, R float64
}

// Path is the screen-space rendering of one geometry.
type Path struct {
	Subpaths []Subpath
	Markers  []Marker
}

// Empty reports whether nothing of the geometry is visible.
func (p Path) Empty() bool {
	return len(p.Subpaths) == 0 && len(p.Markers) == 0
}

// D returns the SVG path data. Coordinates are rounded to three decimals.
func (p Path) D() string {
	var b strings.Builder
	for _, sp := range p.Subpaths {
		for i, pt := range sp.Points {
			if i == 0 {
				b.WriteByte('M')
			} else {
				b.WriteByte('L')
			}
			writePoint(&b, pt[0], pt[1])
		}
		if sp.Closed && len(sp.Points) > 0 {
			b.WriteByte('Z')
		}
	}
	for _, m := range p.Markers {
		r := formatNumber(m.R)
		b.WriteByte('M')
		writePoint(&b, m.X, m.Y)
		b.WriteString("m0," + r)
		b.WriteString("a" + r + "," + r + " 0 1,1 0," + formatNumber(-2*m.R))
		b.WriteString("a" + r + "," + r + " 0 1,1 0," + formatNumber(2*m.R))
		b.WriteByte('z')
	}
	return b.String()
}

func writePoint(b *strings.Builder, x, y float64) {
	b.WriteString(formatNumber(x))
	b.WriteByte(',')
	b.WriteString(formatNumber(y))
}

func formatNumber(v float64) string {
	v = math.Round(v*1000) / 1000
	if v == 0 {
		v = 0 // drops the sign of -0
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// PathBuilder turns spherical geometries into screen paths for the current
// state of a projection. It resamples great-circle arcs adaptively and clips
// everything to the visible hemisphere.
type PathBuilder struct {
	proj   *projection.Orthographic
	delta2 float64
	delta  float64
}

// NewPathBuilder binds a builder to proj. precision is the maximum distance in
// pixels between a resampled path and the true projected arc.
func NewPathBuilder(proj *projection.Orthographic, precision float64) *PathBuilder {
	return &PathBuilder{proj: proj, delta: precision, delta2: precision * precision}
}

// Path renders geom. Unsupported geometry types render as empty paths.
func (pb *PathBuilder) Path(geom orb.Geometry) Path {
	var p Path
	pb.geometry(&p, geom)
	return p
}

func (pb *PathBuilder) geometry(p *Path, geom orb.Geometry) {
	switch g := geom.(type) {
	case orb.Point:
		pb.point(p, g)
	case orb.MultiPoint:
		for _, pt := range g {
			pb.point(p, pt)
		}
	case orb.LineString:
		pb.line(p, g)
	case orb.MultiLineString:
		for _, ls := range g {
			pb.line(p, ls)
		}
	case orb.Ring:
		pb.polygon(p, orb.Polygon{g})
	case orb.Polygon:
		pb.polygon(p, g)
	case orb.MultiPolygon:
		for _, poly := range g {
			pb.polygon(p, poly)
		}
	case orb.Bound:
		pb.polygon(p, g.ToPolygon())
	case orb.Collection:
		for _, c := range g {
			pb.geometry(p, c)
		}
	}
}

func (pb *PathBuilder) point(p *Path, pt orb.Point) {
	x, y, ok := pb.proj.Project(pt.Lon(), pt.Lat())
	if !ok {
		return
	}
	p.Markers = append(p.Markers, Marker{X: x, Y: y, R: PointRadius})
}

// vertex is a rotated unit vector with its screen position.
type vertex struct {
	v    r3.Vector
	x, y float64
}

func (pb *PathBuilder) vertex(v r3.Vector) vertex {
	x, y := pb.proj.ProjectRotated(v)
	return vertex{v: v, x: x, y: y}
}

func (pb *PathBuilder) rotated(pts []orb.Point) []r3.Vector {
	out := make([]r3.Vector, len(pts))
	for i, pt := range pts {
		out[i] = pb.proj.Rotated(pt.Lon(), pt.Lat())
	}
	return out
}

// horizon returns the point where the arc from a to b crosses the limb.
// Exactly one of a and b must be visible.
func horizon(a, b r3.Vector) r3.Vector {
	return a.Mul(math.Abs(b.X)).Add(b.Mul(math.Abs(a.X))).Normalize()
}

// arc appends the resampled arc from a to b to pts, excluding a and including b.
func (pb *PathBuilder) arc(pts [][2]float64, a, b vertex) [][2]float64 {
	pts = pb.resample(pts, a, b, maxDepth)
	return append(pts, [2]float64{b.x, b.y})
}

func (pb *PathBuilder) resample(pts [][2]float64, a, b vertex, depth int) [][2]float64 {
	dx, dy := b.x-a.x, b.y-a.y
	d2 := dx*dx + dy*dy
	if d2 <= 4*pb.delta2 || depth == 0 {
		return pts
	}
	m := a.v.Add(b.v)
	if m.Norm2() == 0 {
		return pts
	}
	mid := pb.vertex(m.Normalize())
	dx2, dy2 := mid.x-a.x, mid.y-a.y
	dz := dy*dx2 - dx*dy2
	if dz*dz/d2 > pb.delta2 ||
		math.Abs((dx*dx2+dy*dy2)/d2-0.5) > 0.3 ||
		a.v.Dot(b.v) < cosMinDistance {
		pts = pb.resample(pts, a, mid, depth-1)
		pts = append(pts, [2]float64{mid.x, mid.y})
		pts = pb.resample(pts, mid, b, depth-1)
	}
	return pts
}

// line renders an open polyline, splitting it where it passes behind the sphere.
func (pb *PathBuilder) line(p *Path, ls orb.LineString) {
	vs := pb.rotated(ls)
	var cur [][2]float64
	flush := func() {
		if len(cur) > 1 {
			p.Subpaths = append(p.Subpaths, Subpath{Points: cur})
		}
		cur = nil
	}

	for i, v := range vs {
		if i == 0 {
			if projection.Visible(v) {
				a := pb.vertex(v)
				cur = append(cur, [2]float64{a.x, a.y})
			}
			continue
		}
		a, b := vs[i-1], v
		av, bv := projection.Visible(a), projection.Visible(b)
		switch {
		case av && bv:
			cur = pb.arc(cur, pb.vertex(a), pb.vertex(b))
		case av:
			cur = pb.arc(cur, pb.vertex(a), pb.vertex(horizon(a, b)))
			flush()
		case bv:
			h := pb.vertex(horizon(a, b))
			cur = append(cur, [2]float64{h.x, h.y})
			cur = pb.arc(cur, h, pb.vertex(b))
		}
	}
	flush()
}

// run is the visible stretch of a ring between entering and leaving the limb.
type run struct {
	points      [][2]float64
	entry, exit float64 // limb angles
}

// polygon renders the visible part of a polygon. A ring's interior is the
// smaller region it encloses, whatever its winding, so a ring wholly on the
// far side draws nothing. Rings cut by the limb are closed along the limb
// around that interior.
func (pb *PathBuilder) polygon(p *Path, poly orb.Polygon) {
	if len(poly) == 0 {
		return
	}
	var runs []run
	for _, ring := range poly {
		vs := pb.rotated(closeRing(ring))
		if len(vs) < 4 {
			continue
		}
		visible := 0
		for _, v := range vs[:len(vs)-1] {
			if projection.Visible(v) {
				visible++
			}
		}
		switch visible {
		case 0:
			continue
		case len(vs) - 1:
			prev := pb.vertex(vs[0])
			pts := [][2]float64{{prev.x, prev.y}}
			for _, v := range vs[1:] {
				next := pb.vertex(v)
				pts = pb.arc(pts, prev, next)
				prev = next
			}
			// the closing vertex duplicates the first
			pts = pts[:len(pts)-1]
			p.Subpaths = append(p.Subpaths, Subpath{Points: pts, Closed: true})
		default:
			runs = append(runs, pb.clipRing(vs)...)
		}
	}
	if len(runs) == 0 {
		return
	}
	dir := 1.0
	if !counterClockwise(pb.rotated(closeRing(poly[0]))) {
		dir = -1
	}
	p.Subpaths = append(p.Subpaths, pb.rejoin(runs, dir)...)
}

// clipRing splits a closed ring of rotated vectors into visible runs.
func (pb *PathBuilder) clipRing(vs []r3.Vector) []run {
	n := len(vs) - 1
	start := 0
	for i := 0; i < n; i++ {
		if !projection.Visible(vs[i]) {
			start = i
			break
		}
	}

	var runs []run
	var cur *run
	for k := 0; k < n; k++ {
		a := vs[(start+k)%n]
		b := vs[(start+k+1)%n]
		av, bv := projection.Visible(a), projection.Visible(b)
		switch {
		case av && bv:
			cur.points = pb.arc(cur.points, pb.vertex(a), pb.vertex(b))
		case av:
			h := horizon(a, b)
			cur.points = pb.arc(cur.points, pb.vertex(a), pb.vertex(h))
			cur.exit = limbAngle(h)
			runs = append(runs, *cur)
			cur = nil
		case bv:
			h := horizon(a, b)
			hv := pb.vertex(h)
			cur = &run{entry: limbAngle(h), points: [][2]float64{{hv.x, hv.y}}}
			cur.points = pb.arc(cur.points, hv, pb.vertex(b))
		}
	}
	return runs
}

// rejoin links every run's exit to the next entry along the limb in
// direction dir, producing closed subpaths.
func (pb *PathBuilder) rejoin(runs []run, dir float64) []Subpath {
	used := make([]bool, len(runs))
	var out []Subpath
	for i := range runs {
		if used[i] {
			continue
		}
		var pts [][2]float64
		for j := i; !used[j]; {
			used[j] = true
			pts = append(pts, runs[j].points...)
			next := nearestEntry(runs, runs[j].exit, dir)
			pts = pb.limb(pts, runs[j].exit, runs[next].entry, dir)
			j = next
		}
		out = append(out, Subpath{Points: pts, Closed: true})
	}
	return out
}

func nearestEntry(runs []run, from, dir float64) int {
	best, bestDist := 0, math.Inf(1)
	for i, r := range runs {
		d := angularDistance(from, r.entry, dir)
		if d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

// angularDistance measures from a to b travelling in direction dir, in [0, 2π).
func angularDistance(a, b, dir float64) float64 {
	d := math.Mod(dir*(b-a), 2*math.Pi)
	if d < 0 {
		d += 2 * math.Pi
	}
	return d
}

// limb appends points along the limb strictly between angles from and to.
func (pb *PathBuilder) limb(pts [][2]float64, from, to, dir float64) [][2]float64 {
	span := angularDistance(from, to, dir)
	step := limbStepLimit
	if k := pb.proj.Scale(); k > 0 && pb.delta < k {
		if s := 2 * math.Acos(1-pb.delta/k); s < step {
			step = s
		}
	}
	t := pb.proj.Translate()
	k := pb.proj.Scale()
	for a := step; a < span; a += step {
		theta := from + dir*a
		pts = append(pts, [2]float64{t[0] + k*math.Cos(theta), t[1] - k*math.Sin(theta)})
	}
	return pts
}

// limbAngle is the position angle of a limb point, counterclockwise from the
// right-hand edge of the disk as seen on screen.
func limbAngle(v r3.Vector) float64 {
	return math.Atan2(v.Z, v.Y)
}

// counterClockwise reports whether a closed ring winds counterclockwise when
// seen from outside the sphere, treating the smaller enclosed region as its
// interior.
func counterClockwise(vs []r3.Vector) bool {
	if len(vs) < 2 {
		return true
	}
	var c, w r3.Vector
	for _, v := range vs[:len(vs)-1] {
		c = c.Add(v)
	}
	for i := 0; i+1 < len(vs); i++ {
		w = w.Add(vs[i].Cross(vs[i+1]))
	}
	return w.Dot(c) >= 0
}

func closeRing(r orb.Ring) orb.Ring {
	if len(r) == 0 || r.Closed() {
		return r
	}
	out := make(orb.Ring, len(r), len(r)+1)
	copy(out, r)
	return append(out, r[0])
}
