package render

import (
	"math"

	"github.com/paulmach/orb"
)

const (
	graticuleEpsilon   = 1e-6
	graticulePrecision = 2.5
	majorLonStep       = 90
	majorLatStep       = 360
	minorLatExtent     = 80
)

// DefaultGraticuleStep is the minor line spacing in degrees.
const DefaultGraticuleStep = 10

// Graticule returns the coordinate grid as a single multi-line geometry:
// meridians every 90° from pole to pole, the equator, then minor meridians
// and parallels every step degrees within ±80° latitude. Lines are sampled
// every 2.5°.
func Graticule(step float64) orb.MultiLineString {
	if !(step > 0) {
		step = DefaultGraticuleStep
	}
	const (
		x0, x1 = -180.0, 180.0
		y0, y1 = -90 + graticuleEpsilon, 90 - graticuleEpsilon
		my0    = -minorLatExtent - graticuleEpsilon
		my1    = minorLatExtent + graticuleEpsilon
	)

	var lines orb.MultiLineString
	for _, x := range steps(math.Ceil(x0/majorLonStep)*majorLonStep, x1, majorLonStep) {
		lines = append(lines, meridian(x, y0, y1))
	}
	for _, y := range steps(math.Ceil(y0/majorLatStep)*majorLatStep, y1, majorLatStep) {
		lines = append(lines, parallel(y, x0, x1))
	}
	for _, x := range steps(math.Ceil(x0/step)*step, x1, step) {
		if math.Abs(math.Mod(x, majorLonStep)) > graticuleEpsilon {
			lines = append(lines, meridian(x, my0, my1))
		}
	}
	for _, y := range steps(math.Ceil(my0/step)*step, my1, step) {
		if math.Abs(math.Mod(y, majorLatStep)) > graticuleEpsilon {
			lines = append(lines, parallel(y, x0, x1))
		}
	}
	return lines
}

func meridian(x, fromLat, toLat float64) orb.LineString {
	var ls orb.LineString
	for _, y := range steps(fromLat, toLat-graticuleEpsilon, graticulePrecision) {
		ls = append(ls, orb.Point{x, y})
	}
	return append(ls, orb.Point{x, toLat})
}

func parallel(y, fromLon, toLon float64) orb.LineString {
	var ls orb.LineString
	for _, x := range steps(fromLon, toLon-graticuleEpsilon, graticulePrecision) {
		ls = append(ls, orb.Point{x, y})
	}
	return append(ls, orb.Point{toLon, y})
}

// steps returns start, start+step, ... strictly below stop.
func steps(start, stop, step float64) []float64 {
	n := int(math.Max(0, math.Ceil((stop-start)/step)))
	out := make([]float64, n)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	return out
}
