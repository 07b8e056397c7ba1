// Package tooltip formats field metadata for hover tooltips.
//
// Positions are rendered in sexagesimal notation: right ascension as hours
// and minutes, declination as signed degrees and arcminutes. Components are
// truncated toward zero, never rounded, and padded to two digits. Degenerate
// inputs (NaN, infinities) produce degenerate text instead of failing.
package tooltip

import (
	"html"
	"math"
	"strconv"
	"strings"

	"github.com/okian/skymap/internal/domain/model"
)

// RAParts splits a right ascension in degrees into hours and minutes.
// The minutes component is the remainder of ra modulo 15, truncated.
func RAParts(ra float64) (hh, mm string) {
	return pad2(ra / 15), pad2(math.Mod(ra, 15))
}

// FormatRA renders ra as HH<sup>h</sup>MM<sup>m</sup>.
func FormatRA(ra float64) string {
	hh, mm := RAParts(ra)
	return hh + "<sup>h</sup>" + mm + "<sup>m</sup>"
}

// DecParts splits a declination in degrees into sign, degrees and arcminutes.
func DecParts(dec float64) (sign, dd, mm string) {
	sign = "-"
	if dec >= 0 {
		sign = "+"
	}
	abs := math.Abs(dec)
	return sign, pad2(abs), pad2(math.Mod(abs, 1) * 60)
}

// FormatDec renders dec as ±DD<sup>d</sup>MM<sup>m</sup>.
func FormatDec(dec float64) string {
	sign, dd, mm := DecParts(dec)
	return sign + dd + "<sup>d</sup>" + mm + "<sup>m</sup>"
}

// FormatDepth renders limiting magnitudes as "g=23.46, r=22.10" in the given band order.
func FormatDepth(depth model.Depth) string {
	parts := make([]string, len(depth))
	for i, b := range depth {
		parts[i] = b.Name + "=" + fixed2(b.Mag)
	}
	return strings.Join(parts, ", ")
}

func formatDepthHTML(depth model.Depth) string {
	parts := make([]string, len(depth))
	for i, b := range depth {
		parts[i] = "<i>" + html.EscapeString(b.Name) + "</i>=" + fixed2(b.Mag)
	}
	return strings.Join(parts, ", ")
}

// Text returns the tooltip HTML fragment for a field.
func Text(meta model.FieldMeta) string {
	var b strings.Builder
	b.WriteString("<table class=field-tooltip>")

	b.WriteString("<tr><th class=text-left>Field</th><td class=text-right>")
	b.WriteString(html.EscapeString(meta.Telescope))
	b.WriteString(", ")
	b.WriteString(html.EscapeString(string(meta.FieldID)))
	b.WriteString("</td></tr>")

	b.WriteString("<tr><th class=text-left>Pos</th><td class=text-right>")
	b.WriteString(FormatRA(meta.RA))
	b.WriteString(", ")
	b.WriteString(FormatDec(meta.Dec))
	b.WriteString("</td></tr>")

	b.WriteString("<tr><th class=text-left>Depth</th><td class=text-right>")
	b.WriteString(formatDepthHTML(meta.Depth))
	b.WriteString("</td></tr>")

	b.WriteString("</table>")
	return b.String()
}

// pad2 truncates v toward zero and left-pads it with zeros to two characters.
func pad2(v float64) string {
	var s string
	switch {
	case math.IsNaN(v):
		return "NaN"
	case math.IsInf(v, 1):
		return "Infinity"
	case math.IsInf(v, -1):
		return "-Infinity"
	default:
		t := math.Trunc(v)
		if t == 0 {
			t = 0
		}
		s = strconv.FormatFloat(t, 'f', 0, 64)
	}
	if len(s) < 2 {
		s = strings.Repeat("0", 2-len(s)) + s
	}
	return s
}

func fixed2(v float64) string {
	switch {
	case math.IsNaN(v):
		return "NaN"
	case math.IsInf(v, 1):
		return "Infinity"
	case math.IsInf(v, -1):
		return "-Infinity"
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}
