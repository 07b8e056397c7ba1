package render

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
)

const svgStyle = `.graticule{fill:none;stroke:#bbb;stroke-width:.5px}` +
	`.field{fill:rgba(70,130,180,.25);stroke:steelblue;stroke-width:1px}` +
	`.contour{fill:none;stroke:crimson;stroke-width:1.5px}` +
	`.map-marker{fill:crimson;stroke:none}`

// WriteSVG writes the scene as a standalone SVG document. Every field gets a
// path element, even when hidden, so data-field indexes stay stable.
func WriteSVG(w io.Writer, s Scene) error {
	bw := bufio.NewWriter(w)
	width, height := formatNumber(s.Size.Width), formatNumber(s.Size.Height)

	fmt.Fprintf(bw, `<svg xmlns="http://www.w3.org/2000/svg" class="skymap" width="%s" height="%s" viewBox="0 0 %s %s" data-sequence="%d">`,
		width, height, width, height, s.Sequence)
	fmt.Fprintf(bw, "<style>%s</style>", svgStyle)
	fmt.Fprintf(bw, `<path class="%s" d="%s"/>`, LayerGraticule, s.Graticule.D())
	for _, f := range s.Fields {
		fmt.Fprintf(bw, `<path class="%s" data-field="%d" d="%s"/>`, LayerField, f.Index, f.Path.D())
	}
	for _, c := range s.Contours {
		level := ""
		if c.CredibleLevel != nil {
			level = ` data-credible-level="` + strconv.FormatFloat(*c.CredibleLevel, 'f', -1, 64) + `"`
		}
		fmt.Fprintf(bw, `<path class="%s"%s d="%s"/>`, LayerContour, level, c.Path.D())
	}
	if s.Marker != nil {
		fmt.Fprintf(bw, `<path class="%s" d="%s"/>`, LayerMarker, s.Marker.D())
	}
	if _, err := bw.WriteString("</svg>"); err != nil {
		return fmt.Errorf("write svg: %w", err)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("write svg: %w", err)
	}
	return nil
}
