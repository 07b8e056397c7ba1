package render

import (
	"fmt"
	"io"
	"math"

	"github.com/fogleman/gg"
)

// WritePNG rasterizes the scene with the same layer order and colours as the SVG style.
func WritePNG(w io.Writer, s Scene) error {
	width, height := int(math.Ceil(s.Size.Width)), int(math.Ceil(s.Size.Height))
	if width <= 0 || height <= 0 {
		return ErrEmptyScene
	}

	dc := gg.NewContext(width, height)
	dc.SetRGB(1, 1, 1)
	dc.Clear()

	if k := s.State.Scale; k > 0 {
		dc.DrawCircle(s.State.Translate[0], s.State.Translate[1], k)
		dc.SetRGB(0.97, 0.97, 0.98)
		dc.Fill()
	}

	tracePath(dc, s.Graticule)
	dc.SetRGB(0.73, 0.73, 0.73)
	dc.SetLineWidth(0.5)
	dc.Stroke()

	for _, f := range s.Fields {
		tracePath(dc, f.Path)
		dc.SetRGBA(70/255.0, 130/255.0, 180/255.0, 0.25)
		dc.FillPreserve()
		dc.SetRGB(70/255.0, 130/255.0, 180/255.0)
		dc.SetLineWidth(1)
		dc.Stroke()
	}

	for _, c := range s.Contours {
		tracePath(dc, c.Path)
		dc.SetRGB(220/255.0, 20/255.0, 60/255.0)
		dc.SetLineWidth(1.5)
		dc.Stroke()
	}

	if s.Marker != nil {
		tracePath(dc, *s.Marker)
		dc.SetRGB(220/255.0, 20/255.0, 60/255.0)
		dc.Fill()
	}

	if err := dc.EncodePNG(w); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

func tracePath(dc *gg.Context, p Path) {
	for _, sp := range p.Subpaths {
		for i, pt := range sp.Points {
			if i == 0 {
				dc.MoveTo(pt[0], pt[1])
			} else {
				dc.LineTo(pt[0], pt[1])
			}
		}
		if sp.Closed {
			dc.ClosePath()
		}
	}
	for _, m := range p.Markers {
		dc.DrawCircle(m.X, m.Y, m.R)
	}
}
