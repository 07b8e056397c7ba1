package snapshot

import "io"

// ShowHelp prints usage information for skymap-render.
func ShowHelp(w io.Writer) {
	_, _ = io.WriteString(w, `Sky Map Renderer
================

Renders a sky map to a file without starting the server.

Usage:
  skymap-render -fields fields.geojson -out map.svg [options]

Options:
  -fields string
        Field footprint FeatureCollection (required)
  -localization string
        Localization FeatureCollection; its first Point becomes the view centre
  -width float
        Width in pixels (default 800)
  -height float
        Height in pixels (default 800)
  -rotate string
        View centre as lon,lat in degrees; overrides the localization centre
  -zoom float
        Zoom relative to the fitted scale (default 1)
  -format string
        svg or png (default svg)
  -out string
        Output file (required)
  -help
        Show this help message

Examples:
  skymap-render -fields ztf.geojson -localization skymap.geojson -out gw.svg
  skymap-render -fields ztf.geojson -rotate 180,-30 -zoom 2 -format png -out south.png
`)
}
