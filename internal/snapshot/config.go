package snapshot

import (
	"fmt"
	"strconv"
	"strings"
)

// Output formats.
const (
	FormatSVG = "svg"
	FormatPNG = "png"
)

// Config holds one snapshot job.
type Config struct {
	FieldsPath       string  // footprint catalog, required
	LocalizationPath string  // optional localization collection
	Width            float64 // container width in pixels
	Height           float64 // container height in pixels
	Center           *Center // overrides the localization centre when set
	Zoom             float64 // relative zoom applied after centring, 1 keeps the fitted scale
	Format           string  // svg or png
	OutputPath       string  // destination file, required
}

// Center is a celestial position in degrees.
type Center struct {
	Lon, Lat float64
}

// ParseCenter parses "lon,lat".
func ParseCenter(s string) (*Center, error) {
	lon, lat, ok := strings.Cut(s, ",")
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrCenter, s)
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(lon), 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCenter, err)
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(lat), 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCenter, err)
	}
	return &Center{Lon: x, Lat: y}, nil
}

// Validate checks required paths, sizes and format.
func (c *Config) Validate() error {
	switch {
	case c.FieldsPath == "":
		return fmt.Errorf("%w: fields path is required", ErrConfig)
	case c.OutputPath == "":
		return fmt.Errorf("%w: output path is required", ErrConfig)
	case c.Width <= 0 || c.Height <= 0:
		return fmt.Errorf("%w: size must be positive, got %gx%g", ErrConfig, c.Width, c.Height)
	case c.Zoom <= 0:
		return fmt.Errorf("%w: zoom must be positive, got %g", ErrConfig, c.Zoom)
	case c.Format != FormatSVG && c.Format != FormatPNG:
		return fmt.Errorf("%w: unknown format %q", ErrConfig, c.Format)
	}
	return nil
}
