package render

import "errors"

// ErrEmptyScene reports a scene with no pixels to rasterize.
var ErrEmptyScene = errors.New("scene has zero size")
