package snapshot

import "errors"

var (
	ErrConfig = errors.New("invalid snapshot config")
	ErrCenter = errors.New("center must be lon,lat")
	ErrWrite  = errors.New("write snapshot")
)
