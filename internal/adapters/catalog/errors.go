package catalog

import "errors"

// Sentinel kinds for catalog errors.
var (
	ErrRead   = errors.New("read catalog file")
	ErrDecode = errors.New("decode localization collection")
)
