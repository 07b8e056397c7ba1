package skymap

import "errors"

var (
	// ErrEmptyLocalization is returned when a localization collection has no features.
	ErrEmptyLocalization = errors.New("localization collection is empty")
	// ErrInvalidCenter is returned when the leading feature is not a finite point.
	ErrInvalidCenter = errors.New("localization center is not a finite point")
	// ErrFieldIndex is returned for tooltip requests on a field that does not exist.
	ErrFieldIndex = errors.New("field index out of range")
	// ErrUnknownGesture is returned for gesture kinds the controller does not handle.
	ErrUnknownGesture = errors.New("unknown gesture kind")
)
