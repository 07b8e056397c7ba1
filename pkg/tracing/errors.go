package tracing

import "errors"

// ErrSampleRatio reports a sample ratio outside [0, 1].
var ErrSampleRatio = errors.New("tracing sample ratio out of range")
