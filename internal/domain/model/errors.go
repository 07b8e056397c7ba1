package model

import "errors"

// ErrDecode reports a field collection that could not be decoded.
var ErrDecode = errors.New("decode fields")
