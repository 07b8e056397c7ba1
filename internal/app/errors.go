package service

import "errors"

// Sentinel kinds for service errors. ErrInFlight marks a command that was
// queued but whose result was not awaited; it is still applied.
var (
	ErrNotStarted     = errors.New("service not started")
	ErrTimeout        = errors.New("command timed out")
	ErrInFlight       = errors.New("command in flight")
	ErrUnknownCommand = errors.New("unknown command kind")
	ErrImageTooLarge  = errors.New("image too large")
)
