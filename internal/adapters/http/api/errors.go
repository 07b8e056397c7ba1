package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/okian/skymap/internal/adapters/catalog"
	"github.com/okian/skymap/internal/adapters/mq/queue"
	repository "github.com/okian/skymap/internal/adapters/repository"
	service "github.com/okian/skymap/internal/app"
	"github.com/okian/skymap/internal/domain/model"
	"github.com/okian/skymap/internal/domain/skymap"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest   = errors.New("bad request")
	ErrBackpressure = errors.New("backpressure")
	ErrRender       = errors.New("render failed")
)

// NewKind tags op with an error kind.
func NewKind(op string, kind error) error {
	return fmt.Errorf("%s: %w", op, kind)
}

// WrapKind tags err with op and kind so both match errors.Is.
func WrapKind(op string, kind, err error) error {
	if err == nil {
		return NewKind(op, kind)
	}
	return fmt.Errorf("%s: %w: %w", op, kind, err)
}

// classify maps an upstream error to an HTTP status and error code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, repository.ErrNotFound), errors.Is(err, skymap.ErrFieldIndex):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, skymap.ErrEmptyLocalization), errors.Is(err, skymap.ErrInvalidCenter):
		return http.StatusUnprocessableEntity, "invalid_localization"
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, model.ErrDecode),
		errors.Is(err, catalog.ErrDecode),
		errors.Is(err, skymap.ErrUnknownGesture),
		errors.Is(err, service.ErrUnknownCommand):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, service.ErrImageTooLarge):
		return http.StatusRequestEntityTooLarge, "too_large"
	case errors.Is(err, ErrBackpressure), errors.Is(err, queue.ErrFull):
		return http.StatusTooManyRequests, "backpressure"
	case errors.Is(err, service.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	case errors.Is(err, queue.ErrClosed), errors.Is(err, service.ErrNotStarted):
		return http.StatusServiceUnavailable, "unavailable"
	default:
		return http.StatusInternalServerError, "internal"
	}
}
