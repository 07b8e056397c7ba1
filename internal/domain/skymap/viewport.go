package skymap

import (
	"context"
	"errors"
	"sync"

	"github.com/okian/skymap/internal/domain/model"
)

// Observer receives container notifications.
type Observer interface {
	Resize(ctx context.Context, size model.Size)
	Gesture(ctx context.Context, g model.Gesture) error
}

// Container hosts a map. It reports its current pixel size and forwards size
// changes and pointer gestures to registered observers.
type Container interface {
	Size() model.Size
	Observe(o Observer)
}

// Viewport is an in-memory Container. Observers are notified synchronously,
// in registration order, and only when the size actually changes.
type Viewport struct {
	mu        sync.Mutex
	size      model.Size
	observers []Observer
}

// NewViewport returns a viewport of the given size.
func NewViewport(size model.Size) *Viewport {
	return &Viewport{size: size}
}

// Size returns the current size.
func (v *Viewport) Size() model.Size {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.size
}

// Observe registers o.
func (v *Viewport) Observe(o Observer) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.observers = append(v.observers, o)
}

// SetSize updates the size and reports whether observers were notified.
func (v *Viewport) SetSize(ctx context.Context, size model.Size) bool {
	v.mu.Lock()
	if v.size == size {
		v.mu.Unlock()
		return false
	}
	v.size = size
	observers := append([]Observer(nil), v.observers...)
	v.mu.Unlock()

	for _, o := range observers {
		o.Resize(ctx, size)
	}
	return true
}

// Dispatch forwards a gesture to every observer.
func (v *Viewport) Dispatch(ctx context.Context, g model.Gesture) error {
	v.mu.Lock()
	observers := append([]Observer(nil), v.observers...)
	v.mu.Unlock()

	var errs []error
	for _, o := range observers {
		if err := o.Gesture(ctx, g); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
