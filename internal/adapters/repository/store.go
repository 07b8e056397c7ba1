// Package repository keeps live map sessions in memory.
package repository

import (
	"context"
	"time"

	"github.com/okian/skymap/internal/domain/skymap"
)

// Session is one attached map and the viewport hosting it.
type Session struct {
	ID        string
	Viewport  *skymap.Viewport
	Map       *skymap.Map
	CreatedAt time.Time
}

// Store provides access to live sessions.
type Store interface {
	// Put adds s, evicting the least recently used session when full.
	Put(ctx context.Context, s *Session) error

	// Get returns the session and restarts its idle timer.
	// Returns ErrNotFound if the session is unknown or expired.
	Get(ctx context.Context, id string) (*Session, error)

	// Delete removes a session. Returns ErrNotFound if it was not present.
	Delete(ctx context.Context, id string) error

	// List returns the live sessions, least recently used first.
	List(ctx context.Context) []*Session

	// Count returns the number of live sessions.
	Count(ctx context.Context) int
}
