// Package site serves the embedded sky map viewer.
package site

import (
	"context"
	"net/http"
)

// Register mounts the viewer at / for GET requests not claimed by the API.
func Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}
	mux.Handle("GET /", http.FileServer(FS()))
}
