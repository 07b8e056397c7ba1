// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"

	repository "github.com/okian/skymap/internal/adapters/repository"
	"github.com/okian/skymap/internal/domain/dedupe"
	"github.com/okian/skymap/internal/domain/model"
	"github.com/okian/skymap/internal/domain/types"
	"github.com/okian/skymap/pkg/logger"
)

// maxBodyBytes bounds request bodies; localization collections can be large.
const maxBodyBytes = 16 << 20

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	dedupe.Deduper

	CreateSession(ctx context.Context, req types.CreateSessionRequest) (*repository.Session, error)
	Session(ctx context.Context, id string) (*repository.Session, error)
	DeleteSession(ctx context.Context, id string) error

	// Do applies a command on the session's dispatcher shard and waits for it.
	Do(ctx context.Context, c model.Command) (model.Result, error)

	// RenderPNG rasterizes the session's current scene.
	RenderPNG(ctx context.Context, id string, w io.Writer) error
}

// Server wires HTTP routes for the sky map API.
type Server struct {
	healthHandler  *HealthHandler
	statsHandler   *StatsHandler
	sessionHandler *SessionHandler
	eventsHandler  *EventsHandler
	sceneHandler   *SceneHandler
	tooltipHandler *TooltipHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	log := logger.Get().Named("api")
	return &Server{
		healthHandler:  NewHealthHandler(),
		statsHandler:   NewStatsHandler(statsProvider),
		sessionHandler: NewSessionHandler(deps),
		eventsHandler:  NewEventsHandler(deps, log),
		sceneHandler:   NewSceneHandler(deps, log),
		tooltipHandler: NewTooltipHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	mux.HandleFunc("POST /sessions", MetricsMiddleware(s.sessionHandler.HandleCreate, "sessions"))
	mux.HandleFunc("GET /sessions/{id}", MetricsMiddleware(s.sessionHandler.HandleGet, "session"))
	mux.HandleFunc("DELETE /sessions/{id}", MetricsMiddleware(s.sessionHandler.HandleDelete, "session"))

	mux.HandleFunc("POST /sessions/{id}/events", MetricsMiddleware(s.eventsHandler.HandlePostEvent, "events"))

	mux.HandleFunc("GET /sessions/{id}/scene", MetricsMiddleware(s.sceneHandler.HandleScene, "scene"))
	mux.HandleFunc("GET /sessions/{id}/scene.svg", MetricsMiddleware(s.sceneHandler.HandleSVG, "scene_svg"))
	mux.HandleFunc("GET /sessions/{id}/scene.png", MetricsMiddleware(s.sceneHandler.HandlePNG, "scene_png"))
	mux.HandleFunc("POST /sessions/{id}/redraw", MetricsMiddleware(s.sceneHandler.HandleRedraw, "redraw"))
	mux.HandleFunc("PUT /sessions/{id}/localization", MetricsMiddleware(s.sceneHandler.HandleLocalization, "localization"))

	mux.HandleFunc("GET /sessions/{id}/tooltip", MetricsMiddleware(s.tooltipHandler.HandleHover, "tooltip"))
	mux.HandleFunc("GET /sessions/{id}/fields/{index}/tooltip", MetricsMiddleware(s.tooltipHandler.HandleField, "field_tooltip"))
}

var validate = validator.New(validator.WithRequiredStructEnabled())

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeFailure classifies err and writes the matching error response.
func writeFailure(w http.ResponseWriter, op string, err error) {
	status, code := classify(err)
	writeError(w, status, code, fmt.Errorf("%s: %w", op, err))
}

// decodeJSON reads a JSON body into v and validates it.
func decodeJSON(w http.ResponseWriter, r *http.Request, op string, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return WrapKind(op, ErrBadRequest, err)
	}
	if err := validate.Struct(v); err != nil {
		return WrapKind(op, ErrBadRequest, err)
	}
	return nil
}
