package api

import (
	"errors"
	"net/http"

	service "github.com/okian/skymap/internal/app"
	"github.com/okian/skymap/internal/domain/types"
	"github.com/okian/skymap/pkg/logger"
)

// EventsHandler applies pointer and resize events to a session.
type EventsHandler struct {
	deps   Dependencies
	logger logger.Logger
}

// NewEventsHandler creates a new events handler.
func NewEventsHandler(deps Dependencies, log logger.Logger) *EventsHandler {
	return &EventsHandler{deps: deps, logger: log}
}

// HandlePostEvent handles POST /sessions/{id}/events. An event carrying an
// event_id that was already applied to the session is acknowledged as a
// duplicate with the current state and is not applied again.
func (h *EventsHandler) HandlePostEvent(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_event"
	ctx := r.Context()
	sessionID := r.PathValue("id")

	var req types.EventRequest
	if err := decodeJSON(w, r, op, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	var key string
	if req.EventID != "" {
		key = sessionID + ":" + req.EventID
		if h.deps.SeenAndRecord(ctx, key) {
			sess, err := h.deps.Session(ctx, sessionID)
			if err != nil {
				writeFailure(w, op, err)
				return
			}
			state := sess.Map.State()
			writeJSON(w, http.StatusOK, types.EventResponse{
				Status:    "duplicate",
				Duplicate: true,
				State:     &state,
				Sequence:  sess.Map.Sequence(),
			})
			return
		}
	}

	res, err := h.deps.Do(ctx, req.Command(sessionID))
	if err != nil {
		// Roll back the "seen" status so the client can retry, unless the
		// event is queued and will still be applied.
		if key != "" && !errors.Is(err, service.ErrInFlight) {
			h.deps.Unrecord(ctx, key)
		}
		h.logger.Debug(ctx, "event rejected",
			logger.String("session_id", sessionID),
			logger.String("kind", req.Kind),
			logger.Error(err),
		)
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, types.EventResponse{
		Status:   "applied",
		State:    &res.State,
		Sequence: res.Sequence,
	})
}
