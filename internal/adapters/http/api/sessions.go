package api

import (
	"net/http"

	"github.com/okian/skymap/internal/domain/types"
)

// SessionHandler creates, inspects and deletes sessions.
type SessionHandler struct {
	deps Dependencies
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(deps Dependencies) *SessionHandler {
	return &SessionHandler{deps: deps}
}

// HandleCreate handles POST /sessions.
func (h *SessionHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_session"
	var req types.CreateSessionRequest
	if err := decodeJSON(w, r, op, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	sess, err := h.deps.CreateSession(r.Context(), req)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	w.Header().Set("Location", "/sessions/"+sess.ID)
	writeJSON(w, http.StatusCreated, types.CreateSessionResponse{
		ID:    sess.ID,
		State: sess.Map.State(),
		Scene: types.NewSceneView(sess.Map.Scene()),
	})
}

// HandleGet handles GET /sessions/{id}.
func (h *SessionHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_session"
	sess, err := h.deps.Session(r.Context(), r.PathValue("id"))
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	state := sess.Map.State()
	writeJSON(w, http.StatusOK, types.SessionView{
		ID:           sess.ID,
		Size:         sess.Map.Size(),
		State:        state,
		Center:       state.Center(),
		FieldCount:   len(sess.Map.Fields()),
		ContourCount: len(sess.Map.Contours()),
		Sequence:     sess.Map.Sequence(),
		CreatedAt:    sess.CreatedAt,
	})
}

// HandleDelete handles DELETE /sessions/{id}.
func (h *SessionHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	const op = "api.delete_session"
	if err := h.deps.DeleteSession(r.Context(), r.PathValue("id")); err != nil {
		writeFailure(w, op, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
