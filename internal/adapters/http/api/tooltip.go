package api

import (
	"errors"
	"net/http"
	"strconv"
)

// TooltipHandler serves field tooltips as HTML fragments.
type TooltipHandler struct {
	deps Dependencies
}

// NewTooltipHandler creates a new tooltip handler.
func NewTooltipHandler(deps Dependencies) *TooltipHandler {
	return &TooltipHandler{deps: deps}
}

// HandleHover handles GET /sessions/{id}/tooltip?x=&y=. It answers 204 when
// no field is drawn under the pixel.
func (h *TooltipHandler) HandleHover(w http.ResponseWriter, r *http.Request) {
	const op = "api.tooltip"
	x, errX := strconv.ParseFloat(r.URL.Query().Get("x"), 64)
	y, errY := strconv.ParseFloat(r.URL.Query().Get("y"), 64)
	if errX != nil || errY != nil {
		writeError(w, http.StatusBadRequest, "bad_request",
			WrapKind(op, ErrBadRequest, errors.New("x and y must be numbers")))
		return
	}

	sess, err := h.deps.Session(r.Context(), r.PathValue("id"))
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	text, ok := sess.Map.HoverTooltip(x, y)
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeHTML(w, text)
}

// HandleField handles GET /sessions/{id}/fields/{index}/tooltip.
func (h *TooltipHandler) HandleField(w http.ResponseWriter, r *http.Request) {
	const op = "api.field_tooltip"
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	sess, err := h.deps.Session(r.Context(), r.PathValue("id"))
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	text, err := sess.Map.Tooltip(index)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeHTML(w, text)
}

func writeHTML(w http.ResponseWriter, fragment string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(fragment))
}
