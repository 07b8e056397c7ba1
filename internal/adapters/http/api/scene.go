package api

import (
	"bytes"
	"io"
	"net/http"
	"strconv"

	"github.com/okian/skymap/internal/adapters/catalog"
	"github.com/okian/skymap/internal/domain/model"
	"github.com/okian/skymap/internal/domain/render"
	"github.com/okian/skymap/internal/domain/types"
	"github.com/okian/skymap/pkg/logger"
)

// SceneHandler serves a session's rendered layers and the commands that
// redraw them.
type SceneHandler struct {
	deps   Dependencies
	logger logger.Logger
}

// NewSceneHandler creates a new scene handler.
func NewSceneHandler(deps Dependencies, log logger.Logger) *SceneHandler {
	return &SceneHandler{deps: deps, logger: log}
}

// HandleScene handles GET /sessions/{id}/scene.
func (h *SceneHandler) HandleScene(w http.ResponseWriter, r *http.Request) {
	const op = "api.scene"
	sess, err := h.deps.Session(r.Context(), r.PathValue("id"))
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, types.NewSceneView(sess.Map.Scene()))
}

// HandleSVG handles GET /sessions/{id}/scene.svg.
func (h *SceneHandler) HandleSVG(w http.ResponseWriter, r *http.Request) {
	const op = "api.scene_svg"
	sess, err := h.deps.Session(r.Context(), r.PathValue("id"))
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	var buf bytes.Buffer
	if err := render.WriteSVG(&buf, sess.Map.Scene()); err != nil {
		writeError(w, http.StatusInternalServerError, "render", WrapKind(op, ErrRender, err))
		return
	}
	writeBody(w, "image/svg+xml", buf.Bytes())
}

// HandlePNG handles GET /sessions/{id}/scene.png.
func (h *SceneHandler) HandlePNG(w http.ResponseWriter, r *http.Request) {
	const op = "api.scene_png"
	var buf bytes.Buffer
	if err := h.deps.RenderPNG(r.Context(), r.PathValue("id"), &buf); err != nil {
		writeFailure(w, op, err)
		return
	}
	writeBody(w, "image/png", buf.Bytes())
}

// HandleRedraw handles POST /sessions/{id}/redraw.
func (h *SceneHandler) HandleRedraw(w http.ResponseWriter, r *http.Request) {
	const op = "api.redraw"
	res, err := h.deps.Do(r.Context(), model.Command{SessionID: r.PathValue("id"), Kind: model.CommandRedraw})
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, types.CommandResponse{State: res.State, Sequence: res.Sequence})
}

// HandleLocalization handles PUT /sessions/{id}/localization. The body is a
// GeoJSON FeatureCollection whose first feature is the most likely position.
func (h *SceneHandler) HandleLocalization(w http.ResponseWriter, r *http.Request) {
	const op = "api.localization"
	ctx := r.Context()
	sessionID := r.PathValue("id")

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	fc, err := catalog.DecodeLocalization(data)
	if err != nil {
		writeFailure(w, op, err)
		return
	}

	res, err := h.deps.Do(ctx, model.Command{SessionID: sessionID, Kind: model.CommandLocalization, Localization: fc})
	if err != nil {
		h.logger.Debug(ctx, "localization rejected",
			logger.String("session_id", sessionID),
			logger.Error(err),
		)
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, types.CommandResponse{State: res.State, Sequence: res.Sequence})
}

func writeBody(w http.ResponseWriter, contentType string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
