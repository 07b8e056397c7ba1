// Package types contains the JSON shapes exchanged over the HTTP API.
package types

import (
	"encoding/json"
	"time"

	"github.com/okian/skymap/internal/domain/model"
	"github.com/okian/skymap/internal/domain/render"
)

// CreateSessionRequest is the body of POST /sessions. Fields, when present,
// is a GeoJSON FeatureCollection that replaces the configured default fields.
type CreateSessionRequest struct {
	Width  float64         `json:"width" validate:"gte=0,lte=100000"`
	Height float64         `json:"height" validate:"gte=0,lte=100000"`
	Fields json.RawMessage `json:"fields,omitempty"`
}

// EventRequest is the body of POST /sessions/{id}/events.
type EventRequest struct {
	EventID   string  `json:"event_id" validate:"omitempty,max=128"`
	Kind      string  `json:"kind" validate:"required,oneof=drag_start drag drag_end wheel pinch resize"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	DeltaY    float64 `json:"delta_y"`
	DeltaMode int     `json:"delta_mode" validate:"gte=0,lte=2"`
	Scale     float64 `json:"scale" validate:"required_if=Kind pinch,gte=0"`
	Width     float64 `json:"width" validate:"gte=0,lte=100000"`
	Height    float64 `json:"height" validate:"gte=0,lte=100000"`
}

// KindResize is the event kind that resizes the session's container.
const KindResize = "resize"

// Command converts the event into a map command for session.
func (e EventRequest) Command(session string) model.Command {
	c := model.Command{ID: e.EventID, SessionID: session}
	if e.Kind == KindResize {
		c.Kind = model.CommandResize
		c.Size = model.Size{Width: e.Width, Height: e.Height}
		return c
	}
	c.Kind = model.CommandGesture
	c.Gesture = model.Gesture{
		Kind:      model.GestureKind(e.Kind),
		X:         e.X,
		Y:         e.Y,
		DeltaY:    e.DeltaY,
		DeltaMode: e.DeltaMode,
		Scale:     e.Scale,
	}
	return c
}

// EventResponse acknowledges an applied or duplicate event.
type EventResponse struct {
	Status    string       `json:"status"`
	Duplicate bool         `json:"duplicate"`
	State     *model.State `json:"state,omitempty"`
	Sequence  uint64       `json:"sequence,omitempty"`
}

// CommandResponse reports the map state after a command.
type CommandResponse struct {
	State    model.State `json:"state"`
	Sequence uint64      `json:"sequence"`
}

// SessionView summarises a session.
type SessionView struct {
	ID           string      `json:"id"`
	Size         model.Size  `json:"size"`
	State        model.State `json:"state"`
	Center       [2]float64  `json:"center"`
	FieldCount   int         `json:"field_count"`
	ContourCount int         `json:"contour_count"`
	Sequence     uint64      `json:"sequence"`
	CreatedAt    time.Time   `json:"created_at"`
}

// CreateSessionResponse is returned by POST /sessions.
type CreateSessionResponse struct {
	ID    string      `json:"id"`
	State model.State `json:"state"`
	Scene SceneView   `json:"scene"`
}

// FieldPathView is one field footprint path. D is empty when hidden.
type FieldPathView struct {
	Index int    `json:"index"`
	D     string `json:"d"`
}

// ContourPathView is one localization contour path.
type ContourPathView struct {
	Index         int      `json:"index"`
	CredibleLevel *float64 `json:"credible_level,omitempty"`
	D             string   `json:"d"`
}

// SceneView is a scene with every path serialized as SVG path data.
type SceneView struct {
	Sequence  uint64            `json:"sequence"`
	Size      model.Size        `json:"size"`
	State     model.State       `json:"state"`
	Graticule string            `json:"graticule"`
	Fields    []FieldPathView   `json:"fields"`
	Contours  []ContourPathView `json:"contours"`
	Marker    string            `json:"marker,omitempty"`
}

// NewSceneView serializes s.
func NewSceneView(s render.Scene) SceneView {
	v := SceneView{
		Sequence:  s.Sequence,
		Size:      s.Size,
		State:     s.State,
		Graticule: s.Graticule.D(),
		Fields:    make([]FieldPathView, len(s.Fields)),
		Contours:  make([]ContourPathView, len(s.Contours)),
	}
	for i, f := range s.Fields {
		v.Fields[i] = FieldPathView{Index: f.Index, D: f.Path.D()}
	}
	for i, c := range s.Contours {
		v.Contours[i] = ContourPathView{Index: c.Index, CredibleLevel: c.CredibleLevel, D: c.Path.D()}
	}
	if s.Marker != nil {
		v.Marker = s.Marker.D()
	}
	return v
}

// Stats is the body of GET /stats.
type Stats struct {
	Sessions      int   `json:"sessions"`
	Fields        int   `json:"fields"`
	Contours      int   `json:"contours"`
	Redraws       int64 `json:"redraws"`
	QueueBacklog  int   `json:"queue_backlog"`
	QueueSizes    []int `json:"queue_sizes"`
	DedupeEntries int64 `json:"dedupe_entries"`
	UptimeSeconds int64 `json:"uptime_seconds"`
}
