package model

import (
	"time"

	"github.com/paulmach/orb/geojson"
)

// GestureKind names a pointer interaction on the map surface.
type GestureKind string

// Gesture kinds.
const (
	GestureDragStart GestureKind = "drag_start"
	GestureDrag      GestureKind = "drag"
	GestureDragEnd   GestureKind = "drag_end"
	GestureWheel     GestureKind = "wheel"
	GesturePinch     GestureKind = "pinch"
)

// Gesture is one pointer event in container pixel coordinates.
type Gesture struct {
	Kind GestureKind
	X, Y float64
	// DeltaY and DeltaMode follow DOM WheelEvent semantics (0 pixels, 1 lines, 2 pages).
	DeltaY    float64
	DeltaMode int
	// Scale is the relative pinch factor.
	Scale float64
}

// CommandKind selects what a Command does to a session's map.
type CommandKind string

// Command kinds.
const (
	CommandResize       CommandKind = "resize"
	CommandGesture      CommandKind = "gesture"
	CommandLocalization CommandKind = "localization"
	CommandRedraw       CommandKind = "redraw"
)

// Command is a state change addressed to one session. Commands for the same
// session are applied one at a time in arrival order.
type Command struct {
	ID           string // optional idempotency key
	SessionID    string
	Kind         CommandKind
	Size         Size
	Gesture      Gesture
	Localization *geojson.FeatureCollection
	EnqueuedAt   time.Time

	// Reply receives exactly one Result when set. It must be buffered.
	Reply chan Result
}

// Result reports the map state after a command was applied.
type Result struct {
	State     State
	Sequence  uint64
	Duplicate bool
	Err       error
}
