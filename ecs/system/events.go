package system

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/milk9111/companion/ecs/component"
)

// Event types pushed onto the world event queue.
const (
	EventStateChanged     = "companion.state_changed"
	EventWaypointReached  = "companion.waypoint_reached"
	EventPathComplete     = "companion.path_complete"
	EventMotionStarted    = "companion.motion_started"
	EventInterrupted      = "companion.interrupted"
	EventAnimationStarted = "companion.animation_started"
)

type StateChange struct {
	From  component.CompanionState
	To    component.CompanionState
	Cause component.CompanionEvent
}

type WaypointReached struct {
	Index    int
	Position mgl64.Vec3
}

type MotionStarted struct {
	Mode      component.MotionMode
	Task      uint64
	Waypoints int
}

type Interrupted struct {
	Reason string
	Task   uint64
}

type AnimationStarted struct {
	Name string
}
