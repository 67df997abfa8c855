package component

import "github.com/go-gl/mathgl/mgl64"

// MotionMode selects which motion routine drives the Transform. Only one
// mode is active at a time.
type MotionMode int

const (
	MotionIdle MotionMode = iota
	MotionWalkPath
	MotionChase
)

func (m MotionMode) String() string {
	switch m {
	case MotionIdle:
		return "idle"
	case MotionWalkPath:
		return "walk_path"
	case MotionChase:
		return "chase"
	default:
		return "unknown"
	}
}

// Motion is the single active motion task of an entity. Task increases every
// time a new task replaces the previous one.
type Motion struct {
	Mode MotionMode
	Task uint64

	// StartTimer is the pending delayed walk start (an ecs.TimerID), 0 if none.
	StartTimer uint64

	// waypoint-sequence walking
	Waypoints []mgl64.Vec3
	Index     int
	GateWaits int

	// chase; TargetEntity (an ecs.Entity) wins over Target when non-zero
	Target       mgl64.Vec3
	TargetEntity uint64
}

// Current returns the waypoint being walked to.
func (m *Motion) Current() (mgl64.Vec3, bool) {
	if m == nil || m.Mode != MotionWalkPath || m.Index < 0 || m.Index >= len(m.Waypoints) {
		return mgl64.Vec3{}, false
	}
	return m.Waypoints[m.Index], true
}

var MotionComponent = NewComponent[Motion]()

// Locomotion holds the movement tunables of an entity.
type Locomotion struct {
	Speed       float64 // units per second
	TurnBlend   float64 // slerp factor applied per tick while walking a path
	FlattenLook bool    // ignore height differences when turning
}

var LocomotionComponent = NewComponent[Locomotion]()
