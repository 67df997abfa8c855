package companion

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/milk9111/companion/common"
	"github.com/milk9111/companion/ecs"
	"github.com/milk9111/companion/ecs/component"
)

// Snapshot is a read-only copy of a companion's observable state, safe to
// hand to other goroutines.
type Snapshot struct {
	ID            string       `json:"id"`
	Entity        string       `json:"entity,omitempty"`
	Exists        bool         `json:"exists"`
	State         string       `json:"state"`
	Position      mgl64.Vec3   `json:"position"`
	Forward       mgl64.Vec3   `json:"forward"`
	Walking       bool         `json:"walking"`
	Mode          string       `json:"mode"`
	Waypoints     []mgl64.Vec3 `json:"waypoints,omitempty"`
	WaypointIndex int          `json:"waypoint_index"`
	Animation     string       `json:"animation"`
	HasViewer     bool         `json:"has_viewer"`
	Focused       bool         `json:"focused"`
	Near          bool         `json:"near"`
	FocusHeldFor  float64      `json:"focus_held_for"`
}

func (c *Controller) Snapshot() Snapshot {
	s := Snapshot{
		ID:    c.id.String(),
		State: c.CurrentState().String(),
		Mode:  component.MotionIdle.String(),
	}
	if !c.alive() {
		return s
	}

	w, e := c.world, c.entity
	s.Exists = true
	s.Entity = e.String()
	s.Walking = c.Walking()

	if tr, ok := ecs.Get(w, e, component.TransformComponent.Kind()); ok {
		s.Position = tr.Position
		s.Forward = common.Forward(tr.Rotation)
	}
	if m, ok := ecs.Get(w, e, component.MotionComponent.Kind()); ok {
		s.Mode = m.Mode.String()
		if m.Mode == component.MotionWalkPath {
			s.Waypoints = append([]mgl64.Vec3(nil), m.Waypoints...)
			s.WaypointIndex = m.Index
		}
	}
	if anim, ok := ecs.Get(w, e, component.AnimatorComponent.Kind()); ok && anim.Playing {
		s.Animation = anim.Current
	}
	if f, ok := ecs.Get(w, e, component.FocusComponent.Kind()); ok {
		s.HasViewer = f.HasViewer
		s.Focused = f.Focused
		s.Near = f.Near
		s.FocusHeldFor = f.HeldFor
	}
	return s
}
