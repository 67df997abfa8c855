package system

import (
	"log/slog"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/milk9111/companion/common"
	"github.com/milk9111/companion/ecs"
	"github.com/milk9111/companion/ecs/component"
)

// Step holds the tunables applied by one motion tick.
type Step struct {
	Speed       float64
	TurnBlend   float64 // values >= 1 face the target directly
	FlattenLook bool
}

// StepToward moves pose toward target by dt*speed and turns it to look at
// the target. When the step would overshoot, the position snaps exactly to
// target and reached is true. Distances are compared squared.
func StepToward(pose component.Transform, target mgl64.Vec3, dt float64, step Step) (component.Transform, bool) {
	remaining := target.Sub(pose.Position)
	remSq := common.LenSq(remaining)
	if remSq == 0 {
		return pose, true
	}

	look := remaining
	if step.FlattenLook {
		look = common.Flatten(look)
	}
	if q, ok := common.LookRotation(look, common.Up); ok {
		if step.TurnBlend >= 1 {
			pose.Rotation = q
		} else {
			pose.Rotation = common.Slerp(pose.Rotation, q, step.TurnBlend).Normalize()
		}
	}

	dir := common.Normalize(remaining)
	if dir == (mgl64.Vec3{}) {
		// too close to have a direction
		pose.Position = target
		return pose, true
	}

	offset := dir.Mul(dt * step.Speed)
	if common.LenSq(offset) > remSq {
		pose.Position = target
		return pose, true
	}
	pose.Position = pose.Position.Add(offset)
	return pose, pose.Position == target
}

// MotionSystem runs the single active motion task of every entity: walking
// a waypoint sequence behind the animation gate, or chasing a live target.
type MotionSystem struct {
	fsm    *CompanionFSM
	logger *slog.Logger
}

func NewMotionSystem(fsm *CompanionFSM, logger *slog.Logger) *MotionSystem {
	if logger == nil {
		logger = slog.Default()
	}
	return &MotionSystem{fsm: fsm, logger: logger}
}

func (s *MotionSystem) Update(w *ecs.World) {
	if s == nil || w == nil {
		return
	}
	dt := w.DeltaTime()

	ecs.ForEach3(w, component.MotionComponent.Kind(), component.TransformComponent.Kind(), component.LocomotionComponent.Kind(), func(e ecs.Entity, m *component.Motion, t *component.Transform, loco *component.Locomotion) {
		anim, _ := ecs.Get(w, e, component.AnimatorComponent.Kind())
		switch m.Mode {
		case component.MotionWalkPath:
			s.walk(w, e, m, t, loco, anim, dt)
		case component.MotionChase:
			s.chase(w, m, t, loco, anim, dt)
		}
	})
}

func (s *MotionSystem) walk(w *ecs.World, e ecs.Entity, m *component.Motion, t *component.Transform, loco *component.Locomotion, anim *component.Animator, dt float64) {
	if m.Index >= len(m.Waypoints) {
		s.finishPath(w, e, m, anim)
		return
	}

	// hold position until the walk clip is really on screen
	if anim != nil && !anim.IsPlaying(anim.WalkClip) {
		anim.Walking = true
		m.GateWaits++
		return
	}

	wp := m.Waypoints[m.Index]
	pose, reached := StepToward(*t, wp, dt, Step{
		Speed:       loco.Speed,
		TurnBlend:   loco.TurnBlend,
		FlattenLook: loco.FlattenLook,
	})
	*t = pose
	if !reached {
		return
	}

	w.Events().Push(ecs.Event{Type: EventWaypointReached, Entity: e, Data: WaypointReached{Index: m.Index, Position: wp}})
	m.Index++
	if m.Index >= len(m.Waypoints) {
		s.finishPath(w, e, m, anim)
	}
}

func (s *MotionSystem) finishPath(w *ecs.World, e ecs.Entity, m *component.Motion, anim *component.Animator) {
	task := m.Task
	m.Mode = component.MotionIdle
	m.Waypoints = nil
	m.Index = 0
	if anim != nil {
		anim.Walking = false
	}

	s.logger.Debug("path complete", "entity", e.String(), "task", task, "gate_waits", m.GateWaits)
	w.Events().Push(ecs.Event{Type: EventPathComplete, Entity: e})
	if s.fsm != nil {
		s.fsm.Fire(w, e, component.EventPathComplete)
	}
}

// chase never smooths rotation and has no arrival event: reaching the
// destination only clears the walking flag. Arrival is exact equality, which
// the overshoot snap in StepToward produces.
func (s *MotionSystem) chase(w *ecs.World, m *component.Motion, t *component.Transform, loco *component.Locomotion, anim *component.Animator, dt float64) {
	dest := m.Target
	if m.TargetEntity != 0 {
		if tt, ok := ecs.Get(w, ecs.Entity(m.TargetEntity), component.TransformComponent.Kind()); ok {
			// followed entities are tracked at the chaser's own height
			dest = mgl64.Vec3{tt.Position.X(), t.Position.Y(), tt.Position.Z()}
			m.Target = dest
		}
	}

	if t.Position == dest {
		if anim != nil {
			anim.Walking = false
		}
		return
	}
	if anim != nil {
		anim.Walking = true
	}

	pose, _ := StepToward(*t, dest, dt, Step{
		Speed:       loco.Speed,
		TurnBlend:   1,
		FlattenLook: loco.FlattenLook,
	})
	*t = pose
}

// StartWalk replaces the entity's motion task with a walk along waypoints and
// raises the walking flag. It returns the new task number.
func StartWalk(w *ecs.World, e ecs.Entity, waypoints []mgl64.Vec3) (uint64, bool) {
	m, ok := ecs.Get(w, e, component.MotionComponent.Kind())
	if !ok {
		return 0, false
	}
	cancelMotion(w, e, m, "replaced")

	m.Mode = component.MotionWalkPath
	m.Task++
	m.Waypoints = append([]mgl64.Vec3(nil), waypoints...)
	m.Index = 0
	m.GateWaits = 0
	if anim, ok := ecs.Get(w, e, component.AnimatorComponent.Kind()); ok {
		anim.Walking = true
	}

	w.Events().Push(ecs.Event{Type: EventMotionStarted, Entity: e, Data: MotionStarted{Mode: m.Mode, Task: m.Task, Waypoints: len(waypoints)}})
	return m.Task, true
}

// StartChase replaces the entity's motion task with a chase. A valid target
// entity is followed live; otherwise dest is chased until moved again by
// SetChaseTarget.
func StartChase(w *ecs.World, e ecs.Entity, dest mgl64.Vec3, target ecs.Entity) (uint64, bool) {
	m, ok := ecs.Get(w, e, component.MotionComponent.Kind())
	if !ok {
		return 0, false
	}
	cancelMotion(w, e, m, "replaced")

	m.Mode = component.MotionChase
	m.Task++
	m.TargetEntity = 0
	if target.Valid() {
		m.TargetEntity = uint64(target)
	}

	// resolve the destination and raise the flag now so IsWalking is right
	// before the first tick
	if t, ok := ecs.Get(w, e, component.TransformComponent.Kind()); ok {
		if tt, ok := ecs.Get(w, target, component.TransformComponent.Kind()); ok {
			dest = mgl64.Vec3{tt.Position.X(), t.Position.Y(), tt.Position.Z()}
		}
		if anim, ok := ecs.Get(w, e, component.AnimatorComponent.Kind()); ok && t.Position != dest {
			anim.Walking = true
		}
	}
	m.Target = dest

	w.Events().Push(ecs.Event{Type: EventMotionStarted, Entity: e, Data: MotionStarted{Mode: m.Mode, Task: m.Task}})
	return m.Task, true
}

// SetChaseTarget moves the destination of a running point chase. It reports
// false when the entity is not chasing a point.
func SetChaseTarget(w *ecs.World, e ecs.Entity, dest mgl64.Vec3) bool {
	m, ok := ecs.Get(w, e, component.MotionComponent.Kind())
	if !ok || m.Mode != component.MotionChase || m.TargetEntity != 0 {
		return false
	}
	m.Target = dest
	return true
}

// InterruptMotion cancels the active motion task and any pending delayed
// start, clears the walking flag, and leaves the pose where it is. It
// reports whether anything was running.
func InterruptMotion(w *ecs.World, e ecs.Entity, reason string) bool {
	m, ok := ecs.Get(w, e, component.MotionComponent.Kind())
	if !ok {
		return false
	}
	active := cancelMotion(w, e, m, reason)
	if anim, ok := ecs.Get(w, e, component.AnimatorComponent.Kind()); ok {
		anim.Walking = false
	}
	return active
}

// IsWalking reports whether the entity is on a path walk, waiting on its
// delayed start, or moving with the walking flag raised. A chase that has
// arrived is not walking even though the task stays active.
func IsWalking(w *ecs.World, e ecs.Entity) bool {
	if OnPath(w, e) {
		return true
	}
	anim, ok := ecs.Get(w, e, component.AnimatorComponent.Kind())
	if ok {
		return anim.Walking
	}
	m, ok := ecs.Get(w, e, component.MotionComponent.Kind())
	if !ok || m.Mode != component.MotionChase {
		return false
	}
	t, ok := ecs.Get(w, e, component.TransformComponent.Kind())
	return ok && t.Position != m.Target
}

// OnPath reports whether a path walk is running or scheduled to start.
func OnPath(w *ecs.World, e ecs.Entity) bool {
	m, ok := ecs.Get(w, e, component.MotionComponent.Kind())
	return ok && (m.Mode == component.MotionWalkPath || m.StartTimer != 0)
}

// InterruptPath is InterruptMotion that also fires path_interrupted on fsm
// when a path walk was cut short, so the companion leaves WALKING.
func InterruptPath(w *ecs.World, e ecs.Entity, fsm *CompanionFSM, reason string) bool {
	onPath := OnPath(w, e)
	active := InterruptMotion(w, e, reason)
	if onPath && fsm != nil {
		fsm.Fire(w, e, component.EventPathInterrupted)
	}
	return active
}

func cancelMotion(w *ecs.World, e ecs.Entity, m *component.Motion, reason string) bool {
	active := m.Mode != component.MotionIdle
	if m.StartTimer != 0 {
		if w.Timers().Cancel(ecs.TimerID(m.StartTimer)) {
			active = true
		}
		m.StartTimer = 0
	}
	if !active {
		return false
	}

	task := m.Task
	m.Mode = component.MotionIdle
	m.Task++
	m.Waypoints = nil
	m.Index = 0
	m.TargetEntity = 0

	w.Events().Push(ecs.Event{Type: EventInterrupted, Entity: e, Data: Interrupted{Reason: reason, Task: task}})
	return true
}
