// Package companion drives one on-screen companion per Controller: spawning,
// walking the play-space boundary, chasing targets, and reacting to gaze.
//
// Controllers are not safe for concurrent use. Every method must run on the
// simulation thread, the same goroutine that calls ecs.World.Update; other
// goroutines talk to controllers through a CommandQueue.
package companion

import (
	"errors"
	"log/slog"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"

	"github.com/milk9111/companion/boundary"
	"github.com/milk9111/companion/common"
	"github.com/milk9111/companion/ecs"
	"github.com/milk9111/companion/ecs/component"
	"github.com/milk9111/companion/ecs/system"
)

// Boundary supplies the play-space polygon. It is polled, never retained.
type Boundary interface {
	GetCenter() mgl64.Vec3
	GetFacingSegment() boundary.Segment
	Segments() []boundary.Segment
}

type Controller struct {
	id     uuid.UUID
	world  *ecs.World
	fsm    *system.CompanionFSM
	bounds Boundary
	cfg    Config
	base   *slog.Logger
	logger *slog.Logger

	entity ecs.Entity

	warnedBoundary bool
	warnedViewer   bool
}

// NewController builds a controller whose companion is created lazily by the
// first Init. A nil fsm uses the built-in machine; a nil bounds keeps the
// companion idle in INIT until SetBoundary.
func NewController(w *ecs.World, fsm *system.CompanionFSM, bounds Boundary, cfg Config, logger *slog.Logger) (*Controller, error) {
	if w == nil {
		return nil, ErrNilWorld
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	if fsm == nil {
		fsm = system.DefaultCompanionFSM(logger)
	}
	id := uuid.New()
	base := logger.With("companion", id.String())
	return &Controller{
		id:     id,
		world:  w,
		fsm:    fsm,
		bounds: bounds,
		cfg:    cfg,
		base:   base,
		logger: base,
	}, nil
}

func (c *Controller) ID() uuid.UUID {
	return c.id
}

func (c *Controller) Config() Config {
	return c.cfg
}

// Entity returns the companion entity while it exists.
func (c *Controller) Entity() (ecs.Entity, bool) {
	if !c.alive() {
		return 0, false
	}
	return c.entity, true
}

func (c *Controller) SetBoundary(b Boundary) {
	c.bounds = b
	if b != nil {
		c.warnedBoundary = false
	}
}

// Init spawns the companion if needed and, when a boundary is available and
// the companion is not READY, plays the appearance, places it near the edge
// the viewer faces, plans a path and starts walking after AppearDelay.
// force moves the companion back to INIT first, so it always replans.
// Calling Init while walking cancels the walk and starts over.
func (c *Controller) Init(force bool) {
	if force && c.alive() {
		c.fsm.Fire(c.world, c.entity, component.EventForceInit)
	}
	if !c.alive() && !c.spawn() {
		return
	}

	if c.bounds == nil {
		if !c.warnedBoundary {
			c.warnedBoundary = true
			c.logger.Warn("no boundary service; companion stays idle", "state", c.CurrentState().String())
		}
		return
	}
	if c.CurrentState() == component.StateReady {
		c.logger.Debug("init ignored; companion already ready")
		return
	}
	c.appear()
}

// spawn creates the companion entity. On failure the half-built entity is
// destroyed and Init leaves the controller without a companion.
func (c *Controller) spawn() bool {
	w := c.world
	e := ecs.CreateEntity(w)

	start := mgl64.Vec3{}
	if c.bounds != nil {
		start = c.bounds.GetCenter()
	}
	tr := component.NewTransform(start)

	err := errors.Join(
		ecs.Add(w, e, component.TransformComponent.Kind(), &tr),
		ecs.Add(w, e, component.CompanionTagComponent.Kind(), &component.CompanionTag{}),
		ecs.Add(w, e, component.CompanionComponent.Kind(), &component.Companion{ID: c.id.String(), State: c.fsm.Initial}),
		ecs.Add(w, e, component.AnimatorComponent.Kind(), c.cfg.newAnimator()),
		ecs.Add(w, e, component.MotionComponent.Kind(), &component.Motion{}),
		ecs.Add(w, e, component.LocomotionComponent.Kind(), &component.Locomotion{
			Speed:       c.cfg.Speed,
			TurnBlend:   c.cfg.TurnBlend,
			FlattenLook: c.cfg.FlattenLook,
		}),
		ecs.Add(w, e, component.FocusComponent.Kind(), &component.Focus{
			Tolerance:    c.cfg.FocusTolerance,
			TimeRequired: c.cfg.FocusTimeRequired,
			NearDistance: c.cfg.NearDistance,
		}),
	)
	if err != nil {
		c.logger.Error("companion spawn failed", "error", err)
		ecs.DestroyEntity(w, e)
		return false
	}

	c.entity = e
	c.logger = c.base.With("entity", e.String())
	c.logger.Info("companion spawned")
	c.fsm.Fire(w, e, component.EventSpawn)
	return true
}

func (c *Controller) appear() {
	w, e := c.world, c.entity
	tr, ok := ecs.Get(w, e, component.TransformComponent.Kind())
	if !ok {
		return
	}
	m, ok := ecs.Get(w, e, component.MotionComponent.Kind())
	if !ok {
		return
	}

	system.InterruptMotion(w, e, "reinit")
	if anim, ok := ecs.Get(w, e, component.AnimatorComponent.Kind()); ok {
		anim.Trigger(c.cfg.AppearAnimation)
	}

	center := c.bounds.GetCenter()
	mid := c.bounds.GetFacingSegment().Midpoint()
	tr.Position = mid.Add(common.Normalize(center.Sub(mid)).Mul(c.cfg.SpawnOffset))
	look := center.Sub(tr.Position)
	if c.cfg.FlattenLook {
		look = common.Flatten(look)
	}
	if q, ok := common.LookRotation(look, common.Up); ok {
		tr.Rotation = q
	}

	viewerPos, viewerFwd := c.viewerPose(center, mid)
	path := system.PlanPath(c.bounds.Segments(), tr.Position, viewerPos, viewerFwd)

	var id ecs.TimerID
	id = w.Timers().After(c.cfg.AppearDelay, func() {
		c.startWalk(e, id, path)
	})
	m.StartTimer = uint64(id)

	c.fsm.Fire(w, e, component.EventPlan)

	attrs := []any{"position", tr.Position, "waypoints", len(path), "delay", c.cfg.AppearDelay}
	if len(path) > 0 {
		attrs = append(attrs, "destination", path[0])
	}
	c.logger.Info("companion appearing", attrs...)
}

// startWalk runs when the appearance delay elapses. A newer Init or an
// interrupt clears StartTimer, which turns stale callbacks into no-ops.
func (c *Controller) startWalk(e ecs.Entity, id ecs.TimerID, path []mgl64.Vec3) {
	m, ok := ecs.Get(c.world, e, component.MotionComponent.Kind())
	if !ok || m.StartTimer != uint64(id) {
		return
	}
	m.StartTimer = 0
	task, _ := system.StartWalk(c.world, e, path)
	c.logger.Debug("walk started", "task", task, "waypoints", len(path))
}

// viewerPose polls the viewer. Without one the planner looks from the
// boundary center toward the facing edge.
func (c *Controller) viewerPose(center, facing mgl64.Vec3) (mgl64.Vec3, mgl64.Vec3) {
	if pos, fwd, ok := system.ViewerPose(c.world); ok {
		return pos, fwd
	}
	c.warnNoViewer()
	return center, facing.Sub(center)
}

func (c *Controller) warnNoViewer() {
	if c.warnedViewer {
		return
	}
	c.warnedViewer = true
	c.logger.Warn("no viewer found; gaze checks report false")
}

// Play forwards a named animation trigger. Unless PlayInterruptsWalk is set,
// a running walk is not cancelled; the gate holds it while the gesture
// plays.
func (c *Controller) Play(animation string) {
	if !c.alive() {
		c.logger.Debug("play ignored; no companion", "animation", animation)
		return
	}
	anim, ok := ecs.Get(c.world, c.entity, component.AnimatorComponent.Kind())
	if !ok {
		return
	}
	anim.Trigger(animation)
	if c.cfg.PlayInterruptsWalk && system.IsWalking(c.world, c.entity) {
		system.InterruptMotion(c.world, c.entity, "play")
	}
}

// FollowTarget chases dest. While a point chase is running, later calls
// only move its destination. A path walk in progress is abandoned and the
// companion leaves WALKING.
func (c *Controller) FollowTarget(dest mgl64.Vec3) {
	if !c.alive() {
		return
	}
	if system.SetChaseTarget(c.world, c.entity, dest) {
		return
	}
	system.InterruptPath(c.world, c.entity, c.fsm, "follow")
	system.StartChase(c.world, c.entity, dest, 0)
}

// FollowEntity chases target's live position at the companion's own height.
func (c *Controller) FollowEntity(target ecs.Entity) bool {
	if !c.alive() || !ecs.IsAlive(c.world, target) || target == c.entity {
		return false
	}
	system.InterruptPath(c.world, c.entity, c.fsm, "follow")
	_, ok := system.StartChase(c.world, c.entity, c.GetPosition(), target)
	return ok
}

func (c *Controller) FollowViewer() bool {
	viewer, ok := ecs.First(c.world, component.ViewerTagComponent.Kind())
	if !ok {
		c.warnNoViewer()
		return false
	}
	return c.FollowEntity(viewer)
}

func (c *Controller) StopFollowing() {
	if !c.alive() {
		return
	}
	if m, ok := ecs.Get(c.world, c.entity, component.MotionComponent.Kind()); ok && m.Mode == component.MotionChase {
		system.InterruptMotion(c.world, c.entity, "stop_following")
	}
}

// IsFocused reports whether the viewer is looking at the companion right now.
func (c *Controller) IsFocused() bool {
	tr, ok := c.transform()
	if !ok {
		return false
	}
	pos, fwd, ok := system.ViewerPose(c.world)
	if !ok {
		c.warnNoViewer()
		return false
	}
	return system.IsFocused(fwd, pos, tr.Position, c.cfg.FocusTolerance)
}

func (c *Controller) IsNear() bool {
	tr, ok := c.transform()
	if !ok {
		return false
	}
	pos, _, ok := system.ViewerPose(c.world)
	if !ok {
		c.warnNoViewer()
		return false
	}
	return system.IsNear(pos, tr.Position, c.cfg.NearDistance)
}

// StopWhenFocused stops a walking companion the viewer is looking at. The
// pose stays where it is. A cut-short path walk drops the companion back to
// INIT so a later Init replans.
func (c *Controller) StopWhenFocused() bool {
	if !c.alive() || !system.IsWalking(c.world, c.entity) || !c.IsFocused() {
		return false
	}
	system.InterruptPath(c.world, c.entity, c.fsm, "focused")
	c.logger.Debug("walk stopped by focus")
	return true
}

// SetStopOnFocus arms the per-tick version of StopWhenFocused, which waits
// for focus to be held FocusTimeRequired.
func (c *Controller) SetStopOnFocus(enabled bool) {
	if !c.alive() {
		return
	}
	if f, ok := ecs.Get(c.world, c.entity, component.FocusComponent.Kind()); ok {
		f.StopOnFocus = enabled
	}
}

func (c *Controller) GetPosition() mgl64.Vec3 {
	tr, _ := c.transform()
	return tr.Position
}

func (c *Controller) Pose() (component.Transform, bool) {
	return c.transform()
}

// CurrentState is NONE until the companion exists.
func (c *Controller) CurrentState() component.CompanionState {
	if !c.alive() {
		return component.StateNone
	}
	comp, ok := ecs.Get(c.world, c.entity, component.CompanionComponent.Kind())
	if !ok {
		return component.StateNone
	}
	return comp.State
}

func (c *Controller) Walking() bool {
	return c.alive() && system.IsWalking(c.world, c.entity)
}

// Destroy removes the companion. A later Init spawns a new one.
func (c *Controller) Destroy() {
	if !c.alive() {
		return
	}
	system.InterruptMotion(c.world, c.entity, "destroyed")
	ecs.DestroyEntity(c.world, c.entity)
	c.logger.Info("companion destroyed")
	c.entity = 0
	c.logger = c.base
}

func (c *Controller) alive() bool {
	return c.entity.Valid() && ecs.IsAlive(c.world, c.entity)
}

func (c *Controller) transform() (component.Transform, bool) {
	if !c.alive() {
		return component.Transform{}, false
	}
	tr, ok := ecs.Get(c.world, c.entity, component.TransformComponent.Kind())
	if !ok {
		return component.Transform{}, false
	}
	return *tr, true
}
