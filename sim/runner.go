// Package sim drives companions at a fixed step: it owns the world, applies
// queued commands between ticks and samples telemetry frames.
package sim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
	"github.com/jakecoffman/cp"

	"github.com/milk9111/companion/boundary"
	"github.com/milk9111/companion/common"
	"github.com/milk9111/companion/companion"
	"github.com/milk9111/companion/ecs"
	"github.com/milk9111/companion/ecs/component"
	"github.com/milk9111/companion/ecs/system"
	"github.com/milk9111/companion/orchestrator"
	"github.com/milk9111/companion/prefabs"
)

const (
	DefaultTickRate = 60
	viewerHeight    = 1.6
	maxFrameEvents  = 256
)

var (
	ErrUnknownRoom = errors.New("sim: unknown room")
	ErrNoRooms     = errors.New("sim: no rooms")
)

// Options configures a Runner. Nil specs are loaded from prefabs.
type Options struct {
	Room       string
	Companions int
	AutoInit   bool
	QueueSize  int

	Companion *prefabs.CompanionSpec
	Rooms     *prefabs.RoomsSpec

	Logger *slog.Logger
}

// Runner is the simulation thread. Step and Run must be called from one
// goroutine; Send, SetGameState, MoveViewer, Latest and Subscribe are safe
// from any goroutine.
type Runner struct {
	mu sync.Mutex

	world    *ecs.World
	poly     *boundary.Polygon
	room     string
	rooms    *prefabs.RoomsSpec
	cfg      companion.Config
	registry *companion.Registry
	viewer   ecs.Entity
	count    int
	autoInit bool

	queue *companion.CommandQueue
	orch  *orchestrator.Orchestrator

	viewerMu      sync.Mutex
	viewerPending *ViewerPose

	nextPublish float64
	pending     []EventRecord

	frameMu sync.RWMutex
	latest  Frame
	subs    map[int]func(Frame)
	nextSub int

	logger *slog.Logger
}

func New(opts Options) (*Runner, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Companions <= 0 {
		opts.Companions = 1
	}

	r := &Runner{
		count:    opts.Companions,
		autoInit: opts.AutoInit,
		queue:    companion.NewCommandQueue(opts.QueueSize, logger),
		subs:     make(map[int]func(Frame)),
		logger:   logger,
	}
	if err := r.build(opts.Companion, opts.Rooms, opts.Room, nil); err != nil {
		return nil, err
	}
	return r, nil
}

// build replaces the world and every controller. A previous viewer pose is
// carried over when given.
func (r *Runner) build(spec *prefabs.CompanionSpec, rooms *prefabs.RoomsSpec, roomName string, keep *ViewerPose) error {
	var err error
	if spec == nil {
		if spec, err = prefabs.LoadCompanionSpec(); err != nil {
			return err
		}
	}
	if rooms == nil {
		if rooms, err = prefabs.LoadRoomsSpec(); err != nil {
			return err
		}
	}
	if len(rooms.Rooms) == 0 {
		return ErrNoRooms
	}
	if roomName == "" {
		roomName = rooms.Rooms[0].Name
	}
	room, ok := rooms.Room(roomName)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownRoom, roomName)
	}

	cfg, err := companion.FromSpec(spec)
	if err != nil {
		return err
	}
	fsm := system.DefaultCompanionFSM(r.logger)
	if spec.FSM.Initial != "" || len(spec.FSM.Transitions) > 0 {
		if fsm, err = system.CompileCompanionFSM(spec.FSM, r.logger); err != nil {
			return err
		}
	}
	orch, err := orchestrator.Load(cfg.GameStateScript, r.queue, r.logger.With("component", "orchestrator"))
	if err != nil {
		return err
	}
	if r.orch != nil {
		orch.Restore(r.orch.Current())
	}

	// focus reads poses before motion moves them; animation runs last so the
	// walk gate sees the locomotion clip one tick late
	w := ecs.NewWorld()
	w.AddSystem(ecs.NewScheduler(
		system.NewFocusSystem(fsm, r.logger),
		system.NewMotionSystem(fsm, r.logger),
		system.NewAnimationSystem(r.logger),
	))

	poly := boundary.NewPolygon(room.Vertices())
	poly.SetViewer(func() (mgl64.Vec3, mgl64.Vec3, bool) { return system.ViewerPose(w) })

	viewer := ecs.CreateEntity(w)
	pose := ViewerPose{
		Position: poly.GetCenter().Add(mgl64.Vec3{0, viewerHeight, 0}),
		Forward:  mgl64.Vec3{0, 0, -1},
	}
	if keep != nil {
		pose = *keep
	}
	if err := ecs.Add(w, viewer, component.TransformComponent.Kind(), viewerTransform(pose)); err != nil {
		return err
	}
	if err := ecs.Add(w, viewer, component.ViewerTagComponent.Kind(), &component.ViewerTag{}); err != nil {
		return err
	}

	registry := companion.NewRegistry(w, fsm, poly, r.logger)
	for i := 0; i < r.count; i++ {
		c, err := registry.Create(cfg)
		if err != nil {
			return err
		}
		if r.autoInit {
			c.Init(false)
		}
	}

	r.world, r.poly = w, poly
	r.room, r.rooms, r.cfg = room.Name, rooms, cfg
	r.registry, r.viewer, r.orch = registry, viewer, orch
	r.nextPublish = cfg.PublishDelay
	r.logger.Info("simulation built", "room", room.Name, "companions", r.count, "vertices", len(room.Points))
	return nil
}

func viewerTransform(p ViewerPose) *component.Transform {
	rot, ok := common.LookRotation(common.Flatten(p.Forward), common.Up)
	if !ok {
		rot = mgl64.QuatIdent()
	}
	return &component.Transform{Position: p.Position, Rotation: rot}
}

// Reload rebuilds the simulation from freshly loaded prefabs, keeping the
// room, the viewer and the game state. Controllers are recreated.
func (r *Runner) Reload() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var keep *ViewerPose
	if pos, fwd, ok := system.ViewerPose(r.world); ok {
		keep = &ViewerPose{Position: pos, Forward: fwd}
	}
	if err := r.build(nil, nil, r.room, keep); err != nil {
		r.logger.Error("reload failed", "err", err)
		return err
	}
	return nil
}

// SetRoom swaps the boundary of every companion to the named room.
func (r *Runner) SetRoom(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms.Room(name)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownRoom, name)
	}
	w := r.world
	poly := boundary.NewPolygon(room.Vertices())
	poly.SetViewer(func() (mgl64.Vec3, mgl64.Vec3, bool) { return system.ViewerPose(w) })
	r.poly, r.room = poly, room.Name
	r.registry.SetBoundary(poly)
	r.logger.Info("room changed", "room", room.Name)
	return nil
}

// Send queues cmd for the next tick.
func (r *Runner) Send(cmd companion.Command) error {
	return r.queue.Send(cmd)
}

// SetGameState runs the game state script; its commands apply next tick.
func (r *Runner) SetGameState(to orchestrator.GameState) error {
	r.mu.Lock()
	orch := r.orch
	r.mu.Unlock()
	return orch.SetState(to)
}

func (r *Runner) GameState() orchestrator.GameState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.orch.Current()
}

// MoveViewer places the viewer at the start of the next tick.
func (r *Runner) MoveViewer(pose ViewerPose) {
	r.viewerMu.Lock()
	r.viewerPending = &pose
	r.viewerMu.Unlock()
}

// IDs returns the controller ids in creation order.
func (r *Runner) IDs() []uuid.UUID {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := r.registry.All()
	out := make([]uuid.UUID, 0, len(all))
	for _, c := range all {
		out = append(out, c.ID())
	}
	return out
}

// Rooms lists the room names available to SetRoom.
func (r *Runner) Rooms() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.rooms.Rooms))
	for _, room := range r.rooms.Rooms {
		out = append(out, room.Name)
	}
	return out
}

// Boundary returns the segments of the current room.
func (r *Runner) Boundary() []boundary.Segment {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.poly.Segments()
}

// Bounds returns the floor-plane bounding box of the current room.
func (r *Runner) Bounds() cp.BB {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.poly.Bounds()
}

// Step advances the simulation by dt: pending viewer moves and commands are
// applied first, then the world updates, then a frame is published when
// due.
func (r *Runner) Step(dt float64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.applyViewer()
	r.queue.Drain(r.registry)
	r.world.Update(dt)

	events := r.world.Events().Drain()
	for _, ev := range events {
		r.logger.Debug("event", "type", ev.Type, "entity", ev.Entity.String())
	}
	r.pending = append(r.pending, recordEvents(events)...)
	if over := len(r.pending) - maxFrameEvents; over > 0 {
		r.pending = append(r.pending[:0:0], r.pending[over:]...)
	}

	if r.world.Elapsed()+1e-9 < r.nextPublish {
		return
	}
	r.publish()
	if r.cfg.PublishInterval > 0 {
		for r.nextPublish <= r.world.Elapsed()+1e-9 {
			r.nextPublish += r.cfg.PublishInterval
		}
	}
}

func (r *Runner) applyViewer() {
	r.viewerMu.Lock()
	pose := r.viewerPending
	r.viewerPending = nil
	r.viewerMu.Unlock()
	if pose == nil {
		return
	}
	if t, ok := ecs.Get(r.world, r.viewer, component.TransformComponent.Kind()); ok {
		*t = *viewerTransform(*pose)
	}
}

// Frame samples the simulation now without publishing it. Pending events
// stay queued for the next published frame.
func (r *Runner) Frame() Frame {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sample()
}

func (r *Runner) sample() Frame {
	frame := Frame{
		Tick:       r.world.Ticks(),
		Time:       r.world.Elapsed(),
		Room:       r.room,
		GameState:  string(r.orch.Current()),
		Companions: r.registry.Snapshots(),
	}
	if pos, fwd, ok := system.ViewerPose(r.world); ok {
		frame.Viewer = ViewerPose{Position: pos, Forward: fwd, Inside: r.poly.Contains(pos)}
	}
	return frame
}

func (r *Runner) publish() {
	frame := r.sample()
	frame.Events = r.pending
	r.pending = nil

	r.frameMu.Lock()
	r.latest = frame
	subs := make([]func(Frame), 0, len(r.subs))
	for _, fn := range r.subs {
		subs = append(subs, fn)
	}
	r.frameMu.Unlock()

	for _, fn := range subs {
		fn(frame)
	}
}

// Latest returns the most recently published frame.
func (r *Runner) Latest() Frame {
	r.frameMu.RLock()
	defer r.frameMu.RUnlock()
	return r.latest
}

// Subscribe calls fn with every published frame, on the simulation
// goroutine while the runner is locked: fn must not call back into the
// runner. The returned func unsubscribes.
func (r *Runner) Subscribe(fn func(Frame)) func() {
	r.frameMu.Lock()
	id := r.nextSub
	r.nextSub++
	r.subs[id] = fn
	r.frameMu.Unlock()

	return func() {
		r.frameMu.Lock()
		delete(r.subs, id)
		r.frameMu.Unlock()
	}
}

// Run steps the simulation at tickRate until ctx is done.
func (r *Runner) Run(ctx context.Context, tickRate float64) error {
	if tickRate <= 0 || math.IsNaN(tickRate) {
		tickRate = DefaultTickRate
	}
	dt := 1 / tickRate
	ticker := time.NewTicker(time.Duration(float64(time.Second) * dt))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			r.Step(dt)
		}
	}
}
