package companion

import (
	"log/slog"

	"github.com/google/uuid"

	"github.com/milk9111/companion/ecs"
	"github.com/milk9111/companion/ecs/system"
)

// Registry owns the controllers of one world, keyed by controller id. Like
// the controllers themselves it belongs to the simulation thread.
type Registry struct {
	world  *ecs.World
	fsm    *system.CompanionFSM
	bounds Boundary
	logger *slog.Logger

	controllers map[uuid.UUID]*Controller
	order       []uuid.UUID
}

func NewRegistry(w *ecs.World, fsm *system.CompanionFSM, bounds Boundary, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		world:       w,
		fsm:         fsm,
		bounds:      bounds,
		logger:      logger,
		controllers: make(map[uuid.UUID]*Controller),
	}
}

// Create registers a new controller sharing the registry's world, state
// machine and boundary.
func (r *Registry) Create(cfg Config) (*Controller, error) {
	c, err := NewController(r.world, r.fsm, r.bounds, cfg, r.logger)
	if err != nil {
		return nil, err
	}
	r.controllers[c.ID()] = c
	r.order = append(r.order, c.ID())
	return c, nil
}

func (r *Registry) Get(id uuid.UUID) (*Controller, bool) {
	c, ok := r.controllers[id]
	return c, ok
}

// Remove destroys the controller's companion and forgets the controller.
func (r *Registry) Remove(id uuid.UUID) bool {
	c, ok := r.controllers[id]
	if !ok {
		return false
	}
	c.Destroy()
	delete(r.controllers, id)
	for i, o := range r.order {
		if o == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

// All returns the controllers in creation order.
func (r *Registry) All() []*Controller {
	out := make([]*Controller, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.controllers[id])
	}
	return out
}

func (r *Registry) Len() int {
	return len(r.order)
}

// SetBoundary swaps the boundary of every controller, current and future.
func (r *Registry) SetBoundary(b Boundary) {
	r.bounds = b
	for _, c := range r.controllers {
		c.SetBoundary(b)
	}
}

func (r *Registry) Snapshots() []Snapshot {
	out := make([]Snapshot, 0, len(r.order))
	for _, c := range r.All() {
		out = append(out, c.Snapshot())
	}
	return out
}
