package ecs

import "github.com/milk9111/companion/ecs/component"

// System updates a world each tick.
type System interface {
	Update(w *World)
}

// World owns entities, components, system order and simulation time.
type World struct {
	entities entityStore
	stores   map[component.ComponentID]*SparseSet
	systems  []System
	events   EventQueue
	timers   TimerQueue

	dt      float64
	elapsed float64
	ticks   uint64
}

// NewWorld creates an empty ECS world.
func NewWorld() *World {
	return &World{stores: map[component.ComponentID]*SparseSet{}}
}

// CreateEntity allocates a new entity.
func CreateEntity(w *World) Entity {
	return w.entities.create()
}

// DestroyEntity removes an entity and all of its components. It reports
// whether the entity was alive.
func DestroyEntity(w *World, e Entity) bool {
	if w == nil || !w.entities.isAlive(e) {
		return false
	}
	for _, s := range w.stores {
		s.Remove(e)
	}
	return w.entities.destroy(e)
}

// IsAlive reports whether an entity handle is valid.
func IsAlive(w *World, e Entity) bool {
	if w == nil {
		return false
	}
	return w.entities.isAlive(e)
}

// Entities returns all live entities in id order.
func Entities(w *World) []Entity {
	if w == nil {
		return nil
	}
	return w.entities.all()
}

// AddSystem appends a system to the update order.
func (w *World) AddSystem(s System) {
	if w == nil || s == nil {
		return
	}
	w.systems = append(w.systems, s)
}

// Update advances simulation time by dt seconds, fires due timers and then
// runs all systems once.
func (w *World) Update(dt float64) {
	if w == nil {
		return
	}
	if dt < 0 {
		dt = 0
	}
	w.dt = dt
	w.elapsed += dt
	w.ticks++
	w.timers.advance(dt)
	for _, s := range w.systems {
		if s != nil {
			s.Update(w)
		}
	}
}

// DeltaTime returns the duration of the current tick in seconds.
func (w *World) DeltaTime() float64 {
	if w == nil {
		return 0
	}
	return w.dt
}

// Elapsed returns the total simulated time in seconds.
func (w *World) Elapsed() float64 {
	if w == nil {
		return 0
	}
	return w.elapsed
}

// Ticks returns how many times Update has run.
func (w *World) Ticks() uint64 {
	if w == nil {
		return 0
	}
	return w.ticks
}

// Events returns the world event queue.
func (w *World) Events() *EventQueue {
	if w == nil {
		return nil
	}
	return &w.events
}

// Timers returns the world's one-shot timer queue.
func (w *World) Timers() *TimerQueue {
	if w == nil {
		return nil
	}
	return &w.timers
}

func (w *World) store(id component.ComponentID, create bool) *SparseSet {
	if w.stores == nil {
		w.stores = map[component.ComponentID]*SparseSet{}
	}
	s, ok := w.stores[id]
	if !ok && create {
		s = &SparseSet{}
		w.stores[id] = s
	}
	return s
}
