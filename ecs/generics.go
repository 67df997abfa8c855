package ecs

import "github.com/milk9111/companion/ecs/component"

// Add stores value on e, replacing any existing component of the same kind.
func Add[T any](w *World, e Entity, kind component.ComponentKind[T], value *T) error {
	if w == nil || !w.entities.isAlive(e) {
		return component.ErrEntityNotAlive
	}
	if !kind.Valid() {
		return component.ErrInvalidComponentKind
	}
	if value == nil {
		return component.ErrNilComponent
	}
	w.store(kind.ID(), true).Set(e, value)
	return nil
}

// Remove deletes the component of kind from e.
func Remove[T any](w *World, e Entity, kind component.ComponentKind[T]) bool {
	if w == nil {
		return false
	}
	s := w.store(kind.ID(), false)
	if s == nil {
		return false
	}
	return s.Remove(e)
}

// Has reports whether e carries a component of kind.
func Has[T any](w *World, e Entity, kind component.ComponentKind[T]) bool {
	_, ok := Get(w, e, kind)
	return ok
}

// Get returns a pointer to the stored component. Mutations through it persist.
func Get[T any](w *World, e Entity, kind component.ComponentKind[T]) (*T, bool) {
	if w == nil || !w.entities.isAlive(e) {
		return nil, false
	}
	s := w.store(kind.ID(), false)
	if s == nil {
		return nil, false
	}
	v, ok := s.Get(e).(*T)
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// First returns the lowest-index live entity carrying kind.
func First[T any](w *World, kind component.ComponentKind[T]) (Entity, bool) {
	if w == nil {
		return 0, false
	}
	s := w.store(kind.ID(), false)
	if s == nil {
		return 0, false
	}
	var best Entity
	found := false
	for _, e := range s.Entities() {
		if !w.entities.isAlive(e) {
			continue
		}
		if !found || e.id() < best.id() {
			best = e
			found = true
		}
	}
	return best, found
}

// ForEach visits every live entity carrying kind. Entities are snapshotted
// first so fn may add or remove components.
func ForEach[T any](w *World, kind component.ComponentKind[T], fn func(Entity, *T)) {
	if w == nil || fn == nil {
		return
	}
	s := w.store(kind.ID(), false)
	if s == nil {
		return
	}
	for _, e := range snapshot(s) {
		if v, ok := Get(w, e, kind); ok {
			fn(e, v)
		}
	}
}

func ForEach2[A, B any](w *World, ka component.ComponentKind[A], kb component.ComponentKind[B], fn func(Entity, *A, *B)) {
	if w == nil || fn == nil {
		return
	}
	sa := w.store(ka.ID(), false)
	if sa == nil {
		return
	}
	for _, e := range snapshot(sa) {
		a, ok := Get(w, e, ka)
		if !ok {
			continue
		}
		b, ok := Get(w, e, kb)
		if !ok {
			continue
		}
		fn(e, a, b)
	}
}

func ForEach3[A, B, C any](w *World, ka component.ComponentKind[A], kb component.ComponentKind[B], kc component.ComponentKind[C], fn func(Entity, *A, *B, *C)) {
	if fn == nil {
		return
	}
	ForEach2(w, ka, kb, func(e Entity, a *A, b *B) {
		c, ok := Get(w, e, kc)
		if !ok {
			return
		}
		fn(e, a, b, c)
	})
}

func ForEach4[A, B, C, D any](w *World, ka component.ComponentKind[A], kb component.ComponentKind[B], kc component.ComponentKind[C], kd component.ComponentKind[D], fn func(Entity, *A, *B, *C, *D)) {
	if fn == nil {
		return
	}
	ForEach3(w, ka, kb, kc, func(e Entity, a *A, b *B, c *C) {
		d, ok := Get(w, e, kd)
		if !ok {
			return
		}
		fn(e, a, b, c, d)
	})
}

func snapshot(s *SparseSet) []Entity {
	ents := s.Entities()
	out := make([]Entity, len(ents))
	copy(out, ents)
	return out
}
