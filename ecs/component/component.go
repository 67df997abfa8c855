package component

import (
	"errors"
	"sync/atomic"
)

var (
	ErrEntityNotAlive       = errors.New("ecs: entity not alive")
	ErrNilComponent         = errors.New("ecs: component is nil")
	ErrInvalidComponentKind = errors.New("ecs: invalid component kind")
)

// ComponentKind is the typed key a component is stored under. The world keys
// one sparse set per kind id and each set is indexed by entity slot, with the
// handle's generation checked on every lookup. Two kinds of the same Go type
// are distinct stores.
type ComponentKind[T any] struct {
	id ComponentID
}

// NewComponentKind allocates the next process-wide kind id. The zero
// ComponentKind is invalid and rejected by Add.
func NewComponentKind[T any]() ComponentKind[T] {
	return ComponentKind[T]{id: ComponentID(nextComponentID.Add(1))}
}

func (k ComponentKind[T]) ID() ComponentID {
	return k.id
}

func (k ComponentKind[T]) Valid() bool {
	return k.id != 0
}

// ComponentHandle is the package-level registration for a component type,
// e.g. TransformComponent. Systems pass Kind() to the ecs accessors.
type ComponentHandle[T any] struct {
	kind ComponentKind[T]
}

func NewComponent[T any]() ComponentHandle[T] {
	return ComponentHandle[T]{kind: NewComponentKind[T]()}
}

func (h ComponentHandle[T]) Kind() ComponentKind[T] {
	return h.kind
}

// ComponentID numbers kinds from 1 in registration order.
type ComponentID uint32

var nextComponentID atomic.Uint32
