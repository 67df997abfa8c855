package ecs

import "strconv"

// Entity is a generation-checked handle. The low 32 bits hold the slot id,
// which is reused after destruction; the high 32 bits hold the slot's
// generation at the time the handle was issued. A handle kept past
// DestroyEntity stops matching once the slot is reused, so stale handles
// read nothing instead of another entity's components.
type Entity uint64

type entityID uint32
type generation uint32

const entityIDBits = 32

func makeEntity(id entityID, gen generation) Entity {
	return Entity(uint64(gen)<<entityIDBits | uint64(id))
}

func (e Entity) id() entityID {
	return entityID(uint32(e))
}

func (e Entity) generation() generation {
	return generation(uint32(uint64(e) >> entityIDBits))
}

// String formats the handle as id "v" generation, e.g. "3v1".
func (e Entity) String() string {
	return strconv.FormatUint(uint64(e.id()), 10) + "v" + strconv.FormatUint(uint64(e.generation()), 10)
}

// Valid reports whether the handle names a slot at all. Slot ids start at 1,
// so the zero Entity is never valid; a valid handle may still be stale.
func (e Entity) Valid() bool {
	return e.id() > 0
}
