package ecs

// Event is a generic ECS event payload.
type Event struct {
	Type   string
	Entity Entity
	Data   any
}

// maxQueuedEvents bounds the queue when nobody drains it.
const maxQueuedEvents = 1024

// EventQueue is a bounded FIFO queue. When full, the oldest event is dropped.
type EventQueue struct {
	items   []Event
	dropped uint64
}

// Push adds an event.
func (q *EventQueue) Push(evt Event) {
	if q == nil {
		return
	}
	if len(q.items) >= maxQueuedEvents {
		q.items = q.items[1:]
		q.dropped++
	}
	q.items = append(q.items, evt)
}

// Drain returns all events and clears the queue.
func (q *EventQueue) Drain() []Event {
	if q == nil || len(q.items) == 0 {
		return nil
	}
	out := q.items
	q.items = nil
	return out
}

// Len returns the number of queued events.
func (q *EventQueue) Len() int {
	if q == nil {
		return 0
	}
	return len(q.items)
}

// Dropped returns how many events were discarded because the queue was full.
func (q *EventQueue) Dropped() uint64 {
	if q == nil {
		return 0
	}
	return q.dropped
}
