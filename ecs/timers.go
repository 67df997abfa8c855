package ecs

// TimerID identifies a pending one-shot timer. The zero value is never issued.
type TimerID uint64

// accumulated float error must not push a due timer into the next tick
const timerEpsilon = 1e-9

type timer struct {
	id        TimerID
	remaining float64
	fn        func()
}

// TimerQueue runs deferred calls on the simulation thread once enough
// simulated time has passed. Timers fire in scheduling order.
type TimerQueue struct {
	next    TimerID
	pending []timer
}

// After schedules fn to run once delay seconds of simulated time have elapsed.
func (q *TimerQueue) After(delay float64, fn func()) TimerID {
	if q == nil || fn == nil {
		return 0
	}
	if delay < 0 {
		delay = 0
	}
	q.next++
	q.pending = append(q.pending, timer{id: q.next, remaining: delay, fn: fn})
	return q.next
}

// Cancel removes a pending timer. It reports whether the timer was pending.
func (q *TimerQueue) Cancel(id TimerID) bool {
	if q == nil || id == 0 {
		return false
	}
	for i, t := range q.pending {
		if t.id == id {
			q.pending = append(q.pending[:i], q.pending[i+1:]...)
			return true
		}
	}
	return false
}

// Pending reports whether id has not fired or been cancelled yet.
func (q *TimerQueue) Pending(id TimerID) bool {
	if q == nil || id == 0 {
		return false
	}
	for _, t := range q.pending {
		if t.id == id {
			return true
		}
	}
	return false
}

// Len returns the number of pending timers.
func (q *TimerQueue) Len() int {
	if q == nil {
		return 0
	}
	return len(q.pending)
}

func (q *TimerQueue) advance(dt float64) {
	if q == nil || len(q.pending) == 0 {
		return
	}
	var due []TimerID
	for i := range q.pending {
		q.pending[i].remaining -= dt
		if q.pending[i].remaining <= timerEpsilon {
			due = append(due, q.pending[i].id)
		}
	}
	// callbacks may cancel or schedule timers, so look each one up again
	for _, id := range due {
		for i, t := range q.pending {
			if t.id != id {
				continue
			}
			q.pending = append(q.pending[:i], q.pending[i+1:]...)
			t.fn()
			break
		}
	}
}
