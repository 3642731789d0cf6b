package timer

import (
	"container/heap"
	"time"
)

// Timer fires its Payload once the processing time reaches Deadline.
type Timer[T comparable] struct {
	Payload  T
	Deadline time.Time
}

func (t Timer[T]) key() timerKey[T] {
	return timerKey[T]{payload: t.Payload, seconds: t.Deadline.Unix(), nanoseconds: t.Deadline.Nanosecond()}
}

// timerKey ignores location and monotonic reading, two equal instants are the same timer.
type timerKey[T comparable] struct {
	payload     T
	seconds     int64
	nanoseconds int
}

// timerQueue orders timers by deadline. positions tracks where every queued
// timer sits in the heap, a timer already queued is not queued again.
type timerQueue[T comparable] struct {
	heap      timerHeap[T]
	positions map[timerKey[T]]int
}

func newTimerQueue[T comparable]() *timerQueue[T] {
	q := &timerQueue[T]{positions: map[timerKey[T]]int{}}
	q.heap.positions = q.positions
	return q
}

func (q *timerQueue[T]) Len() int {
	return len(q.heap.timers)
}

// PushTimer queues timer and reports false when it was already queued.
func (q *timerQueue[T]) PushTimer(timer Timer[T]) bool {
	if _, ok := q.positions[timer.key()]; ok {
		return false
	}
	heap.Push(&q.heap, timer)
	return true
}

// PopTimer removes the earliest timer, the zero Timer when empty.
func (q *timerQueue[T]) PopTimer() (timer Timer[T]) {
	if q.Len() == 0 {
		return timer
	}
	return heap.Pop(&q.heap).(Timer[T])
}

func (q *timerQueue[T]) PeekTimer() (timer Timer[T]) {
	if q.Len() == 0 {
		return timer
	}
	return q.heap.timers[0]
}

// Remove deletes timer and reports whether it was queued.
func (q *timerQueue[T]) Remove(timer Timer[T]) bool {
	position, ok := q.positions[timer.key()]
	if !ok {
		return false
	}
	heap.Remove(&q.heap, position)
	return true
}

// timerHeap implements heap.Interface and keeps positions current as timers move.
type timerHeap[T comparable] struct {
	timers    []Timer[T]
	positions map[timerKey[T]]int
}

func (h *timerHeap[T]) Len() int { return len(h.timers) }

func (h *timerHeap[T]) Less(i, j int) bool {
	return h.timers[i].Deadline.Before(h.timers[j].Deadline)
}

func (h *timerHeap[T]) Swap(i, j int) {
	h.timers[i], h.timers[j] = h.timers[j], h.timers[i]
	h.positions[h.timers[i].key()] = i
	h.positions[h.timers[j].key()] = j
}

func (h *timerHeap[T]) Push(x any) {
	timer := x.(Timer[T])
	h.positions[timer.key()] = len(h.timers)
	h.timers = append(h.timers, timer)
}

func (h *timerHeap[T]) Pop() any {
	last := len(h.timers) - 1
	timer := h.timers[last]
	h.timers = h.timers[:last]
	delete(h.positions, timer.key())
	return timer
}
