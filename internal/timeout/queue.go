// Package timeout implements the monotonic timeout queue (component A): an
// ordered multiset of deadlines, keyed by a wrapping 32-bit millisecond
// clock, that fires callbacks in non-decreasing deadline order.
//
// The wire format and the reference source this is grounded on both use a
// 32-bit millisecond tick that wraps roughly every 49 days, and compare two
// such ticks by subtracting a pivot and looking at the sign of the result
// rather than by raw unsigned comparison. That property is preserved here
// even though Go gives us a 64-bit monotonic clock, because the gossip wire
// format (component G) still carries timeouts as 32-bit offsets and this
// queue is the thing that has to agree with it about ordering across a
// wrap.
package timeout

import (
	"container/list"
)

// Clock is milliseconds since an arbitrary epoch, truncated to 32 bits to
// match the wire format's wrap behavior.
type Clock uint32

// Before reports whether c is strictly before other, using a pivot-anchored
// signed-delta comparison: (other - c), interpreted as a signed 32-bit
// value, is positive iff other comes after c. This keeps the ordering
// correct across a wrap of either value, unlike a direct c < other
// comparison.
func (c Clock) Before(other Clock) bool {
	return int32(other-c) > 0
}

// Entry is a single armed or pending timeout. Callers embed or reference an
// Entry via the handle returned by NewEntry; the callback receives no
// context beyond the handle so it stays a thin wrapper, not a type with
// address-arithmetic back into the owning record.
type Entry struct {
	deadline Clock
	armed    bool
	elem     *list.Element
	cb       func()
}

// Queue is an ordered multiset of Entries. It is not safe for concurrent
// use; the controller's single-threaded event loop is the only caller,
// matching the "no shared data crosses threads" concurrency model.
type Queue struct {
	entries *list.List // ordered by deadline, then insertion order
	now     Clock
}

// NewQueue returns an empty timeout queue pivoted at now.
func NewQueue(now Clock) *Queue {
	return &Queue{
		entries: list.New(),
		now:     now,
	}
}

// NewEntry allocates an unarmed Entry with the given callback. Use Set to
// arm it and Cancel to disarm it; the same Entry can be re-armed any number
// of times.
func NewEntry(cb func()) *Entry {
	return &Entry{cb: cb}
}

// Now returns the queue's current pivot time.
func (q *Queue) Now() Clock {
	return q.now
}

// Advance moves the queue's notion of "now" forward and fires every entry
// whose deadline has become non-positive relative to it, in deadline order
// and, among equal deadlines, insertion order. It returns the deadline of
// the new head entry (if any is still armed) so the caller can re-arm its
// single external timer.
func (q *Queue) Advance(now Clock) (head Clock, ok bool) {
	q.now = now

	for {
		front := q.entries.Front()
		if front == nil {
			return 0, false
		}
		e := front.Value.(*Entry)
		if now.Before(e.deadline) {
			break
		}
		q.entries.Remove(front)
		e.armed = false
		e.elem = nil
		if e.cb != nil {
			e.cb()
		}
	}

	if front := q.entries.Front(); front != nil {
		return front.Value.(*Entry).deadline, true
	}
	return 0, false
}

// Set arms (or re-arms) e to fire msecs after the queue's current pivot.
// Re-inserting an already-armed entry removes it from its old position
// first, so it is placed at the back of its new deadline's tie-break order.
func (q *Queue) Set(e *Entry, msecs uint32) {
	q.Cancel(e)
	e.deadline = q.now + Clock(msecs)
	e.armed = true
	q.insert(e)
}

func (q *Queue) insert(e *Entry) {
	for mark := q.entries.Front(); mark != nil; mark = mark.Next() {
		if e.deadline.Before(mark.Value.(*Entry).deadline) {
			e.elem = q.entries.InsertBefore(e, mark)
			return
		}
	}
	e.elem = q.entries.PushBack(e)
}

// Cancel disarms e. Canceling an entry that isn't armed is a no-op, keeping
// cancellation idempotent per the concurrency model's requirement.
func (q *Queue) Cancel(e *Entry) {
	if e.armed && e.elem != nil {
		q.entries.Remove(e.elem)
	}
	e.armed = false
	e.elem = nil
}

// Armed reports whether e currently has a pending deadline.
func (e *Entry) Armed() bool {
	return e.armed
}

// Deadline returns e's current deadline; only meaningful while Armed.
func (e *Entry) Deadline() Clock {
	return e.deadline
}

// Flush drains every entry in the queue, invoking each callback regardless
// of deadline, in current order. The controller's shutdown path does not
// call it.
func (q *Queue) Flush() {
	for {
		front := q.entries.Front()
		if front == nil {
			return
		}
		e := front.Value.(*Entry)
		q.entries.Remove(front)
		e.armed = false
		e.elem = nil
		if e.cb != nil {
			e.cb()
		}
	}
}

// HeadDeadline returns the deadline of the earliest-armed entry, if any.
func (q *Queue) HeadDeadline() (Clock, bool) {
	if front := q.entries.Front(); front != nil {
		return front.Value.(*Entry).deadline, true
	}
	return 0, false
}
