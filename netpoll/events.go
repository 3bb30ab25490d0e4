// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package netpoll

import (
	"iter"
)

// Events is a reusable, fixed capacity buffer of readiness events, filled by
// [Poll.Poll] or [Selector.Select]. Each wait clears the buffer, then fills
// at most [Events.Cap] events.
//
// An Events value must not be shared between concurrent waits.
type Events struct {
	// raw is the native buffer handed to the OS wait call
	raw []rawEvent
	buf []Event
	n   int
}

// NewEvents allocates an Events buffer, with room for capacity events per
// wait. A capacity less than 1 is treated as 1.
func NewEvents(capacity int) *Events {
	if capacity < 1 {
		capacity = 1
	}
	return &Events{
		raw: make([]rawEvent, capacity),
		buf: make([]Event, capacity),
	}
}

// Len returns the number of events filled by the most recent wait.
func (x *Events) Len() int { return x.n }

// Cap returns the maximum number of events a single wait may return.
func (x *Events) Cap() int { return len(x.buf) }

// At returns the event at index i, which must be less than [Events.Len].
func (x *Events) At(i int) Event {
	return x.buf[:x.n][i]
}

// All iterates over the events filled by the most recent wait.
func (x *Events) All() iter.Seq[Event] {
	return func(yield func(Event) bool) {
		for _, ev := range x.buf[:x.n] {
			if !yield(ev) {
				return
			}
		}
	}
}

// Clear resets the length to zero, retaining the allocation.
func (x *Events) Clear() {
	clear(x.buf[:x.n])
	x.n = 0
}

// fillEvents is the only place the logical length of events is set. It
// translates the first n raw records, as reported by the OS, where n is
// len(raw). The translate func may reject a record (e.g. the internal wakeup),
// or merge it into an already filled event, by returning false.
func fillEvents[R any](events *Events, raw []R, translate func(filled []Event, raw *R) (Event, bool)) {
	events.Clear()
	if len(raw) > len(events.buf) {
		panic("netpoll: raw event count exceeds capacity")
	}
	for i := range raw {
		if ev, ok := translate(events.buf[:events.n], &raw[i]); ok {
			events.buf[events.n] = ev
			events.n++
		}
	}
}
