// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package netpoll

import (
	"time"
)

// NoTimeout may be passed as a wait timeout, to block until an event
// arrives. Any negative duration has the same effect.
const NoTimeout time.Duration = -1

// pollBackend is implemented once per platform, see newBackend.
//
// All methods other than wait are safe for concurrent use. Only one
// goroutine may wait at a time.
type pollBackend interface {
	// register arms one-shot notification, replacing the interests of any
	// existing registration for fd.
	register(fd int, token Token, interests Interests) error
	// reregister is register, optimised for an existing registration.
	reregister(fd int, token Token, interests Interests) error
	// deregister removes all interest in fd.
	deregister(fd int) error
	// wake causes a blocked (or the next) wait to return.
	wake() error
	// wait blocks until at least one event, a wakeup, or the timeout.
	wait(events *Events, timeout time.Duration) error
	// close releases all descriptors owned by the backend.
	close() error
	// fd is the primary descriptor, used for diagnostics.
	fd() int
	name() string
}
