// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package netpoll

import (
	"sync/atomic"

	"github.com/joeycumines/logiface"
)

// handle is the reference counted owner of a backend, shared between a
// Selector and every Registrator derived from it.
//
// The Selector holds the initial reference. Every operation acquires a
// reference for its duration, and acquisition fails once closing is set. The
// backend is closed exactly once, when the count reaches zero, which may be
// after the Selector has been closed.
type handle struct {
	backend pollBackend
	logger  *logiface.Logger[logiface.Event]
	refs    atomic.Int64
	closing atomic.Bool
}

func newHandle(backend pollBackend, logger *logiface.Logger[logiface.Event]) *handle {
	h := &handle{backend: backend, logger: logger}
	h.refs.Store(1)
	return h
}

// acquire adds a reference, returning false if the handle is closing.
func (h *handle) acquire() bool {
	for {
		n := h.refs.Load()
		if n <= 0 || h.closing.Load() {
			return false
		}
		if h.refs.CompareAndSwap(n, n+1) {
			return true
		}
	}
}

// release drops a reference, closing the backend if it was the last. The
// close error is returned, and also logged unless the caller is the owner,
// since nobody else can observe it.
func (h *handle) release(owner bool) error {
	n := h.refs.Add(-1)
	if n > 0 {
		return nil
	}
	if n < 0 {
		panic("netpoll: handle released more times than acquired")
	}

	err := h.backend.close()
	if err != nil && !owner {
		h.logger.Err().
			Err(err).
			Str("backend", h.backend.name()).
			Int("fd", h.backend.fd()).
			Log("netpoll: deferred close failed")
	}
	return err
}

// shutdown marks the handle closing, wakes any blocked wait, and drops the
// owner's reference. It fails with ErrSelectorClosed if already called.
func (h *handle) shutdown() error {
	if !h.closing.CompareAndSwap(false, true) {
		return ErrSelectorClosed
	}

	// the owner reference is still held, so the backend is open
	if err := h.backend.wake(); err != nil {
		h.logger.Warning().
			Err(err).
			Str("backend", h.backend.name()).
			Log("netpoll: failed to wake selector for close")
	}

	return h.release(true)
}
