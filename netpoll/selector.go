// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package netpoll

import (
	"sync/atomic"
	"time"

	"github.com/joeycumines/logiface"
)

// Selector wraps the platform polling descriptor (epoll or kqueue). It is
// usually used via [Poll], which adds the shutdown protocol.
//
// A Selector must not be copied, and only one goroutine may call
// [Selector.Select] at a time.
type Selector struct {
	_      noCopy
	h      *handle
	logger *logiface.Logger[logiface.Event]
}

// noCopy may be embedded into structs which must not be copied after first
// use. See https://golang.org/issues/8005#issuecomment-190753527.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

// NewSelector creates the platform backend. It returns [ErrUnsupported] on
// platforms without one.
func NewSelector(opts ...Option) (*Selector, error) {
	cfg, err := resolveOptions(opts)
	if err != nil {
		return nil, err
	}
	return newSelector(cfg)
}

func newSelector(cfg *pollOptions) (*Selector, error) {
	backend, err := newBackend()
	if err != nil {
		return nil, err
	}

	cfg.logger.Info().
		Str("backend", backend.name()).
		Int("fd", backend.fd()).
		Log("netpoll: selector created")

	return &Selector{
		h:      newHandle(backend, cfg.logger),
		logger: cfg.logger,
	}, nil
}

// Select clears events, then blocks until at least one registered source is
// ready, the selector is woken, or the timeout elapses. A negative timeout
// (see [NoTimeout]) blocks indefinitely.
//
// On return, events holds at most [Events.Cap] events. A wakeup is not an
// event, and a woken or timed out Select returns nil with events empty.
//
// If the wait was interrupted by a signal, the returned error satisfies
// [IsSignalInterrupt]. After [Selector.Close], it returns [ErrSelectorClosed].
func (x *Selector) Select(events *Events, timeout time.Duration) error {
	if !x.h.acquire() {
		events.Clear()
		return ErrSelectorClosed
	}
	defer x.h.release(false)
	return x.h.backend.wait(events, timeout)
}

// Registrator returns a [Registrator] bound to this selector, sharing the
// given shutdown flag.
func (x *Selector) Registrator(isPollDead *atomic.Bool) *Registrator {
	return &Registrator{
		h:          x.h,
		isPollDead: isPollDead,
		logger:     x.logger,
	}
}

// Close releases the selector. Any blocked [Selector.Select] is woken, and
// the descriptor is closed once no operation is using it. The close error is
// returned if the descriptor was closed immediately, otherwise it is logged.
//
// Subsequent calls return [ErrSelectorClosed].
func (x *Selector) Close() error {
	err := x.h.shutdown()
	if err != ErrSelectorClosed {
		x.logger.Info().
			Str("backend", x.h.backend.name()).
			Log("netpoll: selector closed")
	}
	return err
}
