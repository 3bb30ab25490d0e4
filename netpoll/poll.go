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

// Poll is the event queue. [Poll.Poll] blocks the calling goroutine, waiting
// for events on the sources registered via [Poll.Registrator].
//
// Poll may be used by registering and waiting on the same goroutine, or by
// waiting on one goroutine, while others register.
type Poll struct {
	registry   Registry
	isPollDead *atomic.Bool
	logger     *logiface.Logger[logiface.Event]
}

// Registry owns the [Selector] of a [Poll].
type Registry struct {
	selector *Selector
}

// New creates a Poll, using the platform backend.
func New(opts ...Option) (*Poll, error) {
	cfg, err := resolveOptions(opts)
	if err != nil {
		return nil, err
	}

	selector, err := newSelector(cfg)
	if err != nil {
		return nil, err
	}

	return &Poll{
		registry:   Registry{selector: selector},
		isPollDead: new(atomic.Bool),
		logger:     cfg.logger,
	}, nil
}

// Selector returns the owned selector.
func (x *Registry) Selector() *Selector { return x.selector }

// Registry returns the registry, which owns the selector.
func (x *Poll) Registry() *Registry { return &x.registry }

// Registrator returns a new [Registrator], bound to this poll. There is no
// limit on the number of registrators.
func (x *Poll) Registrator() *Registrator {
	return x.registry.selector.Registrator(x.isPollDead)
}

// Poll waits for events, filling events, and returning the number filled.
// A negative timeout (see [NoTimeout]) blocks indefinitely, while a timeout
// with no events returns 0.
//
// Waits interrupted by a signal are retried, with the full timeout. Once
// [Registrator.CloseLoop] has been called, Poll returns [ErrPollClosed], and
// does not block.
func (x *Poll) Poll(events *Events, timeout time.Duration) (int, error) {
	if x.isPollDead.Load() {
		events.Clear()
		return 0, ErrPollClosed
	}

	for {
		err := x.registry.selector.Select(events, timeout)
		if err == nil {
			break
		}
		if !IsSignalInterrupt(err) {
			return 0, err
		}
		x.logger.Trace().
			Err(err).
			Log("netpoll: wait interrupted by signal, retrying")
	}

	if x.isPollDead.Load() {
		return 0, ErrPollClosed
	}

	if events.Len() == 0 {
		x.logger.Trace().
			Dur("timeout", timeout).
			Log("netpoll: wait returned no events")
	}

	return events.Len(), nil
}

// Close closes the selector, see [Selector.Close].
func (x *Poll) Close() error {
	return x.registry.selector.Close()
}
