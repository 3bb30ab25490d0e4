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

// Registrator registers interest in sources, for a [Poll] that may be
// blocked on another goroutine. It is safe for concurrent use, and copies
// share all state.
//
// A registration made while the poll is blocked is only guaranteed to be
// observed by the next wait.
type Registrator struct {
	h          *handle
	isPollDead *atomic.Bool
	logger     *logiface.Logger[logiface.Event]
}

// Register arms one-shot notification of the given interests for src,
// replacing the interests of any existing registration. The next [Event]
// for src carries token.
//
// Fails with [ErrPollInstanceClosed] once [Registrator.CloseLoop] has been
// called, and [ErrSelectorClosed] once the selector has been closed.
func (x *Registrator) Register(src Source, token Token, interests Interests) error {
	return x.arm("register", src, token, interests, x.h.backend.register)
}

// Reregister re-arms an existing registration, e.g. after an event was
// delivered. It has the same contract as [Registrator.Register], and also
// falls back to adding a new registration.
func (x *Registrator) Reregister(src Source, token Token, interests Interests) error {
	return x.arm("reregister", src, token, interests, x.h.backend.reregister)
}

func (x *Registrator) arm(op string, src Source, token Token, interests Interests, fn func(int, Token, Interests) error) error {
	if x.isPollDead.Load() {
		return ErrPollInstanceClosed
	}
	if token == WakeToken {
		return ErrReservedToken
	}
	if !interests.valid() {
		return ErrInvalidInterests
	}
	fd := src.RawFd()
	if fd < 0 {
		return ErrInvalidSource
	}

	if !x.h.acquire() {
		return ErrSelectorClosed
	}
	defer x.h.release(false)

	if err := fn(fd, token, interests); err != nil {
		return err
	}

	x.logger.Debug().
		Str("op", op).
		Int("fd", fd).
		Uint64("token", uint64(token)).
		Str("interests", interests.String()).
		Log("netpoll: armed")

	return nil
}

// Deregister removes all interest in src. It returns [ErrNotRegistered] if
// src was not registered. Deregistration remains possible after
// [Registrator.CloseLoop], for cleanup.
func (x *Registrator) Deregister(src Source) error {
	fd := src.RawFd()
	if fd < 0 {
		return ErrInvalidSource
	}

	if !x.h.acquire() {
		return ErrSelectorClosed
	}
	defer x.h.release(false)

	if err := x.h.backend.deregister(fd); err != nil {
		return err
	}

	x.logger.Debug().
		Int("fd", fd).
		Log("netpoll: deregistered")

	return nil
}

// CloseLoop marks the poll as dead, then wakes it, so a blocked
// [Poll.Poll] returns [ErrPollClosed]. Exactly one call succeeds, every
// other returns [ErrPollInstanceClosed].
func (x *Registrator) CloseLoop() error {
	if !x.isPollDead.CompareAndSwap(false, true) {
		return ErrPollInstanceClosed
	}

	if !x.h.acquire() {
		return ErrSelectorClosed
	}
	defer x.h.release(false)

	x.logger.Info().
		Str("backend", x.h.backend.name()).
		Log("netpoll: close loop requested")

	return x.h.backend.wake()
}
