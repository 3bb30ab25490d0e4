// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

// Package netpoll provides a low-level, cross-platform I/O readiness
// notification reactor, built directly on the operating system's native
// polling mechanism.
//
// # Architecture
//
// A [Poll] owns a [Registry], which in turn owns exactly one [Selector]. The
// [Selector] wraps the platform backend:
//   - Linux: epoll, with an eventfd used for wakeups
//   - macOS and FreeBSD: kqueue, with an EVFILT_USER filter used for wakeups
//
// Other platforms compile, but [New] and [NewSelector] return
// [ErrUnsupported].
//
// Interest in readiness is expressed through a [Registrator], obtained via
// [Poll.Registrator]. A [Registrator] may be copied and used from any number
// of goroutines, while a single goroutine blocks in [Poll.Poll].
//
// # One-Shot Semantics
//
// Every registration is one-shot: after an [Event] is delivered for a
// [Token], no further events are delivered for that source until it is
// re-armed, using [Registrator.Register] or [Registrator.Reregister]. This
// holds for both directions of a registration, on every backend.
//
// # Shutdown
//
// [Registrator.CloseLoop] marks the poll as dead, and wakes any goroutine
// blocked in [Poll.Poll], which then returns [ErrPollClosed]. The transition
// is one-way. Once set, [Registrator.Register] fails with
// [ErrPollInstanceClosed]. Both errors match [ErrInterrupted], via
// [errors.Is].
//
// Closing the [Poll] (or [Selector]) releases the underlying descriptor. The
// descriptor is reference counted, and is only closed once every in-flight
// operation has finished with it. Operations that begin after close fail with
// [ErrSelectorClosed].
//
// # Streams
//
// [TCPStream] is a minimal non-blocking TCP client socket, suitable for
// registration. Reads and writes that cannot make progress fail with
// [ErrWouldBlock], and the caller is expected to re-register interest and
// wait for the next event.
package netpoll
