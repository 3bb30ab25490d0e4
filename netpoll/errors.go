// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package netpoll

import (
	"errors"
	"fmt"
	"strconv"
)

// Standard errors.
var (
	// ErrInterrupted is the kind shared by every error that indicates the
	// poll was shut down, via [Registrator.CloseLoop].
	ErrInterrupted = errors.New("netpoll: interrupted")

	// ErrPollClosed is returned by [Poll.Poll] once the poll is dead.
	ErrPollClosed = fmt.Errorf("%w: poll closed", ErrInterrupted)

	// ErrPollInstanceClosed is returned by [Registrator] operations that are
	// not permitted once the poll is dead, including a repeated
	// [Registrator.CloseLoop].
	ErrPollInstanceClosed = fmt.Errorf("%w: poll instance closed", ErrInterrupted)

	// ErrSelectorClosed is returned by any operation attempted after the
	// [Selector] has been closed.
	ErrSelectorClosed = errors.New("netpoll: selector closed")

	// ErrWouldBlock indicates a non-blocking operation could not make
	// progress. The caller should re-arm interest and wait for an event.
	ErrWouldBlock = errors.New("netpoll: operation would block")

	ErrNotRegistered    = errors.New("netpoll: source not registered")
	ErrReservedToken    = errors.New("netpoll: token is reserved")
	ErrInvalidInterests = errors.New("netpoll: invalid interests")
	ErrInvalidSource    = errors.New("netpoll: invalid source descriptor")
	ErrStreamClosed     = errors.New("netpoll: stream closed")

	// ErrUnsupported is returned when no backend exists for the platform.
	ErrUnsupported = fmt.Errorf("netpoll: platform not supported: %w", errors.ErrUnsupported)
)

// OpError describes a failed operating system call, made on behalf of the
// named operation.
type OpError struct {
	// Err is the underlying error, typically a unix.Errno.
	Err error
	// Op is the operation, e.g. "epoll_ctl" or "kevent".
	Op string
	// Fd is the descriptor the operation was made against, or -1.
	Fd int
}

// Error implements the error interface.
func (e *OpError) Error() string {
	s := "netpoll: " + e.Op
	if e.Fd >= 0 {
		s += " (fd " + strconv.Itoa(e.Fd) + ")"
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

// Unwrap returns the underlying cause for use with [errors.Is] and [errors.As].
func (e *OpError) Unwrap() error {
	return e.Err
}

// IsInterrupted reports whether err indicates the poll was shut down.
func IsInterrupted(err error) bool {
	return errors.Is(err, ErrInterrupted)
}

// IsSignalInterrupt reports whether err is a wait interrupted by a signal
// (EINTR). [Poll.Poll] retries these transparently, but [Selector.Select]
// returns them.
func IsSignalInterrupt(err error) bool {
	return isSignalInterrupt(err)
}
