// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

//go:build unix

package netpoll

import (
	"errors"

	"golang.org/x/sys/unix"
)

// wrapErrno translates the error from a raw syscall. A nil err is returned
// as-is.
func wrapErrno(op string, fd int, err error) error {
	if err == nil {
		return nil
	}
	if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
		return ErrWouldBlock
	}
	return &OpError{Op: op, Fd: fd, Err: err}
}

func isSignalInterrupt(err error) bool {
	return errors.Is(err, unix.EINTR)
}
