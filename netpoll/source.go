// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package netpoll

// Source is anything backed by a raw descriptor that may be registered.
type Source interface {
	// RawFd returns the underlying descriptor. It must remain open for as
	// long as it is registered.
	RawFd() int
}

// SourceFd adapts a raw descriptor, e.g. one end of a pipe, to [Source].
type SourceFd int

// RawFd implements [Source].
func (x SourceFd) RawFd() int { return int(x) }
