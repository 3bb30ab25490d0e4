// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package netpoll

import (
	"strings"
)

// Readiness is the set of conditions reported by an [Event].
type Readiness uint8

const (
	// ReadReady indicates the source is ready for reading.
	ReadReady Readiness = 1 << iota
	// WriteReady indicates the source is ready for writing.
	WriteReady
	// ErrorReady indicates an error condition on the source.
	ErrorReady
	// HangupReady indicates the peer closed its end of the connection.
	HangupReady
)

func (x Readiness) String() string {
	if x == 0 {
		return "NONE"
	}
	var parts []string
	if x&ReadReady != 0 {
		parts = append(parts, "READ")
	}
	if x&WriteReady != 0 {
		parts = append(parts, "WRITE")
	}
	if x&ErrorReady != 0 {
		parts = append(parts, "ERROR")
	}
	if x&HangupReady != 0 {
		parts = append(parts, "HANGUP")
	}
	return strings.Join(parts, "|")
}

// Event is a single readiness notification, for the registration identified
// by its [Token].
type Event struct {
	token     Token
	readiness Readiness
}

// Token returns the token the source was registered with.
func (x Event) Token() Token { return x.token }

// Readiness returns the full set of reported conditions.
func (x Event) Readiness() Readiness { return x.readiness }

// IsReadable reports whether the source is ready for reading.
func (x Event) IsReadable() bool { return x.readiness&ReadReady != 0 }

// IsWritable reports whether the source is ready for writing.
func (x Event) IsWritable() bool { return x.readiness&WriteReady != 0 }

// IsError reports whether an error condition was signalled.
func (x Event) IsError() bool { return x.readiness&ErrorReady != 0 }

// IsHangup reports whether the peer hung up.
func (x Event) IsHangup() bool { return x.readiness&HangupReady != 0 }

func (x Event) String() string {
	return "Event{token=" + x.token.String() + ", readiness=" + x.readiness.String() + "}"
}
