// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

//go:build !linux && !darwin && !freebsd

package netpoll

type rawEvent struct{}

func newBackend() (pollBackend, error) {
	return nil, ErrUnsupported
}
