// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

//go:build linux

package netpoll

import (
	"golang.org/x/sys/unix"
)

func readv(fd int, bufs [][]byte) (int, error) {
	for {
		n, err := unix.Readv(fd, bufs)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return 0, wrapErrno("readv", fd, err)
		}
		return n, nil
	}
}
