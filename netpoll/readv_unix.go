// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

//go:build unix && !linux

package netpoll

import (
	"golang.org/x/sys/unix"
)

// readv fills each buffer in turn, stopping at the first short read, as
// readv(2) is not exposed on every platform.
func readv(fd int, bufs [][]byte) (int, error) {
	var total int
	for _, b := range bufs {
		if len(b) == 0 {
			continue
		}
		n, err := readRetry(fd, b)
		if err != nil {
			if total != 0 {
				return total, nil
			}
			return 0, wrapErrno("read", fd, err)
		}
		total += n
		if n < len(b) {
			break
		}
	}
	return total, nil
}

func readRetry(fd int, b []byte) (int, error) {
	for {
		n, err := unix.Read(fd, b)
		if err != unix.EINTR {
			return n, err
		}
	}
}
