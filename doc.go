// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

// Package netreactor is the root of a small I/O readiness reactor toolkit.
//
// The functionality lives in the sub-packages:
//   - netpoll: the Poll, Registrator and Selector readiness API, over epoll
//     (Linux) and kqueue (macOS, FreeBSD), plus a non-blocking TCPStream
//   - reactor: a poll goroutine that forwards ready tokens to a channel
//   - allowedips: a longest-prefix-match table of CIDR networks
//
// See the examples directory for runnable programs.
package netreactor
