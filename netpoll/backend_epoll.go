// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

//go:build linux

package netpoll

import (
	"errors"
	"math"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
)

type rawEvent = unix.EpollEvent

// epollBackend implements pollBackend using epoll, with a level-triggered
// eventfd registered under WakeToken, for wakeups.
type epollBackend struct {
	epfd   int
	wakeFd int
}

var _ pollBackend = (*epollBackend)(nil)

func newBackend() (pollBackend, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, &OpError{Op: "epoll_create", Fd: -1, Err: err}
	}

	wakeFd, err := unix.Eventfd(0, unix.EFD_CLOEXEC|unix.EFD_NONBLOCK)
	if err != nil {
		_ = unix.Close(epfd)
		return nil, &OpError{Op: "eventfd", Fd: -1, Err: err}
	}

	ev := epollEvent(WakeToken, unix.EPOLLIN)
	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, wakeFd, &ev); err != nil {
		_ = unix.Close(wakeFd)
		_ = unix.Close(epfd)
		return nil, &OpError{Op: "epoll_ctl", Fd: wakeFd, Err: err}
	}

	return &epollBackend{epfd: epfd, wakeFd: wakeFd}, nil
}

func (b *epollBackend) fd() int { return b.epfd }

func (b *epollBackend) name() string { return "epoll" }

func (b *epollBackend) register(fd int, token Token, interests Interests) error {
	ev := epollEvent(token, interestsToEpoll(interests))
	err := unix.EpollCtl(b.epfd, unix.EPOLL_CTL_ADD, fd, &ev)
	if err == unix.EEXIST {
		err = unix.EpollCtl(b.epfd, unix.EPOLL_CTL_MOD, fd, &ev)
	}
	return wrapErrno("epoll_ctl", fd, err)
}

func (b *epollBackend) reregister(fd int, token Token, interests Interests) error {
	ev := epollEvent(token, interestsToEpoll(interests))
	err := unix.EpollCtl(b.epfd, unix.EPOLL_CTL_MOD, fd, &ev)
	if err == unix.ENOENT {
		err = unix.EpollCtl(b.epfd, unix.EPOLL_CTL_ADD, fd, &ev)
	}
	return wrapErrno("epoll_ctl", fd, err)
}

func (b *epollBackend) deregister(fd int) error {
	err := unix.EpollCtl(b.epfd, unix.EPOLL_CTL_DEL, fd, nil)
	if err == unix.ENOENT {
		return ErrNotRegistered
	}
	return wrapErrno("epoll_ctl", fd, err)
}

func (b *epollBackend) wake() error {
	// native endianness, as required by eventfd
	var one uint64 = 1
	buf := (*[8]byte)(unsafe.Pointer(&one))[:]
	_, err := unix.Write(b.wakeFd, buf)
	if err == unix.EAGAIN {
		// counter saturated, a wakeup is already pending
		return nil
	}
	return wrapErrno("eventfd_write", b.wakeFd, err)
}

func (b *epollBackend) wait(events *Events, timeout time.Duration) error {
	n, err := unix.EpollWait(b.epfd, events.raw, timeoutToMsec(timeout))
	if err != nil {
		events.Clear()
		return wrapErrno("epoll_wait", b.epfd, err)
	}

	var woken bool
	fillEvents(events, events.raw[:n], func(_ []Event, raw *unix.EpollEvent) (Event, bool) {
		token := epollEventToken(raw)
		if token == WakeToken {
			woken = true
			return Event{}, false
		}
		return Event{token: token, readiness: epollToReadiness(raw.Events)}, true
	})

	if woken {
		b.drainWake()
	}

	return nil
}

func (b *epollBackend) drainWake() {
	var buf [8]byte
	for {
		if _, err := unix.Read(b.wakeFd, buf[:]); err != nil {
			break
		}
	}
}

func (b *epollBackend) close() error {
	return errors.Join(
		wrapErrno("close", b.wakeFd, unix.Close(b.wakeFd)),
		wrapErrno("close", b.epfd, unix.Close(b.epfd)),
	)
}

// epollEvent packs the token across the Fd and Pad fields, which together
// form the 64-bit data member of the kernel's epoll_event.
func epollEvent(token Token, flags uint32) unix.EpollEvent {
	return unix.EpollEvent{
		Events: flags,
		Fd:     int32(uint32(token)),
		Pad:    int32(uint32(token >> 32)),
	}
}

func epollEventToken(ev *unix.EpollEvent) Token {
	return Token(uint32(ev.Fd)) | Token(uint32(ev.Pad))<<32
}

func interestsToEpoll(interests Interests) uint32 {
	flags := uint32(unix.EPOLLONESHOT | unix.EPOLLRDHUP)
	if interests.IsReadable() {
		flags |= unix.EPOLLIN
	}
	if interests.IsWritable() {
		flags |= unix.EPOLLOUT
	}
	return flags
}

func epollToReadiness(flags uint32) Readiness {
	var r Readiness
	if flags&(unix.EPOLLIN|unix.EPOLLPRI) != 0 {
		r |= ReadReady
	}
	if flags&unix.EPOLLOUT != 0 {
		r |= WriteReady
	}
	if flags&unix.EPOLLERR != 0 {
		r |= ErrorReady
	}
	if flags&(unix.EPOLLHUP|unix.EPOLLRDHUP) != 0 {
		r |= HangupReady
	}
	return r
}

// timeoutToMsec rounds up to whole milliseconds, so a small positive timeout
// never becomes a busy poll.
func timeoutToMsec(timeout time.Duration) int {
	if timeout < 0 {
		return -1
	}
	if timeout >= math.MaxInt32*time.Millisecond {
		return math.MaxInt32
	}
	return int((timeout + time.Millisecond - 1) / time.Millisecond)
}
