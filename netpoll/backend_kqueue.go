// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

//go:build darwin || freebsd

package netpoll

import (
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

type rawEvent = unix.Kevent_t

// wakeIdent identifies the EVFILT_USER filter used for wakeups.
const wakeIdent = 0

// kqueueBackend implements pollBackend using kqueue.
//
// Each direction is a separate filter. To match the epoll semantics, where one
// delivered event disarms the whole registration, delivering either filter
// deletes the other, and events for the same descriptor are merged.
type kqueueBackend struct {
	// regs maps each registered fd to its token and armed interests
	regs map[int]kqueueRegistration
	kq   int
	mu   sync.Mutex
}

type kqueueRegistration struct {
	token     Token
	interests Interests
}

var _ pollBackend = (*kqueueBackend)(nil)

func newBackend() (pollBackend, error) {
	kq, err := unix.Kqueue()
	if err != nil {
		return nil, &OpError{Op: "kqueue", Fd: -1, Err: err}
	}
	unix.CloseOnExec(kq)

	var kev unix.Kevent_t
	unix.SetKevent(&kev, wakeIdent, unix.EVFILT_USER, unix.EV_ADD|unix.EV_CLEAR)
	if _, err := unix.Kevent(kq, []unix.Kevent_t{kev}, nil, nil); err != nil {
		_ = unix.Close(kq)
		return nil, &OpError{Op: "kevent", Fd: kq, Err: err}
	}

	return &kqueueBackend{
		regs: make(map[int]kqueueRegistration),
		kq:   kq,
	}, nil
}

func (b *kqueueBackend) fd() int { return b.kq }

func (b *kqueueBackend) name() string { return "kqueue" }

func (b *kqueueBackend) register(fd int, token Token, interests Interests) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	changes := []unix.Kevent_t{
		keventChange(fd, unix.EVFILT_READ, interests.IsReadable()),
		keventChange(fd, unix.EVFILT_WRITE, interests.IsWritable()),
	}
	if err := b.submit(fd, changes); err != nil {
		return err
	}

	b.regs[fd] = kqueueRegistration{token: token, interests: interests}
	return nil
}

// reregister is identical to register, as EV_ADD modifies existing filters.
func (b *kqueueBackend) reregister(fd int, token Token, interests Interests) error {
	return b.register(fd, token, interests)
}

func (b *kqueueBackend) deregister(fd int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.regs[fd]; !ok {
		return ErrNotRegistered
	}
	delete(b.regs, fd)

	return b.submit(fd, []unix.Kevent_t{
		keventChange(fd, unix.EVFILT_READ, false),
		keventChange(fd, unix.EVFILT_WRITE, false),
	})
}

func (b *kqueueBackend) wake() error {
	var kev unix.Kevent_t
	unix.SetKevent(&kev, wakeIdent, unix.EVFILT_USER, 0)
	kev.Fflags = unix.NOTE_TRIGGER
	_, err := unix.Kevent(b.kq, []unix.Kevent_t{kev}, nil, nil)
	return wrapErrno("kevent", b.kq, err)
}

func (b *kqueueBackend) wait(events *Events, timeout time.Duration) error {
	var ts *unix.Timespec
	if timeout >= 0 {
		t := unix.NsecToTimespec(int64(timeout))
		ts = &t
	}

	n, err := unix.Kevent(b.kq, nil, events.raw, ts)
	if err != nil {
		events.Clear()
		return wrapErrno("kevent", b.kq, err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	// fd -> index into the filled events, for merging
	var index map[int]int
	// fd -> directions delivered in this batch
	var fired map[int]Interests

	fillEvents(events, events.raw[:n], func(filled []Event, kev *unix.Kevent_t) (Event, bool) {
		if int(kev.Filter) == unix.EVFILT_USER {
			return Event{}, false
		}

		fd := int(kev.Ident)
		reg, ok := b.regs[fd]
		if !ok {
			// deregistered after the kernel queued the event
			return Event{}, false
		}

		if fired == nil {
			index = make(map[int]int, n)
			fired = make(map[int]Interests, n)
		}
		switch int(kev.Filter) {
		case unix.EVFILT_READ:
			fired[fd] |= Readable
		case unix.EVFILT_WRITE:
			fired[fd] |= Writable
		}

		readiness := keventToReadiness(kev)
		if i, ok := index[fd]; ok {
			filled[i].readiness |= readiness
			return Event{}, false
		}
		index[fd] = len(filled)
		return Event{token: reg.token, readiness: readiness}, true
	})

	// disarm the directions that did not fire
	var changes []unix.Kevent_t
	for fd, dirs := range fired {
		remaining := b.regs[fd].interests &^ dirs
		if remaining.IsReadable() {
			changes = append(changes, keventChange(fd, unix.EVFILT_READ, false))
		}
		if remaining.IsWritable() {
			changes = append(changes, keventChange(fd, unix.EVFILT_WRITE, false))
		}
	}
	if len(changes) != 0 {
		// ignore errors on delete, the fd may have been closed concurrently
		receipts := make([]unix.Kevent_t, len(changes))
		_, _ = unix.Kevent(b.kq, changes, receipts, nil)
	}

	return nil
}

// submit applies changes, which must all carry EV_RECEIPT, so that every
// change is attempted and reported individually. Deleting a filter that does
// not exist is not an error.
func (b *kqueueBackend) submit(fd int, changes []unix.Kevent_t) error {
	receipts := make([]unix.Kevent_t, len(changes))
	n, err := unix.Kevent(b.kq, changes, receipts, nil)
	if err != nil {
		return wrapErrno("kevent", fd, err)
	}
	for i := range receipts[:n] {
		r := &receipts[i]
		if r.Flags&unix.EV_ERROR == 0 || r.Data == 0 {
			continue
		}
		errno := unix.Errno(r.Data)
		if errno == unix.ENOENT && isDeleteFor(changes, int(r.Filter)) {
			continue
		}
		return &OpError{Op: "kevent", Fd: fd, Err: errno}
	}
	return nil
}

func (b *kqueueBackend) close() error {
	return wrapErrno("close", b.kq, unix.Close(b.kq))
}

// isDeleteFor matches receipts back to their change by filter, since some
// platforms overwrite the flags of the receipt.
func isDeleteFor(changes []unix.Kevent_t, filter int) bool {
	for i := range changes {
		if int(changes[i].Filter) == filter {
			return changes[i].Flags&unix.EV_DELETE != 0
		}
	}
	return false
}

func keventChange(fd int, filter int, armed bool) unix.Kevent_t {
	flags := unix.EV_DELETE
	if armed {
		flags = unix.EV_ADD | unix.EV_ENABLE | unix.EV_ONESHOT
	}
	var kev unix.Kevent_t
	unix.SetKevent(&kev, fd, filter, flags|unix.EV_RECEIPT)
	return kev
}

func keventToReadiness(kev *unix.Kevent_t) Readiness {
	var r Readiness
	switch int(kev.Filter) {
	case unix.EVFILT_READ:
		r |= ReadReady
	case unix.EVFILT_WRITE:
		r |= WriteReady
	}
	if kev.Flags&unix.EV_ERROR != 0 {
		r |= ErrorReady
	}
	if kev.Flags&unix.EV_EOF != 0 {
		r |= HangupReady
		if kev.Fflags != 0 {
			// socket error, reported in fflags
			r |= ErrorReady
		}
	}
	return r
}
