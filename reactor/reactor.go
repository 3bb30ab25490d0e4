// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

// Package reactor runs a [netpoll.Poll] on a dedicated goroutine, forwarding
// the token of each ready event to a channel.
//
// Sources are registered via [Reactor.Registrator], and the receiver of
// [Reactor.Tokens] is expected to perform the I/O, then re-arm the source.
// The channel is closed once the poll loop exits, which happens after
// [netpoll.Registrator.CloseLoop], e.g. via [Reactor.Close].
package reactor

import (
	"context"
	"errors"
	"sync"

	"github.com/joeycumines/go-catrate"
	"github.com/joeycumines/go-netreactor/netpoll"
	"github.com/joeycumines/logiface"
)

// Reactor owns a [netpoll.Poll], and the goroutine waiting on it.
type Reactor struct {
	poll        *netpoll.Poll
	registrator *netpoll.Registrator
	logger      *logiface.Logger[logiface.Event]
	limiter     *catrate.Limiter
	tokens      chan netpoll.Token
	stop        chan struct{}
	done        chan struct{}
	// err is written before done is closed
	err error
	// stopErr is written by the first Close, closeErr by the first Close to
	// observe done
	stopErr   error
	closeErr  error
	cfg       reactorOptions
	stopOnce  sync.Once
	closeOnce sync.Once
}

// New creates the poll, and starts the poll loop.
func New(opts ...Option) (*Reactor, error) {
	cfg, err := resolveOptions(opts)
	if err != nil {
		return nil, err
	}

	poll, err := netpoll.New(netpoll.WithLogger(cfg.logger))
	if err != nil {
		return nil, err
	}

	x := &Reactor{
		poll:        poll,
		registrator: poll.Registrator(),
		logger:      cfg.logger,
		limiter:     cfg.limiter,
		tokens:      make(chan netpoll.Token, cfg.tokenBuffer),
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
		cfg:         *cfg,
	}

	go x.run()

	return x, nil
}

// Registrator returns a registrator for the reactor's poll.
func (x *Reactor) Registrator() *netpoll.Registrator {
	return x.poll.Registrator()
}

// Tokens receives the token of every ready event, in the order reported by
// the poll. It is closed when the poll loop exits.
func (x *Reactor) Tokens() <-chan netpoll.Token {
	return x.tokens
}

// Done is closed once the poll loop has exited.
func (x *Reactor) Done() <-chan struct{} {
	return x.done
}

// Err returns the error that terminated the poll loop, or nil if the loop is
// still running, or exited due to shutdown.
func (x *Reactor) Err() error {
	select {
	case <-x.done:
		return x.err
	default:
		return nil
	}
}

// Close shuts down the poll loop, waits for it to exit, then closes the poll.
// If ctx is done first, its error is returned, and Close may be called again.
// Every call that completes returns the same error, including any failure
// from the first, interrupted, call. Tokens not yet received are discarded.
func (x *Reactor) Close(ctx context.Context) error {
	x.stopOnce.Do(func() {
		if err := x.registrator.CloseLoop(); err != nil && !netpoll.IsInterrupted(err) {
			x.stopErr = err
		}
		close(x.stop)
	})

	select {
	case <-x.done:
	case <-ctx.Done():
		return ctx.Err()
	}

	x.closeOnce.Do(func() {
		x.closeErr = errors.Join(x.stopErr, x.poll.Close())
	})

	return x.closeErr
}

func (x *Reactor) run() {
	defer close(x.done)
	defer close(x.tokens)

	x.logger.Info().
		Dur("poll_timeout", x.cfg.pollTimeout).
		Int("events_capacity", x.cfg.eventsCapacity).
		Log("reactor: started")

	events := netpoll.NewEvents(x.cfg.eventsCapacity)
	for {
		n, err := x.poll.Poll(events, x.cfg.pollTimeout)
		if err != nil {
			if netpoll.IsInterrupted(err) {
				x.logger.Info().Log("reactor: stopped")
			} else {
				x.err = err
				x.logger.Err().Err(err).Log("reactor: poll failed")
			}
			return
		}

		x.logger.Trace().Int("events", n).Log("reactor: poll returned")

		for ev := range events.All() {
			if !x.send(ev.Token()) {
				x.logger.Info().Log("reactor: stopped while sending")
				return
			}
		}
	}
}

// send delivers token, blocking while the channel is full, until the reactor
// is stopped.
func (x *Reactor) send(token netpoll.Token) bool {
	select {
	case x.tokens <- token:
		return true
	default:
	}

	if _, ok := x.limiter.Allow(token); ok {
		x.logger.Warning().
			Uint64("token", uint64(token)).
			Int("buffer", cap(x.tokens)).
			Log("reactor: token channel full, waiting for consumer")
	}

	select {
	case x.tokens <- token:
		return true
	case <-x.stop:
		return false
	}
}
