// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package reactor

import (
	"errors"
	"fmt"
	"time"

	"github.com/joeycumines/go-catrate"
	"github.com/joeycumines/logiface"
)

// ErrInvalidOption is returned by [New] for an out of range option value.
var ErrInvalidOption = errors.New("reactor: invalid option")

// reactorOptions holds configuration options for Reactor creation.
type reactorOptions struct {
	logger         *logiface.Logger[logiface.Event]
	limiter        *catrate.Limiter
	pollTimeout    time.Duration
	eventsCapacity int
	tokenBuffer    int
	// limiterSet distinguishes an explicitly disabled limiter from the default
	limiterSet bool
}

// Option configures a [Reactor] instance.
type Option interface {
	applyReactor(*reactorOptions) error
}

// optionImpl implements Option.
type optionImpl struct {
	applyReactorFunc func(*reactorOptions) error
}

func (o *optionImpl) applyReactor(opts *reactorOptions) error {
	return o.applyReactorFunc(opts)
}

// WithLogger configures structured logging, for both the reactor and its
// poll. A nil logger (the default) disables logging.
func WithLogger(logger *logiface.Logger[logiface.Event]) Option {
	return &optionImpl{func(opts *reactorOptions) error {
		opts.logger = logger
		return nil
	}}
}

// WithPollTimeout sets the timeout of each wait (default 100ms). Use
// [netpoll.NoTimeout] to block until an event arrives. Zero is not permitted,
// as it would spin.
func WithPollTimeout(timeout time.Duration) Option {
	return &optionImpl{func(opts *reactorOptions) error {
		if timeout == 0 {
			return fmt.Errorf("%w: poll timeout must be non-zero", ErrInvalidOption)
		}
		opts.pollTimeout = timeout
		return nil
	}}
}

// WithEventsCapacity sets the maximum number of events per wait (default
// 1024).
func WithEventsCapacity(capacity int) Option {
	return &optionImpl{func(opts *reactorOptions) error {
		if capacity < 1 {
			return fmt.Errorf("%w: events capacity must be positive: %d", ErrInvalidOption, capacity)
		}
		opts.eventsCapacity = capacity
		return nil
	}}
}

// WithTokenBuffer sets the buffer size of the [Reactor.Tokens] channel
// (default 1). Zero makes the channel unbuffered.
func WithTokenBuffer(size int) Option {
	return &optionImpl{func(opts *reactorOptions) error {
		if size < 0 {
			return fmt.Errorf("%w: token buffer must not be negative: %d", ErrInvalidOption, size)
		}
		opts.tokenBuffer = size
		return nil
	}}
}

// WithBackpressureRates configures the rate limit, per token, of the warning
// logged when the tokens channel is full (default 1 per second, 10 per
// minute). The rates are as per [catrate.NewLimiter]. An empty map disables
// rate limiting.
func WithBackpressureRates(rates map[time.Duration]int) Option {
	return &optionImpl{func(opts *reactorOptions) (err error) {
		opts.limiterSet = true
		if len(rates) == 0 {
			opts.limiter = nil
			return nil
		}
		// NewLimiter panics on invalid rates
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("%w: %v", ErrInvalidOption, r)
			}
		}()
		opts.limiter = catrate.NewLimiter(rates)
		return nil
	}}
}

// resolveOptions applies Option instances to reactorOptions.
func resolveOptions(opts []Option) (*reactorOptions, error) {
	cfg := &reactorOptions{
		pollTimeout:    100 * time.Millisecond,
		eventsCapacity: 1024,
		tokenBuffer:    1,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.applyReactor(cfg); err != nil {
			return nil, err
		}
	}
	if !cfg.limiterSet {
		cfg.limiter = catrate.NewLimiter(map[time.Duration]int{
			time.Second: 1,
			time.Minute: 10,
		})
	}
	return cfg, nil
}
