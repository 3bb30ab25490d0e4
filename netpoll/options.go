// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package netpoll

import (
	"github.com/joeycumines/logiface"
)

// pollOptions holds configuration options for Poll and Selector creation.
type pollOptions struct {
	logger *logiface.Logger[logiface.Event]
}

// Option configures a [Poll] or [Selector] instance.
type Option interface {
	applyPoll(*pollOptions) error
}

// optionImpl implements Option.
type optionImpl struct {
	applyPollFunc func(*pollOptions) error
}

func (o *optionImpl) applyPoll(opts *pollOptions) error {
	return o.applyPollFunc(opts)
}

// WithLogger configures structured logging. A nil logger (the default)
// disables logging.
//
// Registration changes are logged at debug level, lifecycle changes at info
// level, and signal interrupted waits at trace level. A descriptor close
// failure that cannot be returned to any caller is logged at error level.
func WithLogger(logger *logiface.Logger[logiface.Event]) Option {
	return &optionImpl{func(opts *pollOptions) error {
		opts.logger = logger
		return nil
	}}
}

// resolveOptions applies Option instances to pollOptions.
func resolveOptions(opts []Option) (*pollOptions, error) {
	cfg := &pollOptions{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.applyPoll(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}
