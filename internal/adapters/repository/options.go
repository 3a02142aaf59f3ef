package repository

import (
	"time"

	"github.com/okian/bonk/pkg/logger"
)

type options struct {
	now func() time.Time
	log logger.Logger
}

func defaultOptions() options {
	return options{now: time.Now, log: logger.Nop()}
}

// Option configures a store.
type Option func(*options)

// WithNow sets the function used to stamp records.
func WithNow(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithLogger sets the store logger.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}
