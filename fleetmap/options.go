package fleetmap

import "time"

const (
	DefaultPollInterval = 15 * time.Second
)

type (
	Option func(*options)

	options struct {
		interval time.Duration
		timeout  time.Duration
		now      func() time.Time
	}
)

func newOptions(opts []Option) options {
	o := options{
		interval: DefaultPollInterval,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithPollInterval overrides the live poll cadence.
func WithPollInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.interval = d
		}
	}
}

// WithRequestTimeout bounds each individual live poll or history fetch.
func WithRequestTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}
