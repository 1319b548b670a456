package repository

import "time"

type options struct {
	ttl             time.Duration
	capacity        int
	metricsInterval time.Duration
	keyPrefix       string
	now             func() time.Time
}

func defaultOptions() options {
	return options{
		ttl:             time.Hour,
		capacity:        1000,
		metricsInterval: 5 * time.Second,
		keyPrefix:       "vibrapulse:",
		now:             time.Now,
	}
}

// Option applies a configuration option to a Store.
type Option func(*options)

// WithTTL sets how long a report stays retrievable. Zero or negative keeps
// reports until evicted by capacity.
func WithTTL(ttl time.Duration) Option {
	return func(o *options) {
		o.ttl = ttl
	}
}

// WithCapacity bounds the number of stored reports; the oldest go first.
func WithCapacity(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.capacity = n
		}
	}
}

// WithMetricsUpdateInterval sets the interval for background sweeps and
// metrics updates.
func WithMetricsUpdateInterval(interval time.Duration) Option {
	return func(o *options) {
		if interval > 0 {
			o.metricsInterval = interval
		}
	}
}

// WithKeyPrefix namespaces Redis keys.
func WithKeyPrefix(prefix string) Option {
	return func(o *options) {
		o.keyPrefix = prefix
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}
