// Package retrier runs a function until it succeeds or attempts run out.
package retrier

import (
	"context"
	"time"

	"github.com/jpillora/backoff"
)

const (
	defaultMinInterval = 1 * time.Second
	defaultMaxInterval = 30 * time.Second
	defaultFactor      = 2.0
	defaultMaxRetries  = 5
)

// Retrier retries with a configurable delay policy between attempts.
type Retrier struct {
	minInterval time.Duration
	maxInterval time.Duration
	factor      float64
	jitter      bool
	maxRetries  int
}

// Option configures the Retrier.
type Option func(*Retrier)

// WithMaxRetries sets the number of retries after the first attempt.
func WithMaxRetries(n int) Option {
	return func(r *Retrier) {
		r.maxRetries = n
	}
}

// WithFixedDelay makes every retry wait exactly d.
func WithFixedDelay(d time.Duration) Option {
	return func(r *Retrier) {
		r.minInterval = d
		r.maxInterval = d
		r.factor = 1
		r.jitter = false
	}
}

// WithBackoff sets an exponential delay growing from min to max by factor.
func WithBackoff(min, max time.Duration, factor float64) Option {
	return func(r *Retrier) {
		r.minInterval = min
		r.maxInterval = max
		r.factor = factor
	}
}

// New creates a Retrier with default values and optional overrides.
func New(opts ...Option) *Retrier {
	r := &Retrier{
		minInterval: defaultMinInterval,
		maxInterval: defaultMaxInterval,
		factor:      defaultFactor,
		jitter:      true,
		maxRetries:  defaultMaxRetries,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Do executes fn until it returns nil or attempts are exhausted. The last
// error is returned. Context cancellation interrupts the waiting.
func (r *Retrier) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	delays := &backoff.Backoff{
		Min:    r.minInterval,
		Max:    r.maxInterval,
		Factor: r.factor,
		Jitter: r.jitter,
	}

	var err error
	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delays.Duration()):
			}
		}

		err = fn(ctx)
		if err == nil {
			return nil
		}
	}

	return err
}

// DoWithData executes fn with retries and returns its value.
func DoWithData[T any](r *Retrier, ctx context.Context, fn func(ctx context.Context) (T, error)) (T, error) {
	var result T
	err := r.Do(ctx, func(ctx context.Context) error {
		var e error
		result, e = fn(ctx)
		return e
	})
	return result, err
}
