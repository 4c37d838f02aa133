// Package retry wraps operations with bounded exponential-backoff retry.
// Every network call in the service (upstream fetch, store write) goes
// through Do so the failure policy stays uniform.
package retry

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	defaultMaxAttempts   = 3
	defaultInitialDelay  = 1 * time.Second
	defaultBackoffFactor = 1.5
)

// Options controls the retry policy.
type Options struct {
	MaxAttempts   int
	InitialDelay  time.Duration
	BackoffFactor float64
}

// Option mutates Options.
type Option func(*Options)

// WithMaxAttempts sets the total number of attempts, including the first.
func WithMaxAttempts(n int) Option {
	return func(o *Options) { o.MaxAttempts = n }
}

// WithInitialDelay sets the delay before the first retry.
func WithInitialDelay(d time.Duration) Option {
	return func(o *Options) { o.InitialDelay = d }
}

// WithBackoffFactor sets the multiplier applied to the delay after each
// failed attempt.
func WithBackoffFactor(f float64) Option {
	return func(o *Options) { o.BackoffFactor = f }
}

// Do invokes op until it succeeds or MaxAttempts is reached, sleeping an
// exponentially growing delay between attempts. The error from the final
// attempt is returned unchanged so the original cause stays visible.
//
// Retries are unconditional on error type: permanent errors (a malformed
// request, say) burn through the full attempt budget like transient ones do.
func Do[T any](ctx context.Context, op func(ctx context.Context) (T, error), opts ...Option) (T, error) {
	o := Options{
		MaxAttempts:   defaultMaxAttempts,
		InitialDelay:  defaultInitialDelay,
		BackoffFactor: defaultBackoffFactor,
	}
	for _, fn := range opts {
		fn(&o)
	}
	if o.MaxAttempts < 1 {
		o.MaxAttempts = 1
	}

	delay := o.InitialDelay

	var lastErr error
	for attempt := 1; attempt <= o.MaxAttempts; attempt++ {
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if attempt == o.MaxAttempts {
			break
		}

		log.Warn().
			Err(err).
			Int("attempt", attempt).
			Int("max_attempts", o.MaxAttempts).
			Dur("backoff", delay).
			Msg("Operation failed, retrying after backoff")

		select {
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		case <-time.After(delay):
		}

		delay = time.Duration(float64(delay) * o.BackoffFactor)
	}

	var zero T
	return zero, lastErr
}
