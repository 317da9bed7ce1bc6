package retry

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// maxInterval keeps the doubled interval far from int64 overflow once
// jitter is applied on top of it.
const maxInterval = time.Duration(math.MaxInt64 / 4)

// Operation is a unit of work the executor may invoke more than once.
// Idempotency is the caller's responsibility.
type Operation func(ctx context.Context) error

// Notify is called after a failed attempt when another attempt will follow.
// attempt is the 0-based retry index and delay the wait before it.
type Notify func(err error, attempt int, delay time.Duration)

// Option customizes a single executor call.
type Option func(*options)

type options struct {
	notify Notify
	timer  backoff.Timer
}

// WithNotify registers a hook observing every retry decision. It is meant for
// logging and metrics and cannot alter the outcome.
func WithNotify(fn Notify) Option {
	return func(o *options) {
		o.notify = fn
	}
}

// attemptFailure carries an operation error through the backoff loop. It has
// no Unwrap method, so errors the operation returns are never mistaken for
// backoff.PermanentError and are retried like any other failure.
type attemptFailure struct {
	err error
}

func (f *attemptFailure) Error() string { return f.err.Error() }

func unwrapAttempt(err error) error {
	var f *attemptFailure
	if errors.As(err, &f) {
		return f.err
	}
	return err
}

// Do runs op under the given policy.
//
// It returns nil as soon as an attempt succeeds. After 1+RetryAttempts
// failures it returns the error of the last attempt, unmodified. If ctx is
// cancelled while waiting, or before a failed attempt would be retried, it
// returns ctx.Err().
func Do(ctx context.Context, policy Policy, op Operation, opts ...Option) error {
	_, err := DoValue(ctx, policy, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	}, opts...)
	return err
}

// DoValue is Do for operations that produce a result.
func DoValue[T any](ctx context.Context, policy Policy, op func(ctx context.Context) (T, error), opts ...Option) (T, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	var (
		result  T
		attempt int
	)

	operation := func() error {
		res, err := op(ctx)
		if err != nil {
			return &attemptFailure{err: err}
		}
		result = res
		return nil
	}

	notify := func(err error, next time.Duration) {
		if o.notify != nil {
			o.notify(unwrapAttempt(err), attempt, next)
		}
		attempt++
	}

	if err := backoff.RetryNotifyWithTimer(operation, policy.Normalize().backOff(ctx), notify, o.timer); err != nil {
		var zero T
		return zero, unwrapAttempt(err)
	}
	return result, nil
}

// backOff builds the delay schedule for one call: doubling from BaseDelay,
// randomized by JitterFactor, stopped after RetryAttempts retries or when ctx
// is done.
func (p Policy) backOff(ctx context.Context) backoff.BackOff {
	exp := &backoff.ExponentialBackOff{
		InitialInterval:     p.BaseDelay,
		RandomizationFactor: p.JitterFactor,
		Multiplier:          2,
		MaxInterval:         maxInterval,
		MaxElapsedTime:      0,
		Stop:                backoff.Stop,
		Clock:               backoff.SystemClock,
	}
	exp.Reset()

	return backoff.WithContext(backoff.WithMaxRetries(exp, uint64(p.RetryAttempts)), ctx)
}
