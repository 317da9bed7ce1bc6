// Package retry provides the bounded retry executor used around MongoDB
// driver calls by the indexer and retriever components.
//
// # Overview
//
// An operation is invoked once. If it fails and attempts remain, the executor
// waits an exponentially growing, randomly jittered delay and invokes it
// again. Once the attempts are exhausted the error of the final attempt is
// returned exactly as the operation produced it.
//
// The executor does not classify errors: every failure is retried the same
// way, including failures that will never succeed (a malformed pipeline, a
// missing index). Such calls consume the full retry budget before the error
// surfaces.
//
// # Delay Schedule
//
// For retry n (0-based, counted after the first failure):
//
//	delay(n) = BaseDelay * 2^n * U(1 - JitterFactor, 1 + JitterFactor)
//
// With JitterFactor = 0 the schedule is deterministic: 1s, 2s, 4s, ... for the
// default base delay.
//
// # Usage
//
//	policy := retry.DefaultPolicy().WithRetryAttempts(3)
//
//	res, err := retry.DoValue(ctx, policy, func(ctx context.Context) (*mongo.InsertManyResult, error) {
//	    return coll.InsertMany(ctx, batch)
//	})
//
// Cancelling ctx stops the sequence at the next suspension point: either while
// waiting for the next attempt or as soon as the in-flight attempt returns.
//
// The delay arithmetic and the cancellable wait are delegated to
// github.com/cenkalti/backoff/v4.
package retry
