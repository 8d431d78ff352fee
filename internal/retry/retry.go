// Package retry runs operations under a bounded retry policy with
// exponential backoff.
package retry

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"

	"github.com/s3tool/s3tool/errors"
)

// Defaults for the retry policy.
const (
	// DefaultMaxAttempts is the total number of invocations allowed per
	// operation, first attempt included.
	DefaultMaxAttempts = 10

	// MaxAttemptsLimit is the upper bound a caller may configure.
	MaxAttemptsLimit = 50

	// DefaultInitialDelay is the backoff before the first retry.
	DefaultInitialDelay = 500 * time.Millisecond

	// DefaultMaxDelay caps the backoff between retries.
	DefaultMaxDelay = 30 * time.Second
)

// Executor runs functions with retries. The zero value uses the defaults
// above and does not retry client errors.
type Executor struct {
	// MaxAttempts is the total invocation budget per operation. An
	// operation that fails MaxAttempts times surfaces its last error.
	MaxAttempts int

	// RetryClientErrors retries 4xx service errors too. By default a
	// client error fails the operation immediately, since a request the
	// service has rejected as malformed rarely succeeds on replay.
	RetryClientErrors bool

	// InitialDelay overrides the first backoff interval when positive.
	InitialDelay time.Duration

	// MaxDelay overrides the backoff cap when positive.
	MaxDelay time.Duration

	// Log receives a warning per retry. Nil disables retry logging.
	Log *logrus.Logger
}

// Do invokes fn until it succeeds, the attempt budget runs out, or a
// non-retryable error occurs. desc names the operation in log lines and in
// the surfaced error ("uploading part 3 of s3://bucket/key: ...").
func (e *Executor) Do(ctx context.Context, desc string, fn func(context.Context) error) error {
	maxAttempts := e.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if maxAttempts > MaxAttemptsLimit {
		maxAttempts = MaxAttemptsLimit
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = DefaultInitialDelay
	if e.InitialDelay > 0 {
		bo.InitialInterval = e.InitialDelay
	}
	bo.MaxInterval = DefaultMaxDelay
	if e.MaxDelay > 0 {
		bo.MaxInterval = e.MaxDelay
	}
	bo.MaxElapsedTime = 0
	bo.Reset()

	var err error
	for attempt := 1; ; attempt++ {
		if ctx.Err() != nil {
			return fmt.Errorf("%s: %w", desc, ctx.Err())
		}

		err = fn(ctx)
		if err == nil {
			return nil
		}

		if !errors.IsRetryable(err) {
			break
		}
		if errors.IsClientError(err) && !e.RetryClientErrors {
			break
		}
		if attempt >= maxAttempts {
			break
		}

		delay := bo.NextBackOff()
		if e.Log != nil {
			e.Log.WithFields(logrus.Fields{
				"attempt": attempt,
				"max":     maxAttempts,
				"delay":   delay,
			}).WithError(err).Warnf("retrying %s", desc)
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return fmt.Errorf("%s: %w", desc, ctx.Err())
		}
	}

	return fmt.Errorf("%s: %w", desc, err)
}
