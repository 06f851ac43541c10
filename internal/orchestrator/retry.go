package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrRetriesExhausted is returned once every attempt of a resilient
// operation has failed with a transient error.
var ErrRetriesExhausted = errors.New("retries exhausted")

// Runner retries a fallible operation with linear backoff. Only transient
// failures are retried; any other error propagates immediately. Every
// persistence side effect performed by a tool goes through one of these,
// so the retry policy is a single tunable.
type Runner struct {
	maxAttempts int
	backoff     time.Duration
	logger      *logrus.Entry
}

// NewRunner creates a retry runner. Zero or negative values fall back to
// 3 attempts and a 500ms backoff base.
func NewRunner(maxAttempts int, backoff time.Duration) *Runner {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	if backoff <= 0 {
		backoff = 500 * time.Millisecond
	}
	return &Runner{
		maxAttempts: maxAttempts,
		backoff:     backoff,
		logger:      logrus.WithField("component", "retry"),
	}
}

// Execute runs op, retrying transient failures with a backoff of
// backoff * attempt_number between attempts. After maxAttempts consecutive
// transient failures it returns an error wrapping ErrRetriesExhausted.
func (r *Runner) Execute(ctx context.Context, name string, op func(ctx context.Context) error) error {
	var lastErr error

	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}

		if !IsTransient(lastErr) {
			return lastErr
		}

		r.logger.WithFields(logrus.Fields{
			"operation": name,
			"attempt":   attempt,
			"error":     lastErr.Error(),
		}).Warn("Transient failure, will retry")

		if attempt == r.maxAttempts {
			break
		}

		select {
		case <-time.After(r.backoff * time.Duration(attempt)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w (last error: %v)", name, r.maxAttempts, ErrRetriesExhausted, lastErr)
}
