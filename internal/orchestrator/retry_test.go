package orchestrator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunnerSucceedsAfterTransientFailures(t *testing.T) {
	runner := NewRunner(3, time.Millisecond)

	attempts := 0
	err := runner.Execute(context.Background(), "flaky op", func(context.Context) error {
		attempts++
		if attempts <= 2 {
			return MarkTransient(errors.New("connection reset"))
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRunnerExhaustsAfterExactlyMaxAttempts(t *testing.T) {
	runner := NewRunner(3, time.Millisecond)

	attempts := 0
	err := runner.Execute(context.Background(), "doomed op", func(context.Context) error {
		attempts++
		return MarkTransient(errors.New("connection refused"))
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRetriesExhausted))
	assert.Equal(t, 3, attempts)
}

func TestRunnerPropagatesNonTransientImmediately(t *testing.T) {
	runner := NewRunner(3, time.Millisecond)

	logicErr := errors.New("constraint violation")
	attempts := 0
	err := runner.Execute(context.Background(), "bad op", func(context.Context) error {
		attempts++
		return logicErr
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, logicErr))
	assert.False(t, errors.Is(err, ErrRetriesExhausted))
	assert.Equal(t, 1, attempts)
}

func TestRunnerStopsOnCancelledContext(t *testing.T) {
	runner := NewRunner(3, 50*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	go func() {
		time.Sleep(5 * time.Millisecond)
		cancel()
	}()

	err := runner.Execute(ctx, "cancelled op", func(context.Context) error {
		attempts++
		return MarkTransient(errors.New("timeout"))
	})

	require.ErrorIs(t, err, context.Canceled)
	assert.Less(t, attempts, 3)
}
