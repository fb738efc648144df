package common

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoSucceedsFirstTry(t *testing.T) {
	calls := 0
	err := Do(context.Background(), func() error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoRetriesUntilSuccess(t *testing.T) {
	calls := 0
	err := Do(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("flaky")
		}
		return nil
	}, WithMaxRetries(5), WithInitialDelay(time.Millisecond))
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDoExhaustsRetries(t *testing.T) {
	calls := 0
	cause := errors.New("always down")
	err := Do(context.Background(), func() error {
		calls++
		return cause
	}, WithMaxRetries(2), WithInitialDelay(time.Millisecond))

	require.Error(t, err)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, 3, calls)
}

func TestDoRetryIfStopsPermanentErrors(t *testing.T) {
	calls := 0
	permanent := errors.New("permanent")
	err := Do(context.Background(), func() error {
		calls++
		return permanent
	},
		WithMaxRetries(5),
		WithInitialDelay(time.Millisecond),
		WithRetryIf(func(err error) bool { return !errors.Is(err, permanent) }),
	)

	assert.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, calls)
}

func TestDoRespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := Do(ctx, func() error {
		calls++
		return errors.New("flaky")
	}, WithMaxRetries(10), WithInitialDelay(time.Hour))

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestDoNilFunc(t *testing.T) {
	assert.Error(t, Do(context.Background(), nil))
}

func TestBackoffDelay(t *testing.T) {
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{10, 30 * time.Second},
	}
	for _, tt := range tests {
		got := backoffDelay(tt.attempt, time.Second, 30*time.Second, 2.0)
		assert.Equal(t, tt.want, got, "attempt %d", tt.attempt)
	}
}

func TestAppErrorFormatting(t *testing.T) {
	cause := errors.New("boom")
	err := WrapError(ErrCodeGitHubAPI, "search failed", cause)

	assert.Equal(t, "[GITHUB_API_ERROR] search failed: boom", err.Error())
	assert.ErrorIs(t, err, cause)

	var appErr *AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, ErrCodeGitHubAPI, appErr.Code)

	bare := NewError(ErrCodeSchema, "report violates schema")
	assert.Equal(t, "[SCHEMA_VALIDATION_ERROR] report violates schema", bare.Error())
}
