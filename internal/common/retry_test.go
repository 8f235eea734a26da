package common

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fastPolicy = RetryPolicy{MaxAttempts: 3, InitialInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond}

func TestRetry_TransientThenSuccess(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), fastPolicy, func() error {
		calls++
		if calls < 3 {
			return &TransientError{Err: errors.New("502")}
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetry_GivesUpAfterMaxAttempts(t *testing.T) {
	calls := 0
	sentinel := errors.New("503")
	err := Retry(context.Background(), fastPolicy, func() error {
		calls++
		return &TransientError{Err: sentinel}
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, sentinel)
	assert.Equal(t, 3, calls)
}

func TestRetry_PermanentErrorNotRetried(t *testing.T) {
	calls := 0
	sentinel := errors.New("400")
	err := Retry(context.Background(), fastPolicy, func() error {
		calls++
		return sentinel
	})
	assert.Equal(t, sentinel, err)
	assert.Equal(t, 1, calls)
}

func TestRetry_NoRetryRunsOnce(t *testing.T) {
	calls := 0
	_ = Retry(context.Background(), NoRetry, func() error {
		calls++
		return &TransientError{Err: errors.New("500")}
	})
	assert.Equal(t, 1, calls)
}

func TestIsTransientStatus(t *testing.T) {
	assert.True(t, IsTransientStatus(429))
	assert.True(t, IsTransientStatus(500))
	assert.True(t, IsTransientStatus(503))
	assert.False(t, IsTransientStatus(404))
	assert.False(t, IsTransientStatus(401))
}

func TestSafeRun_RecoversPanic(t *testing.T) {
	err := SafeRun(nil, "boom", func() error {
		panic("kaboom")
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kaboom")

	assert.NoError(t, SafeRun(nil, "ok", func() error { return nil }))
}
