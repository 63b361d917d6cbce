package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDelayForDoublesAndCaps(t *testing.T) {
	policy := RetryPolicy{
		MaxAttempts: 5,
		BaseDelay:   4 * time.Second,
		MaxDelay:    10 * time.Second,
	}

	assert.Equal(t, time.Duration(0), policy.delayFor(1))
	assert.Equal(t, 4*time.Second, policy.delayFor(2))
	assert.Equal(t, 8*time.Second, policy.delayFor(3))
	assert.Equal(t, 10*time.Second, policy.delayFor(4))
	assert.Equal(t, 10*time.Second, policy.delayFor(5))
}

func TestDoSucceedsFirstAttempt(t *testing.T) {
	policy := DefaultRetryPolicy()

	calls := 0
	err := policy.Do(context.Background(), func() error {
		calls++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoRetriesUntilSuccess(t *testing.T) {
	policy := RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   time.Millisecond,
		MaxDelay:    2 * time.Millisecond,
	}

	calls := 0
	err := policy.Do(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("temporary failure")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDoReturnsLastErrorAfterExhaustion(t *testing.T) {
	policy := RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   time.Millisecond,
		MaxDelay:    2 * time.Millisecond,
	}

	lastErr := errors.New("still down")
	calls := 0
	err := policy.Do(context.Background(), func() error {
		calls++
		return lastErr
	})

	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.ErrorIs(t, err, lastErr)
}

func TestDoStopsOnContextCancel(t *testing.T) {
	policy := RetryPolicy{
		MaxAttempts: 10,
		BaseDelay:   time.Hour,
		MaxDelay:    time.Hour,
	}

	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	done := make(chan error, 1)
	go func() {
		done <- policy.Do(ctx, func() error {
			calls++
			return errors.New("fail")
		})
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.Error(t, err)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, calls)
	case <-time.After(time.Second):
		t.Fatal("Do не завершился после отмены контекста")
	}
}
