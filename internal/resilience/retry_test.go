package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wahlkarte/wahlkarte/internal/config"
)

func fastRetry(attempts int) RetryConfig {
	return RetryConfig{MaxAttempts: attempts, Pause: time.Millisecond}
}

func TestDo_FirstAttempt(t *testing.T) {
	t.Parallel()

	calls := 0
	err := Do(context.Background(), fastRetry(3), func(context.Context) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_RetriesTransient(t *testing.T) {
	t.Parallel()

	calls := 0
	err := Do(context.Background(), fastRetry(3), func(context.Context) error {
		calls++
		if calls < 3 {
			return NewTransientError(errors.New("busy"), 503)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_Exhausted(t *testing.T) {
	t.Parallel()

	calls := 0
	err := Do(context.Background(), fastRetry(3), func(context.Context) error {
		calls++
		return NewTransientError(errors.New("busy"), 429)
	})
	require.Error(t, err)
	assert.True(t, IsTransient(err))
	assert.Equal(t, 3, calls)
}

func TestDo_PermanentNotRetried(t *testing.T) {
	t.Parallel()

	calls := 0
	err := Do(context.Background(), fastRetry(3), func(context.Context) error {
		calls++
		return errors.New("bad request")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_ContextCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Do(ctx, RetryConfig{MaxAttempts: 5, Pause: time.Second}, func(context.Context) error {
		calls++
		cancel()
		return NewTransientError(errors.New("busy"), 503)
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_OnRetryAndShouldRetry(t *testing.T) {
	t.Parallel()

	var attempts []int
	cfg := fastRetry(3)
	cfg.ShouldRetry = func(err error) bool { return err.Error() == "again" }
	cfg.OnRetry = func(attempt int, _ error) { attempts = append(attempts, attempt) }

	err := Do(context.Background(), cfg, func(context.Context) error { return errors.New("again") })
	require.Error(t, err)
	assert.Equal(t, []int{1, 2}, attempts)
}

func TestDoVal(t *testing.T) {
	t.Parallel()

	calls := 0
	v, err := DoVal(context.Background(), fastRetry(3), func(context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "", NewTransientError(errors.New("busy"), 500)
		}
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", v)

	n, err := DoVal(context.Background(), fastRetry(2), func(context.Context) (int, error) {
		return 42, NewTransientError(errors.New("busy"), 500)
	})
	require.Error(t, err)
	assert.Zero(t, n)
}

func TestPauseFor(t *testing.T) {
	t.Parallel()

	fixed := withDefaults(RetryConfig{Pause: 5 * time.Second})
	assert.Equal(t, 5*time.Second, pauseFor(0, fixed))
	assert.Equal(t, 5*time.Second, pauseFor(4, fixed))

	growing := withDefaults(RetryConfig{Pause: time.Second, Multiplier: 2, MaxPause: 3 * time.Second})
	assert.Equal(t, time.Second, pauseFor(0, growing))
	assert.Equal(t, 2*time.Second, pauseFor(1, growing))
	assert.Equal(t, 3*time.Second, pauseFor(5, growing))
}

func TestFromGeocodeConfig(t *testing.T) {
	t.Parallel()

	retry, breaker := FromGeocodeConfig(config.GeocodeConfig{
		Retries:          4,
		RetryPauseMs:     250,
		BreakerFailures:  2,
		BreakerResetSecs: 10,
	})
	assert.Equal(t, 4, retry.MaxAttempts)
	assert.Equal(t, 250*time.Millisecond, retry.Pause)
	assert.Equal(t, 2, breaker.FailureThreshold)
	assert.Equal(t, 10*time.Second, breaker.ResetTimeout)

	retry, breaker = FromGeocodeConfig(config.GeocodeConfig{RetryPauseMs: -1})
	assert.Equal(t, 3, retry.MaxAttempts)
	assert.Equal(t, 5*time.Second, retry.Pause)
	assert.Equal(t, 5, breaker.FailureThreshold)
}
