package feed

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cointrack/pkg/market"
)

func recordingSleeper(delays *[]time.Duration) Sleeper {
	return func(ctx context.Context, d time.Duration) error {
		*delays = append(*delays, d)
		return ctx.Err()
	}
}

func TestBackoffRateLimitDoublesDelay(t *testing.T) {
	var delays []time.Duration
	b := NewBackoff(BackoffConfig{}, WithSleeper(recordingSleeper(&delays)))

	attempts := 0
	err := b.Do(context.Background(), 3, func(context.Context) error {
		attempts++
		return &market.StatusError{Provider: "test", StatusCode: http.StatusTooManyRequests}
	})

	require.Error(t, err)
	assert.Equal(t, 4, attempts)
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second, 8 * time.Second}, delays)
	assert.ErrorIs(t, err, ErrRateLimitExceeded)

	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, 3, fetchErr.Page)
	var statusErr *market.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.True(t, statusErr.RateLimited())
}

func TestBackoffRecoversAfterRateLimit(t *testing.T) {
	var delays []time.Duration
	b := NewBackoff(BackoffConfig{}, WithSleeper(recordingSleeper(&delays)))

	attempts := 0
	err := b.Do(context.Background(), 1, func(context.Context) error {
		attempts++
		if attempts == 1 {
			return &market.StatusError{StatusCode: http.StatusTooManyRequests}
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
	assert.Equal(t, []time.Duration{2 * time.Second}, delays)
}

func TestBackoffPermanentErrorsAreNotRetried(t *testing.T) {
	cases := map[string]error{
		"server error": &market.StatusError{StatusCode: http.StatusBadGateway},
		"not found":    &market.StatusError{StatusCode: http.StatusNotFound},
		"bad body":     &market.DecodeError{Provider: "test", Err: errors.New("unexpected EOF")},
	}
	for name, cause := range cases {
		t.Run(name, func(t *testing.T) {
			var delays []time.Duration
			b := NewBackoff(BackoffConfig{}, WithSleeper(recordingSleeper(&delays)))
			attempts := 0
			err := b.Do(context.Background(), 1, func(context.Context) error {
				attempts++
				return cause
			})
			assert.Equal(t, 1, attempts)
			assert.Empty(t, delays)
			assert.ErrorIs(t, err, ErrPermanentFetch)
			assert.ErrorIs(t, err, cause)
		})
	}
}

func TestBackoffTransientNetworkUsesSameBudget(t *testing.T) {
	var delays []time.Duration
	b := NewBackoff(BackoffConfig{MaxRetries: 2, BaseDelay: 10 * time.Millisecond}, WithSleeper(recordingSleeper(&delays)))
	dial := errors.New("dial tcp: connection refused")

	attempts := 0
	err := b.Do(context.Background(), 1, func(context.Context) error {
		attempts++
		return dial
	})
	assert.Equal(t, 3, attempts)
	assert.Equal(t, []time.Duration{10 * time.Millisecond, 20 * time.Millisecond}, delays)
	assert.ErrorIs(t, err, ErrTransientNetwork)
	assert.ErrorIs(t, err, dial)
}

func TestBackoffNegativeRetriesDisablesRetry(t *testing.T) {
	b := NewBackoff(BackoffConfig{MaxRetries: -1}, WithSleeper(noSleep))
	attempts := 0
	err := b.Do(context.Background(), 1, func(context.Context) error {
		attempts++
		return &market.StatusError{StatusCode: http.StatusTooManyRequests}
	})
	assert.Equal(t, 1, attempts)
	assert.ErrorIs(t, err, ErrRateLimitExceeded)
}

func TestBackoffStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	b := NewBackoff(BackoffConfig{}, WithSleeper(noSleep))
	attempts := 0
	err := b.Do(ctx, 1, func(context.Context) error {
		attempts++
		cancel()
		return errors.New("read: connection reset")
	})
	assert.Equal(t, 1, attempts)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBackoffDelay(t *testing.T) {
	b := NewBackoff(BackoffConfig{})
	assert.Equal(t, 2*time.Second, b.Delay(0))
	assert.Equal(t, 4*time.Second, b.Delay(1))
	assert.Equal(t, 8*time.Second, b.Delay(2))
}

func TestSleepContext(t *testing.T) {
	require.NoError(t, SleepContext(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, SleepContext(ctx, time.Hour), context.Canceled)
}
