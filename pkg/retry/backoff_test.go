package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func fastConfig() Config {
	return Config{MaxRetries: 3, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, Multiplier: 2}
}

func TestWithBackoffSucceedsAfterRetries(t *testing.T) {
	attempts := 0
	err := WithBackoff(context.Background(), fastConfig(), zaptest.NewLogger(t), "flaky", func() error {
		attempts++
		if attempts < 3 {
			return errors.New("boom")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestWithBackoffGivesUp(t *testing.T) {
	attempts := 0
	err := WithBackoff(context.Background(), fastConfig(), zaptest.NewLogger(t), "broken", func() error {
		attempts++
		return errors.New("boom")
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken failed after 3 attempts")
	assert.Equal(t, 3, attempts)
}

func TestWithBackoffStopsOnPermanent(t *testing.T) {
	sentinel := errors.New("bad request")
	attempts := 0
	err := WithBackoff(context.Background(), fastConfig(), zaptest.NewLogger(t), "send", func() error {
		attempts++
		return Permanent(sentinel)
	})
	require.ErrorIs(t, err, sentinel)
	assert.False(t, IsPermanent(err))
	assert.Equal(t, 1, attempts)
}

func TestWithBackoffHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := WithBackoff(ctx, fastConfig(), zaptest.NewLogger(t), "cancelled", func() error { return nil })
	require.ErrorIs(t, err, context.Canceled)
}

func TestCalculateBackoffCaps(t *testing.T) {
	cfg := Config{InitialDelay: time.Second, MaxDelay: 3 * time.Second, Multiplier: 2}
	assert.Equal(t, time.Second, calculateBackoff(cfg, 1))
	assert.Equal(t, 2*time.Second, calculateBackoff(cfg, 2))
	assert.Equal(t, 3*time.Second, calculateBackoff(cfg, 5))
}
