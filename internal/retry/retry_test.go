package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithRetrySucceedsAfterFailures(t *testing.T) {
	attempts := 0
	err := WithRetry(context.Background(), Config{MaxAttempts: 3, Delay: time.Millisecond}, func() error {
		attempts++
		if attempts < 3 {
			return errors.New("transient")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestWithRetryGivesUp(t *testing.T) {
	attempts := 0
	err := WithRetry(context.Background(), Config{MaxAttempts: 2, Delay: time.Millisecond}, func() error {
		attempts++
		return errors.New("persistent")
	})

	require.Error(t, err)
	assert.Equal(t, 2, attempts)
	assert.Contains(t, err.Error(), "after 2 attempts")
}

func TestWithRetryHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := WithRetry(ctx, Config{MaxAttempts: 3, Delay: time.Hour}, func() error {
		return errors.New("failing")
	})
	assert.ErrorIs(t, err, context.Canceled)
}
