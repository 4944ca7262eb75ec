package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func TestMemoryResetTokensAreSingleUse(t *testing.T) {
	ctx := context.Background()
	tokens := NewMemoryEphemeral().ResetTokens()

	require.NoError(t, tokens.Save(ctx, "digest", "account-1", time.Minute))

	id, err := tokens.Consume(ctx, "digest")
	require.NoError(t, err)
	assert.Equal(t, "account-1", id)

	_, err = tokens.Consume(ctx, "digest")
	assert.ErrorIs(t, err, ErrResetTokenNotFound)
}

func TestMemoryResetTokensExpire(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	tokens := NewMemoryEphemeral().WithClock(clock.Now).ResetTokens()

	require.NoError(t, tokens.Save(ctx, "digest", "account-1", 30*time.Minute))
	clock.now = clock.now.Add(31 * time.Minute)

	_, err := tokens.Consume(ctx, "digest")
	assert.ErrorIs(t, err, ErrResetTokenNotFound)
}

func TestMemoryLoginAttemptsWindow(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	attempts := NewMemoryEphemeral().WithClock(clock.Now).LoginAttempts()

	for i := 1; i <= 3; i++ {
		n, err := attempts.RecordFailure(ctx, "ana@angocine.test", 15*time.Minute)
		require.NoError(t, err)
		assert.Equal(t, i, n)
		clock.now = clock.now.Add(time.Minute)
	}

	n, err := attempts.Failures(ctx, "ana@angocine.test")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	// the window is anchored at the first failure, not extended by later ones
	clock.now = clock.now.Add(13 * time.Minute)
	n, err = attempts.Failures(ctx, "ana@angocine.test")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestMemoryLoginAttemptsReset(t *testing.T) {
	ctx := context.Background()
	attempts := NewMemoryEphemeral().LoginAttempts()

	_, err := attempts.RecordFailure(ctx, "k", time.Minute)
	require.NoError(t, err)
	require.NoError(t, attempts.Reset(ctx, "k"))

	n, err := attempts.Failures(ctx, "k")
	require.NoError(t, err)
	assert.Zero(t, n)
}
