package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlidingWindowAllowsUpToLimit(t *testing.T) {
	l := NewSlidingWindow(3, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, l.Wait(ctx, "email"))
	}
	assert.Equal(t, 3, l.Pending("email"))
}

func TestSlidingWindowKeysAreIndependent(t *testing.T) {
	l := NewSlidingWindow(1, time.Minute)
	ctx := context.Background()

	require.NoError(t, l.Wait(ctx, "email"))
	require.NoError(t, l.Wait(ctx, "api"))
	assert.Equal(t, 1, l.Pending("email"))
	assert.Equal(t, 1, l.Pending("api"))
}

func TestSlidingWindowBlocksOverLimit(t *testing.T) {
	l := NewSlidingWindow(1, time.Minute)
	require.NoError(t, l.Wait(context.Background(), "email"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := l.Wait(ctx, "email")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSlidingWindowFreesCapacityAsWindowSlides(t *testing.T) {
	l := NewSlidingWindow(2, time.Minute)
	current := time.Now()
	l.now = func() time.Time { return current }

	ctx := context.Background()
	require.NoError(t, l.Wait(ctx, "email"))
	require.NoError(t, l.Wait(ctx, "email"))
	assert.Positive(t, l.tryClaim("email"))

	current = current.Add(time.Minute + time.Second)
	assert.Zero(t, l.tryClaim("email"))
	assert.Equal(t, 1, l.Pending("email"))
}

func TestSlidingWindowUnblocksWhenCapacityFrees(t *testing.T) {
	l := NewSlidingWindow(1, 30*time.Millisecond)
	require.NoError(t, l.Wait(context.Background(), "email"))

	done := make(chan error, 1)
	go func() { done <- l.Wait(context.Background(), "email") }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("waiter never unblocked")
	}
}
