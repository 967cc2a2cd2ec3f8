package schedule

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func noSleep(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
}

func TestPollUntilEarlyExit(t *testing.T) {
	results := []bool{false, false, true}
	calls := 0
	var attempts []int
	p := NewPoller().WithSleep(noSleep)

	ok := p.PollUntil(context.Background(), 5, func(context.Context) bool {
		r := results[calls]
		calls++
		return r
	}, func(_ bool, attempt int) {
		attempts = append(attempts, attempt)
	})

	assert.True(t, ok)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []int{0, 1, 2}, attempts)
}

func TestPollUntilExhausted(t *testing.T) {
	calls := 0
	var slept time.Duration
	p := NewPoller().WithSleep(func(_ context.Context, d time.Duration) error {
		slept += d
		return nil
	})
	ok := p.PollUntil(context.Background(), 4, func(context.Context) bool {
		calls++
		return false
	}, nil)
	assert.False(t, ok)
	assert.Equal(t, 4, calls)
	assert.Equal(t, 4*time.Second, slept)
}

func TestPollUntilNoAttempts(t *testing.T) {
	for _, n := range []int{0, -1} {
		calls := 0
		ok := NewPoller().WithSleep(noSleep).PollUntil(context.Background(), n, func(context.Context) bool {
			calls++
			return true
		}, nil)
		assert.False(t, ok)
		assert.Zero(t, calls)
	}
}

func TestPollUntilCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	ok := NewPoller().WithSleep(noSleep).PollUntil(ctx, 10, func(context.Context) bool {
		calls++
		cancel()
		return false
	}, nil)
	assert.False(t, ok)
	assert.Equal(t, 1, calls)
}
