package tools

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiter_MinGap(t *testing.T) {
	current := time.Unix(1000, 0)
	limiter := NewRateLimiter(50, 24*time.Hour, 2*time.Second)
	limiter.now = func() time.Time { return current }

	allowed, _ := limiter.Allow()
	assert.True(t, allowed)

	// Immediately again: blocked by the gap.
	allowed, retryAfter := limiter.Allow()
	assert.False(t, allowed)
	assert.Equal(t, 2*time.Second, retryAfter)

	current = current.Add(2 * time.Second)
	allowed, _ = limiter.Allow()
	assert.True(t, allowed)
}

func TestRateLimiter_WindowBudget(t *testing.T) {
	current := time.Unix(1000, 0)
	limiter := NewRateLimiter(3, time.Hour, 0)
	limiter.now = func() time.Time { return current }

	for i := 0; i < 3; i++ {
		allowed, _ := limiter.Allow()
		assert.True(t, allowed, "request %d", i)
		current = current.Add(time.Second)
	}

	allowed, retryAfter := limiter.Allow()
	assert.False(t, allowed)
	assert.Greater(t, retryAfter, time.Duration(0))

	// Window rolls over and the budget resets.
	current = current.Add(time.Hour)
	allowed, _ = limiter.Allow()
	assert.True(t, allowed)
}
