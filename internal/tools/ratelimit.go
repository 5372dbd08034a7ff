package tools

import (
	"sync"
	"time"
)

// RateLimiter enforces a request budget per rolling window plus a minimum
// gap between consecutive requests. Safe for concurrent use. State is in
// memory and resets on restart.
type RateLimiter struct {
	mu          sync.Mutex
	maxRequests int
	window      time.Duration
	minGap      time.Duration

	count       int
	windowStart time.Time
	lastRequest time.Time
	now         func() time.Time
}

func NewRateLimiter(maxRequests int, window, minGap time.Duration) *RateLimiter {
	return &RateLimiter{
		maxRequests: maxRequests,
		window:      window,
		minGap:      minGap,
		now:         time.Now,
	}
}

// Allow reports whether a request may proceed now. When denied, retryAfter
// says how long to wait. A granted request is recorded immediately.
func (l *RateLimiter) Allow() (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.windowStart) > l.window {
		l.count = 0
		l.windowStart = now
	}

	if l.count >= l.maxRequests {
		return false, l.windowStart.Add(l.window).Sub(now)
	}

	if gap := now.Sub(l.lastRequest); gap < l.minGap {
		return false, l.minGap - gap
	}

	l.count++
	l.lastRequest = now
	return true, 0
}
