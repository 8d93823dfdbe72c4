package guard

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/attaboy/gamesocial/internal/domain"
)

// RateLimiter implements a sliding window rate limiter keyed by caller.
type RateLimiter struct {
	mu      sync.Mutex
	windows map[string][]time.Time
	limit   int
	window  time.Duration
	now     func() time.Time
}

// NewRateLimiter creates a rate limiter allowing limit events per window.
// A limit <= 0 allows everything.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		windows: make(map[string][]time.Time),
		limit:   limit,
		window:  window,
		now:     time.Now,
	}
}

// Check records an event for key and reports whether it is within the limit.
// Rejected events are not recorded.
func (rl *RateLimiter) Check(_ context.Context, key string) domain.GuardResult {
	if rl == nil || rl.limit <= 0 {
		return domain.GuardResult{Allowed: true}
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	cutoff := now.Add(-rl.window)

	entries := rl.windows[key]
	valid := entries[:0]
	for _, t := range entries {
		if t.After(cutoff) {
			valid = append(valid, t)
		}
	}

	if len(valid) >= rl.limit {
		rl.windows[key] = valid
		// The oldest event in the window is the next one to expire.
		return domain.GuardResult{
			Allowed:    false,
			Reason:     fmt.Sprintf("rate limit exceeded: %d/%s", rl.limit, rl.window),
			Guard:      "rate_limiter",
			RetryAfter: valid[0].Add(rl.window).Sub(now),
		}
	}

	rl.windows[key] = append(valid, now)
	return domain.GuardResult{Allowed: true}
}

// Sweep drops keys with no events inside the window. Call it periodically to
// bound memory when keys are short-lived.
func (rl *RateLimiter) Sweep() int {
	if rl == nil {
		return 0
	}
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-rl.window)
	removed := 0
	for key, entries := range rl.windows {
		if len(entries) == 0 || !entries[len(entries)-1].After(cutoff) {
			delete(rl.windows, key)
			removed++
		}
	}
	return removed
}
