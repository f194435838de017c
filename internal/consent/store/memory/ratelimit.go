package memory

import (
	"context"
	"sync"
	"time"

	"guardian/internal/consent/models"
)

// WindowLimiter is a sliding-window limiter keyed by arbitrary strings.
// Not distributed; use the redis limiter when running several instances.
type WindowLimiter struct {
	mu      sync.Mutex
	windows map[string][]time.Time
}

func NewWindowLimiter() *WindowLimiter {
	return &WindowLimiter{windows: make(map[string][]time.Time)}
}

// Allow records an attempt at now if fewer than limit attempts fall inside
// the window ending at now.
func (l *WindowLimiter) Allow(_ context.Context, key string, limit int, window time.Duration, now time.Time) (models.RateLimitResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	stamps := prune(l.windows[key], now.Add(-window))
	if len(stamps) >= limit {
		l.windows[key] = stamps
		return models.RateLimitResult{
			Allowed: false,
			Limit:   limit,
			ResetAt: stamps[0].Add(window),
		}, nil
	}
	stamps = append(stamps, now)
	l.windows[key] = stamps
	return models.RateLimitResult{
		Allowed:   true,
		Limit:     limit,
		Remaining: limit - len(stamps),
		ResetAt:   stamps[0].Add(window),
	}, nil
}

// prune drops timestamps at or before cutoff.
func prune(stamps []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for ; i < len(stamps); i++ {
		if stamps[i].After(cutoff) {
			break
		}
	}
	return stamps[i:]
}
