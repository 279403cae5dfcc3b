package signal

import (
	"sync"
	"time"
)

// NextRateLimiter is a sliding window limiter for request-next-user, keyed by
// user id (or session id before join).
type NextRateLimiter struct {
	mu        sync.Mutex
	history   map[string][]time.Time
	limit     int
	interval  time.Duration
	now       func() time.Time
	lastPrune time.Time
}

func NewNextRateLimiter(limit int, interval time.Duration) *NextRateLimiter {
	return &NextRateLimiter{
		history:  make(map[string][]time.Time),
		limit:    limit,
		interval: interval,
		now:      time.Now,
	}
}

func (rl *NextRateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	windowStart := now.Add(-rl.interval)

	attempts := rl.history[key]
	fresh := attempts[:0]
	for _, t := range attempts {
		if t.After(windowStart) {
			fresh = append(fresh, t)
		}
	}

	if len(fresh) >= rl.limit {
		rl.history[key] = fresh
		return false
	}
	rl.history[key] = append(fresh, now)
	if now.Sub(rl.lastPrune) >= rl.interval {
		rl.prune(windowStart)
		rl.lastPrune = now
	}
	return true
}

// prune drops keys whose whole history fell out of the window. It runs at
// most once per interval.
func (rl *NextRateLimiter) prune(windowStart time.Time) {
	for k, ts := range rl.history {
		if len(ts) == 0 || !ts[len(ts)-1].After(windowStart) {
			delete(rl.history, k)
		}
	}
}
