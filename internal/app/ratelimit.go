package app

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/loopcast/studio-signaling/internal/domain"
)

type windowCount struct {
	count       int
	windowStart time.Time
}

// RateLimiter caps inbound signaling volume per participant with a fixed
// window counter. Each participant's updates go through the single mutex,
// so there is never more than one writer per key.
type RateLimiter struct {
	mu       sync.Mutex
	limit    int
	window   time.Duration
	counters map[domain.ParticipantID]*windowCount
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		limit:    limit,
		window:   window,
		counters: make(map[domain.ParticipantID]*windowCount),
	}
}

// Allow reports whether the participant may send another message now.
// The counter resets lazily once the window elapses; at the cap it stops
// incrementing and returns false.
func (rl *RateLimiter) Allow(pid domain.ParticipantID) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	wc, ok := rl.counters[pid]
	if !ok {
		rl.counters[pid] = &windowCount{count: 1, windowStart: now}
		return true
	}
	if now.Sub(wc.windowStart) >= rl.window {
		wc.count = 1
		wc.windowStart = now
		return true
	}
	if wc.count >= rl.limit {
		return false
	}
	wc.count++
	return true
}

// sweep drops counters whose window started longer than maxAge ago, so
// departed participants do not pin memory forever.
func (rl *RateLimiter) sweep(maxAge time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	now := time.Now()
	for pid, wc := range rl.counters {
		if now.Sub(wc.windowStart) > maxAge {
			delete(rl.counters, pid)
		}
	}
}

// Run sweeps on a fixed interval until ctx is cancelled.
func (rl *RateLimiter) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "app.ratelimit").Msg("sweep loop stopped")
			return
		case <-ticker.C:
			rl.sweep(interval)
		}
	}
}
