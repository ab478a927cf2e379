// Package chat guards lobby and in-match chat: per-player rate limits and
// message clean-up.
package chat

import (
	"sync"
	"time"
)

// RateLimiter allows a burst of messages per window with a minimum gap
// between consecutive messages from one player.
type RateLimiter struct {
	mu     sync.Mutex
	users  map[string]*userLimit
	config RateLimitConfig
	now    func() time.Time

	stopOnce sync.Once
	stopChan chan struct{}
}

type userLimit struct {
	count     int
	windowEnd time.Time
	last      time.Time
}

// RateLimitConfig configures rate limiting behavior
type RateLimitConfig struct {
	MaxPerWindow     int
	WindowDuration   time.Duration
	CooldownDuration time.Duration
}

// DefaultRateLimitConfig allows 5 messages per 5 seconds, 300ms apart.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		MaxPerWindow:     5,
		WindowDuration:   5 * time.Second,
		CooldownDuration: 300 * time.Millisecond,
	}
}

// NewRateLimiter starts a limiter with a background sweeper. Call Stop when
// done.
func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	rl := &RateLimiter{
		users:    make(map[string]*userLimit),
		config:   cfg,
		now:      time.Now,
		stopChan: make(chan struct{}),
	}
	go rl.cleanup()
	return rl
}

// Allow reports whether playerID may send a message now.
func (rl *RateLimiter) Allow(playerID string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	limit, ok := rl.users[playerID]
	if !ok {
		rl.users[playerID] = &userLimit{
			count:     1,
			windowEnd: now.Add(rl.config.WindowDuration),
			last:      now,
		}
		return true
	}

	if now.Sub(limit.last) < rl.config.CooldownDuration {
		return false
	}
	if now.After(limit.windowEnd) {
		limit.count = 1
		limit.windowEnd = now.Add(rl.config.WindowDuration)
		limit.last = now
		return true
	}
	if limit.count >= rl.config.MaxPerWindow {
		return false
	}

	limit.count++
	limit.last = now
	return true
}

// Forget drops state for a player who disconnected.
func (rl *RateLimiter) Forget(playerID string) {
	rl.mu.Lock()
	delete(rl.users, playerID)
	rl.mu.Unlock()
}

// Stop ends the sweeper.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stopChan) })
}

func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stopChan:
			return
		case <-ticker.C:
			rl.mu.Lock()
			cutoff := rl.now().Add(-5 * time.Minute)
			for key, limit := range rl.users {
				if limit.last.Before(cutoff) {
					delete(rl.users, key)
				}
			}
			rl.mu.Unlock()
		}
	}
}
