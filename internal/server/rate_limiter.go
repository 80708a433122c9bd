// Package server throttles inbound protocol events per connection with a
// token bucket, shielding the hub from a flooding client.
package server

import (
	"math"
	"sync"
	"time"
)

// rateLimiter grants one token per inbound frame and earns tokens back
// continuously, so a connection that drained its burst recovers gradually
// rather than in whole-interval steps.
type rateLimiter struct {
	mu     sync.Mutex
	tokens float64
	burst  float64
	refill float64 // tokens per second
	last   time.Time
}

func newRateLimiter(burst int, interval time.Duration) *rateLimiter {
	if burst <= 0 {
		burst = 1
	}
	if interval <= 0 {
		interval = time.Second
	}

	return &rateLimiter{
		tokens: float64(burst),
		burst:  float64(burst),
		refill: float64(burst) / interval.Seconds(),
		last:   time.Now(),
	}
}

// allow consumes one token if available, reporting whether the frame may be
// processed.
func (rl *rateLimiter) allow() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	if elapsed := now.Sub(rl.last).Seconds(); elapsed > 0 {
		rl.tokens = math.Min(rl.tokens+elapsed*rl.refill, rl.burst)
	}
	rl.last = now

	if rl.tokens < 1 {
		return false
	}
	rl.tokens--
	return true
}
