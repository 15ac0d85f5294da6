package server

import (
	"sync"

	"golang.org/x/time/rate"
)

// RateLimiter enforces per-caller and global request rate limits using
// token buckets.
type RateLimiter struct {
	mu        sync.Mutex
	global    *rate.Limiter
	callers   map[string]*rate.Limiter
	perCaller rate.Limit
	burst     int
}

// NewRateLimiter creates a limiter. globalRPM is the total requests/minute
// across all callers; perCallerRPM is the budget of a single caller.
func NewRateLimiter(globalRPM, perCallerRPM int) *RateLimiter {
	globalBurst := globalRPM
	if globalBurst < 1 {
		globalBurst = 1
	}
	callerBurst := perCallerRPM
	if callerBurst < 1 {
		callerBurst = 1
	}
	return &RateLimiter{
		global:    rate.NewLimiter(rate.Limit(float64(globalRPM)/60.0), globalBurst),
		callers:   make(map[string]*rate.Limiter),
		perCaller: rate.Limit(float64(perCallerRPM) / 60.0),
		burst:     callerBurst,
	}
}

// Allow reports whether a request from the given caller may proceed.
func (rl *RateLimiter) Allow(caller string) bool {
	if !rl.global.Allow() {
		return false
	}
	rl.mu.Lock()
	limiter, ok := rl.callers[caller]
	if !ok {
		limiter = rate.NewLimiter(rl.perCaller, rl.burst)
		rl.callers[caller] = limiter
	}
	rl.mu.Unlock()
	return limiter.Allow()
}
