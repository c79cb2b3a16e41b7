package ratelimiter

import (
	"sync"
	"time"
)

// RateLimiter is the minimal contract the HTTP middleware depends on.
type RateLimiter interface {
	// Allow reports whether one more request may proceed right now.
	Allow() bool
}

// TokenBucket is a token-bucket rate limiter: tokens refill at a fixed rate
// up to a capacity, and each request consumes one token.
type TokenBucket struct {
	rate     float64 // tokens added per second
	capacity float64

	tokens   float64
	lastFill time.Time
	mu       sync.Mutex
}

// NewTokenBucket creates a TokenBucket that starts full.
func NewTokenBucket(rate, capacity float64) *TokenBucket {
	return &TokenBucket{
		rate:     rate,
		capacity: capacity,
		tokens:   capacity,
		lastFill: time.Now(),
	}
}

// Allow consumes a token if one is available.
func (tb *TokenBucket) Allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(tb.lastFill).Seconds()
	tb.lastFill = now

	tb.tokens += elapsed * tb.rate
	if tb.tokens > tb.capacity {
		tb.tokens = tb.capacity
	}

	if tb.tokens < 1 {
		return false
	}
	tb.tokens--
	return true
}

var _ RateLimiter = (*TokenBucket)(nil)
