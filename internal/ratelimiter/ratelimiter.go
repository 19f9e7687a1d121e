// Package ratelimiter throttles how fast the acceptor hands connections to
// workers, using golang.org/x/time/rate.
package ratelimiter

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimiter is a token bucket in front of the worker hand-off.
//
// The acceptor takes one token per accepted connection. While tokens remain,
// connections pass straight through; once the bucket is empty the acceptor
// waits, which lets the kernel backlog absorb the flood instead of the
// worker queue.
//
// A nil *RateLimiter is valid and never throttles, so callers don't
// need to branch on whether limiting is configured.
//
// Thread safety:
// All methods are safe for concurrent use.
type RateLimiter struct {
	limiter *rate.Limiter
}

// New creates a limiter allowing connectionsPerSecond sustained and burst
// at once.
//
// Special cases:
//   - connectionsPerSecond <= 0: returns nil (unlimited)
//   - burst <= 0: burst defaults to max(1, connectionsPerSecond)
//
// Example:
//
//	// 500 conn/s sustained, 1000 at once
//	limiter := New(500, 1000)
func New(connectionsPerSecond float64, burst int) *RateLimiter {
	if connectionsPerSecond <= 0 {
		return nil
	}

	if burst <= 0 {
		burst = int(connectionsPerSecond)
		if burst < 1 {
			burst = 1
		}
	}

	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(connectionsPerSecond), burst),
	}
}

// Acquire takes one token, waiting for it if the bucket is empty.
//
// Parameters:
//   - ctx: Bounds the wait. Shutdown cancels it.
//
// Returns:
//   - throttled: true if the caller had to wait for the token
//   - err: The context error if ctx ended before a token was available
func (r *RateLimiter) Acquire(ctx context.Context) (throttled bool, err error) {
	if r == nil {
		return false, nil
	}

	// Fast path
	if r.limiter.Allow() {
		return false, nil
	}

	if err := r.limiter.Wait(ctx); err != nil {
		return true, err
	}
	return true, nil
}

// Limit returns the sustained rate in connections per second, or 0 when
// unlimited.
func (r *RateLimiter) Limit() float64 {
	if r == nil {
		return 0
	}
	return float64(r.limiter.Limit())
}

// Burst returns the bucket capacity, or 0 when unlimited.
func (r *RateLimiter) Burst() int {
	if r == nil {
		return 0
	}
	return r.limiter.Burst()
}

// Tokens returns the tokens currently available. The value is stale as soon
// as it is returned, so callers only log it.
func (r *RateLimiter) Tokens() float64 {
	if r == nil {
		return 0
	}
	return r.limiter.Tokens()
}
