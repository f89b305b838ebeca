package ratelimit

import (
	"context"

	"golang.org/x/time/rate"
)

// Pacer smooths request bursts below the window quotas with a process-wide
// token bucket. The window limiter answers "may I", the pacer answers
// "not all at once".
type Pacer struct {
	limiter *rate.Limiter
}

// NewPacer creates a pacer allowing requestsPerSecond sustained throughput
// with the given burst size. Non-positive arguments fall back to 2 rps /
// burst 1.
func NewPacer(requestsPerSecond float64, burst int) *Pacer {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 2
	}
	if burst <= 0 {
		burst = 1
	}
	return &Pacer{limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), burst)}
}

// Wait blocks until the pacer admits one request or the context ends
func (p *Pacer) Wait(ctx context.Context) error {
	return p.limiter.Wait(ctx)
}

// Allow reports whether a request may proceed right now without waiting
func (p *Pacer) Allow() bool {
	return p.limiter.Allow()
}
