package github

import (
	"context"
	"sync"
	"time"

	gh "github.com/google/go-github/v80/github"
	"golang.org/x/time/rate"
)

const (
	// proactiveRate throttles requests to ~1.2/sec, comfortably under the
	// authenticated API budget of 5000/hour.
	proactiveRate = 1.2

	// minRemaining is the request budget reserved before waiting for the
	// quota window to reset.
	minRemaining = 50
)

// RateLimiter combines proactive throttling with reactive tracking of the
// quota the API reports on every response.
type RateLimiter struct {
	mu        sync.Mutex
	bucket    *rate.Limiter
	remaining int
	resetAt   time.Time
}

// NewRateLimiter creates a limiter assuming a full quota.
func NewRateLimiter() *RateLimiter {
	return &RateLimiter{
		bucket:    rate.NewLimiter(rate.Limit(proactiveRate), 1),
		remaining: minRemaining + 1,
	}
}

// Wait blocks until a request may be sent. When the reported remaining quota
// drops below the reserve, it sleeps until the reset time instead of burning
// the last requests.
func (r *RateLimiter) Wait(ctx context.Context) error {
	if err := r.bucket.Wait(ctx); err != nil {
		return err
	}

	r.mu.Lock()
	remaining, resetAt := r.remaining, r.resetAt
	r.mu.Unlock()

	if remaining > minRemaining || resetAt.IsZero() {
		return nil
	}
	wait := time.Until(resetAt)
	if wait <= 0 {
		return nil
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Update records the quota state from an API response.
func (r *RateLimiter) Update(resp *gh.Response) {
	if resp == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.remaining = resp.Rate.Remaining
	r.resetAt = resp.Rate.Reset.Time
}
