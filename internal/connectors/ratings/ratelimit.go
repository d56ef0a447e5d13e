package ratings

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// HeaderRetryAfter is the retry-after header (seconds or HTTP date).
const HeaderRetryAfter = "Retry-After"

// DefaultBackoffOn429 is the pause applied when a 429 carries no Retry-After.
const DefaultBackoffOn429 = 5 * time.Second

// RateLimiter combines proactive request spacing with the source's
// reactive Retry-After signal.
type RateLimiter struct {
	mu           sync.Mutex
	bucket       *rate.Limiter // Proactive throttling
	blockedUntil time.Time     // From a 429 response
	now          func() time.Time
}

// NewRateLimiter spaces requests at least interval apart.
// A non-positive interval disables proactive throttling.
func NewRateLimiter(interval time.Duration) *RateLimiter {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &RateLimiter{
		bucket: rate.NewLimiter(limit, 1),
		now:    time.Now,
	}
}

// Wait blocks until it's safe to make a request.
func (r *RateLimiter) Wait(ctx context.Context) error {
	// 1. Honour a pending Retry-After
	r.mu.Lock()
	blockedUntil := r.blockedUntil
	r.mu.Unlock()

	if wait := blockedUntil.Sub(r.now()); wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}

	// 2. Token bucket
	return r.bucket.Wait(ctx)
}

// CheckRateLimit inspects a response and returns a RateLimitError when the
// source throttled the request. Subsequent Wait calls pause until the reset.
func (r *RateLimiter) CheckRateLimit(resp *http.Response) error {
	if resp == nil || resp.StatusCode != http.StatusTooManyRequests {
		return nil
	}

	resetAt := r.now().Add(parseRetryAfter(resp.Header.Get(HeaderRetryAfter), r.now()))

	r.mu.Lock()
	if resetAt.After(r.blockedUntil) {
		r.blockedUntil = resetAt
	}
	r.mu.Unlock()

	return &RateLimitError{ResetAt: resetAt}
}

// BlockedUntil returns when the last throttle expires.
func (r *RateLimiter) BlockedUntil() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.blockedUntil
}

// parseRetryAfter converts a Retry-After value into a wait.
func parseRetryAfter(v string, now time.Time) time.Duration {
	if v == "" {
		return DefaultBackoffOn429
	}
	if seconds, err := strconv.Atoi(v); err == nil && seconds >= 0 {
		return time.Duration(seconds) * time.Second
	}
	if at, err := http.ParseTime(v); err == nil {
		if d := at.Sub(now); d > 0 {
			return d
		}
		return 0
	}
	return DefaultBackoffOn429
}
