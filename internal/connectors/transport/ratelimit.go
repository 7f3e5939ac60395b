package transport

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

// RateLimiter combines proactive throttling with reactive Retry-After
// handling for one connection.
type RateLimiter struct {
	mu         sync.Mutex
	bucket     *rate.Limiter // nil when unlimited
	retryAfter time.Time     // from the last 429/503
}

// NewRateLimiter creates a limiter allowing perSecond requests per second.
// Zero or a negative rate disables proactive throttling.
func NewRateLimiter(perSecond float64) *RateLimiter {
	r := &RateLimiter{}
	if perSecond > 0 {
		burst := int(perSecond)
		if burst < 1 {
			burst = 1
		}
		r.bucket = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
	return r
}

// Wait blocks until it's safe to make a request.
func (r *RateLimiter) Wait(ctx context.Context) error {
	if r.bucket != nil {
		if err := r.bucket.Wait(ctx); err != nil {
			return err
		}
	}

	r.mu.Lock()
	until := r.retryAfter
	r.mu.Unlock()

	if time.Now().Before(until) {
		return r.WaitFor(ctx, time.Until(until))
	}
	return nil
}

// WaitFor sleeps for d or until ctx is done.
func (r *RateLimiter) WaitFor(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// CheckResponse records a 429 or 503 Retry-After and reports how long the
// caller should wait before retrying.
func (r *RateLimiter) CheckResponse(status int, header http.Header) (time.Duration, bool) {
	if status != http.StatusTooManyRequests && status != http.StatusServiceUnavailable {
		return 0, false
	}
	wait, ok := parseRetryAfter(header.Get(HeaderRetryAfter), time.Now())
	if !ok {
		if status == http.StatusServiceUnavailable {
			return 0, false
		}
		wait = time.Second
	}

	r.mu.Lock()
	r.retryAfter = time.Now().Add(wait)
	r.mu.Unlock()
	return wait, true
}

// RetryAfter returns the time before which no request should be sent.
func (r *RateLimiter) RetryAfter() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.retryAfter
}

func parseRetryAfter(v string, now time.Time) (time.Duration, bool) {
	if v == "" {
		return 0, false
	}
	if seconds, err := strconv.Atoi(v); err == nil {
		if seconds < 0 {
			return 0, false
		}
		return time.Duration(seconds) * time.Second, true
	}
	if at, err := http.ParseTime(v); err == nil {
		d := at.Sub(now)
		if d < 0 {
			d = 0
		}
		return d, true
	}
	return 0, false
}
