package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// RetryPolicy controls how a listing request is retried.
//
// Every call the client makes is a GET, so a throttled or failed request is
// always safe to repeat. A 429 waits for Retry-After when the service sends
// one and backs off exponentially otherwise. A 5xx waits a fixed pause.
// BreakerThreshold consecutive 5xx responses stop all calls for
// BreakerCooldown so a watch or serve loop does not keep polling an outage.
type RetryPolicy struct {
	RateLimitRetries   int
	ServerErrorRetries int
	RateLimitDelay     time.Duration
	ServerErrorDelay   time.Duration
	MaxDelay           time.Duration
	BreakerThreshold   int
	BreakerCooldown    time.Duration
}

// DefaultRetryPolicy suits an interactive list: a few quick retries on
// throttling, one on a server error, and a short cooldown.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		RateLimitRetries:   3,
		ServerErrorRetries: 1,
		RateLimitDelay:     time.Second,
		ServerErrorDelay:   time.Second,
		MaxDelay:           30 * time.Second,
		BreakerThreshold:   5,
		BreakerCooldown:    30 * time.Second,
	}
}

// rateLimitDelay returns the wait before retry number attempt (from zero).
func (p RetryPolicy) rateLimitDelay(attempt int, h http.Header) time.Duration {
	if d, ok := parseRetryAfter(h); ok {
		return p.capped(d)
	}
	return p.capped(p.RateLimitDelay << attempt)
}

func (p RetryPolicy) capped(d time.Duration) time.Duration {
	if p.MaxDelay > 0 && d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

// parseRetryAfter reads Retry-After as seconds or an HTTP date.
func parseRetryAfter(h http.Header) (time.Duration, bool) {
	value := strings.TrimSpace(h.Get("Retry-After"))
	if value == "" {
		return 0, false
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return max(time.Duration(secs)*time.Second, 0), true
	}
	if t, err := http.ParseTime(value); err == nil {
		return max(time.Until(t), 0), true
	}
	return 0, false
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type breakerState int

const (
	breakerClosed breakerState = iota
	breakerOpen
	breakerProbing
)

// breaker counts consecutive server errors across listing calls. Once the
// cooldown passes calls go through again; the first server error reopens it
// and the first success closes it.
type breaker struct {
	mu       sync.Mutex
	state    breakerState
	failures int
	openedAt time.Time
	now      func() time.Time
}

func (b *breaker) clock() time.Time {
	if b.now != nil {
		return b.now()
	}
	return time.Now()
}

// allow reports whether a call may go out under p.
func (b *breaker) allow(p RetryPolicy) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.state {
	case breakerOpen:
		if b.clock().Sub(b.openedAt) < p.BreakerCooldown {
			return false
		}
		b.state = breakerProbing
		return true
	default:
		return true
	}
}

func (b *breaker) success() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = breakerClosed
	b.failures = 0
}

// failure records a server error and reports whether it opened the breaker.
func (b *breaker) failure(p RetryPolicy) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures++
	if b.state == breakerProbing || (b.state == breakerClosed && p.BreakerThreshold > 0 && b.failures >= p.BreakerThreshold) {
		b.state = breakerOpen
		b.openedAt = b.clock()
		return true
	}
	return false
}

func (b *breaker) reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = breakerClosed
	b.failures = 0
	b.openedAt = time.Time{}
}
