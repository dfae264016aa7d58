// Package throttle spaces out requests to the same network domain.
package throttle

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/nao1215/linkcrawler/internal/links"
)

// Throttle enforces a minimum interval between two dispatches to the same
// host:port. It is safe for concurrent use: each caller reserves its
// dispatch slot under the lock, so concurrent callers for one domain are
// spaced at least delay apart.
type Throttle struct {
	delay time.Duration

	rateRequests int
	rateWindow   time.Duration

	mu       sync.Mutex
	last     map[string]time.Time
	limiters map[string]*rate.Limiter
}

// Option configures a Throttle.
type Option func(*Throttle)

// WithRateLimit adds a token bucket per domain allowing requests per window
// on top of the fixed delay. Non-positive values disable it.
func WithRateLimit(requests int, window time.Duration) Option {
	return func(t *Throttle) {
		t.rateRequests = requests
		t.rateWindow = window
	}
}

// New creates a Throttle with the given politeness delay.
// A delay of zero or less never waits, but dispatch times are still recorded.
func New(delay time.Duration, opts ...Option) *Throttle {
	t := &Throttle{
		delay:    delay,
		last:     make(map[string]time.Time),
		limiters: make(map[string]*rate.Limiter),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Wait blocks until a request to rawURL's domain may be dispatched and
// records the dispatch time. It returns the time spent waiting, or the
// context error if ctx ends first.
func (t *Throttle) Wait(ctx context.Context, rawURL string) (time.Duration, error) {
	domain := strings.ToLower(links.Domain(rawURL))
	start := time.Now()

	t.mu.Lock()
	dispatch := start
	if last, ok := t.last[domain]; ok && t.delay > 0 {
		if next := last.Add(t.delay); next.After(dispatch) {
			dispatch = next
		}
	}
	t.last[domain] = dispatch
	limiter := t.limiterLocked(domain)
	t.mu.Unlock()

	if sleep := dispatch.Sub(start); sleep > 0 {
		timer := time.NewTimer(sleep)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return time.Now().Sub(start), ctx.Err()
		}
	}

	if limiter != nil {
		if err := limiter.Wait(ctx); err != nil {
			return time.Now().Sub(start), err
		}
		t.mu.Lock()
		if now := time.Now(); now.After(t.last[domain]) {
			t.last[domain] = now
		}
		t.mu.Unlock()
	}

	return time.Now().Sub(start), nil
}

func (t *Throttle) limiterLocked(domain string) *rate.Limiter {
	if t.rateRequests <= 0 || t.rateWindow <= 0 {
		return nil
	}
	if l, ok := t.limiters[domain]; ok {
		return l
	}
	interval := t.rateWindow / time.Duration(t.rateRequests)
	if interval <= 0 {
		interval = time.Millisecond
	}
	l := rate.NewLimiter(rate.Every(interval), t.rateRequests)
	t.limiters[domain] = l
	return l
}

// Last returns the recorded dispatch time for domain (host:port).
func (t *Throttle) Last(domain string) (time.Time, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	ts, ok := t.last[strings.ToLower(domain)]
	return ts, ok
}

// Delay returns the configured politeness delay.
func (t *Throttle) Delay() time.Duration {
	return t.delay
}
