// Package ratelimit implements a per-key token bucket with lazy refill.
package ratelimit

import (
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/pushbin/pushbin-server/internal/httputil"
)

// Limiter is a thread-safe token bucket keyed by client identity. Buckets are
// created on first use and refilled lazily on each check; fully refilled
// buckets are removed by Sweep to cap memory.
type Limiter struct {
	mu         sync.Mutex
	buckets    map[string]*bucket
	maxTokens  float64
	refillRate float64 // tokens per second

	// now is replaceable for tests.
	now func() time.Time
}

type bucket struct {
	tokens     float64
	lastRefill time.Time
}

// New creates a limiter with the given burst capacity and refill rate per
// second.
func New(burst int, ratePerSec float64) *Limiter {
	return &Limiter{
		buckets:    make(map[string]*bucket),
		maxTokens:  float64(burst),
		refillRate: ratePerSec,
		now:        time.Now,
	}
}

// Allow reports whether a request under the given key is admitted, consuming
// one token when it is. The map lock is held only for the bucket arithmetic.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{tokens: l.maxTokens, lastRefill: now}
		l.buckets[key] = b
	}

	elapsed := now.Sub(b.lastRefill).Seconds()
	b.tokens = min(l.maxTokens, b.tokens+elapsed*l.refillRate)
	b.lastRefill = now

	if b.tokens >= 1 {
		b.tokens--
		return true
	}
	return false
}

// Sweep removes buckets that would be fully refilled by now, so idle keys do
// not accumulate.
func (l *Limiter) Sweep() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for key, b := range l.buckets {
		elapsed := now.Sub(b.lastRefill).Seconds()
		if b.tokens+elapsed*l.refillRate >= l.maxTokens {
			delete(l.buckets, key)
		}
	}
}

// Size returns the number of tracked buckets.
func (l *Limiter) Size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// Middleware returns Fiber middleware that rejects over-limit requests with
// 429 and a Retry-After hint. The client key is the first entry of
// X-Forwarded-For when present (the address behind a reverse proxy), else the
// peer address.
func (l *Limiter) Middleware() fiber.Handler {
	return func(c fiber.Ctx) error {
		key := ClientKey(c.Get("X-Forwarded-For"), c.IP())
		if !l.Allow(key) {
			c.Set("Retry-After", "1")
			return httputil.Fail(c, fiber.StatusTooManyRequests, "Rate limit exceeded")
		}
		return c.Next()
	}
}

// ClientKey derives the rate-limit key from the X-Forwarded-For header value
// and the peer address.
func ClientKey(forwardedFor, peer string) string {
	if forwardedFor != "" {
		if first, _, found := strings.Cut(forwardedFor, ","); found || first != "" {
			if key := strings.TrimSpace(first); key != "" {
				return key
			}
		}
	}
	if peer != "" {
		return peer
	}
	return "unknown"
}
