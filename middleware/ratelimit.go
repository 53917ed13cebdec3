package middleware

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/Jack4Code/relay"
)

// DefaultKeyTTL is how long RateLimitByKey keeps the bucket of a key that
// has not been seen.
const DefaultKeyTTL = 10 * time.Minute

// RateLimit returns middleware that admits at most rps requests per second
// with bursts of up to burst, shared by every request it sees. Rejected
// requests end the chain with ErrRateLimited.
func RateLimit[C any](rps float64, burst int) relay.Middleware[C] {
	limiter := rate.NewLimiter(rate.Limit(rps), burst)

	return relay.MiddlewareFunc[C](func(ctx context.Context, c C, next relay.Next[C]) (C, error) {
		if !limiter.Allow() {
			return c, ErrRateLimited
		}
		return next(ctx, c)
	})
}

// RateLimitByKey is RateLimit with one bucket per key, for example per
// client address. Buckets idle for DefaultKeyTTL are dropped.
func RateLimitByKey[C any](rps float64, burst int, key func(C) string) relay.Middleware[C] {
	return RateLimitByKeyTTL(rps, burst, DefaultKeyTTL, key)
}

// RateLimitByKeyTTL is RateLimitByKey with a custom idle TTL.
func RateLimitByKeyTTL[C any](rps float64, burst int, ttl time.Duration, key func(C) string) relay.Middleware[C] {
	buckets := newKeyedLimiter(rate.Limit(rps), burst, ttl, time.Now)

	return relay.MiddlewareFunc[C](func(ctx context.Context, c C, next relay.Next[C]) (C, error) {
		if !buckets.allow(key(c)) {
			return c, ErrRateLimited
		}
		return next(ctx, c)
	})
}

// keyEntry holds a limiter and its last access time for TTL-based cleanup.
type keyEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// keyedLimiter keeps one limiter per key. Stale keys are swept lazily, at
// most once per half TTL.
type keyedLimiter struct {
	mu        sync.Mutex
	entries   map[string]*keyEntry
	limit     rate.Limit
	burst     int
	ttl       time.Duration
	lastSweep time.Time
	now       func() time.Time
}

func newKeyedLimiter(limit rate.Limit, burst int, ttl time.Duration, now func() time.Time) *keyedLimiter {
	if ttl <= 0 {
		ttl = DefaultKeyTTL
	}
	return &keyedLimiter{
		entries:   make(map[string]*keyEntry),
		limit:     limit,
		burst:     burst,
		ttl:       ttl,
		lastSweep: now(),
		now:       now,
	}
}

func (k *keyedLimiter) allow(key string) bool {
	now := k.now()

	k.mu.Lock()
	if now.Sub(k.lastSweep) >= k.ttl/2 {
		k.sweep(now)
	}
	e, ok := k.entries[key]
	if !ok {
		e = &keyEntry{limiter: rate.NewLimiter(k.limit, k.burst)}
		k.entries[key] = e
	}
	e.lastSeen = now
	limiter := e.limiter
	k.mu.Unlock()

	return limiter.AllowN(now, 1)
}

// sweep removes entries not seen within the TTL. Callers hold k.mu.
func (k *keyedLimiter) sweep(now time.Time) {
	for key, e := range k.entries {
		if now.Sub(e.lastSeen) > k.ttl {
			delete(k.entries, key)
		}
	}
	k.lastSweep = now
}

func (k *keyedLimiter) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.entries)
}
