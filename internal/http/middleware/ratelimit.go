package middleware

import (
	"net/http"
	"sync"
	"time"
)

const staleAfter = 10 * time.Minute

// RateLimiter is a per-key token bucket. Report generation fans out to the
// scheduling API, so callers are throttled by token subject rather than by IP.
type RateLimiter struct {
	mu        sync.Mutex
	buckets   map[string]*bucket
	rate      float64 // tokens per second
	burst     int
	now       func() time.Time
	lastSweep time.Time
}

type bucket struct {
	tokens   float64
	lastTime time.Time
}

// NewRateLimiter allows perMinute requests per key with the given burst.
func NewRateLimiter(perMinute float64, burst int) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		buckets: make(map[string]*bucket),
		rate:    perMinute / 60,
		burst:   burst,
		now:     time.Now,
	}
}

// Allow reports whether key may proceed and consumes a token if so.
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	rl.sweep(now)

	b, ok := rl.buckets[key]
	if !ok {
		b = &bucket{tokens: float64(rl.burst), lastTime: now}
		rl.buckets[key] = b
	}
	b.tokens += now.Sub(b.lastTime).Seconds() * rl.rate
	if b.tokens > float64(rl.burst) {
		b.tokens = float64(rl.burst)
	}
	b.lastTime = now

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// sweep drops idle buckets at most once per staleAfter. Caller holds mu.
func (rl *RateLimiter) sweep(now time.Time) {
	if now.Sub(rl.lastSweep) < staleAfter {
		return
	}
	rl.lastSweep = now
	cutoff := now.Add(-staleAfter)
	for key, b := range rl.buckets {
		if b.lastTime.Before(cutoff) {
			delete(rl.buckets, key)
		}
	}
}

// RateLimit rejects requests over the limit with 429. The key is the JWT subject
// when RequireJWT ran first, otherwise the remote address.
func RateLimit(limiter *RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.RemoteAddr
			if claims, ok := ClaimsFromContext(r.Context()); ok {
				key = "sub:" + claims.Subject
			}
			if !limiter.Allow(key) {
				w.Header().Set("Retry-After", "60")
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
