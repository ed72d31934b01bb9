package middleware

import (
	"net/http"
	"strings"
	"sync"
	"time"
)

// RateLimiter is a simple in-memory sliding-window limiter keyed by caller.
// The DB-backed per-voter window in the verifier is the authoritative limit;
// this one shields the endpoints from anonymous hammering by IP.
type RateLimiter struct {
	mu      sync.Mutex
	seen    map[string][]time.Time
	window  time.Duration
	maxHits int
}

// NewRateLimiter creates a new rate limiter and starts its cleanup loop
func NewRateLimiter(window time.Duration, maxHits int) *RateLimiter {
	rl := &RateLimiter{
		seen:    make(map[string][]time.Time),
		window:  window,
		maxHits: maxHits,
	}
	go rl.cleanup()
	return rl
}

// Allow reports whether a request under the key may proceed
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-rl.window)

	kept := rl.seen[key][:0]
	for _, t := range rl.seen[key] {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}

	if len(kept) >= rl.maxHits {
		rl.seen[key] = kept
		return false
	}

	rl.seen[key] = append(kept, now)
	return true
}

// cleanup drops idle keys so the map cannot grow without bound
func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for range ticker.C {
		rl.mu.Lock()
		cutoff := time.Now().Add(-2 * rl.window)
		for key, hits := range rl.seen {
			live := false
			for _, t := range hits {
				if t.After(cutoff) {
					live = true
					break
				}
			}
			if !live {
				delete(rl.seen, key)
			}
		}
		rl.mu.Unlock()
	}
}

// IPKey derives a rate-limit key from the client address
func IPKey(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		return "ip:" + strings.TrimSpace(parts[0])
	}
	return "ip:" + r.RemoteAddr
}
