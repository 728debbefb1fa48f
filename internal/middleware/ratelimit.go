package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/13jisse-music/ChanteEnScene-sub000/pkg/errors"
	"github.com/13jisse-music/ChanteEnScene-sub000/pkg/logger"
	"golang.org/x/time/rate"
)

// visitorLimiter tracks one device's token bucket
type visitorLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter throttles the public vote endpoint per device fingerprint.
// Buckets idle for ten minutes are dropped to keep the map bounded during
// a show with thousands of devices.
type RateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitorLimiter
	rate     rate.Limit
	burst    int
	log      *logger.Logger
}

// NewRateLimiter creates a per-fingerprint rate limiter
func NewRateLimiter(perSecond float64, burst int, log *logger.Logger) *RateLimiter {
	rl := &RateLimiter{
		visitors: make(map[string]*visitorLimiter),
		rate:     rate.Limit(perSecond),
		burst:    burst,
		log:      log,
	}
	go rl.cleanup()
	return rl
}

// Middleware rejects requests exceeding the device's budget with 429.
// Requests without a fingerprint pass through; the handler rejects them
// with a proper validation error.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fingerprint := r.Header.Get("X-Device-Fingerprint")
		if fingerprint != "" && !rl.allow(fingerprint) {
			writeErrorResponse(w, r, errors.NewRateLimitError("Too many requests from this device"), rl.log)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimiter) allow(fingerprint string) bool {
	rl.mu.Lock()
	v, ok := rl.visitors[fingerprint]
	if !ok {
		v = &visitorLimiter{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.visitors[fingerprint] = v
	}
	v.lastSeen = time.Now()
	rl.mu.Unlock()

	return v.limiter.Allow()
}

func (rl *RateLimiter) cleanup() {
	for range time.Tick(time.Minute) {
		rl.mu.Lock()
		for fingerprint, v := range rl.visitors {
			if time.Since(v.lastSeen) > 10*time.Minute {
				delete(rl.visitors, fingerprint)
			}
		}
		rl.mu.Unlock()
	}
}
