package middleware

import (
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimitConfig bounds the request rate per caller.
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
}

type callerBucket struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// RateLimiter enforces a token-bucket limit per caller. Requests that have
// passed authentication are keyed by principal id, so users sharing a NAT or
// proxy do not starve each other; unauthenticated requests fall back to the
// client IP. Over-limit requests get 429 with a Retry-After hint.
func RateLimiter(cfg RateLimitConfig) func(http.Handler) http.Handler {
	var (
		mu      sync.Mutex
		callers = make(map[string]*callerBucket)
	)

	take := func(key string) (allowed bool, retryAfter time.Duration, remaining int) {
		mu.Lock()
		defer mu.Unlock()

		b, ok := callers[key]
		if !ok {
			b = &callerBucket{lim: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst)}
			callers[key] = b
		}
		b.lastSeen = time.Now()

		res := b.lim.Reserve()
		if !res.OK() {
			return false, 0, 0
		}
		if delay := res.Delay(); delay > 0 {
			res.Cancel()
			return false, delay, 0
		}
		return true, 0, int(b.lim.Tokens())
	}

	// Idle callers are dropped so the bucket map does not grow without
	// bound over the life of the server.
	go func() {
		for range time.Tick(5 * time.Minute) {
			mu.Lock()
			for key, b := range callers {
				if time.Since(b.lastSeen) > 10*time.Minute {
					delete(callers, key)
				}
			}
			mu.Unlock()
		}
	}()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			allowed, retryAfter, remaining := take(callerKey(r))
			if !allowed {
				writeRateLimited(w, retryAfter)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(cfg.Burst))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			next.ServeHTTP(w, r)
		})
	}
}

// callerKey identifies the caller for rate-limiting purposes. Principal and
// IP keys live in distinct namespaces so a user id can never collide with an
// address literal.
func callerKey(r *http.Request) string {
	if principal, ok := PrincipalFromContext(r.Context()); ok {
		return "principal:" + principal
	}
	return "ip:" + clientIP(r)
}

// clientIP strips the port from RemoteAddr. X-Forwarded-For is deliberately
// not consulted: it is caller-controlled and would let anyone escape their
// bucket by spoofing the header.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeRateLimited(w http.ResponseWriter, retryAfter time.Duration) {
	if retryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(int(retryAfter.Seconds())+1))
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"code":    http.StatusTooManyRequests,
		"message": "rate limit exceeded",
	})
}
