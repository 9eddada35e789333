package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/sakif/revision-tracker/internal/auth"
)

// idleTTL is how long a key's bucket is kept after its last request. It is
// longer than the minute a bucket needs to refill, so dropping one never
// grants extra requests.
const idleTTL = 10 * time.Minute

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter hands out one token bucket per key. Buckets idle for longer
// than idleTTL are swept on access.
type RateLimiter struct {
	mu        sync.Mutex
	visitors  map[string]*visitor
	every     time.Duration
	burst     int
	lastSweep time.Time
	now       func() time.Time
}

// NewPerMinuteLimiter allows perMinute requests per key per minute, with
// bursts up to perMinute. A non-positive perMinute disables limiting.
func NewPerMinuteLimiter(perMinute int) *RateLimiter {
	rl := &RateLimiter{visitors: make(map[string]*visitor), now: time.Now}
	if perMinute > 0 {
		rl.every = time.Minute / time.Duration(perMinute)
		rl.burst = perMinute
	}
	rl.lastSweep = rl.now()
	return rl
}

func (rl *RateLimiter) getLimiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if now.Sub(rl.lastSweep) >= idleTTL {
		for k, v := range rl.visitors {
			if now.Sub(v.lastSeen) >= idleTTL {
				delete(rl.visitors, k)
			}
		}
		rl.lastSweep = now
	}

	v, ok := rl.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rate.Every(rl.every), rl.burst)}
		rl.visitors[key] = v
	}
	v.lastSeen = now
	return v.limiter
}

// Allow reports whether a request for key may proceed now.
func (rl *RateLimiter) Allow(key string) bool {
	if rl.burst == 0 {
		return true
	}
	return rl.getLimiter(key).Allow()
}

// PerUser limits requests by authenticated user ID, falling back to the
// remote address. Mount it after auth.RequireAuth. Rejected requests get
// 429 with a Retry-After hint.
func (rl *RateLimiter) PerUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key, ok := auth.UserIDFromContext(r.Context())
		if !ok {
			key = r.RemoteAddr
		}
		if !rl.Allow(key) {
			retry := int(rl.every.Seconds())
			w.Header().Set("Retry-After", strconv.Itoa(max(retry, 1)))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error":"rate_limited","message":"too many requests, slow down"}` + "\n"))
			return
		}
		next.ServeHTTP(w, r)
	})
}
