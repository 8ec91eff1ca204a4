package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// KeyFunc names the bucket a request draws from.
type KeyFunc func(*gin.Context) string

// KeyByUserOrIP buckets by the caller's user id when UserIdentity resolved
// one, and by client IP otherwise.
func KeyByUserOrIP() KeyFunc {
	return func(c *gin.Context) string {
		if uid := c.GetString(ctxKeyUserID); uid != "" {
			return "user:" + uid
		}
		return "ip:" + c.ClientIP()
	}
}

// RouteCost charges weight tokens on the given route patterns and one token
// elsewhere.
func RouteCost(weight int, routes ...string) func(*gin.Context) int {
	weighted := make(map[string]bool, len(routes))
	for _, r := range routes {
		weighted[r] = true
	}
	return func(c *gin.Context) int {
		if weighted[c.FullPath()] {
			return weight
		}
		return 1
	}
}

type bucket struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// RateLimiter is a process-local token bucket per key. Generation requests
// can be charged several tokens (WithCost) so a user cannot hammer the model
// while cheap reads stay available. Idempotent replays are free. Buckets
// idle for longer than idleTTL are dropped.
type RateLimiter struct {
	rps    rate.Limit
	burst  int
	key    KeyFunc
	costFn func(*gin.Context) int

	mu        sync.Mutex
	buckets   map[string]*bucket
	idleTTL   time.Duration
	lastSweep time.Time
	now       func() time.Time
}

// NewRateLimiter refills rps tokens per second up to burst (at least 1).
// rps 0 admits only the initial burst.
func NewRateLimiter(rps float64, burst int, key KeyFunc) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		rps:     rate.Limit(rps),
		burst:   burst,
		key:     key,
		buckets: make(map[string]*bucket),
		idleTTL: 10 * time.Minute,
		now:     time.Now,
	}
}

// WithCost charges cost(c) tokens per request, clamped to [1, burst] so
// that every route stays reachable.
func (rl *RateLimiter) WithCost(cost func(*gin.Context) int) *RateLimiter {
	rl.costFn = cost
	return rl
}

func (rl *RateLimiter) cost(c *gin.Context) int {
	n := 1
	if rl.costFn != nil {
		n = rl.costFn(c)
	}
	return min(max(n, 1), rl.burst)
}

// retryAfter is the whole number of seconds needed to refill n tokens.
func (rl *RateLimiter) retryAfter(n int) string {
	if rl.rps <= 0 {
		return "60"
	}
	return strconv.Itoa(max(1, int(math.Ceil(float64(n)/float64(rl.rps)))))
}

// limiter returns the bucket for key. Idle buckets are swept at most once
// per idleTTL, before the lookup, so a stale bucket is replaced rather than
// revived.
func (rl *RateLimiter) limiter(key string) *rate.Limiter {
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	if now.Sub(rl.lastSweep) >= rl.idleTTL {
		for k, b := range rl.buckets {
			if now.Sub(b.lastSeen) >= rl.idleTTL {
				delete(rl.buckets, k)
			}
		}
		rl.lastSweep = now
	}

	b, ok := rl.buckets[key]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(rl.rps, rl.burst)}
		rl.buckets[key] = b
	}
	b.lastSeen = now
	return b.lim
}

// IsRateBypass reports whether IdempotencyValidator exempted this request.
func IsRateBypass(c *gin.Context) bool {
	return c.GetBool(ctxKeyRateBypass)
}

// Handler charges each request its cost, answering 429 with Retry-After
// when the bucket cannot cover it:
//
//	{"request_id":"...","code":"rate_limited","message":"rate limit exceeded"}
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if IsRateBypass(c) {
			c.Next()
			return
		}
		n := rl.cost(c)
		if rl.limiter(rl.key(c)).AllowN(rl.now(), n) {
			c.Next()
			return
		}
		c.Header("Retry-After", rl.retryAfter(n))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"request_id": c.Writer.Header().Get(requestIDHeader),
			"code":       "rate_limited",
			"message":    "rate limit exceeded",
		})
	}
}
