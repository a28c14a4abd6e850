package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/cppla/audiencehub/utils"
)

const limiterIdleTTL = 5 * time.Minute

type bucket struct {
	limiter *rate.Limiter
	expires time.Time
}

// RateLimiter holds one token bucket per client IP. Buckets idle for
// limiterIdleTTL are dropped by Sweep, which the caller schedules.
type RateLimiter struct {
	limit rate.Limit
	burst int
	now   func() time.Time

	mu      sync.Mutex
	buckets map[string]*bucket
}

// NewRateLimiter allows perMinute requests per minute per IP with bursts of
// half that.
func NewRateLimiter(perMinute int) *RateLimiter {
	return &RateLimiter{
		limit:   rate.Every(time.Minute / time.Duration(max(perMinute, 1))),
		burst:   max(perMinute/2, 1),
		now:     time.Now,
		buckets: map[string]*bucket{},
	}
}

// WithClock replaces the clock used for idle expiry.
func (l *RateLimiter) WithClock(now func() time.Time) *RateLimiter {
	l.now = now
	return l
}

// Handler rejects requests over the limit with 429.
func (l *RateLimiter) Handler() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if !l.allow(ctx.ClientIP()) {
			utils.Abort(ctx, http.StatusTooManyRequests, 42901, "rate limit exceeded", nil)
			return
		}
		ctx.Next()
	}
}

// RateLimitMiddleware is NewRateLimiter(perMinute).Handler() for callers that
// do not sweep. Its buckets are never dropped.
func RateLimitMiddleware(perMinute int) gin.HandlerFunc {
	return NewRateLimiter(perMinute).Handler()
}

func (l *RateLimiter) allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[key] = b
	}
	b.expires = l.now().Add(limiterIdleTTL)
	return b.limiter.Allow()
}

// Sweep drops idle buckets.
func (l *RateLimiter) Sweep() {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()
	for k, b := range l.buckets {
		if now.After(b.expires) {
			delete(l.buckets, k)
		}
	}
}

// Len reports the number of live buckets.
func (l *RateLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}
