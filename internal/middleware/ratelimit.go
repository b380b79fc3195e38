// File: internal/middleware/ratelimit.go
package middleware

import (
	"math"
	"strconv"
	"sync"
	"time"

	"fitcoach_backend/internal/common"
	"fitcoach_backend/internal/config"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// SignInRateLimiter throttles credential endpoints per client IP.
type SignInRateLimiter struct {
	limit rate.Limit
	burst int

	mu       sync.Mutex
	limiters map[string]*visitor
	now      func() time.Time
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// visitorIdle is how long an IP's limiter is kept after its last request.
const visitorIdle = 10 * time.Minute

// NewSignInRateLimiter allows SIGNIN_RATE_PER_MINUTE attempts with bursts of SIGNIN_BURST.
func NewSignInRateLimiter(cfg *config.Config) *SignInRateLimiter {
	perMinute := cfg.SignInRatePerMinute
	if perMinute <= 0 {
		perMinute = 10
	}
	burst := cfg.SignInBurst
	if burst <= 0 {
		burst = 5
	}
	return &SignInRateLimiter{
		limit:    rate.Limit(float64(perMinute) / 60.0),
		burst:    burst,
		limiters: make(map[string]*visitor),
		now:      time.Now,
	}
}

func (l *SignInRateLimiter) reserve(key string) *rate.Reservation {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	for k, v := range l.limiters {
		if now.Sub(v.lastSeen) > visitorIdle {
			delete(l.limiters, k)
		}
	}
	v, ok := l.limiters[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[key] = v
	}
	v.lastSeen = now
	return v.limiter.ReserveN(now, 1)
}

// Middleware rejects over-limit requests with 429 and a Retry-After header.
func (l *SignInRateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		r := l.reserve(c.ClientIP())
		if delay := r.DelayFrom(l.now()); delay > 0 {
			r.CancelAt(l.now())
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(delay.Seconds()))))
			common.RespondWithError(c, common.ErrTooManyRequests)
			return
		}
		c.Next()
	}
}
