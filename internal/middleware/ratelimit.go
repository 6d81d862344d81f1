package middleware

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	apperrors "github.com/thereayou/direct-chat/pkg/errors"
	"golang.org/x/time/rate"
)

// IPRateLimiter keeps one token bucket per client IP.
type IPRateLimiter struct {
	ips   map[string]*rateLimiterEntry
	mu    sync.Mutex
	r     rate.Limit
	burst int
}

type rateLimiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewIPRateLimiter allows perMinute requests per IP with the given burst.
func NewIPRateLimiter(perMinute, burst int) *IPRateLimiter {
	return &IPRateLimiter{
		ips:   make(map[string]*rateLimiterEntry),
		r:     rate.Limit(float64(perMinute) / 60.0),
		burst: burst,
	}
}

func (rl *IPRateLimiter) GetLimiter(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	entry, ok := rl.ips[ip]
	if !ok {
		entry = &rateLimiterEntry{limiter: rate.NewLimiter(rl.r, rl.burst)}
		rl.ips[ip] = entry
	}
	entry.lastSeen = now
	return entry.limiter
}

// Cleanup forgets IPs not seen for idle.
func (rl *IPRateLimiter) Cleanup(idle time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	for ip, entry := range rl.ips {
		if time.Since(entry.lastSeen) > idle {
			delete(rl.ips, ip)
		}
	}
}

func (rl *IPRateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.GetLimiter(c.ClientIP()).Allow() {
			c.AbortWithStatusJSON(apperrors.ErrRateLimit.Code, gin.H{"error": apperrors.ErrRateLimit.Message})
			return
		}
		c.Next()
	}
}
