package middleware

import (
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimit throttles requests per client IP with a token bucket. Buckets
// idle for longer than idleTTL are dropped on the next request that arrives
// after a cleanup interval.
func RateLimit(perSecond float64, burst int) gin.HandlerFunc {
	l := newIPLimiter(rate.Limit(perSecond), burst, 10*time.Minute)
	return func(c *gin.Context) {
		limiter := l.get(c.ClientIP(), time.Now())
		if !limiter.Allow() {
			retryAfter := time.Second
			if perSecond > 0 {
				retryAfter = time.Duration(float64(time.Second) / perSecond)
			}
			slog.WarnContext(c.Request.Context(), "rate limit exceeded",
				"client_ip", c.ClientIP(),
				"path", c.Request.URL.Path)
			c.Header("Retry-After", strconv.Itoa(max(1, int(retryAfter.Round(time.Second).Seconds()))))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}

type ipLimiter struct {
	mu        sync.Mutex
	limit     rate.Limit
	burst     int
	idleTTL   time.Duration
	lastSweep time.Time
	clients   map[string]*clientLimiter
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newIPLimiter(limit rate.Limit, burst int, idleTTL time.Duration) *ipLimiter {
	return &ipLimiter{
		limit:   limit,
		burst:   burst,
		idleTTL: idleTTL,
		clients: make(map[string]*clientLimiter),
	}
}

func (l *ipLimiter) get(ip string, now time.Time) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) > l.idleTTL {
		for k, c := range l.clients {
			if now.Sub(c.lastSeen) > l.idleTTL {
				delete(l.clients, k)
			}
		}
		l.lastSweep = now
	}

	c, ok := l.clients[ip]
	if !ok {
		c = &clientLimiter{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[ip] = c
	}
	c.lastSeen = now
	return c.limiter
}
