package middleware

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/user/gunvortv/internal/utils"
	"golang.org/x/time/rate"
)

// RateLimiter token bucket per client IP
type RateLimiter struct {
	mu       sync.Mutex
	clients  map[string]*client
	limit    rate.Limit
	burst    int
	idleTTL  time.Duration
	lastScan time.Time
}

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter allows rps requests per second with the given burst per client
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		clients:  make(map[string]*client),
		limit:    rate.Limit(rps),
		burst:    burst,
		idleTTL:  10 * time.Minute,
		lastScan: time.Now(),
	}
}

// Allow reports whether key may proceed now
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	if now.Sub(rl.lastScan) > rl.idleTTL {
		for k, cl := range rl.clients {
			if now.Sub(cl.lastSeen) > rl.idleTTL {
				delete(rl.clients, k)
			}
		}
		rl.lastScan = now
	}

	cl, ok := rl.clients[key]
	if !ok {
		cl = &client{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.clients[key] = cl
	}
	cl.lastSeen = now
	return cl.limiter.Allow()
}

// Middleware answers 429 once the client's bucket is empty
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.Allow(utils.HashIP(c.ClientIP())) {
			c.Header("Retry-After", "1")
			utils.TooManyRequests(c)
			c.Abort()
			return
		}
		c.Next()
	}
}
