package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// limiterIdleTTL is how long a client may stay silent before its limiter is
// dropped. A limiter idle that long has refilled to its full burst, so a fresh
// one behaves the same.
const limiterIdleTTL = 10 * time.Minute

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// limiterSet holds one token bucket per client IP. Idle entries are swept at
// most once per idle period, on the request path.
type limiterSet struct {
	rps   rate.Limit
	burst int
	idle  time.Duration
	now   func() time.Time

	mu        sync.Mutex
	clients   map[string]*clientLimiter
	lastSweep time.Time
}

func newLimiterSet(rps float64, idle time.Duration) *limiterSet {
	return &limiterSet{
		rps:       rate.Limit(rps),
		burst:     max(int(rps), 1),
		idle:      idle,
		now:       time.Now,
		clients:   make(map[string]*clientLimiter),
		lastSweep: time.Now(),
	}
}

func (s *limiterSet) allow(ip string) bool {
	now := s.now()

	s.mu.Lock()
	if now.Sub(s.lastSweep) >= s.idle {
		s.sweep(now)
	}
	cl, ok := s.clients[ip]
	if !ok {
		cl = &clientLimiter{limiter: rate.NewLimiter(s.rps, s.burst)}
		s.clients[ip] = cl
	}
	cl.lastSeen = now
	s.mu.Unlock()

	return cl.limiter.AllowN(now, 1)
}

// sweep must be called with mu held.
func (s *limiterSet) sweep(now time.Time) {
	for ip, cl := range s.clients {
		if now.Sub(cl.lastSeen) >= s.idle {
			delete(s.clients, ip)
		}
	}
	s.lastSweep = now
}

func (s *limiterSet) size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// RateLimitMiddleware allows each client IP rps requests per second with a
// burst of the same size.
func RateLimitMiddleware(rps float64) gin.HandlerFunc {
	return rateLimit(newLimiterSet(rps, limiterIdleTTL))
}

func rateLimit(set *limiterSet) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !set.allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded",
			})
			return
		}
		c.Next()
	}
}
