package server

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// limiterIdleTTL bounds how long an unused per-IP bucket is kept around.
const limiterIdleTTL = 10 * time.Minute

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// clientLimiters hands out one token bucket per client IP and evicts idle
// entries so the map stays bounded in long-running processes.
type clientLimiters struct {
	mu       sync.Mutex
	limiters map[string]*clientLimiter
	rps      rate.Limit
	burst    int
}

func newClientLimiters(rps float64, burst int) *clientLimiters {
	return &clientLimiters{
		limiters: make(map[string]*clientLimiter),
		rps:      rate.Limit(rps),
		burst:    burst,
	}
}

func (c *clientLimiters) get(ip string) *rate.Limiter {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.limiters[ip]
	if !ok {
		l = &clientLimiter{limiter: rate.NewLimiter(c.rps, c.burst)}
		c.limiters[ip] = l
	}
	l.lastSeen = time.Now()
	return l.limiter
}

// evictIdle drops buckets not seen within the idle window.
func (c *clientLimiters) evictIdle(idle time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cutoff := time.Now().Add(-idle)
	for ip, l := range c.limiters {
		if l.lastSeen.Before(cutoff) {
			delete(c.limiters, ip)
		}
	}
}

func (c *clientLimiters) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.limiters)
}

// rateLimit applies a per-client-IP token bucket to every request.
func (s *Server) rateLimit(next http.Handler) http.Handler {
	limiters := newClientLimiters(s.cfg.RateLimitRPS, s.cfg.RateLimitBurst)
	go func() {
		for {
			time.Sleep(limiterIdleTTL)
			limiters.evictIdle(limiterIdleTTL)
		}
	}()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			ip = r.RemoteAddr
		}
		if !limiters.get(ip).Allow() {
			writeError(w, http.StatusTooManyRequests, "Too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}
