package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/snapscrape/config"
	"github.com/use-agent/snapscrape/models"
	"golang.org/x/time/rate"
)

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// limiterSet keeps one token bucket per identity.
type limiterSet struct {
	mu       sync.Mutex
	cfg      config.RateLimitConfig
	limiters map[string]*limiterEntry
}

func newLimiterSet(cfg config.RateLimitConfig) *limiterSet {
	return &limiterSet{cfg: cfg, limiters: make(map[string]*limiterEntry)}
}

func (s *limiterSet) get(identity string, now time.Time) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.limiters[identity]
	if !ok {
		entry = &limiterEntry{
			limiter: rate.NewLimiter(rate.Limit(s.cfg.RequestsPerSecond), s.cfg.Burst),
		}
		s.limiters[identity] = entry
	}
	entry.lastSeen = now
	return entry.limiter
}

// evictIdle drops entries not seen since cutoff and returns how many remain.
func (s *limiterSet) evictIdle(cutoff time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, entry := range s.limiters {
		if entry.lastSeen.Before(cutoff) {
			delete(s.limiters, id)
		}
	}
	return len(s.limiters)
}

// RateLimit returns per-identity (API key or IP) token-bucket rate limiting
// middleware powered by golang.org/x/time/rate.
//
// Entries unused for 1 hour are evicted by a background goroutine that runs
// every 5 minutes.
func RateLimit(cfg config.RateLimitConfig) gin.HandlerFunc {
	set := newLimiterSet(cfg)

	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			set.evictIdle(time.Now().Add(-1 * time.Hour))
		}
	}()

	return func(c *gin.Context) {
		// Prefer API key as identity (set by auth middleware); fall back to IP.
		identity := c.GetString(APIKeyContextKey)
		if identity == "" {
			identity = c.ClientIP()
		}

		if !set.get(identity, time.Now()).Allow() {
			c.Header("Retry-After", strconv.Itoa(retryAfterSeconds(cfg.RequestsPerSecond)))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, models.NewErrorResponse(models.ErrCodeRateLimited, "rate limit exceeded, please slow down"))
			return
		}

		c.Next()
	}
}

// retryAfterSeconds is the time for one token to refill, rounded up.
func retryAfterSeconds(rps float64) int {
	if rps <= 0 {
		return 60
	}
	return max(1, int(math.Ceil(1/rps)))
}
