package middleware

import (
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/nitishkumar124/vekonnect/pkg/log"
	"github.com/nitishkumar124/vekonnect/pkg/response"
)

// RateLimiterConfig holds the per-client rate limit settings.
type RateLimiterConfig struct {
	// AuthRate limits unauthenticated register/login attempts per client IP.
	AuthRate  rate.Limit
	AuthBurst int
	// GeneralRate limits authenticated API calls per user.
	GeneralRate  rate.Limit
	GeneralBurst int
	// CleanupInterval controls how often idle limiter entries are evicted.
	CleanupInterval time.Duration
}

// DefaultRateLimiterConfig returns the default limits:
// 10 auth attempts per minute per IP, 120 API calls per minute per user.
func DefaultRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{
		AuthRate:        rate.Limit(10.0 / 60.0),
		AuthBurst:       10,
		GeneralRate:     rate.Limit(120.0 / 60.0),
		GeneralBurst:    120,
		CleanupInterval: 5 * time.Minute,
	}
}

// clientLimiter pairs a limiter with its last access time for eviction.
type clientLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// RateLimiter enforces token-bucket rate limits per client. Auth endpoints
// are keyed by client IP since the caller has no identity yet; everything
// else is keyed by authenticated user ID.
type RateLimiter struct {
	config RateLimiterConfig

	mu       sync.Mutex
	auth     map[string]*clientLimiter
	general  map[string]*clientLimiter
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewRateLimiter creates a rate limiter and starts its background cleanup loop.
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	rl := &RateLimiter{
		config:  config,
		auth:    make(map[string]*clientLimiter),
		general: make(map[string]*clientLimiter),
		stopCh:  make(chan struct{}),
	}

	go rl.cleanupLoop()

	return rl
}

// Stop terminates the background cleanup goroutine.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stopCh) })
}

// AuthMiddleware returns a Gin middleware limiting register/login attempts
// per client IP.
func (rl *RateLimiter) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		limiter := rl.getOrCreate(rl.auth, c.ClientIP(), rl.config.AuthRate, rl.config.AuthBurst)
		if !limiter.Allow() {
			l := log.Ctx(c.Request.Context())
			l.Warn().
				Str(log.FieldClientIP, c.ClientIP()).
				Msg("auth rate limit exceeded")
			rejectRateLimited(c, rl.config.AuthRate)
			return
		}
		c.Next()
	}
}

// GeneralMiddleware returns a Gin middleware limiting authenticated API
// calls per user. It must run after RequireAuth.
func (rl *RateLimiter) GeneralMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := GetUserID(c)
		if userID == "" {
			response.Unauthorized(c, "authentication required")
			c.Abort()
			return
		}

		limiter := rl.getOrCreate(rl.general, userID, rl.config.GeneralRate, rl.config.GeneralBurst)
		if !limiter.Allow() {
			l := log.Ctx(c.Request.Context())
			l.Warn().
				Str(log.FieldUserID, userID).
				Msg("rate limit exceeded")
			rejectRateLimited(c, rl.config.GeneralRate)
			return
		}
		c.Next()
	}
}

func (rl *RateLimiter) getOrCreate(m map[string]*clientLimiter, key string, r rate.Limit, burst int) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if cl, exists := m[key]; exists {
		cl.lastAccess = time.Now()
		return cl.limiter
	}

	limiter := rate.NewLimiter(r, burst)
	m[key] = &clientLimiter{
		limiter:    limiter,
		lastAccess: time.Now(),
	}
	return limiter
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup()
		case <-rl.stopCh:
			return
		}
	}
}

// cleanup evicts entries idle for longer than twice the cleanup interval.
func (rl *RateLimiter) cleanup() {
	ttl := rl.config.CleanupInterval * 2
	now := time.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	for key, cl := range rl.auth {
		if now.Sub(cl.lastAccess) > ttl {
			delete(rl.auth, key)
		}
	}
	for key, cl := range rl.general {
		if now.Sub(cl.lastAccess) > ttl {
			delete(rl.general, key)
		}
	}
}

// rejectRateLimited writes a 429 with a Retry-After hint for one token.
func rejectRateLimited(c *gin.Context, r rate.Limit) {
	retryAfterSec := int(math.Ceil(1.0 / float64(r)))
	if retryAfterSec < 1 {
		retryAfterSec = 1
	}
	c.Header("Retry-After", strconv.Itoa(retryAfterSec))
	response.Error(c, 429, "too many requests, please try again later")
	c.Abort()
}
