package middleware

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/arvi/quotation/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RateLimitResult is the outcome of one request against the limit
type RateLimitResult struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// RateLimitStore counts requests per key in fixed windows
type RateLimitStore interface {
	Take(ctx context.Context, key string) (RateLimitResult, error)
}

// RateLimiter implements a fixed-window in-memory rate limiter
type RateLimiter struct {
	mu          sync.Mutex
	clients     map[string]*client
	limit       int           // Maximum requests per window
	window      time.Duration // Time window
	cleanupTick time.Duration // Cleanup interval
	now         func() time.Time
	stop        chan struct{}
	stopOnce    sync.Once
}

type client struct {
	tokens    int
	lastReset time.Time
}

// NewRateLimiter creates a new rate limiter. Call Stop to end its cleanup loop.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		clients:     make(map[string]*client),
		limit:       limit,
		window:      window,
		cleanupTick: window * 2, // Cleanup every 2 windows
		now:         time.Now,
		stop:        make(chan struct{}),
	}
	go rl.cleanup()
	return rl
}

// Stop ends the cleanup goroutine
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

// cleanup removes expired clients periodically
func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(rl.cleanupTick)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stop:
			return
		case <-ticker.C:
			rl.mu.Lock()
			now := rl.now()
			for key, c := range rl.clients {
				if now.Sub(c.lastReset) > rl.window*2 {
					delete(rl.clients, key)
				}
			}
			rl.mu.Unlock()
		}
	}
}

// Take implements RateLimitStore
func (rl *RateLimiter) Take(_ context.Context, key string) (RateLimitResult, error) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	c, exists := rl.clients[key]
	if !exists || now.Sub(c.lastReset) >= rl.window {
		c = &client{tokens: rl.limit, lastReset: now}
		rl.clients[key] = c
	}

	result := RateLimitResult{Limit: rl.limit, ResetAt: c.lastReset.Add(rl.window)}
	if c.tokens > 0 {
		c.tokens--
		result.Allowed = true
	}
	result.Remaining = c.tokens
	return result, nil
}

// Counter increments a key that expires one window after its first increment
type Counter interface {
	Incr(ctx context.Context, key string, window time.Duration) (count int64, ttl time.Duration, err error)
}

// RedisCounter implements Counter with INCR and EXPIRE NX in one transaction
type RedisCounter struct {
	client redis.Cmdable
}

// NewRedisCounter creates a Counter backed by client
func NewRedisCounter(client redis.Cmdable) *RedisCounter {
	return &RedisCounter{client: client}
}

// Incr implements Counter
func (r *RedisCounter) Incr(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	pipe := r.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, window)
	ttl := pipe.PTTL(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, 0, fmt.Errorf("rate limit counter: %w", err)
	}
	return incr.Val(), ttl.Val(), nil
}

// RedisStore shares fixed-window counts between instances
type RedisStore struct {
	counter Counter
	limit   int
	window  time.Duration
	prefix  string
	now     func() time.Time
}

// NewRedisStore creates a RateLimitStore over counter
func NewRedisStore(counter Counter, limit int, window time.Duration) *RedisStore {
	return &RedisStore{
		counter: counter,
		limit:   limit,
		window:  window,
		prefix:  "quotation:ratelimit:",
		now:     time.Now,
	}
}

// Take implements RateLimitStore
func (s *RedisStore) Take(ctx context.Context, key string) (RateLimitResult, error) {
	count, ttl, err := s.counter.Incr(ctx, s.prefix+key, s.window)
	if err != nil {
		return RateLimitResult{}, err
	}
	if ttl <= 0 {
		ttl = s.window
	}
	remaining := s.limit - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return RateLimitResult{
		Allowed:   count <= int64(s.limit),
		Limit:     s.limit,
		Remaining: remaining,
		ResetAt:   s.now().Add(ttl),
	}, nil
}

// RateLimit returns a rate limiting middleware keyed by client IP.
// When the store fails the request is let through and the failure logged.
func RateLimit(store RateLimitStore, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		key := c.ClientIP()

		result, err := store.Take(c.Request.Context(), key)
		if err != nil {
			logger.Warn("rate limit store unavailable", zap.String("client_ip", key), zap.Error(err))
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(result.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))

		if !result.Allowed {
			retryAfter := int(time.Until(result.ResetAt).Seconds()) + 1
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			abortWithError(c, dto.ErrCodeRateLimited, "Too many requests. Please try again later.")
			return
		}

		c.Next()
	}
}
