// Package security provides per-subject rate limiting
package security

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/alchemorsel/ingrediate/pkg/errors"
)

// RateLimitConfig defines rate limit configuration
type RateLimitConfig struct {
	Requests  int           `json:"requests"`
	Window    time.Duration `json:"window"`
	BurstSize int           `json:"burst_size"`
	SkipPaths []string      `json:"skip_paths"`
}

// RateLimitResult is the outcome of one rate limit check
type RateLimitResult struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// RateLimiter decides whether the caller identified by key may proceed
type RateLimiter interface {
	Allow(ctx context.Context, key string) (RateLimitResult, error)
}

// LocalRateLimiter keeps one token bucket per key in process memory.
// Buckets idle for longer than two windows are pruned lazily.
type LocalRateLimiter struct {
	config   RateLimitConfig
	mu       sync.Mutex
	limiters map[string]*localEntry
	lastGC   time.Time
	now      func() time.Time
}

type localEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewLocalRateLimiter creates an in-process limiter
func NewLocalRateLimiter(config RateLimitConfig) *LocalRateLimiter {
	if config.BurstSize < 1 {
		config.BurstSize = 1
	}
	return &LocalRateLimiter{
		config:   config,
		limiters: make(map[string]*localEntry),
		now:      time.Now,
	}
}

// Allow consumes a token from key's bucket
func (l *LocalRateLimiter) Allow(ctx context.Context, key string) (RateLimitResult, error) {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	l.prune(now)

	entry, ok := l.limiters[key]
	if !ok {
		every := rate.Every(l.config.Window / time.Duration(max(l.config.Requests, 1)))
		entry = &localEntry{limiter: rate.NewLimiter(every, l.config.BurstSize)}
		l.limiters[key] = entry
	}
	entry.lastSeen = now

	allowed := entry.limiter.AllowN(now, 1)
	remaining := int(entry.limiter.TokensAt(now))
	if remaining < 0 {
		remaining = 0
	}

	return RateLimitResult{
		Allowed:   allowed,
		Remaining: remaining,
		ResetAt:   now.Add(l.config.Window),
	}, nil
}

func (l *LocalRateLimiter) prune(now time.Time) {
	if now.Sub(l.lastGC) < l.config.Window {
		return
	}
	l.lastGC = now
	for key, entry := range l.limiters {
		if now.Sub(entry.lastSeen) > 2*l.config.Window {
			delete(l.limiters, key)
		}
	}
}

// RedisRateLimiter implements a sliding window shared by every replica
type RedisRateLimiter struct {
	client    redis.UniversalClient
	config    RateLimitConfig
	keyPrefix string
}

// NewRedisRateLimiter creates a limiter backed by Redis sorted sets
func NewRedisRateLimiter(client redis.UniversalClient, keyPrefix string, config RateLimitConfig) *RedisRateLimiter {
	return &RedisRateLimiter{
		client:    client,
		config:    config,
		keyPrefix: keyPrefix,
	}
}

// Allow records the request and counts the requests inside the window
func (r *RedisRateLimiter) Allow(ctx context.Context, key string) (RateLimitResult, error) {
	now := time.Now()
	windowStart := now.Add(-r.config.Window)
	redisKey := fmt.Sprintf("%s:rate_limit:%s", r.keyPrefix, key)

	pipe := r.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, redisKey, "0", strconv.FormatInt(windowStart.UnixNano(), 10))
	count := pipe.ZCard(ctx, redisKey)
	pipe.ZAdd(ctx, redisKey, redis.Z{
		Score:  float64(now.UnixNano()),
		Member: uuid.NewString(),
	})
	pipe.Expire(ctx, redisKey, r.config.Window*2)

	if _, err := pipe.Exec(ctx); err != nil {
		return RateLimitResult{}, fmt.Errorf("rate limit check failed: %w", err)
	}

	seen := int(count.Val())
	remaining := r.config.Requests - seen - 1
	if remaining < 0 {
		remaining = 0
	}

	return RateLimitResult{
		Allowed:   seen < r.config.Requests,
		Remaining: remaining,
		ResetAt:   now.Add(r.config.Window),
	}, nil
}

// RateLimitMiddleware limits requests per authenticated subject, falling
// back to the client IP. Limiter failures let the request through.
func RateLimitMiddleware(limiter RateLimiter, config RateLimitConfig, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		for _, skipPath := range config.SkipPaths {
			if c.Request.URL.Path == skipPath {
				c.Next()
				return
			}
		}

		key := "ip:" + c.ClientIP()
		if subject := c.GetString(SubjectKey); subject != "" {
			key = "user:" + subject
		}

		result, err := limiter.Allow(c.Request.Context(), key)
		if err != nil {
			logger.Error("Rate limit check failed", zap.Error(err))
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(config.Requests))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))

		if !result.Allowed {
			logger.Warn("Rate limit exceeded",
				zap.String("key", key),
				zap.String("path", c.Request.URL.Path),
			)
			c.Header("Retry-After", strconv.Itoa(int(config.Window.Seconds())))
			appErr := errors.NewAppError(errors.CodeTooManyRequests, "Rate limit exceeded", "Too many requests. Please try again later.")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, errors.ToErrorResponse(appErr, c.GetString("request_id")))
			return
		}

		c.Next()
	}
}
