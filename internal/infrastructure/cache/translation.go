package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/alchemorsel/ingrediate/internal/ports/outbound"
)

// TranslationConfig shapes the translation cache. CallTimeout bounds a shared
// upstream call, which outlives the cancellation of any single caller.
type TranslationConfig struct {
	Size        int
	TTL         time.Duration
	KeyPrefix   string
	CallTimeout time.Duration
}

// TranslationCache implements outbound.Translator by answering repeated
// (text, target) pairs from the local tier, then Redis, and only then the
// wrapped translator. Concurrent misses for the same pair share one call,
// which runs detached from the callers' cancellation; each caller stops
// waiting when its own context ends. Redis failures are logged and treated
// as misses; failed translations are never cached.
type TranslationCache struct {
	next   outbound.Translator
	local  *LocalCache
	redis  redis.UniversalClient
	config TranslationConfig
	group  singleflight.Group
	logger *zap.Logger

	lookups metric.Int64Counter
}

var _ outbound.Translator = (*TranslationCache)(nil)

// NewTranslationCache wraps next. A nil client disables the Redis tier.
func NewTranslationCache(next outbound.Translator, client redis.UniversalClient, cfg TranslationConfig, logger *zap.Logger) *TranslationCache {
	if cfg.TTL <= 0 {
		cfg.TTL = 24 * time.Hour
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 30 * time.Second
	}

	lookups, _ := otel.Meter("github.com/alchemorsel/ingrediate/cache").Int64Counter(
		"translate.cache.lookups",
		metric.WithDescription("Translation cache lookups by tier and result"),
	)

	return &TranslationCache{
		next:    next,
		local:   NewLocalCache(cfg.Size),
		redis:   client,
		config:  cfg,
		logger:  logger.Named("translation-cache"),
		lookups: lookups,
	}
}

// Translate returns the cached translation of text or asks the wrapped translator
func (c *TranslationCache) Translate(ctx context.Context, text, targetCode string) (string, error) {
	key := c.key(text, targetCode)

	if translated, ok := c.local.Get(key); ok {
		c.record(ctx, "local", "hit")
		return translated, nil
	}

	if c.redis != nil {
		translated, err := c.redis.Get(ctx, key).Result()
		switch {
		case err == nil:
			c.record(ctx, "redis", "hit")
			c.local.Set(key, translated, c.config.TTL)
			return translated, nil
		case errors.Is(err, redis.Nil):
		default:
			c.logger.Warn("Translation cache read failed", zap.Error(err))
		}
	}
	c.record(ctx, "source", "miss")

	ch := c.group.DoChan(key, func() (interface{}, error) {
		callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.config.CallTimeout)
		defer cancel()

		translated, err := c.next.Translate(callCtx, text, targetCode)
		if err != nil {
			return "", err
		}

		c.local.Set(key, translated, c.config.TTL)
		if c.redis != nil {
			if err := c.redis.Set(callCtx, key, translated, c.config.TTL).Err(); err != nil {
				c.logger.Warn("Translation cache write failed", zap.Error(err))
			}
		}
		return translated, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (c *TranslationCache) key(text, targetCode string) string {
	sum := sha256.Sum256([]byte(text))
	prefix := c.config.KeyPrefix
	if prefix == "" {
		prefix = "ingrediate"
	}
	return prefix + ":translation:" + targetCode + ":" + hex.EncodeToString(sum[:])
}

func (c *TranslationCache) record(ctx context.Context, tier, result string) {
	c.lookups.Add(ctx, 1, metric.WithAttributes(
		attribute.String("tier", tier),
		attribute.String("result", result),
	))
}
