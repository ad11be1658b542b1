package security

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLocalRateLimiter_Allow(t *testing.T) {
	limiter := NewLocalRateLimiter(RateLimitConfig{Requests: 60, Window: time.Minute, BurstSize: 2})
	clock := time.Unix(1700000000, 0)
	limiter.now = func() time.Time { return clock }
	ctx := context.Background()

	first, err := limiter.Allow(ctx, "user:a")
	require.NoError(t, err)
	assert.True(t, first.Allowed)
	assert.Equal(t, 1, first.Remaining)

	second, _ := limiter.Allow(ctx, "user:a")
	assert.True(t, second.Allowed)

	third, _ := limiter.Allow(ctx, "user:a")
	assert.False(t, third.Allowed)
	assert.Zero(t, third.Remaining)

	other, _ := limiter.Allow(ctx, "user:b")
	assert.True(t, other.Allowed, "buckets are per key")

	clock = clock.Add(time.Second)
	refilled, _ := limiter.Allow(ctx, "user:a")
	assert.True(t, refilled.Allowed)
}

func TestLocalRateLimiter_PrunesIdleKeys(t *testing.T) {
	limiter := NewLocalRateLimiter(RateLimitConfig{Requests: 10, Window: time.Minute, BurstSize: 1})
	clock := time.Unix(1700000000, 0)
	limiter.now = func() time.Time { return clock }

	_, _ = limiter.Allow(context.Background(), "user:a")
	clock = clock.Add(3 * time.Minute)
	_, _ = limiter.Allow(context.Background(), "user:b")

	assert.Len(t, limiter.limiters, 1)
	assert.Contains(t, limiter.limiters, "user:b")
}

func TestRateLimitMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cfg := RateLimitConfig{Requests: 1, Window: time.Hour, BurstSize: 1, SkipPaths: []string{"/health"}}
	limiter := NewLocalRateLimiter(cfg)

	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set(SubjectKey, c.GetHeader("X-Test-Subject"))
		c.Next()
	})
	router.Use(RateLimitMiddleware(limiter, cfg, zap.NewNop()))
	router.GET("/work", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	router.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	request := func(path, subject string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("X-Test-Subject", subject)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusNoContent, request("/work", "alice").Code)

	limited := request("/work", "alice")
	assert.Equal(t, http.StatusTooManyRequests, limited.Code)
	assert.Equal(t, "3600", limited.Header().Get("Retry-After"))

	var body map[string]map[string]interface{}
	require.NoError(t, json.Unmarshal(limited.Body.Bytes(), &body))
	assert.Equal(t, "TOO_MANY_REQUESTS", body["error"]["code"])

	assert.Equal(t, http.StatusNoContent, request("/work", "bob").Code)
	assert.Equal(t, http.StatusOK, request("/health", "alice").Code)
}
