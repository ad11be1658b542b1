package healthcheck

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func staticChecker(status Status, message string) Checker {
	return CheckerFunc(func(ctx context.Context) Check {
		return Check{Status: status, Message: message}
	})
}

func TestHealthCheck_Check_NoCheckers(t *testing.T) {
	hc := New("1.0.0", zap.NewNop())

	response := hc.Check(context.Background())

	assert.Equal(t, StatusHealthy, response.Status)
	assert.Equal(t, "1.0.0", response.Version)
	assert.Empty(t, response.Checks)
}

func TestHealthCheck_Check_AggregatesWorstStatus(t *testing.T) {
	tests := []struct {
		name     string
		statuses []Status
		expected Status
	}{
		{"all healthy", []Status{StatusHealthy, StatusHealthy}, StatusHealthy},
		{"one degraded", []Status{StatusHealthy, StatusDegraded}, StatusDegraded},
		{"one unhealthy", []Status{StatusDegraded, StatusUnhealthy}, StatusUnhealthy},
		{"missing status", []Status{StatusHealthy, ""}, StatusUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hc := New("1.0.0", zap.NewNop())
			for i := len(tt.statuses) - 1; i >= 0; i-- {
				hc.Register(string(rune('a'+i)), staticChecker(tt.statuses[i], ""))
			}

			response := hc.Check(context.Background())

			assert.Equal(t, tt.expected, response.Status)
			require.Len(t, response.Checks, len(tt.statuses))
			assert.Equal(t, "a", response.Checks[0].Name)
			assert.Equal(t, "b", response.Checks[1].Name)
			assert.True(t, response.Checks[0].Critical)
		})
	}
}

func TestHealthCheck_OptionalCheckOnlyDegrades(t *testing.T) {
	hc := New("1.0.0", zap.NewNop())
	hc.Register("recipe_api", staticChecker(StatusHealthy, ""))
	hc.Register("translation", staticChecker(StatusUnhealthy, "connection refused"), Optional())

	response := hc.Check(context.Background())

	assert.Equal(t, StatusDegraded, response.Status)
	require.Len(t, response.Checks, 2)
	translation := response.Checks[1]
	assert.Equal(t, "translation", translation.Name)
	assert.Equal(t, StatusDegraded, translation.Status)
	assert.False(t, translation.Critical)
	assert.Equal(t, "connection refused", translation.Message)
}

func TestHealthCheck_WithTimeoutBoundsSlowCheck(t *testing.T) {
	hc := New("1.0.0", zap.NewNop())
	hc.Register("slow", CheckerFunc(func(ctx context.Context) Check {
		<-ctx.Done()
		return Check{Status: StatusUnhealthy, Message: ctx.Err().Error()}
	}), WithTimeout(20*time.Millisecond))

	start := time.Now()
	response := hc.Check(context.Background())

	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, StatusUnhealthy, response.Status)
	assert.Equal(t, context.DeadlineExceeded.Error(), response.Checks[0].Message)
}

func TestHealthCheck_RegisterReplacesByName(t *testing.T) {
	hc := New("1.0.0", zap.NewNop())
	hc.Register("redis", staticChecker(StatusUnhealthy, "down"))
	hc.Register("redis", staticChecker(StatusHealthy, ""))

	response := hc.Check(context.Background())

	require.Len(t, response.Checks, 1)
	assert.Equal(t, StatusHealthy, response.Status)
}

func TestHealthCheck_Check_CachesResponse(t *testing.T) {
	hc := New("1.0.0", zap.NewNop())
	var calls atomic.Int32
	hc.Register("counting", CheckerFunc(func(ctx context.Context) Check {
		calls.Add(1)
		return Check{Status: StatusHealthy}
	}))

	hc.Check(context.Background())
	hc.Check(context.Background())
	assert.Equal(t, int32(1), calls.Load())

	hc.SetCacheTTL(0)
	hc.Check(context.Background())
	assert.Equal(t, int32(2), calls.Load())
}

func TestHealthCheck_LogsTransitionsOnce(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	hc := New("1.0.0", zap.New(core))
	hc.SetCacheTTL(0)

	var status atomic.Value
	status.Store(StatusHealthy)
	hc.Register("redis", CheckerFunc(func(ctx context.Context) Check {
		return Check{Status: status.Load().(Status)}
	}))

	hc.Check(context.Background())
	assert.Zero(t, logs.Len())

	status.Store(StatusUnhealthy)
	hc.Check(context.Background())
	hc.Check(context.Background())
	require.Equal(t, 1, logs.FilterMessage("Health check failing").Len())

	status.Store(StatusHealthy)
	hc.Check(context.Background())
	assert.Equal(t, 1, logs.FilterMessage("Health check recovered").Len())
}

func TestHealthCheck_Handlers(t *testing.T) {
	gin.SetMode(gin.TestMode)

	serve := func(hc *HealthCheck, path string) *httptest.ResponseRecorder {
		router := gin.New()
		router.GET("/health", hc.Handler())
		router.GET("/health/live", hc.LivenessHandler())
		router.GET("/health/ready", hc.ReadinessHandler())

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		return w
	}

	t.Run("critical failure", func(t *testing.T) {
		hc := New("2.0.0", zap.NewNop())
		hc.Register("recipe_api", staticChecker(StatusUnhealthy, "down"))

		w := serve(hc, "/health")
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)

		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "unhealthy", body["status"])
		assert.Equal(t, "2.0.0", body["version"])

		assert.Equal(t, http.StatusOK, serve(hc, "/health/live").Code)
		assert.Equal(t, http.StatusServiceUnavailable, serve(hc, "/health/ready").Code)
	})

	t.Run("optional failure", func(t *testing.T) {
		hc := New("2.0.0", zap.NewNop())
		hc.Register("translation", staticChecker(StatusUnhealthy, "down"), Optional())

		assert.Equal(t, http.StatusOK, serve(hc, "/health").Code)

		w := serve(hc, "/health/ready")
		assert.Equal(t, http.StatusOK, w.Code)
		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "ready", body["status"])
		assert.Equal(t, true, body["degraded"])
	})
}

func TestEndpointChecker(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		expected Status
	}{
		{"ok", http.StatusOK, StatusHealthy},
		{"client error", http.StatusNotFound, StatusDegraded},
		{"server error", http.StatusBadGateway, StatusUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			check := NewEndpointChecker(server.URL, server.Client()).Check(context.Background())

			assert.Equal(t, tt.expected, check.Status)
			assert.Equal(t, tt.status, check.Details["status_code"])
		})
	}

	t.Run("unreachable", func(t *testing.T) {
		server := httptest.NewServer(http.NotFoundHandler())
		url := server.URL
		server.Close()

		check := NewEndpointChecker(url, nil).Check(context.Background())

		assert.Equal(t, StatusUnhealthy, check.Status)
		assert.NotEmpty(t, check.Message)
	})
}

func TestSQLChecker(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "health.db")), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)

	check := NewSQLChecker(sqlDB).Check(context.Background())
	assert.Equal(t, StatusHealthy, check.Status)
	assert.Contains(t, check.Details, "open_conns")

	require.NoError(t, sqlDB.Close())
	check = NewSQLChecker(sqlDB).Check(context.Background())
	assert.Equal(t, StatusUnhealthy, check.Status)
	assert.Contains(t, check.Message, "closed")
}

func TestCheck_JSONShape(t *testing.T) {
	raw, err := json.Marshal(Check{Name: "db", Status: StatusHealthy, Critical: true, Duration: Millis(1500 * time.Millisecond)})
	require.NoError(t, err)

	assert.JSONEq(t, `{"name":"db","status":"healthy","critical":true,"duration_ms":1500}`, string(raw))
}
