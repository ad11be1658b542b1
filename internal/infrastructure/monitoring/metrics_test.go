package monitoring

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/alchemorsel/ingrediate/internal/domain/recipe"
	"github.com/alchemorsel/ingrediate/internal/infrastructure/config"
	"github.com/alchemorsel/ingrediate/internal/domain/shared"
)

type fixedSessions int

func (f fixedSessions) Len() int { return int(f) }

func TestMetricsCollector_SessionEvents(t *testing.T) {
	m := NewMetricsCollector(zap.NewNop())
	events := shared.NewSyncDispatcher()
	m.Subscribe(events)

	now := time.Now()
	require.NoError(t, events.Dispatch(recipe.ListReplacedEvent{Source: recipe.SourceGeneration, Count: 3, Dropped: 2, ReplacedAt: now}))
	require.NoError(t, events.Dispatch(recipe.ListReplacedEvent{Source: recipe.SourceFavorites, Count: 1, ReplacedAt: now}))
	require.NoError(t, events.Dispatch(recipe.ResultDiscardedEvent{Operation: "translate", DiscardedAt: now}))
	require.NoError(t, events.Dispatch(recipe.FavoriteToggledEvent{Added: true, ToggledAt: now}))
	require.NoError(t, events.Dispatch(recipe.FavoriteToggledEvent{Added: true, Reverted: true, ToggledAt: now}))
	require.NoError(t, events.Dispatch(recipe.TranslationCompletedEvent{Language: recipe.Spanish, FailedFields: 4, Duration: time.Second, CompletedAt: now}))
	require.NoError(t, events.Dispatch(recipe.OperationFailedEvent{Operation: "generate", Err: errors.New("boom"), FailedAt: now}))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.listsReplacedTotal.WithLabelValues("generation")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.listsReplacedTotal.WithLabelValues("favorites")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.recipesDroppedTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.resultsStaleTotal.WithLabelValues("translate")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.favoriteTogglesTotal.WithLabelValues("add", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.favoriteTogglesTotal.WithLabelValues("add", "reverted")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.translationFailed.WithLabelValues(string(recipe.Spanish))))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.operationErrorsTotal.WithLabelValues("generate")))
}

func TestMetricsCollector_HTTPMiddlewareAndHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)

	m := NewMetricsCollector(zap.NewNop())
	m.TrackSessions(fixedSessions(3))

	router := gin.New()
	router.Use(m.HTTPMiddleware())
	router.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	router.GET("/metrics", gin.WrapH(m.Handler()))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nowhere", nil))
	require.Equal(t, http.StatusNotFound, w.Code)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues("GET", "/ping", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues("GET", "unmatched", "404")))

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	body, err := io.ReadAll(w.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "ingrediate_active_sessions 3")
	assert.Contains(t, string(body), `ingrediate_http_requests_total{method="GET",path="/ping",status_code="200"} 1`)
}

func TestTracingProvider_Disabled(t *testing.T) {
	m := NewMetricsCollector(zap.NewNop())

	tp, err := NewTracingProvider(TracingConfig{ServiceName: "ingrediate-test"}, m.Registerer(), zap.NewNop())
	require.NoError(t, err)
	assert.False(t, tp.Enabled())
	require.NotNil(t, tp.Tracer())

	_, span := tp.Tracer().Start(context.Background(), "noop")
	span.End()

	assert.NoError(t, tp.Shutdown(context.Background()))
}

func TestTracingProvider_Exporters(t *testing.T) {
	for _, exporter := range []string{config.TraceExporterOTLP, config.TraceExporterOTLPGRPC, config.TraceExporterJaeger} {
		t.Run(exporter, func(t *testing.T) {
			tp, err := NewTracingProvider(TracingConfig{
				ServiceName:    "ingrediate-test",
				ServiceVersion: "test",
				Exporter:       exporter,
				OTLPEndpoint:   "127.0.0.1:4318",
				JaegerEndpoint: "http://127.0.0.1:14268/api/traces",
				SamplingRate:   0,
				Enabled:        true,
			}, nil, zap.NewNop())
			require.NoError(t, err)
			assert.True(t, tp.Enabled())

			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			assert.NoError(t, tp.Shutdown(ctx))
		})
	}
}
