package monitoring

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/alchemorsel/ingrediate/internal/domain/recipe"
	"github.com/alchemorsel/ingrediate/internal/domain/shared"
)

const namespace = "ingrediate"

// SessionCounter reports how many user sessions are live
type SessionCounter interface {
	Len() int
}

// MetricsCollector handles Prometheus metrics collection
type MetricsCollector struct {
	logger   *zap.Logger
	registry *prometheus.Registry

	// HTTP metrics
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Session metrics
	listsReplacedTotal   *prometheus.CounterVec
	recipesDroppedTotal  prometheus.Counter
	resultsStaleTotal    *prometheus.CounterVec
	favoriteTogglesTotal *prometheus.CounterVec
	translationDuration  *prometheus.HistogramVec
	translationFailed    *prometheus.CounterVec
	operationErrorsTotal *prometheus.CounterVec
}

// NewMetricsCollector creates a collector backed by its own registry.
// Go runtime and process collectors are registered alongside.
func NewMetricsCollector(logger *zap.Logger) *MetricsCollector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &MetricsCollector{
		logger:   logger,
		registry: reg,

		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status_code"},
		),
		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		listsReplacedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "recipe_lists_replaced_total",
				Help:      "Active recipe lists installed, by source operation",
			},
			[]string{"source"},
		),
		recipesDroppedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "recipes_dropped_total",
				Help:      "Raw retrieval results rejected during normalization",
			},
		),
		resultsStaleTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "results_discarded_total",
				Help:      "Superseded asynchronous results that were discarded",
			},
			[]string{"operation"},
		),
		favoriteTogglesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "favorite_toggles_total",
				Help:      "Settled favorite toggles",
			},
			[]string{"action", "outcome"},
		),
		translationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "translation_duration_seconds",
				Help:      "Wall time of a full translation batch",
				Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
			},
			[]string{"language"},
		),
		translationFailed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "translation_failed_fields_total",
				Help:      "Fields left untranslated after a collaborator failure",
			},
			[]string{"language"},
		),
		operationErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "operation_errors_total",
				Help:      "Session operations that failed on a collaborator",
			},
			[]string{"operation"},
		),
	}
}

// Registerer exposes the collector's registry for other metric producers
func (m *MetricsCollector) Registerer() prometheus.Registerer {
	return m.registry
}

// TrackSessions exports the live session count as a gauge
func (m *MetricsCollector) TrackSessions(counter SessionCounter) {
	promauto.With(m.registry).NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Number of live user sessions",
		},
		func() float64 { return float64(counter.Len()) },
	)
}

// Subscribe registers handlers that turn session events into metrics
func (m *MetricsCollector) Subscribe(events shared.EventDispatcher) {
	events.Register(recipe.ListReplacedEvent{}.EventName(), func(e shared.DomainEvent) error {
		if ev, ok := e.(recipe.ListReplacedEvent); ok {
			m.listsReplacedTotal.WithLabelValues(string(ev.Source)).Inc()
			m.recipesDroppedTotal.Add(float64(ev.Dropped))
		}
		return nil
	})
	events.Register(recipe.ResultDiscardedEvent{}.EventName(), func(e shared.DomainEvent) error {
		if ev, ok := e.(recipe.ResultDiscardedEvent); ok {
			m.resultsStaleTotal.WithLabelValues(ev.Operation).Inc()
		}
		return nil
	})
	events.Register(recipe.FavoriteToggledEvent{}.EventName(), func(e shared.DomainEvent) error {
		if ev, ok := e.(recipe.FavoriteToggledEvent); ok {
			action := "remove"
			if ev.Added {
				action = "add"
			}
			outcome := "ok"
			if ev.Reverted {
				outcome = "reverted"
			}
			m.favoriteTogglesTotal.WithLabelValues(action, outcome).Inc()
		}
		return nil
	})
	events.Register(recipe.TranslationCompletedEvent{}.EventName(), func(e shared.DomainEvent) error {
		if ev, ok := e.(recipe.TranslationCompletedEvent); ok {
			lang := string(ev.Language)
			m.translationDuration.WithLabelValues(lang).Observe(ev.Duration.Seconds())
			m.translationFailed.WithLabelValues(lang).Add(float64(ev.FailedFields))
		}
		return nil
	})
	events.Register(recipe.OperationFailedEvent{}.EventName(), func(e shared.DomainEvent) error {
		if ev, ok := e.(recipe.OperationFailedEvent); ok {
			m.operationErrorsTotal.WithLabelValues(ev.Operation).Inc()
			m.logger.Debug("Session operation failed",
				zap.String("operation", ev.Operation),
				zap.Error(ev.Err),
			)
		}
		return nil
	})
}

// HTTPMiddleware creates a Gin middleware for HTTP metrics collection
func (m *MetricsCollector) HTTPMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		statusCode := strconv.Itoa(c.Writer.Status())

		m.httpRequestsTotal.WithLabelValues(c.Request.Method, path, statusCode).Inc()
		m.httpRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

// Handler returns the Prometheus metrics HTTP handler
func (m *MetricsCollector) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
