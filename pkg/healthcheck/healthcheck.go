// Package healthcheck reports whether the session service's collaborators
// are reachable. Critical checks decide readiness; optional checks can at
// worst degrade the overall status.
package healthcheck

import (
	"context"
	"database/sql"
	"io"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Status represents the health status
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

func (s Status) rank() int {
	switch s {
	case StatusHealthy:
		return 0
	case StatusDegraded:
		return 1
	default:
		return 2
	}
}

// Millis is a duration that marshals as whole milliseconds
type Millis time.Duration

func (m Millis) MarshalJSON() ([]byte, error) {
	return strconv.AppendInt(nil, time.Duration(m).Milliseconds(), 10), nil
}

// Check is the outcome of one named checker
type Check struct {
	Name     string                 `json:"name"`
	Status   Status                 `json:"status"`
	Message  string                 `json:"message,omitempty"`
	Critical bool                   `json:"critical"`
	Duration Millis                 `json:"duration_ms"`
	Details  map[string]interface{} `json:"details,omitempty"`
}

// Response is the body served on the health endpoint
type Response struct {
	Status    Status    `json:"status"`
	Version   string    `json:"version"`
	Timestamp time.Time `json:"timestamp"`
	Checks    []Check   `json:"checks"`
	Duration  Millis    `json:"total_duration_ms"`
}

// Checker inspects one collaborator. Name, Critical and Duration are filled
// in by the HealthCheck that runs it.
type Checker interface {
	Check(ctx context.Context) Check
}

// CheckerFunc adapts a function to Checker
type CheckerFunc func(ctx context.Context) Check

func (f CheckerFunc) Check(ctx context.Context) Check { return f(ctx) }

type registration struct {
	name     string
	checker  Checker
	critical bool
	timeout  time.Duration
}

// Option customises a registration
type Option func(*registration)

// Optional marks a check whose failure degrades the service without making
// it unready.
func Optional() Option {
	return func(r *registration) { r.critical = false }
}

// WithTimeout bounds a single check run
func WithTimeout(d time.Duration) Option {
	return func(r *registration) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// HealthCheck runs the registered checks concurrently and caches the
// aggregate for a short while.
type HealthCheck struct {
	version string
	logger  *zap.Logger

	mu       sync.Mutex
	checks   []registration
	last     map[string]Status
	cache    *Response
	cacheTTL time.Duration
}

const defaultCheckTimeout = 5 * time.Second

// New creates an empty HealthCheck reporting version
func New(version string, logger *zap.Logger) *HealthCheck {
	return &HealthCheck{
		version:  version,
		logger:   logger,
		last:     make(map[string]Status),
		cacheTTL: 5 * time.Second,
	}
}

// Register adds checker under name, replacing an earlier registration with
// the same name. Checks are critical unless Optional is given.
func (h *HealthCheck) Register(name string, checker Checker, opts ...Option) {
	r := registration{name: name, checker: checker, critical: true, timeout: defaultCheckTimeout}
	for _, opt := range opts {
		opt(&r)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.cache = nil
	for i := range h.checks {
		if h.checks[i].name == name {
			h.checks[i] = r
			return
		}
	}
	h.checks = append(h.checks, r)
	sort.Slice(h.checks, func(i, j int) bool { return h.checks[i].name < h.checks[j].name })
}

// SetCacheTTL sets how long an aggregate is served before checks rerun
func (h *HealthCheck) SetCacheTTL(ttl time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cacheTTL = ttl
	h.cache = nil
}

// Check returns the aggregate status, running the checks when the cached
// one has expired.
func (h *HealthCheck) Check(ctx context.Context) Response {
	h.mu.Lock()
	if h.cache != nil && time.Since(h.cache.Timestamp) < h.cacheTTL {
		cached := *h.cache
		h.mu.Unlock()
		return cached
	}
	checks := append([]registration(nil), h.checks...)
	h.mu.Unlock()

	start := time.Now()
	results := make([]Check, len(checks))

	var wg sync.WaitGroup
	for i, r := range checks {
		wg.Add(1)
		go func(i int, r registration) {
			defer wg.Done()
			results[i] = r.run(ctx)
		}(i, r)
	}
	wg.Wait()

	response := Response{
		Status:    StatusHealthy,
		Version:   h.version,
		Timestamp: start,
		Checks:    results,
		Duration:  Millis(time.Since(start)),
	}
	for _, c := range results {
		if c.Status.rank() > response.Status.rank() {
			response.Status = c.Status
		}
	}

	h.mu.Lock()
	h.logTransitions(results)
	h.cache = &response
	h.mu.Unlock()

	return response
}

func (r registration) run(ctx context.Context) Check {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	check := r.checker.Check(ctx)
	check.Name = r.name
	check.Critical = r.critical
	check.Duration = Millis(time.Since(start))

	if check.Status == "" {
		check.Status = StatusUnhealthy
	}
	if !r.critical && check.Status == StatusUnhealthy {
		check.Status = StatusDegraded
	}
	return check
}

// logTransitions logs checks whose status changed since the last run.
// Callers hold h.mu.
func (h *HealthCheck) logTransitions(results []Check) {
	for _, c := range results {
		previous, seen := h.last[c.Name]
		h.last[c.Name] = c.Status
		if previous == c.Status || (!seen && c.Status == StatusHealthy) {
			continue
		}

		fields := []zap.Field{
			zap.String("check", c.Name),
			zap.String("status", string(c.Status)),
			zap.Bool("critical", c.Critical),
		}
		if c.Message != "" {
			fields = append(fields, zap.String("message", c.Message))
		}
		if c.Status == StatusHealthy {
			h.logger.Info("Health check recovered", fields...)
		} else {
			h.logger.Warn("Health check failing", fields...)
		}
	}
}

// Handler serves the full report; 503 only when a critical check fails
func (h *HealthCheck) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		response := h.Check(c.Request.Context())

		code := http.StatusOK
		if response.Status == StatusUnhealthy {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, response)
	}
}

// LivenessHandler answers as long as the process serves HTTP
func (h *HealthCheck) LivenessHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "alive",
			"timestamp": time.Now(),
		})
	}
}

// ReadinessHandler reports ready while every critical check passes. A
// degraded service still takes traffic.
func (h *HealthCheck) ReadinessHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		response := h.Check(c.Request.Context())

		if response.Status == StatusUnhealthy {
			var failing []Check
			for _, check := range response.Checks {
				if check.Status == StatusUnhealthy {
					failing = append(failing, check)
				}
			}
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "not_ready",
				"checks": failing,
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "ready",
			"degraded":  response.Status == StatusDegraded,
			"timestamp": response.Timestamp,
		})
	}
}

// SQLChecker pings the favorites database
type SQLChecker struct {
	db *sql.DB
}

func NewSQLChecker(db *sql.DB) *SQLChecker {
	return &SQLChecker{db: db}
}

// Check degrades when more than 90% of the pool is in use
func (d *SQLChecker) Check(ctx context.Context) Check {
	if err := d.db.PingContext(ctx); err != nil {
		return Check{Status: StatusUnhealthy, Message: err.Error()}
	}

	stats := d.db.Stats()
	check := Check{
		Status: StatusHealthy,
		Details: map[string]interface{}{
			"open_conns":     stats.OpenConnections,
			"in_use_conns":   stats.InUse,
			"max_open_conns": stats.MaxOpenConnections,
		},
	}
	if stats.MaxOpenConnections > 0 && stats.InUse*10 > stats.MaxOpenConnections*9 {
		check.Status = StatusDegraded
		check.Message = "connection pool nearly exhausted"
	}
	return check
}

// RedisChecker pings Redis
type RedisChecker struct {
	client redis.UniversalClient
}

func NewRedisChecker(client redis.UniversalClient) *RedisChecker {
	return &RedisChecker{client: client}
}

func (r *RedisChecker) Check(ctx context.Context) Check {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return Check{Status: StatusUnhealthy, Message: err.Error()}
	}

	stats := r.client.PoolStats()
	return Check{
		Status: StatusHealthy,
		Details: map[string]interface{}{
			"total_conns": stats.TotalConns,
			"idle_conns":  stats.IdleConns,
			"timeouts":    stats.Timeouts,
		},
	}
}

// EndpointChecker issues a GET against a collaborator endpoint. 2xx is
// healthy, 5xx and transport errors are unhealthy, anything else degraded.
type EndpointChecker struct {
	url    string
	client *http.Client
}

func NewEndpointChecker(url string, client *http.Client) *EndpointChecker {
	if client == nil {
		client = http.DefaultClient
	}
	return &EndpointChecker{url: url, client: client}
}

func (e *EndpointChecker) Check(ctx context.Context) Check {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.url, nil)
	if err != nil {
		return Check{Status: StatusUnhealthy, Message: err.Error()}
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return Check{Status: StatusUnhealthy, Message: err.Error()}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	check := Check{Details: map[string]interface{}{"status_code": resp.StatusCode}}
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		check.Status = StatusHealthy
	case resp.StatusCode >= 500:
		check.Status = StatusUnhealthy
		check.Message = "endpoint returned " + resp.Status
	default:
		check.Status = StatusDegraded
		check.Message = "endpoint returned " + resp.Status
	}
	return check
}
