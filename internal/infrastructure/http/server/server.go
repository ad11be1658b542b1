// Package server provides the HTTP server of the recipe session API
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/net/http2"

	"github.com/alchemorsel/ingrediate/internal/infrastructure/config"
	"github.com/alchemorsel/ingrediate/internal/infrastructure/http/handlers"
	"github.com/alchemorsel/ingrediate/internal/infrastructure/http/middleware"
	"github.com/alchemorsel/ingrediate/internal/infrastructure/monitoring"
	"github.com/alchemorsel/ingrediate/internal/infrastructure/security"
	"github.com/alchemorsel/ingrediate/internal/ports/outbound"
	"github.com/alchemorsel/ingrediate/pkg/healthcheck"
)

// Dependencies are the components the router is assembled from.
// Metrics and RateLimiter are optional.
type Dependencies struct {
	Middleware  *middleware.Middleware
	Sessions    *handlers.SessionHandlers
	Identity    outbound.IdentityProvider
	Health      *healthcheck.HealthCheck
	Metrics     *monitoring.MetricsCollector
	RateLimiter security.RateLimiter
}

// Server represents the HTTP server
type Server struct {
	config *config.Config
	logger *zap.Logger
	engine *gin.Engine
	server *http.Server
}

// NewServer creates a new HTTP server instance
func NewServer(cfg *config.Config, deps Dependencies, logger *zap.Logger) *Server {
	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		config: cfg,
		logger: logger.Named("http"),
	}
	s.engine = s.setupRouter(deps)

	s.server = &http.Server{
		Addr:              cfg.ListenAddr(),
		Handler:           s.engine,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	return s
}

func (s *Server) setupRouter(deps Dependencies) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true

	mw := deps.Middleware

	// Global middleware
	r.Use(mw.RequestID())
	r.Use(mw.Recovery())
	r.Use(mw.Logger())
	r.Use(mw.Security())
	r.Use(mw.CORS())
	r.Use(mw.Compress())
	if deps.Metrics != nil {
		r.Use(deps.Metrics.HTTPMiddleware())
	}
	r.Use(mw.Tracing())

	// Unauthenticated operational endpoints
	healthPath := s.config.Monitoring.HealthCheckPath
	r.GET(healthPath, deps.Health.Handler())
	r.GET(healthPath+"/live", deps.Health.LivenessHandler())
	r.GET(healthPath+"/ready", deps.Health.ReadinessHandler())
	if deps.Metrics != nil && s.config.Monitoring.EnableMetrics {
		r.GET(s.config.Monitoring.MetricsPath, gin.WrapH(deps.Metrics.Handler()))
	}

	api := r.Group("/api/v1/session")
	api.Use(mw.ErrorHandler())
	api.Use(mw.Authenticate(deps.Identity))
	if deps.RateLimiter != nil {
		api.Use(security.RateLimitMiddleware(deps.RateLimiter, security.RateLimitConfig{
			Requests: s.config.RateLimit.Requests,
			Window:   s.config.RateLimit.Window,
		}, s.logger))
	}
	api.Use(mw.Timeout(s.config.Server.RequestTimeout))
	deps.Sessions.Register(api)

	return r
}

// Handler returns the root handler, for tests and embedding
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start listens on the configured address and serves until Shutdown.
// It returns nil after a graceful shutdown.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve serves on ln until Shutdown
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("Starting HTTP server",
		zap.String("address", ln.Addr().String()),
		zap.String("environment", s.config.App.Environment),
	)

	if err := http2.ConfigureServer(s.server, nil); err != nil {
		s.logger.Error("Failed to configure HTTP/2", zap.Error(err))
	}

	if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}
