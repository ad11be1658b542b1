// Package middleware provides HTTP middleware components
// following the Chain of Responsibility pattern
package middleware

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/alchemorsel/ingrediate/internal/infrastructure/config"
	"github.com/alchemorsel/ingrediate/internal/infrastructure/security"
	"github.com/alchemorsel/ingrediate/internal/ports/outbound"
	"github.com/alchemorsel/ingrediate/pkg/errors"
)

// RequestIDKey is the gin context key holding the request ID
const RequestIDKey = "request_id"

// Middleware provides all middleware functions
type Middleware struct {
	config *config.Config
	logger *zap.Logger
	tracer trace.Tracer
}

// New creates a new middleware instance
func New(cfg *config.Config, tracer trace.Tracer, logger *zap.Logger) *Middleware {
	return &Middleware{
		config: cfg,
		logger: logger,
		tracer: tracer,
	}
}

// RequestID adds a unique request ID to the context
func (m *Middleware) RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}

		c.Set(RequestIDKey, requestID)
		c.Header("X-Request-ID", requestID)

		c.Next()
	}
}

// Logger provides structured logging for requests
func (m *Middleware) Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		// Skip logging for health checks
		if path == m.config.Monitoring.HealthCheckPath || path == m.config.Monitoring.MetricsPath {
			return
		}

		statusCode := c.Writer.Status()
		if raw != "" {
			path = path + "?" + raw
		}

		fields := []zap.Field{
			zap.String("request_id", c.GetString(RequestIDKey)),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("ip", c.ClientIP()),
			zap.Int("status", statusCode),
			zap.Duration("latency", time.Since(start)),
			zap.String("user_agent", c.Request.UserAgent()),
		}

		if subject := c.GetString(security.SubjectKey); subject != "" {
			fields = append(fields, zap.String("subject", subject))
		}

		errorMessage := c.Errors.ByType(gin.ErrorTypePrivate).String()

		switch {
		case statusCode >= 500:
			m.logger.Error("Server error", append(fields, zap.String("error", errorMessage))...)
		case statusCode >= 400:
			m.logger.Warn("Client error", append(fields, zap.String("error", errorMessage))...)
		default:
			m.logger.Info("Request completed", fields...)
		}
	}
}

// Recovery recovers from panics and returns 500 error
func (m *Middleware) Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				m.logger.Error("Panic recovered",
					zap.String("request_id", c.GetString(RequestIDKey)),
					zap.Any("error", err),
					zap.String("stack", string(debug.Stack())),
				)

				appErr := errors.NewInternalError("")
				c.AbortWithStatusJSON(http.StatusInternalServerError, errors.ToErrorResponse(appErr, c.GetString(RequestIDKey)))
			}
		}()

		c.Next()
	}
}

// CORS handles Cross-Origin Resource Sharing
func (m *Middleware) CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		if origin != "" && m.isOriginAllowed(origin) {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
			c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			c.Header("Access-Control-Max-Age", "86400")
			c.Header("Vary", "Origin")
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// Security adds security headers
func (m *Middleware) Security() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		if m.config.IsProduction() {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}

// Tracing starts a server span for every request
func (m *Middleware) Tracing() gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		ctx, span := m.tracer.Start(
			c.Request.Context(),
			fmt.Sprintf("%s %s", c.Request.Method, route),
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.method", c.Request.Method),
				attribute.String("http.route", route),
				attribute.String("request.id", c.GetString(RequestIDKey)),
			),
		)
		defer span.End()

		c.Request = c.Request.WithContext(ctx)

		c.Next()

		span.SetAttributes(attribute.Int("http.status_code", c.Writer.Status()))
		if len(c.Errors) > 0 {
			span.RecordError(c.Errors.Last())
		}
		if c.Writer.Status() >= 500 {
			span.SetStatus(codes.Error, http.StatusText(c.Writer.Status()))
		}
	}
}

// Timeout bounds the request context. Handlers observe the deadline
// through their context; collaborators abort their calls when it passes.
func (m *Middleware) Timeout(timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if timeout <= 0 {
			c.Next()
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// Authenticate resolves the bearer credential to a subject through the
// identity collaborator and stores it under security.SubjectKey
func (m *Middleware) Authenticate(identity outbound.IdentityProvider) gin.HandlerFunc {
	return func(c *gin.Context) {
		subject, err := identity.Subject(c.Request.Context(), c.GetHeader("Authorization"))
		if err != nil {
			message := "Authentication required"
			if stderrors.Is(err, security.ErrInvalidCredential) {
				message = "Invalid credential"
			}
			m.logger.Debug("Authentication failed",
				zap.String("request_id", c.GetString(RequestIDKey)),
				zap.Error(err),
			)
			appErr := errors.NewUnauthorizedError(message)
			c.AbortWithStatusJSON(appErr.StatusCode(), errors.ToErrorResponse(appErr, c.GetString(RequestIDKey)))
			return
		}

		c.Set(security.SubjectKey, subject)
		c.Next()
	}
}

// ErrorHandler renders the last error attached by a handler as an API
// error response
func (m *Middleware) ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		appErr := errors.Wrap(c.Errors.Last().Err, "An unexpected error occurred")

		fields := []zap.Field{
			zap.String("request_id", c.GetString(RequestIDKey)),
			zap.String("code", string(appErr.Code)),
			zap.String("message", appErr.Message),
			zap.String("details", appErr.Details),
		}
		if appErr.Cause != nil {
			fields = append(fields, zap.Error(appErr.Cause))
		}
		if appErr.StatusCode() >= 500 {
			m.logger.Error("Request error", fields...)
		} else {
			m.logger.Debug("Request rejected", fields...)
		}

		c.JSON(appErr.StatusCode(), errors.ToErrorResponse(appErr, c.GetString(RequestIDKey)))
	}
}

// isOriginAllowed checks if origin is in allowed list
func (m *Middleware) isOriginAllowed(origin string) bool {
	if m.config.IsDevelopment() {
		return true
	}

	for _, allowed := range m.config.Server.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}

	return false
}
