// Package container provides dependency injection using Uber FX
// This implements the Dependency Inversion Principle from SOLID
package container

import (
	"context"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/alchemorsel/ingrediate/internal/application/session"
	"github.com/alchemorsel/ingrediate/internal/application/translation"
	"github.com/alchemorsel/ingrediate/internal/domain/shared"
	"github.com/alchemorsel/ingrediate/internal/infrastructure/cache"
	"github.com/alchemorsel/ingrediate/internal/infrastructure/config"
	"github.com/alchemorsel/ingrediate/internal/infrastructure/http/handlers"
	"github.com/alchemorsel/ingrediate/internal/infrastructure/http/middleware"
	"github.com/alchemorsel/ingrediate/internal/infrastructure/http/server"
	"github.com/alchemorsel/ingrediate/internal/infrastructure/monitoring"
	gormrepo "github.com/alchemorsel/ingrediate/internal/infrastructure/persistence/gorm"
	"github.com/alchemorsel/ingrediate/internal/infrastructure/persistence/memory"
	redisrepo "github.com/alchemorsel/ingrediate/internal/infrastructure/persistence/redis"
	"github.com/alchemorsel/ingrediate/internal/infrastructure/recipeapi"
	"github.com/alchemorsel/ingrediate/internal/infrastructure/security"
	"github.com/alchemorsel/ingrediate/internal/infrastructure/translate"
	"github.com/alchemorsel/ingrediate/internal/ports/inbound"
	"github.com/alchemorsel/ingrediate/internal/ports/outbound"
	"github.com/alchemorsel/ingrediate/pkg/healthcheck"
	"github.com/alchemorsel/ingrediate/pkg/logger"
)

// ConfigPath is the configuration file to load; empty searches the default
// locations
type ConfigPath string

// Module provides all dependency injection modules
var Module = fx.Options(
	// Infrastructure modules
	ConfigModule,
	LoggerModule,
	ObservabilityModule,
	PersistenceModule,

	// Collaborator modules
	CollaboratorModule,

	// Session modules
	SessionModule,

	// HTTP modules
	HTTPModule,

	// Lifecycle hooks
	LifecycleModule,
)

// ConfigModule provides configuration
var ConfigModule = fx.Provide(
	func(path ConfigPath) (*config.Config, error) {
		return config.Load(string(path))
	},
)

// LoggerModule provides logging
var LoggerModule = fx.Provide(
	func(cfg *config.Config) (*zap.Logger, zap.AtomicLevel, error) {
		return logger.New(logger.Config{
			Level:       cfg.App.LogLevel,
			Format:      cfg.App.LogFormat,
			Development: cfg.App.Debug,
		})
	},
)

// ObservabilityModule provides metrics, tracing, health checks and the
// event dispatcher the session publishes to
var ObservabilityModule = fx.Provide(
	monitoring.NewMetricsCollector,
	NewTracingProvider,
	func(tp *monitoring.TracingProvider) trace.Tracer {
		return tp.Tracer()
	},
	NewEventDispatcher,
	func(cfg *config.Config, log *zap.Logger) *healthcheck.HealthCheck {
		return healthcheck.New(cfg.App.Version, log.Named("health"))
	},
)

// PersistenceModule provides the favorites store and its connections
var PersistenceModule = fx.Provide(
	NewRedisConnector,
	NewFavoritesStore,
)

// CollaboratorModule provides the outbound collaborators
var CollaboratorModule = fx.Provide(
	NewRecipeBreaker,
	func(cfg *config.Config, breaker *healthcheck.CircuitBreaker, log *zap.Logger) *recipeapi.Client {
		return recipeapi.NewClient(cfg.RecipeAPI, log, recipeapi.WithCircuitBreaker(breaker))
	},
	func(cfg *config.Config, log *zap.Logger) *translate.Client {
		return translate.NewClient(cfg.Translation, log)
	},
	NewTranslator,
	NewTranslationPipeline,
	security.NewSanitizer,
	NewIdentityProvider,
)

// SessionModule provides the per-user session registry
var SessionModule = fx.Provide(
	NewSessionRegistry,
	func(r *session.Registry) inbound.SessionRegistry {
		return r
	},
)

// HTTPModule provides HTTP server and handlers
var HTTPModule = fx.Provide(
	func(cfg *config.Config, tracer trace.Tracer, log *zap.Logger) *middleware.Middleware {
		return middleware.New(cfg, tracer, log)
	},
	handlers.NewSessionHandlers,
	NewRateLimiter,
	NewServer,
)

// LifecycleModule provides lifecycle hooks
var LifecycleModule = fx.Invoke(
	RegisterHealthChecks,
	RegisterLifecycleHooks,
)

// NewTracingProvider creates the tracing provider and bridges OpenTelemetry
// metrics into the Prometheus registry when metrics are enabled
func NewTracingProvider(lc fx.Lifecycle, cfg *config.Config, metrics *monitoring.MetricsCollector, log *zap.Logger) (*monitoring.TracingProvider, error) {
	reg := metrics.Registerer()
	if !cfg.Monitoring.EnableMetrics {
		reg = nil
	}

	tp, err := monitoring.NewTracingProvider(monitoring.TracingConfigFrom(cfg), reg, log.Named("tracing"))
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: tp.Shutdown,
	})
	return tp, nil
}

// NewEventDispatcher creates the session event dispatcher with the metrics
// handlers subscribed
func NewEventDispatcher(metrics *monitoring.MetricsCollector, log *zap.Logger) shared.EventDispatcher {
	dispatcher := shared.NewSyncDispatcher()
	metrics.Subscribe(dispatcher)
	log.Debug("Session events subscribed to metrics")
	return dispatcher
}

// RedisConnector opens the shared Redis client the first time a component
// asks for it, so deployments that use no Redis-backed component never dial
type RedisConnector struct {
	cfg    config.RedisConfig
	health *healthcheck.HealthCheck
	logger *zap.Logger

	client goredis.UniversalClient
}

// NewRedisConnector creates a connector and closes its client on stop
func NewRedisConnector(lc fx.Lifecycle, cfg *config.Config, health *healthcheck.HealthCheck, log *zap.Logger) *RedisConnector {
	rc := &RedisConnector{
		cfg:    cfg.Redis,
		health: health,
		logger: log,
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			if rc.client == nil {
				return nil
			}
			return rc.client.Close()
		},
	})
	return rc
}

// Client returns the connected client. Constructors run sequentially, so no
// locking is needed.
func (rc *RedisConnector) Client(ctx context.Context) (goredis.UniversalClient, error) {
	if rc.client != nil {
		return rc.client, nil
	}

	client, err := redisrepo.NewClient(ctx, rc.cfg, rc.logger)
	if err != nil {
		return nil, err
	}
	rc.client = client
	rc.health.Register("redis", healthcheck.NewRedisChecker(client))
	return client, nil
}

// NewFavoritesStore creates the favorites store for the configured backend
func NewFavoritesStore(lc fx.Lifecycle, cfg *config.Config, rc *RedisConnector, health *healthcheck.HealthCheck, log *zap.Logger) (outbound.FavoritesStore, error) {
	log.Info("Initializing favorites store", zap.String("backend", cfg.Favorites.Backend))

	switch cfg.Favorites.Backend {
	case config.FavoritesBackendRedis:
		client, err := rc.Client(context.Background())
		if err != nil {
			return nil, err
		}
		return redisrepo.NewFavoritesStore(client, cfg.Redis.KeyPrefix, log), nil

	case config.FavoritesBackendSQL:
		db, err := gormrepo.Open(cfg.Database, log)
		if err != nil {
			return nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get sql.DB: %w", err)
		}
		health.Register("database", healthcheck.NewSQLChecker(sqlDB))
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				return closeDatabase(db)
			},
		})
		return gormrepo.NewFavoritesRepository(db, log), nil

	default:
		return memory.NewFavoritesStore(), nil
	}
}

func closeDatabase(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// NewRecipeBreaker creates the circuit breaker guarding the recipe service
func NewRecipeBreaker(cfg *config.Config, log *zap.Logger) *healthcheck.CircuitBreaker {
	return healthcheck.NewCircuitBreaker("recipe-api", recipeapi.BreakerConfig(cfg.RecipeAPI, log))
}

// NewTranslator puts the configured translation cache in front of the
// translation service client
func NewTranslator(cfg *config.Config, client *translate.Client, rc *RedisConnector, log *zap.Logger) (outbound.Translator, error) {
	var redisClient goredis.UniversalClient
	switch cfg.Translation.CacheBackend {
	case config.CacheBackendNone:
		return client, nil
	case config.CacheBackendRedis:
		c, err := rc.Client(context.Background())
		if err != nil {
			return nil, err
		}
		redisClient = c
	}

	return cache.NewTranslationCache(client, redisClient, cache.TranslationConfig{
		Size:        cfg.Translation.CacheSize,
		TTL:         cfg.Translation.CacheTTL,
		KeyPrefix:   cfg.Redis.KeyPrefix,
		CallTimeout: cfg.Translation.Timeout,
	}, log), nil
}

// NewTranslationPipeline creates the translation pipeline over the
// translation service
func NewTranslationPipeline(cfg *config.Config, translator outbound.Translator, log *zap.Logger) (*translation.Pipeline, error) {
	mode, err := translation.ParseMode(cfg.Translation.Mode)
	if err != nil {
		return nil, err
	}
	return translation.NewPipeline(translator, log,
		translation.WithMode(mode),
		translation.WithMaxConcurrency(cfg.Translation.MaxConcurrency),
	), nil
}

// NewIdentityProvider creates the bearer token identity collaborator
func NewIdentityProvider(cfg *config.Config, log *zap.Logger) outbound.IdentityProvider {
	if cfg.Auth.JWTSecret == "" {
		log.Warn("auth.jwt_secret is empty, every credential will be rejected")
	}
	return security.NewTokenIdentity(cfg.Auth.JWTSecret, cfg.Auth.Issuer, log)
}

// SessionParams are the collaborators every session controller shares
type SessionParams struct {
	fx.In

	Config     *config.Config
	Recipes    *recipeapi.Client
	Favorites  outbound.FavoritesStore
	Translator *translation.Pipeline
	Sanitizer  *security.Sanitizer
	Events     shared.EventDispatcher
	Tracer     trace.Tracer
	Metrics    *monitoring.MetricsCollector
	Logger     *zap.Logger
}

// NewSessionRegistry creates the registry handing each user a controller
// built on the shared collaborators
func NewSessionRegistry(p SessionParams) *session.Registry {
	factory := func() *session.Controller {
		return session.NewController(session.Dependencies{
			Retriever:  p.Recipes,
			Lookup:     p.Recipes,
			Favorites:  p.Favorites,
			Translator: p.Translator,
			Sanitizer:  p.Sanitizer,
			Events:     p.Events,
			Tracer:     p.Tracer,
			Logger:     p.Logger,
		})
	}

	registry := session.NewRegistry(factory, p.Config.Session.IdleTimeout, p.Logger)
	p.Metrics.TrackSessions(registry)
	return registry
}

// NewRateLimiter creates the request limiter for the configured backend.
// It returns nil when rate limiting is disabled.
func NewRateLimiter(cfg *config.Config, rc *RedisConnector, log *zap.Logger) (security.RateLimiter, error) {
	if !cfg.RateLimit.Enabled {
		return nil, nil
	}

	limits := security.RateLimitConfig{
		Requests:  cfg.RateLimit.Requests,
		Window:    cfg.RateLimit.Window,
		BurstSize: cfg.RateLimit.Burst,
	}

	if cfg.RateLimit.Backend == config.RateLimitBackendRedis {
		client, err := rc.Client(context.Background())
		if err != nil {
			return nil, err
		}
		log.Info("Using Redis rate limiter")
		return security.NewRedisRateLimiter(client, cfg.Redis.KeyPrefix, limits), nil
	}

	return security.NewLocalRateLimiter(limits), nil
}

// ServerParams are the components the HTTP server is assembled from
type ServerParams struct {
	fx.In

	Config      *config.Config
	Middleware  *middleware.Middleware
	Sessions    *handlers.SessionHandlers
	Identity    outbound.IdentityProvider
	Health      *healthcheck.HealthCheck
	Metrics     *monitoring.MetricsCollector
	RateLimiter security.RateLimiter
	Logger      *zap.Logger
}

// NewServer creates the HTTP server
func NewServer(p ServerParams) *server.Server {
	return server.NewServer(p.Config, server.Dependencies{
		Middleware:  p.Middleware,
		Sessions:    p.Sessions,
		Identity:    p.Identity,
		Health:      p.Health,
		Metrics:     p.Metrics,
		RateLimiter: p.RateLimiter,
	}, p.Logger)
}

// RegisterHealthChecks registers the checks of the remote collaborators
func RegisterHealthChecks(cfg *config.Config, health *healthcheck.HealthCheck, breaker *healthcheck.CircuitBreaker) {
	health.Register("recipe_api", healthcheck.NewCircuitBreakerChecker(breaker))

	// Without translation the session stays usable in English
	health.Register("translation",
		healthcheck.NewEndpointChecker(strings.TrimRight(cfg.Translation.BaseURL, "/")+"/languages", nil),
		healthcheck.Optional(),
		healthcheck.WithTimeout(3*time.Second),
	)
}

// RegisterLifecycleHooks registers application lifecycle hooks
func RegisterLifecycleHooks(
	lc fx.Lifecycle,
	shutdowner fx.Shutdowner,
	path ConfigPath,
	cfg *config.Config,
	level zap.AtomicLevel,
	log *zap.Logger,
	registry *session.Registry,
	srv *server.Server,
) {
	ctx, cancel := context.WithCancel(context.Background())

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			log.Info("Starting Ingrediate",
				zap.String("version", cfg.App.Version),
				zap.String("environment", cfg.App.Environment),
			)

			go registry.Run(ctx, cfg.Session.CleanupInterval)

			if _, err := config.Watch(string(path), func(next *config.Config) {
				newLevel := logger.ParseLevel(next.App.LogLevel)
				if newLevel != level.Level() {
					level.SetLevel(newLevel)
					log.Info("Log level changed", zap.String("level", newLevel.String()))
				}
			}, func(err error) {
				log.Warn("Ignoring configuration change", zap.Error(err))
			}); err != nil {
				log.Warn("Configuration watch disabled", zap.Error(err))
			}

			// Start HTTP server
			go func() {
				if err := srv.Start(); err != nil {
					log.Error("HTTP server failed", zap.Error(err))
					_ = shutdowner.Shutdown(fx.ExitCode(1))
				}
			}()

			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("Shutting down Ingrediate")
			cancel()

			// Shutdown HTTP server
			if err := srv.Shutdown(ctx); err != nil {
				log.Error("Failed to shutdown HTTP server", zap.Error(err))
			}

			// Flush logs
			_ = log.Sync()

			return nil
		},
	})
}
