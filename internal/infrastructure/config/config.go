// Package config provides centralized configuration management
// using Viper for configuration loading and validation
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App         AppConfig         `mapstructure:"app"`
	Server      ServerConfig      `mapstructure:"server"`
	Auth        AuthConfig        `mapstructure:"auth"`
	RecipeAPI   RecipeAPIConfig   `mapstructure:"recipe_api"`
	Translation TranslationConfig `mapstructure:"translation"`
	Favorites   FavoritesConfig   `mapstructure:"favorites"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Session     SessionConfig     `mapstructure:"session"`
	RateLimit   RateLimitConfig   `mapstructure:"rate_limit"`
	Monitoring  MonitoringConfig  `mapstructure:"monitoring"`
}

// AppConfig contains application-level configuration
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	Debug       bool   `mapstructure:"debug"`
	LogLevel    string `mapstructure:"log_level"`
	LogFormat   string `mapstructure:"log_format"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string            `mapstructure:"host"`
	Port            int               `mapstructure:"port"`
	ReadTimeout     time.Duration     `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration     `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration     `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration     `mapstructure:"shutdown_timeout"`
	RequestTimeout  time.Duration     `mapstructure:"request_timeout"`
	AllowedOrigins  []string          `mapstructure:"allowed_origins"`
	Compression     CompressionConfig `mapstructure:"compression"`
}

// CompressionConfig controls response compression
type CompressionConfig struct {
	Enabled     bool `mapstructure:"enabled"`
	MinSize     int  `mapstructure:"min_size"`
	GzipLevel   int  `mapstructure:"gzip_level"`
	BrotliLevel int  `mapstructure:"brotli_level"`
}

// AuthConfig contains identity verification configuration
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
	Issuer    string `mapstructure:"issuer"`
}

// RecipeAPIConfig points at the recipe retrieval and lookup service
type RecipeAPIConfig struct {
	BaseURL          string        `mapstructure:"base_url"`
	APIKey           string        `mapstructure:"api_key"`
	Timeout          time.Duration `mapstructure:"timeout"`
	FailureThreshold int           `mapstructure:"failure_threshold"`
	BreakerTimeout   time.Duration `mapstructure:"breaker_timeout"`
}

// TranslationConfig points at the translation service and shapes batches
type TranslationConfig struct {
	BaseURL           string        `mapstructure:"base_url"`
	APIKey            string        `mapstructure:"api_key"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Burst             int           `mapstructure:"burst"`
	MaxConcurrency    int           `mapstructure:"max_concurrency"`
	Mode              string        `mapstructure:"mode"`
	CacheBackend      string        `mapstructure:"cache_backend"`
	CacheSize         int           `mapstructure:"cache_size"`
	CacheTTL          time.Duration `mapstructure:"cache_ttl"`
}

// FavoritesConfig selects the favorites persistence backend
type FavoritesConfig struct {
	Backend string `mapstructure:"backend"`
}

// RedisConfig contains Redis configuration
type RedisConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Password     string        `mapstructure:"password"`
	Database     int           `mapstructure:"database"`
	PoolSize     int           `mapstructure:"pool_size"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	KeyPrefix    string        `mapstructure:"key_prefix"`
}

// DatabaseConfig contains SQL database configuration
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	DSN             string        `mapstructure:"dsn"`
	Replicas        []string      `mapstructure:"replicas"`
	Path            string        `mapstructure:"path"`
	LogLevel        string        `mapstructure:"log_level"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// SessionConfig controls per-user session lifetime
type SessionConfig struct {
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// RateLimitConfig throttles session requests per authenticated user
type RateLimitConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Backend  string        `mapstructure:"backend"`
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
	Burst    int           `mapstructure:"burst"`
}

// MonitoringConfig contains monitoring configuration
type MonitoringConfig struct {
	EnableMetrics   bool    `mapstructure:"enable_metrics"`
	MetricsPath     string  `mapstructure:"metrics_path"`
	EnableTracing   bool    `mapstructure:"enable_tracing"`
	TraceExporter   string  `mapstructure:"trace_exporter"`
	OTLPEndpoint    string  `mapstructure:"otlp_endpoint"`
	JaegerEndpoint  string  `mapstructure:"jaeger_endpoint"`
	SamplingRate    float64 `mapstructure:"sampling_rate"`
	HealthCheckPath string  `mapstructure:"health_check_path"`
}

// Translation failure modes
const (
	TranslationModeTolerant = "tolerant"
	TranslationModeFailFast = "fail_fast"
)

// Translation cache backends
const (
	CacheBackendNone   = "none"
	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"
)

// Favorites backends
const (
	FavoritesBackendMemory = "memory"
	FavoritesBackendRedis  = "redis"
	FavoritesBackendSQL    = "sql"
)

// Rate limit backends
const (
	RateLimitBackendMemory = "memory"
	RateLimitBackendRedis  = "redis"
)

// Trace exporters
const (
	TraceExporterOTLP     = "otlp"
	TraceExporterOTLPGRPC = "otlp_grpc"
	TraceExporterJaeger   = "jaeger"
)

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v, err := newViper(configPath)
	if err != nil {
		return nil, err
	}
	return decode(v)
}

// Watch loads configuration and calls onChange with the re-read
// configuration whenever the config file changes. Invalid edits are reported
// through onError and otherwise ignored.
func Watch(configPath string, onChange func(*Config), onError func(error)) (*Config, error) {
	v, err := newViper(configPath)
	if err != nil {
		return nil, err
	}
	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}
	if v.ConfigFileUsed() == "" {
		return cfg, nil
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		next, err := decode(v)
		if err != nil {
			if onError != nil {
				onError(fmt.Errorf("reload %s: %w", e.Name, err))
			}
			return
		}
		onChange(next)
	})
	v.WatchConfig()

	return cfg, nil
}

func newViper(configPath string) (*viper.Viper, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/ingrediate")
	}

	v.SetEnvPrefix("INGREDIATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine, defaults and env cover everything
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	return v, nil
}

func decode(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "Ingrediate")
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.debug", false)
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.log_format", "json")

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.request_timeout", "45s")
	v.SetDefault("server.allowed_origins", []string{})
	v.SetDefault("server.compression.enabled", true)
	v.SetDefault("server.compression.min_size", 1024)
	v.SetDefault("server.compression.gzip_level", 6)
	v.SetDefault("server.compression.brotli_level", 4)

	v.SetDefault("auth.issuer", "")

	v.SetDefault("recipe_api.base_url", "http://localhost:3000/api")
	v.SetDefault("recipe_api.timeout", "20s")
	v.SetDefault("recipe_api.failure_threshold", 5)
	v.SetDefault("recipe_api.breaker_timeout", "30s")

	v.SetDefault("translation.base_url", "http://localhost:5000")
	v.SetDefault("translation.timeout", "15s")
	v.SetDefault("translation.requests_per_second", 20)
	v.SetDefault("translation.burst", 10)
	v.SetDefault("translation.max_concurrency", 0)
	v.SetDefault("translation.mode", TranslationModeTolerant)
	v.SetDefault("translation.cache_backend", CacheBackendMemory)
	v.SetDefault("translation.cache_size", 10000)
	v.SetDefault("translation.cache_ttl", "24h")

	v.SetDefault("favorites.backend", FavoritesBackendMemory)

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.database", 0)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.dial_timeout", "5s")
	v.SetDefault("redis.read_timeout", "3s")
	v.SetDefault("redis.write_timeout", "3s")
	v.SetDefault("redis.key_prefix", "ingrediate")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "ingrediate.db")
	v.SetDefault("database.log_level", "silent")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")

	v.SetDefault("session.idle_timeout", "2h")
	v.SetDefault("session.cleanup_interval", "5m")

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.backend", RateLimitBackendMemory)
	v.SetDefault("rate_limit.requests", 120)
	v.SetDefault("rate_limit.window", "1m")
	v.SetDefault("rate_limit.burst", 20)

	v.SetDefault("monitoring.enable_metrics", true)
	v.SetDefault("monitoring.metrics_path", "/metrics")
	v.SetDefault("monitoring.enable_tracing", false)
	v.SetDefault("monitoring.trace_exporter", TraceExporterOTLP)
	v.SetDefault("monitoring.otlp_endpoint", "localhost:4318")
	v.SetDefault("monitoring.jaeger_endpoint", "http://localhost:14268/api/traces")
	v.SetDefault("monitoring.sampling_rate", 0.1)
	v.SetDefault("monitoring.health_check_path", "/health")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.App.Name == "" {
		return fmt.Errorf("app.name is required")
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}

	if c.Auth.JWTSecret == "" && c.IsProduction() {
		return fmt.Errorf("auth.jwt_secret is required in production")
	}

	if c.Server.Compression.GzipLevel < -2 || c.Server.Compression.GzipLevel > 9 {
		return fmt.Errorf("server.compression.gzip_level must be between -2 and 9")
	}

	if c.Server.Compression.BrotliLevel < 0 || c.Server.Compression.BrotliLevel > 11 {
		return fmt.Errorf("server.compression.brotli_level must be between 0 and 11")
	}

	if c.RecipeAPI.BaseURL == "" {
		return fmt.Errorf("recipe_api.base_url is required")
	}

	switch c.Translation.Mode {
	case TranslationModeTolerant, TranslationModeFailFast:
	default:
		return fmt.Errorf("translation.mode must be %q or %q", TranslationModeTolerant, TranslationModeFailFast)
	}

	if c.Translation.MaxConcurrency < 0 {
		return fmt.Errorf("translation.max_concurrency must not be negative")
	}

	switch c.Translation.CacheBackend {
	case CacheBackendNone, CacheBackendMemory, CacheBackendRedis:
	default:
		return fmt.Errorf("translation.cache_backend must be one of none, memory, redis")
	}

	switch c.Favorites.Backend {
	case FavoritesBackendMemory, FavoritesBackendRedis, FavoritesBackendSQL:
	default:
		return fmt.Errorf("favorites.backend must be one of memory, redis, sql")
	}

	if c.Favorites.Backend == FavoritesBackendSQL {
		switch c.Database.Driver {
		case "sqlite", "postgres":
		default:
			return fmt.Errorf("database.driver must be sqlite or postgres")
		}
		if c.Database.Driver == "postgres" && c.Database.DSN == "" {
			return fmt.Errorf("database.dsn is required for postgres")
		}
	}

	if c.RateLimit.Enabled {
		switch c.RateLimit.Backend {
		case RateLimitBackendMemory, RateLimitBackendRedis:
		default:
			return fmt.Errorf("rate_limit.backend must be %q or %q", RateLimitBackendMemory, RateLimitBackendRedis)
		}
		if c.RateLimit.Requests < 1 || c.RateLimit.Window <= 0 {
			return fmt.Errorf("rate_limit.requests and rate_limit.window must be positive")
		}
	}

	if c.Monitoring.EnableTracing {
		switch c.Monitoring.TraceExporter {
		case TraceExporterOTLP, TraceExporterOTLPGRPC, TraceExporterJaeger:
		default:
			return fmt.Errorf("monitoring.trace_exporter must be one of %s, %s, %s", TraceExporterOTLP, TraceExporterOTLPGRPC, TraceExporterJaeger)
		}
		if c.Monitoring.SamplingRate < 0 || c.Monitoring.SamplingRate > 1 {
			return fmt.Errorf("monitoring.sampling_rate must be between 0 and 1")
		}
	}

	return nil
}

// IsProduction returns true if running in production
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// IsDevelopment returns true if running in development
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// RedisAddr returns the host:port of the Redis server
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

// ListenAddr returns the host:port the HTTP server binds to
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
