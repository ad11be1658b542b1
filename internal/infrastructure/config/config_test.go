package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "Ingrediate", cfg.App.Name)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, TranslationModeTolerant, cfg.Translation.Mode)
	assert.Equal(t, FavoritesBackendMemory, cfg.Favorites.Backend)
	assert.Zero(t, cfg.Translation.MaxConcurrency)
	assert.Equal(t, 2*time.Hour, cfg.Session.IdleTimeout)
	assert.Equal(t, TraceExporterOTLP, cfg.Monitoring.TraceExporter)
	assert.Equal(t, CacheBackendMemory, cfg.Translation.CacheBackend)
	assert.Equal(t, 24*time.Hour, cfg.Translation.CacheTTL)
	assert.True(t, cfg.Server.Compression.Enabled)
	assert.Equal(t, 1024, cfg.Server.Compression.MinSize)
}

func TestLoad_FileAndEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
app:
  name: Pantry
server:
  port: 9000
translation:
  mode: fail_fast
  max_concurrency: 4
favorites:
  backend: sql
database:
  driver: sqlite
  path: /tmp/favs.db
`), 0o600))

	t.Setenv("INGREDIATE_SERVER_PORT", "9100")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "Pantry", cfg.App.Name)
	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, TranslationModeFailFast, cfg.Translation.Mode)
	assert.Equal(t, 4, cfg.Translation.MaxConcurrency)
	assert.Equal(t, FavoritesBackendSQL, cfg.Favorites.Backend)
	assert.Equal(t, "/tmp/favs.db", cfg.Database.Path)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			App:         AppConfig{Name: "x", Environment: "development"},
			Server:      ServerConfig{Port: 8080},
			RecipeAPI:   RecipeAPIConfig{BaseURL: "http://api"},
			Translation: TranslationConfig{Mode: TranslationModeTolerant, MaxConcurrency: 1, CacheBackend: CacheBackendMemory},
			Favorites:   FavoritesConfig{Backend: FavoritesBackendMemory},
		}
	}

	require.NoError(t, valid().Validate())

	tests := map[string]func(c *Config){
		"bad port":             func(c *Config) { c.Server.Port = 0 },
		"bad mode":             func(c *Config) { c.Translation.Mode = "best_effort" },
		"negative concurrency": func(c *Config) { c.Translation.MaxConcurrency = -1 },
		"bad backend":          func(c *Config) { c.Favorites.Backend = "mongo" },
		"prod without jwt":     func(c *Config) { c.App.Environment = "production" },
		"postgres no dsn":      func(c *Config) { c.Favorites.Backend = FavoritesBackendSQL; c.Database.Driver = "postgres" },
		"missing recipe api":   func(c *Config) { c.RecipeAPI.BaseURL = "" },
		"bad trace exporter":   func(c *Config) { c.Monitoring.EnableTracing = true; c.Monitoring.TraceExporter = "zipkin" },
		"bad cache backend":    func(c *Config) { c.Translation.CacheBackend = "disk" },
		"bad brotli level":     func(c *Config) { c.Server.Compression.BrotliLevel = 12 },
		"bad gzip level":       func(c *Config) { c.Server.Compression.GzipLevel = 10 },
		"rate limit no window": func(c *Config) { c.RateLimit = RateLimitConfig{Enabled: true, Backend: RateLimitBackendMemory, Requests: 1} },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			c := valid()
			mutate(c)
			assert.Error(t, c.Validate())
		})
	}
}
