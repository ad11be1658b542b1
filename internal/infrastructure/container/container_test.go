package container

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap"

	"github.com/alchemorsel/ingrediate/internal/infrastructure/cache"
	"github.com/alchemorsel/ingrediate/internal/infrastructure/config"
	"github.com/alchemorsel/ingrediate/internal/infrastructure/persistence/memory"
	"github.com/alchemorsel/ingrediate/internal/infrastructure/security"
	"github.com/alchemorsel/ingrediate/internal/infrastructure/translate"
	"github.com/alchemorsel/ingrediate/pkg/healthcheck"
)

func loadConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	return cfg
}

func TestModuleGraphIsComplete(t *testing.T) {
	err := fx.ValidateApp(
		Module,
		fx.Supply(ConfigPath("")),
		fx.NopLogger,
	)
	assert.NoError(t, err)
}

func TestTranslationOutageOnlyDegrades(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	cfg := loadConfig(t)
	cfg.Translation.BaseURL = srv.URL
	health := healthcheck.New("test", zap.NewNop())
	RegisterHealthChecks(cfg, health, NewRecipeBreaker(cfg, zap.NewNop()))

	resp := health.Check(context.Background())

	assert.Equal(t, healthcheck.StatusDegraded, resp.Status)
	require.Len(t, resp.Checks, 2)
	assert.Equal(t, "recipe_api", resp.Checks[0].Name)
	assert.Equal(t, healthcheck.StatusHealthy, resp.Checks[0].Status)
	assert.Equal(t, "translation", resp.Checks[1].Name)
	assert.False(t, resp.Checks[1].Critical)
	assert.Equal(t, http.StatusBadGateway, resp.Checks[1].Details["status_code"])
}

func TestNewRateLimiter(t *testing.T) {
	cfg := loadConfig(t)
	rc := &RedisConnector{cfg: cfg.Redis, health: healthcheck.New("test", zap.NewNop()), logger: zap.NewNop()}

	limiter, err := NewRateLimiter(cfg, rc, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &security.LocalRateLimiter{}, limiter)

	cfg.RateLimit.Enabled = false
	limiter, err = NewRateLimiter(cfg, rc, zap.NewNop())
	require.NoError(t, err)
	assert.Nil(t, limiter)
}

func TestNewFavoritesStoreSQLite(t *testing.T) {
	cfg := loadConfig(t)
	cfg.Favorites.Backend = config.FavoritesBackendSQL
	cfg.Database.Driver = "sqlite"
	cfg.Database.Path = filepath.Join(t.TempDir(), "favorites.db")

	lc := fxtest.NewLifecycle(t)
	health := healthcheck.New("test", zap.NewNop())
	store, err := NewFavoritesStore(lc, cfg, nil, health, zap.NewNop())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, store.AddFavorite(ctx, "user-1", "42"))
	docs, err := store.ListFavorites(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, []string{"42"}, docs[0].Favorites)

	assert.Equal(t, healthcheck.StatusHealthy, health.Check(ctx).Status)

	lc.RequireStart()
	lc.RequireStop()
}

func TestNewFavoritesStoreDefaultsToMemory(t *testing.T) {
	cfg := loadConfig(t)

	store, err := NewFavoritesStore(fxtest.NewLifecycle(t), cfg, nil, healthcheck.New("test", zap.NewNop()), zap.NewNop())

	require.NoError(t, err)
	assert.IsType(t, &memory.FavoritesStore{}, store)
}

func TestNewTranslator(t *testing.T) {
	cfg := loadConfig(t)
	client := translate.NewClient(cfg.Translation, zap.NewNop())

	translator, err := NewTranslator(cfg, client, nil, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &cache.TranslationCache{}, translator)

	cfg.Translation.CacheBackend = config.CacheBackendNone
	translator, err = NewTranslator(cfg, client, nil, zap.NewNop())
	require.NoError(t, err)
	assert.Same(t, client, translator)
}
