//go:build integration

package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alchemorsel/ingrediate/test/testutils"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestFavoritesStoreRedis(t *testing.T) {
	addr := testutils.StartRedis(t)
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })

	store := NewFavoritesStore(client, "test", zap.NewNop())
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	ctx := context.Background()

	docs, err := store.ListFavorites(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, docs)

	require.NoError(t, store.AddFavorite(ctx, "user-1", "30"))
	require.NoError(t, store.AddFavorite(ctx, "user-1", "10"))
	require.NoError(t, store.AddFavorite(ctx, "user-1", "30"))
	require.NoError(t, store.AddFavorite(ctx, "user-1", "20"))
	require.NoError(t, store.RemoveFavorite(ctx, "user-1", "10"))

	docs, err = store.ListFavorites(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, []string{"30", "20"}, docs[0].Favorites)

	exists, err := client.Exists(ctx, "test:favorites:user-1").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), exists)
}
