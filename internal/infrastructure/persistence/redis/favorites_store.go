// Package redis provides the Redis-backed favorites store
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/alchemorsel/ingrediate/internal/infrastructure/config"
	"github.com/alchemorsel/ingrediate/internal/ports/outbound"
	"github.com/alchemorsel/ingrediate/pkg/errors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// FavoritesStore keeps each user's favorites in a sorted set scored by the
// time they were added, so listing returns them in insertion order.
type FavoritesStore struct {
	client    redis.UniversalClient
	keyPrefix string
	logger    *zap.Logger
	now       func() time.Time
}

// NewClient creates a Redis client from configuration and verifies the connection
func NewClient(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger) (redis.UniversalClient, error) {
	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:        []string{fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)},
		Password:     cfg.Password,
		DB:           cfg.Database,
		PoolSize:     cfg.PoolSize,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Redis client initialized successfully",
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
		zap.Int("database", cfg.Database),
	)
	return client, nil
}

// NewFavoritesStore creates a favorites store on client
func NewFavoritesStore(client redis.UniversalClient, keyPrefix string, logger *zap.Logger) *FavoritesStore {
	return &FavoritesStore{
		client:    client,
		keyPrefix: keyPrefix,
		logger:    logger.Named("favorites-redis"),
		now:       time.Now,
	}
}

var _ outbound.FavoritesStore = (*FavoritesStore)(nil)

func (s *FavoritesStore) key(userID string) string {
	if s.keyPrefix == "" {
		return "favorites:" + userID
	}
	return s.keyPrefix + ":favorites:" + userID
}

// AddFavorite adds recipeID, keeping the original position if it is already present
func (s *FavoritesStore) AddFavorite(ctx context.Context, userID, recipeID string) error {
	err := s.client.ZAddNX(ctx, s.key(userID), redis.Z{
		Score:  float64(s.now().UnixMicro()),
		Member: recipeID,
	}).Err()
	if err != nil {
		s.logger.Error("Failed to add favorite",
			zap.String("user_id", userID),
			zap.String("recipe_id", recipeID),
			zap.Error(err),
		)
		return errors.NewExternalServiceError("redis", err)
	}
	return nil
}

// RemoveFavorite removes recipeID
func (s *FavoritesStore) RemoveFavorite(ctx context.Context, userID, recipeID string) error {
	if err := s.client.ZRem(ctx, s.key(userID), recipeID).Err(); err != nil {
		s.logger.Error("Failed to remove favorite",
			zap.String("user_id", userID),
			zap.String("recipe_id", recipeID),
			zap.Error(err),
		)
		return errors.NewExternalServiceError("redis", err)
	}
	return nil
}

// ListFavorites returns the user's favorites as a single document
func (s *FavoritesStore) ListFavorites(ctx context.Context, userID string) ([]outbound.FavoritesDocument, error) {
	ids, err := s.client.ZRange(ctx, s.key(userID), 0, -1).Result()
	if err != nil {
		s.logger.Error("Failed to list favorites", zap.String("user_id", userID), zap.Error(err))
		return nil, errors.NewExternalServiceError("redis", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	return []outbound.FavoritesDocument{{ID: userID, Favorites: ids}}, nil
}
