package gorm

import (
	"context"
	"time"

	"github.com/alchemorsel/ingrediate/internal/ports/outbound"
	"github.com/alchemorsel/ingrediate/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FavoritesRepository implements outbound.FavoritesStore on a SQL database
type FavoritesRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewFavoritesRepository creates a new GORM favorites repository
func NewFavoritesRepository(db *gorm.DB, logger *zap.Logger) *FavoritesRepository {
	return &FavoritesRepository{
		db:     db,
		logger: logger.Named("favorites-sql"),
	}
}

var _ outbound.FavoritesStore = (*FavoritesRepository)(nil)

// AddFavorite stores recipeID for userID. Adding an existing favorite is a no-op.
func (r *FavoritesRepository) AddFavorite(ctx context.Context, userID, recipeID string) error {
	model := FavoriteModel{
		UserID:    userID,
		RecipeID:  recipeID,
		CreatedAt: time.Now().UTC(),
	}

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model).Error
	if err != nil {
		r.logger.Error("Failed to add favorite",
			zap.String("user_id", userID),
			zap.String("recipe_id", recipeID),
			zap.Error(err),
		)
		return errors.NewDatabaseError("add favorite", err)
	}
	return nil
}

// RemoveFavorite deletes recipeID from userID's favorites
func (r *FavoritesRepository) RemoveFavorite(ctx context.Context, userID, recipeID string) error {
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND recipe_id = ?", userID, recipeID).
		Delete(&FavoriteModel{}).Error
	if err != nil {
		r.logger.Error("Failed to remove favorite",
			zap.String("user_id", userID),
			zap.String("recipe_id", recipeID),
			zap.Error(err),
		)
		return errors.NewDatabaseError("remove favorite", err)
	}
	return nil
}

// ListFavorites returns the user's favorites as a single document in the
// order they were added
func (r *FavoritesRepository) ListFavorites(ctx context.Context, userID string) ([]outbound.FavoritesDocument, error) {
	var models []FavoriteModel
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id ASC").
		Find(&models).Error
	if err != nil {
		return nil, errors.NewDatabaseError("list favorites", err)
	}
	if len(models) == 0 {
		return nil, nil
	}

	doc := outbound.FavoritesDocument{ID: userID, Favorites: make([]string, len(models))}
	for i, m := range models {
		doc.Favorites[i] = m.RecipeID
	}
	return []outbound.FavoritesDocument{doc}, nil
}
