// Package outbound defines the interfaces for outbound ports (secondary/driven adapters)
// These are the collaborators the recipe session uses to reach external systems
package outbound

import (
	"context"
	"errors"
)

// ErrNotFound is returned by lookups when the requested record does not exist
var ErrNotFound = errors.New("not found")

// RecipeRetriever finds recipes that can be made from a set of ingredients
type RecipeRetriever interface {
	FindByIngredients(ctx context.Context, ingredients []string) ([]RawResult, error)
}

// RecipeLookup resolves a single recipe by identifier.
// Implementations return ErrNotFound for unknown identifiers.
type RecipeLookup interface {
	GetRecipe(ctx context.Context, id string) (*RecipeRecord, error)
}

// FavoritesStore persists each user's favorite recipe identifiers
type FavoritesStore interface {
	AddFavorite(ctx context.Context, userID, recipeID string) error
	RemoveFavorite(ctx context.Context, userID, recipeID string) error
	ListFavorites(ctx context.Context, userID string) ([]FavoritesDocument, error)
}

// Translator translates a single text into the target language code
type Translator interface {
	Translate(ctx context.Context, text, targetCode string) (string, error)
}

// IdentityProvider resolves the subject identifier of the current user
type IdentityProvider interface {
	Subject(ctx context.Context, credential string) (string, error)
}

// RawResult is one unvalidated entry returned by the retrieval collaborator.
// Either block may be absent.
type RawResult struct {
	InitialInfo *CoreInfo     `json:"initialInfo" validate:"required"`
	MoreInfo    *ExtendedInfo `json:"moreInfo" validate:"required"`
}

// CoreInfo carries the identity and ingredient match of a raw result
type CoreInfo struct {
	ID                 FlexibleID      `json:"id" validate:"required"`
	RecipeName         string          `json:"recipeName" validate:"required"`
	Image              string          `json:"image"`
	PresentIngredients []IngredientRef `json:"presentIngredients"`
	MissingIngredients []IngredientRef `json:"missingIngredients"`
}

// ExtendedInfo carries the long-form text of a raw result
type ExtendedInfo struct {
	Summary      string `json:"summary"`
	Instructions string `json:"instructions"`
}

// IngredientRef names an ingredient in a raw result. Blank names are
// skipped when the ingredient lists are joined.
type IngredientRef struct {
	ID   FlexibleID `json:"id"`
	Name string     `json:"name"`
}

// RecipeRecord is the recipe-shaped record returned by RecipeLookup
type RecipeRecord struct {
	ID                  FlexibleID      `json:"id" validate:"required"`
	Title               string          `json:"title" validate:"required"`
	Summary             string          `json:"summary"`
	Instructions        string          `json:"instructions"`
	Image               string          `json:"image"`
	ExtendedIngredients []IngredientRef `json:"extendedIngredients"`
}

// FavoritesDocument is one stored collection of favorite identifiers
type FavoritesDocument struct {
	ID        string   `json:"_id"`
	Favorites []string `json:"favorites"`
}
