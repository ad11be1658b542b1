// Package inbound defines the interfaces for inbound ports (primary/driving adapters)
// These are the operations the presentation layer invokes on a recipe session
package inbound

import (
	"context"

	"github.com/alchemorsel/ingrediate/internal/domain/recipe"
)

// SessionService is the use-case surface of one user's recipe session
type SessionService interface {
	// Pantry
	AddIngredient(name string) bool
	RemoveIngredient(name string) bool
	AddDetected(names []string) int

	// Active list
	Generate(ctx context.Context) error
	LoadFavorites(ctx context.Context, userID string) error
	SelectLanguage(ctx context.Context, language recipe.Language) error

	// Favorites
	ToggleFavorite(ctx context.Context, userID, recipeID string) (bool, error)

	// Carousel
	Next()
	Prev()

	// Detail view
	OpenRecipe(recipeID string) error
	CloseRecipe()
	Modal() *ModalView

	Snapshot() Snapshot
}

// SessionRegistry hands each authenticated subject its own session
type SessionRegistry interface {
	Session(subject string) SessionService
}

// StatusKind classifies the transient status indicator
type StatusKind string

const (
	StatusIdle        StatusKind = "idle"
	StatusLoading     StatusKind = "loading"
	StatusNoFavorites StatusKind = "no_favorites"
	StatusError       StatusKind = "error"
)

// Status is the progress indicator shown by the presentation layer
type Status struct {
	Kind  StatusKind `json:"kind"`
	Label string     `json:"label"`
}

// InProgress reports whether an operation is outstanding
func (s Status) InProgress() bool {
	return s.Kind == StatusLoading
}

// Snapshot is an immutable copy of the session state for rendering
type Snapshot struct {
	Pantry       []string          `json:"pantry"`
	Recipes      []recipe.Recipe   `json:"recipes"`
	Position     int               `json:"position"`
	Current      *recipe.Recipe    `json:"current,omitempty"`
	Favorites    []string          `json:"favorites"`
	Language     recipe.Language   `json:"language"`
	Alternatives []recipe.Language `json:"alternatives"`
	Status       Status            `json:"status"`
	HasGenerated bool              `json:"hasGenerated"`
	SelectedID   string            `json:"selectedId,omitempty"`
}

// ModalView is the detail view of the selected recipe with every
// externally-sourced field made safe for rendering
type ModalView struct {
	ID                 string `json:"id"`
	Title              string `json:"title"`
	Image              string `json:"image"`
	DescriptionHTML    string `json:"descriptionHtml"`
	InstructionsHTML   string `json:"instructionsHtml"`
	IngredientsUsed    string `json:"ingredientsUsed"`
	MissingIngredients string `json:"missingIngredients"`
	Favorite           bool   `json:"favorite"`
}
