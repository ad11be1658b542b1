package recipe

import "time"

// Domain events raised by the recipe session

// ListSource names the operation that installed an active list.
type ListSource string

const (
	SourceGeneration  ListSource = "generation"
	SourceFavorites   ListSource = "favorites"
	SourceTranslation ListSource = "translation"
)

// ListReplacedEvent is raised when the active recipe list is replaced wholesale
type ListReplacedEvent struct {
	Source     ListSource
	Count      int
	Dropped    int
	Epoch      uint64
	ReplacedAt time.Time
}

func (e ListReplacedEvent) EventName() string {
	return "recipe.list.replaced"
}

func (e ListReplacedEvent) OccurredAt() time.Time {
	return e.ReplacedAt
}

// ResultDiscardedEvent is raised when a superseded asynchronous result is dropped
type ResultDiscardedEvent struct {
	Operation   string
	Epoch       uint64
	DiscardedAt time.Time
}

func (e ResultDiscardedEvent) EventName() string {
	return "recipe.result.discarded"
}

func (e ResultDiscardedEvent) OccurredAt() time.Time {
	return e.DiscardedAt
}

// FavoriteToggledEvent is raised when a favorite toggle settles
type FavoriteToggledEvent struct {
	UserID    string
	RecipeID  string
	Added     bool
	Reverted  bool
	ToggledAt time.Time
}

func (e FavoriteToggledEvent) EventName() string {
	return "recipe.favorite.toggled"
}

func (e FavoriteToggledEvent) OccurredAt() time.Time {
	return e.ToggledAt
}

// TranslationCompletedEvent is raised when a translation batch settles
type TranslationCompletedEvent struct {
	Language     Language
	Recipes      int
	FailedFields int
	Duration     time.Duration
	CompletedAt  time.Time
}

func (e TranslationCompletedEvent) EventName() string {
	return "recipe.translation.completed"
}

func (e TranslationCompletedEvent) OccurredAt() time.Time {
	return e.CompletedAt
}

// OperationFailedEvent is raised when a collaborator call fails an operation
type OperationFailedEvent struct {
	Operation string
	Err       error
	FailedAt  time.Time
}

func (e OperationFailedEvent) EventName() string {
	return "recipe.operation.failed"
}

func (e OperationFailedEvent) OccurredAt() time.Time {
	return e.FailedAt
}
