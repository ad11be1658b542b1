package testutils

import (
	"context"
	"sync"

	"github.com/alchemorsel/ingrediate/internal/ports/outbound"
	"github.com/stretchr/testify/mock"
)

// MockRecipeRetriever provides a mock implementation of RecipeRetriever
type MockRecipeRetriever struct {
	mock.Mock
}

// FindByIngredients records the call and returns the configured results
func (m *MockRecipeRetriever) FindByIngredients(ctx context.Context, ingredients []string) ([]outbound.RawResult, error) {
	args := m.Called(ctx, ingredients)
	results, _ := args.Get(0).([]outbound.RawResult)
	return results, args.Error(1)
}

// MockRecipeLookup provides a mock implementation of RecipeLookup
type MockRecipeLookup struct {
	mock.Mock
}

// GetRecipe records the call and returns the configured record
func (m *MockRecipeLookup) GetRecipe(ctx context.Context, id string) (*outbound.RecipeRecord, error) {
	args := m.Called(ctx, id)
	record, _ := args.Get(0).(*outbound.RecipeRecord)
	return record, args.Error(1)
}

// MockFavoritesStore provides a mock implementation of FavoritesStore
type MockFavoritesStore struct {
	mock.Mock
}

// AddFavorite records the call
func (m *MockFavoritesStore) AddFavorite(ctx context.Context, userID, recipeID string) error {
	return m.Called(ctx, userID, recipeID).Error(0)
}

// RemoveFavorite records the call
func (m *MockFavoritesStore) RemoveFavorite(ctx context.Context, userID, recipeID string) error {
	return m.Called(ctx, userID, recipeID).Error(0)
}

// ListFavorites records the call and returns the configured documents
func (m *MockFavoritesStore) ListFavorites(ctx context.Context, userID string) ([]outbound.FavoritesDocument, error) {
	args := m.Called(ctx, userID)
	docs, _ := args.Get(0).([]outbound.FavoritesDocument)
	return docs, args.Error(1)
}

// MockTranslator provides a mock implementation of Translator
type MockTranslator struct {
	mock.Mock
}

// Translate records the call and returns the configured text
func (m *MockTranslator) Translate(ctx context.Context, text, targetCode string) (string, error) {
	args := m.Called(ctx, text, targetCode)
	return args.String(0), args.Error(1)
}

// TranslatorFunc adapts a function to the Translator port
type TranslatorFunc func(ctx context.Context, text, targetCode string) (string, error)

// Translate calls f
func (f TranslatorFunc) Translate(ctx context.Context, text, targetCode string) (string, error) {
	return f(ctx, text, targetCode)
}

// PrefixTranslator translates by prefixing the target code, e.g. "es:egg".
// It counts calls and can block every call until Release is called.
type PrefixTranslator struct {
	mu      sync.Mutex
	calls   int
	gate    chan struct{}
	started chan struct{}
}

// NewPrefixTranslator creates a translator that answers immediately
func NewPrefixTranslator() *PrefixTranslator {
	return &PrefixTranslator{}
}

// NewGatedPrefixTranslator creates a translator whose calls block until
// Release. Started receives one value per call that has begun.
func NewGatedPrefixTranslator(buffer int) *PrefixTranslator {
	return &PrefixTranslator{
		gate:    make(chan struct{}),
		started: make(chan struct{}, buffer),
	}
}

// Translate prefixes text with the target code
func (p *PrefixTranslator) Translate(ctx context.Context, text, targetCode string) (string, error) {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()

	if p.started != nil {
		p.started <- struct{}{}
	}
	if p.gate != nil {
		select {
		case <-p.gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return targetCode + ":" + text, nil
}

// Started is signalled once per call that has begun
func (p *PrefixTranslator) Started() <-chan struct{} {
	return p.started
}

// Release unblocks every pending and future call
func (p *PrefixTranslator) Release() {
	close(p.gate)
}

// Calls returns how many calls were made
func (p *PrefixTranslator) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}
