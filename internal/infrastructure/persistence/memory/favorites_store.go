// Package memory provides an in-memory favorites store
package memory

import (
	"context"
	"sync"

	"github.com/alchemorsel/ingrediate/internal/ports/outbound"
)

// FavoritesStore keeps favorites in process memory, in insertion order.
// Contents are lost on restart.
type FavoritesStore struct {
	data  map[string][]string
	mutex sync.RWMutex
}

// NewFavoritesStore creates an empty in-memory favorites store
func NewFavoritesStore() *FavoritesStore {
	return &FavoritesStore{
		data: make(map[string][]string),
	}
}

var _ outbound.FavoritesStore = (*FavoritesStore)(nil)

// AddFavorite appends recipeID unless it is already present
func (s *FavoritesStore) AddFavorite(ctx context.Context, userID, recipeID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	for _, id := range s.data[userID] {
		if id == recipeID {
			return nil
		}
	}
	s.data[userID] = append(s.data[userID], recipeID)
	return nil
}

// RemoveFavorite removes recipeID if present
func (s *FavoritesStore) RemoveFavorite(ctx context.Context, userID, recipeID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	ids := s.data[userID]
	for i, id := range ids {
		if id == recipeID {
			s.data[userID] = append(ids[:i:i], ids[i+1:]...)
			break
		}
	}
	if len(s.data[userID]) == 0 {
		delete(s.data, userID)
	}
	return nil
}

// ListFavorites returns the user's favorites as a single document
func (s *FavoritesStore) ListFavorites(ctx context.Context, userID string) ([]outbound.FavoritesDocument, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mutex.RLock()
	defer s.mutex.RUnlock()

	ids, ok := s.data[userID]
	if !ok {
		return nil, nil
	}
	return []outbound.FavoritesDocument{{
		ID:        userID,
		Favorites: append([]string(nil), ids...),
	}}, nil
}
