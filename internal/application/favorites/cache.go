// Package favorites keeps the session's favorite recipe identifiers in step
// with the remote favorites store.
package favorites

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/alchemorsel/ingrediate/internal/domain/recipe"
	"github.com/alchemorsel/ingrediate/internal/domain/shared"
	"github.com/alchemorsel/ingrediate/internal/ports/outbound"
	apperrors "github.com/alchemorsel/ingrediate/pkg/errors"
	"go.uber.org/zap"
)

// ErrNoSubject is returned when a toggle is attempted without a user
var ErrNoSubject = errors.New("favorites require an authenticated user")

// Cache is the local favorites set. Membership changes are applied
// optimistically and reverted when the remote store rejects them. Toggles on
// the same recipe identifier are serialized; toggles on different
// identifiers run independently.
type Cache struct {
	store  outbound.FavoritesStore
	events shared.EventDispatcher
	logger *zap.Logger

	mu      sync.RWMutex
	members map[string]struct{}

	locksMu sync.Mutex
	locks   map[string]*idLock
}

type idLock struct {
	mu   sync.Mutex
	refs int
}

// NewCache creates an empty favorites cache
func NewCache(store outbound.FavoritesStore, events shared.EventDispatcher, logger *zap.Logger) *Cache {
	if events == nil {
		events = shared.NopDispatcher{}
	}
	return &Cache{
		store:   store,
		events:  events,
		logger:  logger.Named("favorites"),
		members: make(map[string]struct{}),
		locks:   make(map[string]*idLock),
	}
}

// Toggle flips the membership of recipeID and mirrors the change to the
// remote store. It returns the membership after the call. When the remote
// call fails the local change is undone and a FAVORITES_SYNC_FAILED error is
// returned together with the restored membership.
func (c *Cache) Toggle(ctx context.Context, userID, recipeID string) (bool, error) {
	if userID == "" {
		return false, apperrors.NewUnauthorizedError(ErrNoSubject.Error()).WithCause(ErrNoSubject)
	}
	if recipeID == "" {
		return false, apperrors.NewValidationError("recipe id is required")
	}

	unlock := c.lock(recipeID)
	defer unlock()

	added := c.flip(recipeID)

	var err error
	if added {
		err = c.store.AddFavorite(ctx, userID, recipeID)
	} else {
		err = c.store.RemoveFavorite(ctx, userID, recipeID)
	}

	if err != nil {
		c.flip(recipeID)
		c.logger.Warn("Favorite change rejected, reverted",
			zap.String("user_id", userID),
			zap.String("recipe_id", recipeID),
			zap.Bool("added", added),
			zap.Error(err),
		)
		c.publish(recipe.FavoriteToggledEvent{
			UserID:    userID,
			RecipeID:  recipeID,
			Added:     added,
			Reverted:  true,
			ToggledAt: time.Now(),
		})
		return !added, apperrors.NewFavoritesSyncError(recipeID, err)
	}

	c.logger.Debug("Favorite toggled",
		zap.String("user_id", userID),
		zap.String("recipe_id", recipeID),
		zap.Bool("added", added),
	)
	c.publish(recipe.FavoriteToggledEvent{
		UserID:    userID,
		RecipeID:  recipeID,
		Added:     added,
		ToggledAt: time.Now(),
	})
	return added, nil
}

// Contains reports whether recipeID is currently a favorite
func (c *Cache) Contains(recipeID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.members[recipeID]
	return ok
}

// IDs returns the favorite identifiers in sorted order
func (c *Cache) IDs() []string {
	c.mu.RLock()
	ids := make([]string, 0, len(c.members))
	for id := range c.members {
		ids = append(ids, id)
	}
	c.mu.RUnlock()

	sort.Strings(ids)
	return ids
}

// Len returns the number of favorites
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.members)
}

// flip toggles membership and reports whether recipeID is now a member
func (c *Cache) flip(recipeID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.members[recipeID]; ok {
		delete(c.members, recipeID)
		return false
	}
	c.members[recipeID] = struct{}{}
	return true
}

func (c *Cache) lock(recipeID string) func() {
	c.locksMu.Lock()
	l, ok := c.locks[recipeID]
	if !ok {
		l = &idLock{}
		c.locks[recipeID] = l
	}
	l.refs++
	c.locksMu.Unlock()

	l.mu.Lock()

	return func() {
		l.mu.Unlock()

		c.locksMu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(c.locks, recipeID)
		}
		c.locksMu.Unlock()
	}
}

func (c *Cache) publish(event shared.DomainEvent) {
	if err := c.events.Dispatch(event); err != nil {
		c.logger.Error("Failed to publish event",
			zap.String("event", event.EventName()),
			zap.Error(err),
		)
	}
}
