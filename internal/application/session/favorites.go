package session

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/alchemorsel/ingrediate/internal/domain/recipe"
	"github.com/alchemorsel/ingrediate/internal/ports/outbound"
	"github.com/alchemorsel/ingrediate/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// LoadFavorites replaces the active list with the user's stored favorites,
// resolved one by one through the lookup collaborator in stored order.
// Identifiers the lookup no longer knows are skipped. An empty collection
// yields an empty list and the "no favorites" status.
func (c *Controller) LoadFavorites(ctx context.Context, userID string) error {
	if userID == "" {
		return errors.NewUnauthorizedError("")
	}

	c.mu.Lock()
	epoch := c.beginRequest()
	c.mu.Unlock()

	ctx, span := c.tracer.Start(ctx, "session.LoadFavorites")
	defer span.End()
	span.SetAttributes(attribute.Int64("session.epoch", int64(epoch)))

	docs, err := c.store.ListFavorites(ctx, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list favorites failed")
		return c.fail(opLoadFavorites, epoch, errors.NewRetrievalError("list favorites", err))
	}

	ids := mergeFavoriteIDs(docs)
	span.SetAttributes(attribute.Int("favorites.count", len(ids)))

	recipes, err := c.resolve(ctx, ids)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "lookup failed")
		return c.fail(opLoadFavorites, epoch, errors.NewRetrievalError("look up favorite recipes", err))
	}

	c.mu.Lock()
	if epoch != c.requestEpoch {
		c.mu.Unlock()
		return c.discard(opLoadFavorites, epoch)
	}
	c.installLocked(recipes)
	if len(recipes) == 0 {
		c.status = statusNoFavorites
	} else {
		c.status = statusInitial
	}
	c.mu.Unlock()

	c.logger.Info("Favorites loaded",
		zap.String("user_id", userID),
		zap.Int("stored", len(ids)),
		zap.Int("count", len(recipes)),
		zap.Uint64("epoch", epoch),
	)
	c.publish(recipe.ListReplacedEvent{
		Source:     recipe.SourceFavorites,
		Count:      len(recipes),
		Dropped:    len(ids) - len(recipes),
		Epoch:      epoch,
		ReplacedAt: time.Now(),
	})
	return nil
}

// ToggleFavorite flips recipeID in the favorites set and mirrors it remotely
func (c *Controller) ToggleFavorite(ctx context.Context, userID, recipeID string) (bool, error) {
	ctx, span := c.tracer.Start(ctx, "session.ToggleFavorite")
	defer span.End()
	span.SetAttributes(attribute.String("recipe.id", recipeID))

	member, err := c.favorites.Toggle(ctx, userID, recipeID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "toggle failed")
	}
	return member, err
}

// resolve looks up every identifier concurrently and returns the recipes in
// the order of ids. Not-found and malformed records are skipped; any other
// lookup failure fails the whole load.
func (c *Controller) resolve(ctx context.Context, ids []string) ([]recipe.Recipe, error) {
	slots := make([]*recipe.Recipe, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			record, err := c.lookup.GetRecipe(gctx, id)
			if stderrors.Is(err, outbound.ErrNotFound) {
				c.logger.Debug("Favorite no longer exists", zap.String("recipe_id", id))
				return nil
			}
			if err != nil {
				return err
			}
			r, err := c.normalizer.FromRecord(record)
			if err != nil {
				c.logger.Debug("Dropping malformed favorite", zap.String("recipe_id", id), zap.Error(err))
				return nil
			}
			slots[i] = &r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	recipes := make([]recipe.Recipe, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, r := range slots {
		if r == nil || seen[r.ID] {
			continue
		}
		seen[r.ID] = true
		recipes = append(recipes, *r)
	}
	return recipes, nil
}

// mergeFavoriteIDs flattens the stored collections in order, keeping the
// first occurrence of each identifier.
func mergeFavoriteIDs(docs []outbound.FavoritesDocument) []string {
	var ids []string
	seen := make(map[string]bool)
	for _, doc := range docs {
		for _, id := range doc.Favorites {
			if id == "" || seen[id] {
				continue
			}
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids
}
