package session

import (
	"context"
	"time"

	"github.com/alchemorsel/ingrediate/internal/domain/recipe"
	"github.com/alchemorsel/ingrediate/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

const (
	opGenerate      = "generate"
	opLoadFavorites = "load_favorites"
	opTranslate     = "translate"
)

func staleError(operation string) error {
	return errors.NewStaleResultError(operation, ErrStaleResult)
}

// Generate retrieves recipes for the current pantry and installs the
// well-formed ones as the active list. An empty pantry is rejected without a
// remote call. On failure the active list is left unchanged.
func (c *Controller) Generate(ctx context.Context) error {
	c.mu.Lock()
	if c.pantry.IsEmpty() {
		c.mu.Unlock()
		return errors.NewEmptyPantryError()
	}
	ingredients := c.pantry.Entries()
	epoch := c.beginRequest()
	c.mu.Unlock()

	ctx, span := c.tracer.Start(ctx, "session.Generate")
	defer span.End()
	span.SetAttributes(
		attribute.Int("pantry.size", len(ingredients)),
		attribute.Int64("session.epoch", int64(epoch)),
	)

	c.logger.Info("Generating recipes",
		zap.Strings("ingredients", ingredients),
		zap.Uint64("epoch", epoch),
	)

	raw, err := c.retriever.FindByIngredients(ctx, ingredients)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "retrieval failed")
		return c.fail(opGenerate, epoch, errors.NewRetrievalError("retrieve recipes", err))
	}

	recipes, dropped := c.normalizer.Normalize(raw)

	c.mu.Lock()
	if epoch != c.requestEpoch {
		c.mu.Unlock()
		span.SetAttributes(attribute.Bool("session.stale", true))
		return c.discard(opGenerate, epoch)
	}
	c.installLocked(recipes)
	c.status = statusGenerated
	c.mu.Unlock()

	span.SetAttributes(
		attribute.Int("recipes.count", len(recipes)),
		attribute.Int("recipes.dropped", dropped),
	)
	c.logger.Info("Recipes generated",
		zap.Int("count", len(recipes)),
		zap.Int("dropped", dropped),
		zap.Uint64("epoch", epoch),
	)
	c.publish(recipe.ListReplacedEvent{
		Source:     recipe.SourceGeneration,
		Count:      len(recipes),
		Dropped:    dropped,
		Epoch:      epoch,
		ReplacedAt: time.Now(),
	})
	return nil
}

// fail settles a failed generation or favorites load. The status indicator
// only changes when epoch is still the current request.
func (c *Controller) fail(operation string, epoch uint64, err error) error {
	c.mu.Lock()
	if epoch != c.requestEpoch {
		c.mu.Unlock()
		return c.discard(operation, epoch)
	}
	c.status = statusFailed
	c.mu.Unlock()

	c.logger.Warn("Operation failed",
		zap.String("operation", operation),
		zap.Uint64("epoch", epoch),
		zap.Error(err),
	)
	c.publish(recipe.OperationFailedEvent{
		Operation: operation,
		Err:       err,
		FailedAt:  time.Now(),
	})
	return err
}
