package session

import (
	"context"
	"fmt"
	"time"

	"github.com/alchemorsel/ingrediate/internal/domain/recipe"
	"github.com/alchemorsel/ingrediate/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

// SelectLanguage rewrites the active list into language. Translation always
// starts from the untranslated source list; selecting the source language
// restores it without remote calls. The batch commits only if neither a newer
// selection nor a new list arrived while it was in flight, and the carousel
// position is kept.
func (c *Controller) SelectLanguage(ctx context.Context, language recipe.Language) error {
	if !language.Valid() {
		return errors.NewUnsupportedLanguageError(string(language))
	}

	c.mu.Lock()
	c.translationEpoch++
	epoch := c.translationEpoch
	sourceEpoch := c.sourceEpoch
	if language == recipe.DefaultLanguage || len(c.source) == 0 {
		c.active = recipe.Clone(c.source)
		c.language = language
		c.mu.Unlock()
		c.logger.Debug("Language selected without translation",
			zap.String("language", language.String()),
			zap.Uint64("epoch", epoch),
		)
		return nil
	}
	source := recipe.Clone(c.source)
	c.mu.Unlock()

	ctx, span := c.tracer.Start(ctx, "session.SelectLanguage")
	defer span.End()
	span.SetAttributes(
		attribute.String("language", language.Code()),
		attribute.Int("recipes.count", len(source)),
		attribute.Int64("session.epoch", int64(epoch)),
	)

	result, err := c.pipeline.Translate(ctx, source, language)
	if err == nil {
		err = validateAll(result.Recipes)
	}

	c.mu.Lock()
	if epoch != c.translationEpoch || sourceEpoch != c.sourceEpoch {
		c.mu.Unlock()
		span.SetAttributes(attribute.Bool("session.stale", true))
		return c.discard(opTranslate, epoch)
	}
	if err != nil {
		c.mu.Unlock()
		span.RecordError(err)
		span.SetStatus(codes.Error, "translation failed")
		c.logger.Warn("Translation failed, keeping current list",
			zap.String("language", language.String()),
			zap.Error(err),
		)
		appErr := errors.NewTranslationError(language.String(), err)
		c.publish(recipe.OperationFailedEvent{
			Operation: opTranslate,
			Err:       appErr,
			FailedAt:  time.Now(),
		})
		return appErr
	}
	c.active = result.Recipes
	c.language = language
	c.mu.Unlock()

	c.logger.Info("Recipes translated",
		zap.String("language", language.String()),
		zap.Int("count", len(result.Recipes)),
		zap.Int("failed_fields", len(result.Failures)),
		zap.Duration("duration", result.Duration),
	)
	c.publish(recipe.TranslationCompletedEvent{
		Language:     language,
		Recipes:      len(result.Recipes),
		FailedFields: len(result.Failures),
		Duration:     result.Duration,
		CompletedAt:  time.Now(),
	})
	c.publish(recipe.ListReplacedEvent{
		Source:     recipe.SourceTranslation,
		Count:      len(result.Recipes),
		Epoch:      epoch,
		ReplacedAt: time.Now(),
	})
	return nil
}

func validateAll(recipes []recipe.Recipe) error {
	for _, r := range recipes {
		if err := r.Validate(); err != nil {
			return fmt.Errorf("recipe %s: %w", r.ID, err)
		}
	}
	return nil
}
