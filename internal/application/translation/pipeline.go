// Package translation rewrites the text fields of a recipe list into another
// language through the translation collaborator.
package translation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/alchemorsel/ingrediate/internal/domain/recipe"
	"github.com/alchemorsel/ingrediate/internal/ports/outbound"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Mode decides what a failing field call does to the batch
type Mode int

const (
	// ModeTolerant keeps the original text of any field whose call failed.
	ModeTolerant Mode = iota
	// ModeFailFast aborts the batch on the first failing call.
	ModeFailFast
)

// ParseMode maps the configuration value onto a Mode
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "tolerant":
		return ModeTolerant, nil
	case "fail_fast":
		return ModeFailFast, nil
	default:
		return ModeTolerant, fmt.Errorf("unknown translation mode %q", s)
	}
}

func (m Mode) String() string {
	if m == ModeFailFast {
		return "fail_fast"
	}
	return "tolerant"
}

var (
	// ErrNothingTranslated is returned in tolerant mode when every call failed
	ErrNothingTranslated = errors.New("no field could be translated")
	// ErrBlankTranslation marks a call that answered blank text for a non-blank source
	ErrBlankTranslation = errors.New("translator returned blank text")
)

// FieldFailure records a field whose translation call failed
type FieldFailure struct {
	RecipeID string
	Field    recipe.Field
	Err      error
}

// Result is a fully settled translation batch
type Result struct {
	Language recipe.Language
	Recipes  []recipe.Recipe
	Failures []FieldFailure
	Calls    int
	Duration time.Duration
}

// Pipeline translates recipe lists
type Pipeline struct {
	translator     outbound.Translator
	mode           Mode
	maxConcurrency int
	logger         *zap.Logger
}

// Option configures a Pipeline
type Option func(*Pipeline)

// WithMode sets the failure mode
func WithMode(mode Mode) Option {
	return func(p *Pipeline) { p.mode = mode }
}

// WithMaxConcurrency bounds the number of in-flight calls. Zero or less
// issues every call of the batch at once.
func WithMaxConcurrency(n int) Option {
	return func(p *Pipeline) { p.maxConcurrency = n }
}

// NewPipeline creates a translation pipeline
func NewPipeline(translator outbound.Translator, logger *zap.Logger, opts ...Option) *Pipeline {
	p := &Pipeline{
		translator: translator,
		mode:       ModeTolerant,
		logger:     logger.Named("translation"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Mode returns the configured failure mode
func (p *Pipeline) Mode() Mode {
	return p.mode
}

// Translate issues one call per non-blank text field of every recipe,
// concurrently, and returns only after all of them have settled. The input
// slice is never modified; ID and Image are copied through unchanged. A blank
// answer for a non-blank field counts as a failed call.
func (p *Pipeline) Translate(ctx context.Context, recipes []recipe.Recipe, language recipe.Language) (*Result, error) {
	if !language.Valid() {
		return nil, fmt.Errorf("%w: %q", recipe.ErrUnsupportedLanguage, language)
	}
	code := language.Code()
	start := time.Now()

	fields := make([][recipe.FieldCount]string, len(recipes))
	errs := make([][recipe.FieldCount]error, len(recipes))
	for i, r := range recipes {
		fields[i] = r.TextFields()
	}

	g, gctx := errgroup.WithContext(ctx)
	if p.maxConcurrency > 0 {
		g.SetLimit(p.maxConcurrency)
	}

	calls := 0
	for i := range recipes {
		for f := recipe.Field(0); f < recipe.FieldCount; f++ {
			source := fields[i][f]
			if strings.TrimSpace(source) == "" {
				continue
			}
			calls++

			i, f := i, f
			g.Go(func() error {
				translated, err := p.translator.Translate(gctx, source, code)
				if err == nil && strings.TrimSpace(translated) == "" {
					err = ErrBlankTranslation
				}
				if err != nil {
					if p.mode == ModeFailFast {
						return fmt.Errorf("translate %s of recipe %s: %w", f, recipes[i].ID, err)
					}
					errs[i][f] = err
					return nil
				}
				fields[i][f] = translated
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		p.logger.Warn("Translation batch aborted",
			zap.String("language", language.String()),
			zap.Int("recipes", len(recipes)),
			zap.Error(err),
		)
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &Result{
		Language: language,
		Recipes:  make([]recipe.Recipe, len(recipes)),
		Calls:    calls,
	}
	for i, r := range recipes {
		result.Recipes[i] = r.WithTextFields(fields[i])
		if err := result.Recipes[i].Validate(); err != nil {
			return nil, fmt.Errorf("translated recipe %s: %w", r.ID, err)
		}
		for f := recipe.Field(0); f < recipe.FieldCount; f++ {
			if errs[i][f] != nil {
				result.Failures = append(result.Failures, FieldFailure{RecipeID: r.ID, Field: f, Err: errs[i][f]})
			}
		}
	}
	result.Duration = time.Since(start)

	if calls > 0 && len(result.Failures) == calls {
		p.logger.Warn("Every translation call failed",
			zap.String("language", language.String()),
			zap.Int("calls", calls),
			zap.Error(result.Failures[0].Err),
		)
		return nil, fmt.Errorf("%w: %v", ErrNothingTranslated, result.Failures[0].Err)
	}

	if len(result.Failures) > 0 {
		p.logger.Warn("Translation kept original text for some fields",
			zap.String("language", language.String()),
			zap.Int("failed", len(result.Failures)),
			zap.Int("calls", calls),
		)
	}

	p.logger.Debug("Translation batch settled",
		zap.String("language", language.String()),
		zap.Int("recipes", len(recipes)),
		zap.Int("calls", calls),
		zap.Duration("duration", result.Duration),
	)

	return result, nil
}
