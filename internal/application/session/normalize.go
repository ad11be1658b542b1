package session

import (
	"strings"

	"github.com/alchemorsel/ingrediate/internal/domain/recipe"
	"github.com/alchemorsel/ingrediate/internal/ports/outbound"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// Normalizer classifies raw collaborator payloads as well-formed or
// malformed and builds recipes from the well-formed ones only.
type Normalizer struct {
	validate *validator.Validate
	logger   *zap.Logger
}

// NewNormalizer creates a normalizer
func NewNormalizer(logger *zap.Logger) *Normalizer {
	return &Normalizer{
		validate: validator.New(),
		logger:   logger.Named("normalizer"),
	}
}

// Normalize converts retrieval results into recipes, in order. Results
// missing either info block, or whose required fields are blank, are dropped,
// as are later duplicates of an identifier already admitted. The number of
// dropped results is returned alongside.
func (n *Normalizer) Normalize(raw []outbound.RawResult) ([]recipe.Recipe, int) {
	recipes := make([]recipe.Recipe, 0, len(raw))
	seen := make(map[string]bool, len(raw))
	dropped := 0

	for i, result := range raw {
		if err := n.validate.Struct(result); err != nil {
			dropped++
			n.logger.Debug("Dropping malformed result", zap.Int("index", i), zap.Error(err))
			continue
		}

		r := recipe.Recipe{
			ID:                 strings.TrimSpace(result.InitialInfo.ID.String()),
			Title:              strings.TrimSpace(result.InitialInfo.RecipeName),
			Description:        result.MoreInfo.Summary,
			Image:              result.InitialInfo.Image,
			Instructions:       result.MoreInfo.Instructions,
			MissingIngredients: recipe.JoinIngredients(names(result.InitialInfo.MissingIngredients)),
			IngredientsUsed:    recipe.JoinIngredients(names(result.InitialInfo.PresentIngredients)),
		}
		if err := r.Validate(); err != nil {
			dropped++
			n.logger.Debug("Dropping invalid recipe", zap.Int("index", i), zap.Error(err))
			continue
		}
		if seen[r.ID] {
			dropped++
			n.logger.Debug("Dropping duplicate recipe", zap.String("recipe_id", r.ID))
			continue
		}
		seen[r.ID] = true
		recipes = append(recipes, r)
	}

	return recipes, dropped
}

// FromRecord converts a lookup record. Records carry no pantry match, so the
// used ingredients are the record's full ingredient list and nothing is
// reported missing.
func (n *Normalizer) FromRecord(record *outbound.RecipeRecord) (recipe.Recipe, error) {
	if err := n.validate.Struct(record); err != nil {
		return recipe.Recipe{}, err
	}

	r := recipe.Recipe{
		ID:              strings.TrimSpace(record.ID.String()),
		Title:           strings.TrimSpace(record.Title),
		Description:     record.Summary,
		Image:           record.Image,
		Instructions:    record.Instructions,
		IngredientsUsed: recipe.JoinIngredients(names(record.ExtendedIngredients)),
	}
	return r, r.Validate()
}

func names(refs []outbound.IngredientRef) []string {
	out := make([]string, 0, len(refs))
	for _, ref := range refs {
		if name := strings.TrimSpace(ref.Name); name != "" {
			out = append(out, name)
		}
	}
	return out
}
