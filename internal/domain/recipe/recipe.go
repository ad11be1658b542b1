// Package recipe contains the core recipe value types shared by the session,
// favorites and translation services.
package recipe

import "strings"

// Recipe is one entry of the active recipe list. It is a value type: services
// that rewrite text (translation) produce a new Recipe rather than mutating one.
type Recipe struct {
	ID                 string `json:"id"`
	Title              string `json:"title"`
	Description        string `json:"description"`
	Image              string `json:"image"`
	Instructions       string `json:"instructions"`
	MissingIngredients string `json:"missingIngredients"`
	IngredientsUsed    string `json:"ingredientsUsed"`
}

// Validate enforces the admission invariant of the active list: every recipe
// has a non-empty identifier and a non-empty title.
func (r Recipe) Validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return ErrMissingID
	}
	if strings.TrimSpace(r.Title) == "" {
		return ErrMissingTitle
	}
	return nil
}

// TextFields returns the translatable fields in a fixed order.
func (r Recipe) TextFields() [FieldCount]string {
	return [FieldCount]string{
		FieldTitle:              r.Title,
		FieldDescription:        r.Description,
		FieldInstructions:       r.Instructions,
		FieldMissingIngredients: r.MissingIngredients,
		FieldIngredientsUsed:    r.IngredientsUsed,
	}
}

// WithTextFields returns a copy of r with its translatable fields replaced.
// ID and Image are carried over unchanged.
func (r Recipe) WithTextFields(fields [FieldCount]string) Recipe {
	r.Title = fields[FieldTitle]
	r.Description = fields[FieldDescription]
	r.Instructions = fields[FieldInstructions]
	r.MissingIngredients = fields[FieldMissingIngredients]
	r.IngredientsUsed = fields[FieldIngredientsUsed]
	return r
}

// Field indexes a translatable text field of a Recipe.
type Field int

const (
	FieldTitle Field = iota
	FieldDescription
	FieldInstructions
	FieldMissingIngredients
	FieldIngredientsUsed

	// FieldCount is the number of translatable fields per recipe.
	FieldCount
)

func (f Field) String() string {
	switch f {
	case FieldTitle:
		return "title"
	case FieldDescription:
		return "description"
	case FieldInstructions:
		return "instructions"
	case FieldMissingIngredients:
		return "missingIngredients"
	case FieldIngredientsUsed:
		return "ingredientsUsed"
	default:
		return "unknown"
	}
}

// JoinIngredients joins ingredient names the way the list fields store them.
func JoinIngredients(names []string) string {
	return strings.Join(names, ",")
}

// Clone returns a copy of the list that shares no backing array with recipes.
func Clone(recipes []Recipe) []Recipe {
	if recipes == nil {
		return nil
	}
	out := make([]Recipe, len(recipes))
	copy(out, recipes)
	return out
}
