// Package testutils provides test data factories and collaborator mocks
package testutils

import (
	"fmt"
	"strings"

	"github.com/alchemorsel/ingrediate/internal/domain/recipe"
	"github.com/alchemorsel/ingrediate/internal/ports/outbound"
	"github.com/brianvoe/gofakeit/v6"
)

// RecipeFactory provides methods to create test recipes
type RecipeFactory struct {
	faker *gofakeit.Faker
	next  int
}

// NewRecipeFactory creates a new recipe factory with seeded faker
func NewRecipeFactory(seed int64) *RecipeFactory {
	return &RecipeFactory{
		faker: gofakeit.New(seed),
	}
}

// Recipe returns a valid recipe with a unique identifier
func (f *RecipeFactory) Recipe() recipe.Recipe {
	f.next++
	return recipe.Recipe{
		ID:                 fmt.Sprintf("r%d", f.next),
		Title:              f.faker.Dessert(),
		Description:        f.faker.Sentence(8),
		Image:              f.faker.ImageURL(312, 231),
		Instructions:       "<ol><li>" + f.faker.Sentence(5) + "</li></ol>",
		MissingIngredients: recipe.JoinIngredients(f.ingredients(2)),
		IngredientsUsed:    recipe.JoinIngredients(f.ingredients(3)),
	}
}

// Recipes returns n valid recipes
func (f *RecipeFactory) Recipes(n int) []recipe.Recipe {
	out := make([]recipe.Recipe, n)
	for i := range out {
		out[i] = f.Recipe()
	}
	return out
}

// RawResult returns a well-formed retrieval result
func (f *RecipeFactory) RawResult() outbound.RawResult {
	f.next++
	return outbound.RawResult{
		InitialInfo: &outbound.CoreInfo{
			ID:                 outbound.FlexibleID(fmt.Sprintf("%d", 1000+f.next)),
			RecipeName:         f.faker.Dessert(),
			Image:              f.faker.ImageURL(312, 231),
			PresentIngredients: refs(f.ingredients(2)),
			MissingIngredients: refs(f.ingredients(1)),
		},
		MoreInfo: &outbound.ExtendedInfo{
			Summary:      "<b>" + f.faker.Sentence(6) + "</b>",
			Instructions: f.faker.Sentence(10),
		},
	}
}

// CoreOnlyResult returns a retrieval result without its extended block
func (f *RecipeFactory) CoreOnlyResult() outbound.RawResult {
	r := f.RawResult()
	r.MoreInfo = nil
	return r
}

// Record returns a lookup record for id
func (f *RecipeFactory) Record(id string) *outbound.RecipeRecord {
	return &outbound.RecipeRecord{
		ID:                  outbound.FlexibleID(id),
		Title:               f.faker.Dessert(),
		Summary:             f.faker.Sentence(6),
		Instructions:        f.faker.Sentence(10),
		Image:               f.faker.ImageURL(312, 231),
		ExtendedIngredients: refs(f.ingredients(3)),
	}
}

func (f *RecipeFactory) ingredients(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = strings.ToLower(f.faker.Vegetable())
	}
	return out
}

func refs(names []string) []outbound.IngredientRef {
	out := make([]outbound.IngredientRef, len(names))
	for i, n := range names {
		out[i] = outbound.IngredientRef{ID: outbound.FlexibleID(fmt.Sprintf("%d", i+1)), Name: n}
	}
	return out
}
