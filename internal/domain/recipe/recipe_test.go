package recipe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecipe_Validate(t *testing.T) {
	tests := []struct {
		name    string
		recipe  Recipe
		wantErr error
	}{
		{"complete", Recipe{ID: "1", Title: "Pancakes"}, nil},
		{"missing id", Recipe{Title: "Pancakes"}, ErrMissingID},
		{"blank id", Recipe{ID: "  ", Title: "Pancakes"}, ErrMissingID},
		{"missing title", Recipe{ID: "1"}, ErrMissingTitle},
		{"empty", Recipe{}, ErrMissingID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.recipe.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestRecipe_WithTextFieldsKeepsIdentity(t *testing.T) {
	r := Recipe{
		ID:                 "42",
		Title:              "Omelette",
		Description:        "Eggs",
		Image:              "https://img.example/42.jpg",
		Instructions:       "<ol><li>Whisk</li></ol>",
		MissingIngredients: "chives",
		IngredientsUsed:    "egg,butter",
	}

	fields := r.TextFields()
	for i := range fields {
		fields[i] = "x" + fields[i]
	}
	out := r.WithTextFields(fields)

	assert.Equal(t, r.ID, out.ID)
	assert.Equal(t, r.Image, out.Image)
	assert.Equal(t, "xOmelette", out.Title)
	assert.Equal(t, "xegg,butter", out.IngredientsUsed)
	assert.Equal(t, "Omelette", r.Title, "receiver must not change")
}

func TestClone(t *testing.T) {
	assert.Nil(t, Clone(nil))

	in := []Recipe{{ID: "1", Title: "a"}}
	out := Clone(in)
	out[0].Title = "b"

	require.Len(t, in, 1)
	assert.Equal(t, "a", in[0].Title)
}

func TestParseLanguage(t *testing.T) {
	for input, want := range map[string]Language{
		"English": English,
		"spanish": Spanish,
		"FR":      French,
		" it ":    Italian,
	} {
		got, err := ParseLanguage(input)
		require.NoError(t, err, input)
		assert.Equal(t, want, got)
	}

	_, err := ParseLanguage("Klingon")
	assert.ErrorIs(t, err, ErrUnsupportedLanguage)
}

func TestLanguageCodes(t *testing.T) {
	assert.Equal(t, "en", English.Code())
	assert.Equal(t, "es", Spanish.Code())
	assert.Equal(t, "fr", French.Code())
	assert.Equal(t, "it", Italian.Code())
	assert.Equal(t, "", Language("German").Code())
	assert.False(t, Language("German").Valid())
}

func TestAlternativesTo(t *testing.T) {
	assert.Equal(t, []Language{English, French, Italian}, AlternativesTo(Spanish))
	assert.Len(t, AlternativesTo(English), 3)
}
