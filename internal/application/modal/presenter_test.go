package modal

import (
	"testing"

	"github.com/alchemorsel/ingrediate/internal/domain/recipe"
	"github.com/alchemorsel/ingrediate/internal/infrastructure/security"
	"github.com/alchemorsel/ingrediate/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type listSource []recipe.Recipe

func (l *listSource) Recipe(id string) (recipe.Recipe, bool) {
	for _, r := range *l {
		if r.ID == id {
			return r, true
		}
	}
	return recipe.Recipe{}, false
}

type favoriteSet map[string]bool

func (f favoriteSet) Contains(id string) bool { return f[id] }

func newPresenter(list *listSource, favs favoriteSet) *Presenter {
	return NewPresenter(list, security.NewSanitizer(zap.NewNop()), favs)
}

func TestOpenUnknownRecipe(t *testing.T) {
	p := newPresenter(&listSource{}, nil)

	err := p.Open("missing")

	assert.True(t, errors.Is(err, errors.CodeRecipeNotFound))
	assert.Nil(t, p.View())
}

func TestViewSanitizesExternalContent(t *testing.T) {
	list := &listSource{{
		ID:                 "42",
		Title:              "<b>Cake</b>",
		Image:              "https://img.example/cake.jpg",
		Description:        `<p onclick="steal()">Sweet</p><script>alert(1)</script>`,
		Instructions:       `<ol><li>Bake</li></ol><img src="x" onerror="alert(1)">`,
		IngredientsUsed:    "egg,flour",
		MissingIngredients: "<i>sugar</i>",
	}}
	p := newPresenter(list, favoriteSet{"42": true})

	require.NoError(t, p.Open("42"))
	view := p.View()

	require.NotNil(t, view)
	assert.Equal(t, "42", view.ID)
	assert.Equal(t, "Cake", view.Title)
	assert.Equal(t, "<p>Sweet</p>", view.DescriptionHTML)
	assert.NotContains(t, view.InstructionsHTML, "onerror")
	assert.NotContains(t, view.InstructionsHTML, "script")
	assert.Contains(t, view.InstructionsHTML, "<li>Bake</li>")
	assert.Equal(t, "egg,flour", view.IngredientsUsed)
	assert.Equal(t, "sugar", view.MissingIngredients)
	assert.True(t, view.Favorite)
}

func TestViewFollowsReplacedList(t *testing.T) {
	list := &listSource{{ID: "1", Title: "Soup"}}
	p := newPresenter(list, nil)
	require.NoError(t, p.Open("1"))

	*list = listSource{{ID: "1", Title: "Sopa"}}
	assert.Equal(t, "Sopa", p.View().Title)

	*list = listSource{{ID: "2", Title: "Stew"}}
	assert.Nil(t, p.View())
	assert.Empty(t, p.Selected())
}

func TestClose(t *testing.T) {
	list := &listSource{{ID: "1", Title: "Soup"}}
	p := newPresenter(list, nil)
	require.NoError(t, p.Open("1"))

	p.Close()

	assert.Empty(t, p.Selected())
	assert.Nil(t, p.View())
}

func TestSafeCleansEveryExternalField(t *testing.T) {
	p := newPresenter(&listSource{}, nil)

	safe := p.Safe(recipe.Recipe{
		ID:                 "7",
		Title:              "<b>Tart</b>",
		Image:              "tart.jpg",
		Description:        `<p onmouseover="x()">Crisp</p>`,
		Instructions:       `<p>Mix</p><script>alert(1)</script><img src=x onerror=alert(2)>`,
		IngredientsUsed:    "<i>butter</i>",
		MissingIngredients: "flour",
	})

	assert.Equal(t, "7", safe.ID)
	assert.Equal(t, "tart.jpg", safe.Image)
	assert.Equal(t, "Tart", safe.Title)
	assert.NotContains(t, safe.Description, "onmouseover")
	assert.Contains(t, safe.Instructions, "<p>Mix</p>")
	assert.NotContains(t, safe.Instructions, "script")
	assert.NotContains(t, safe.Instructions, "onerror")
	assert.Equal(t, "butter", safe.IngredientsUsed)
}

func TestMissingSanitizerEscapesMarkup(t *testing.T) {
	p := NewPresenter(&listSource{}, nil, nil)

	safe := p.Safe(recipe.Recipe{ID: "1", Title: "Pie", Instructions: "<script>alert(1)</script>"})

	assert.Equal(t, "&lt;script&gt;alert(1)&lt;/script&gt;", safe.Instructions)
}
