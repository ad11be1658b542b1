// Package modal tracks the recipe shown in the detail view and renders it
// with every externally-sourced field made safe for display.
package modal

import (
	"html"
	"sync"

	"github.com/alchemorsel/ingrediate/internal/domain/recipe"
	"github.com/alchemorsel/ingrediate/internal/ports/inbound"
	"github.com/alchemorsel/ingrediate/pkg/errors"
)

// Sanitizer cleans untrusted rich text
type Sanitizer interface {
	// SanitizeHTML keeps benign formatting and removes executable markup.
	SanitizeHTML(input string) string
	// StripHTML removes all markup and returns plain text.
	StripHTML(input string) string
}

// EscapingSanitizer escapes all markup. It stands in when no sanitizer is
// configured.
type EscapingSanitizer struct{}

func (EscapingSanitizer) SanitizeHTML(input string) string { return html.EscapeString(input) }
func (EscapingSanitizer) StripHTML(input string) string    { return html.EscapeString(input) }

// RecipeSource resolves an identifier against the active recipe list
type RecipeSource interface {
	Recipe(id string) (recipe.Recipe, bool)
}

// FavoriteChecker reports favorite membership
type FavoriteChecker interface {
	Contains(recipeID string) bool
}

// Presenter holds at most one selected recipe. It only reads the active
// list; the recipe itself is resolved again on every View so that a
// translated or replaced list is always reflected.
type Presenter struct {
	source    RecipeSource
	sanitizer Sanitizer
	favorites FavoriteChecker

	mu       sync.Mutex
	selected string
}

// NewPresenter creates a presenter with nothing selected
func NewPresenter(source RecipeSource, sanitizer Sanitizer, favorites FavoriteChecker) *Presenter {
	if sanitizer == nil {
		sanitizer = EscapingSanitizer{}
	}
	return &Presenter{
		source:    source,
		sanitizer: sanitizer,
		favorites: favorites,
	}
}

// Open selects the recipe with the given identifier
func (p *Presenter) Open(recipeID string) error {
	if _, ok := p.source.Recipe(recipeID); !ok {
		return errors.NewRecipeNotFoundError(recipeID)
	}

	p.mu.Lock()
	p.selected = recipeID
	p.mu.Unlock()
	return nil
}

// Close clears the selection
func (p *Presenter) Close() {
	p.mu.Lock()
	p.selected = ""
	p.mu.Unlock()
}

// Selected returns the selected identifier, or "" when closed
func (p *Presenter) Selected() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.selected
}

// View renders the selected recipe, or nil when nothing is selected. A
// selection that is no longer part of the active list closes the modal.
func (p *Presenter) View() *inbound.ModalView {
	id := p.Selected()
	if id == "" {
		return nil
	}

	r, ok := p.source.Recipe(id)
	if !ok {
		p.mu.Lock()
		if p.selected == id {
			p.selected = ""
		}
		p.mu.Unlock()
		return nil
	}

	view := &inbound.ModalView{
		ID:                 r.ID,
		Title:              p.sanitizer.StripHTML(r.Title),
		Image:              r.Image,
		DescriptionHTML:    p.sanitizer.SanitizeHTML(r.Description),
		InstructionsHTML:   p.sanitizer.SanitizeHTML(r.Instructions),
		IngredientsUsed:    p.sanitizer.StripHTML(r.IngredientsUsed),
		MissingIngredients: p.sanitizer.StripHTML(r.MissingIngredients),
	}
	if p.favorites != nil {
		view.Favorite = p.favorites.Contains(r.ID)
	}
	return view
}

// Safe returns a copy of r whose externally-sourced text is fit for any
// rendering surface: rich fields keep benign formatting, the rest is plain
// text. ID and Image are copied through.
func (p *Presenter) Safe(r recipe.Recipe) recipe.Recipe {
	r.Title = p.sanitizer.StripHTML(r.Title)
	r.Description = p.sanitizer.SanitizeHTML(r.Description)
	r.Instructions = p.sanitizer.SanitizeHTML(r.Instructions)
	r.IngredientsUsed = p.sanitizer.StripHTML(r.IngredientsUsed)
	r.MissingIngredients = p.sanitizer.StripHTML(r.MissingIngredients)
	return r
}
