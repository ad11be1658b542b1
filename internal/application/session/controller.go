// Package session implements the recipe session state machine: the pantry,
// the active recipe list and its carousel, favorites, translation and the
// detail view of one user.
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/alchemorsel/ingrediate/internal/application/favorites"
	"github.com/alchemorsel/ingrediate/internal/application/modal"
	"github.com/alchemorsel/ingrediate/internal/application/translation"
	"github.com/alchemorsel/ingrediate/internal/domain/carousel"
	"github.com/alchemorsel/ingrediate/internal/domain/pantry"
	"github.com/alchemorsel/ingrediate/internal/domain/recipe"
	"github.com/alchemorsel/ingrediate/internal/domain/shared"
	"github.com/alchemorsel/ingrediate/internal/ports/inbound"
	"github.com/alchemorsel/ingrediate/internal/ports/outbound"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// ErrStaleResult marks the result of an operation that a newer one superseded
var ErrStaleResult = errors.New("result superseded by a newer request")

// Dependencies are the collaborators a Controller is built from
type Dependencies struct {
	Retriever  outbound.RecipeRetriever
	Lookup     outbound.RecipeLookup
	Favorites  outbound.FavoritesStore
	Translator *translation.Pipeline
	Sanitizer  modal.Sanitizer
	Events     shared.EventDispatcher
	Tracer     trace.Tracer
	Logger     *zap.Logger
}

// Controller owns the state of one recipe session.
//
// State is guarded by mu, which is never held across a collaborator call.
// Generation and favorites loads share requestEpoch: each call captures the
// epoch it started under and commits only if no newer call has started.
// Translation captures translationEpoch together with sourceEpoch, so a
// batch is discarded both when a newer language was selected and when the
// list it translated was replaced in the meantime.
type Controller struct {
	retriever  outbound.RecipeRetriever
	lookup     outbound.RecipeLookup
	store      outbound.FavoritesStore
	pipeline   *translation.Pipeline
	normalizer *Normalizer
	favorites  *favorites.Cache
	modal      *modal.Presenter
	events     shared.EventDispatcher
	tracer     trace.Tracer
	logger     *zap.Logger

	mu               sync.Mutex
	pantry           *pantry.Pantry
	source           []recipe.Recipe
	active           []recipe.Recipe
	carousel         *carousel.Navigator
	language         recipe.Language
	status           inbound.Status
	hasGenerated     bool
	requestEpoch     uint64
	sourceEpoch      uint64
	translationEpoch uint64
}

var _ inbound.SessionService = (*Controller)(nil)

// NewController creates a session with an empty pantry and list
func NewController(deps Dependencies) *Controller {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	events := deps.Events
	if events == nil {
		events = shared.NopDispatcher{}
	}
	tracer := deps.Tracer
	if tracer == nil {
		tracer = otel.Tracer("github.com/alchemorsel/ingrediate/session")
	}

	c := &Controller{
		retriever:  deps.Retriever,
		lookup:     deps.Lookup,
		store:      deps.Favorites,
		pipeline:   deps.Translator,
		normalizer: NewNormalizer(logger),
		events:     events,
		tracer:     tracer,
		logger:     logger.Named("session"),
		pantry:     pantry.New(),
		carousel:   carousel.New(0),
		language:   recipe.DefaultLanguage,
		status:     statusInitial,
	}
	c.favorites = favorites.NewCache(deps.Favorites, events, logger)
	c.modal = modal.NewPresenter(c, deps.Sanitizer, c.favorites)
	return c
}

// AddIngredient adds name to the pantry. It reports whether the pantry
// changed; a change marks the displayed results stale.
func (c *Controller) AddIngredient(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.pantry.Add(name) {
		return false
	}
	c.hasGenerated = false
	return true
}

// RemoveIngredient removes every entry equal to name
func (c *Controller) RemoveIngredient(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.pantry.Remove(name) {
		return false
	}
	c.hasGenerated = false
	return true
}

// AddDetected feeds a batch from the ingredient-detection collaborator into
// the pantry and returns how many names were added. A non-empty batch marks
// the current results stale without clearing them.
func (c *Controller) AddDetected(names []string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	added := c.pantry.AddAll(names)
	if len(names) > 0 {
		c.hasGenerated = false
	}
	c.logger.Debug("Detected ingredients received",
		zap.Int("batch", len(names)),
		zap.Int("added", added),
	)
	return added
}

// Next focuses the next recipe of the carousel
func (c *Controller) Next() {
	c.mu.Lock()
	c.carousel.Next()
	c.mu.Unlock()
}

// Prev focuses the previous recipe of the carousel
func (c *Controller) Prev() {
	c.mu.Lock()
	c.carousel.Prev()
	c.mu.Unlock()
}

// Recipe returns the entry of the active list with the given identifier
func (c *Controller) Recipe(id string) (recipe.Recipe, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, r := range c.active {
		if r.ID == id {
			return r, true
		}
	}
	return recipe.Recipe{}, false
}

// OpenRecipe shows the recipe with the given identifier in the detail view
func (c *Controller) OpenRecipe(recipeID string) error {
	return c.modal.Open(recipeID)
}

// CloseRecipe closes the detail view
func (c *Controller) CloseRecipe() {
	c.modal.Close()
}

// Modal renders the detail view, or nil when it is closed
func (c *Controller) Modal() *inbound.ModalView {
	return c.modal.View()
}

// IsFavorite reports whether recipeID is a favorite of this session
func (c *Controller) IsFavorite(recipeID string) bool {
	return c.favorites.Contains(recipeID)
}

// Snapshot copies the session state for rendering. Recipe text is
// sanitized the same way as the detail view.
func (c *Controller) Snapshot() inbound.Snapshot {
	selected := c.modal.Selected()
	favs := c.favorites.IDs()

	c.mu.Lock()
	snap := inbound.Snapshot{
		Pantry:       c.pantry.Entries(),
		Recipes:      recipe.Clone(c.active),
		Favorites:    favs,
		Language:     c.language,
		Alternatives: recipe.AlternativesTo(c.language),
		Status:       c.status,
		HasGenerated: c.hasGenerated,
		SelectedID:   selected,
	}
	pos, active := c.carousel.Position()
	c.mu.Unlock()

	if snap.Recipes == nil {
		snap.Recipes = []recipe.Recipe{}
	}
	for i := range snap.Recipes {
		snap.Recipes[i] = c.modal.Safe(snap.Recipes[i])
	}
	if active {
		snap.Position = pos
		current := snap.Recipes[pos]
		snap.Current = &current
	}
	return snap
}

// beginRequest starts a generation or favorites load. Caller holds mu.
func (c *Controller) beginRequest() uint64 {
	c.requestEpoch++
	c.status = statusLoading
	return c.requestEpoch
}

// installLocked replaces the source and active lists wholesale and resets
// the carousel. Any translation still in flight is invalidated. Caller holds mu.
func (c *Controller) installLocked(recipes []recipe.Recipe) {
	c.source = recipe.Clone(recipes)
	c.active = recipe.Clone(recipes)
	c.carousel.Reset(len(recipes))
	c.language = recipe.DefaultLanguage
	c.hasGenerated = true
	c.sourceEpoch++
	c.translationEpoch++
}

// discard reports a superseded result and builds the error returned for it
func (c *Controller) discard(operation string, epoch uint64) error {
	c.logger.Debug("Discarding superseded result",
		zap.String("operation", operation),
		zap.Uint64("epoch", epoch),
	)
	c.publish(recipe.ResultDiscardedEvent{
		Operation:   operation,
		Epoch:       epoch,
		DiscardedAt: time.Now(),
	})
	return staleError(operation)
}

func (c *Controller) publish(event shared.DomainEvent) {
	if err := c.events.Dispatch(event); err != nil {
		c.logger.Error("Failed to publish event",
			zap.String("event", event.EventName()),
			zap.Error(err),
		)
	}
}
