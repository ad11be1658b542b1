package session

import "github.com/alchemorsel/ingrediate/internal/ports/inbound"

// Status indicator labels
const (
	LabelGenerate      = "Generate Recipes"
	LabelLoading       = "Loading..."
	LabelGenerateAgain = "Generate Again!"
	LabelNoFavorites   = "No favorites!"
	LabelFailed        = "Something went wrong. Try again!"
)

var (
	statusInitial     = inbound.Status{Kind: inbound.StatusIdle, Label: LabelGenerate}
	statusLoading     = inbound.Status{Kind: inbound.StatusLoading, Label: LabelLoading}
	statusGenerated   = inbound.Status{Kind: inbound.StatusIdle, Label: LabelGenerateAgain}
	statusNoFavorites = inbound.Status{Kind: inbound.StatusNoFavorites, Label: LabelNoFavorites}
	statusFailed      = inbound.Status{Kind: inbound.StatusError, Label: LabelFailed}
)
