// Package handlers provides HTTP handlers for the REST API
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/alchemorsel/ingrediate/internal/domain/recipe"
	"github.com/alchemorsel/ingrediate/internal/infrastructure/security"
	"github.com/alchemorsel/ingrediate/internal/ports/inbound"
	"github.com/alchemorsel/ingrediate/pkg/errors"
)

// SessionHandlers exposes one user's recipe session over JSON
type SessionHandlers struct {
	sessions inbound.SessionRegistry
	logger   *zap.Logger
}

// NewSessionHandlers creates a new session handlers instance
func NewSessionHandlers(sessions inbound.SessionRegistry, logger *zap.Logger) *SessionHandlers {
	return &SessionHandlers{
		sessions: sessions,
		logger:   logger.Named("session-api"),
	}
}

type ingredientRequest struct {
	Name string `json:"name" binding:"required"`
}

type detectedRequest struct {
	Names []string `json:"names" binding:"required"`
}

type languageRequest struct {
	Language string `json:"language" binding:"required"`
}

// PantryResponse reports the effect of a pantry edit together with the new state
type PantryResponse struct {
	Changed  bool             `json:"changed"`
	Added    int              `json:"added,omitempty"`
	Snapshot inbound.Snapshot `json:"snapshot"`
}

// FavoriteResponse reports the membership after a toggle
type FavoriteResponse struct {
	RecipeID string `json:"recipeId"`
	Favorite bool   `json:"favorite"`
}

// Register mounts the session routes on group
func (h *SessionHandlers) Register(group *gin.RouterGroup) {
	group.GET("", h.GetSnapshot)
	group.POST("/pantry", h.AddIngredient)
	group.DELETE("/pantry/:name", h.RemoveIngredient)
	group.POST("/pantry/detected", h.AddDetected)
	group.POST("/generate", h.Generate)
	group.POST("/favorites/load", h.LoadFavorites)
	group.POST("/favorites/:id/toggle", h.ToggleFavorite)
	group.POST("/carousel/next", h.Next)
	group.POST("/carousel/prev", h.Prev)
	group.PUT("/language", h.SelectLanguage)
	group.GET("/modal", h.GetModal)
	group.POST("/modal/:id", h.OpenModal)
	group.DELETE("/modal", h.CloseModal)
}

func (h *SessionHandlers) session(c *gin.Context) (inbound.SessionService, string) {
	subject := c.GetString(security.SubjectKey)
	return h.sessions.Session(subject), subject
}

// GetSnapshot handles GET /api/v1/session
func (h *SessionHandlers) GetSnapshot(c *gin.Context) {
	s, _ := h.session(c)
	c.JSON(http.StatusOK, s.Snapshot())
}

// AddIngredient handles POST /api/v1/session/pantry
func (h *SessionHandlers) AddIngredient(c *gin.Context) {
	var req ingredientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errors.NewValidationError(err.Error()))
		return
	}

	s, _ := h.session(c)
	changed := s.AddIngredient(req.Name)
	c.JSON(http.StatusOK, PantryResponse{Changed: changed, Snapshot: s.Snapshot()})
}

// RemoveIngredient handles DELETE /api/v1/session/pantry/:name
func (h *SessionHandlers) RemoveIngredient(c *gin.Context) {
	s, _ := h.session(c)
	changed := s.RemoveIngredient(c.Param("name"))
	c.JSON(http.StatusOK, PantryResponse{Changed: changed, Snapshot: s.Snapshot()})
}

// AddDetected handles POST /api/v1/session/pantry/detected
func (h *SessionHandlers) AddDetected(c *gin.Context) {
	var req detectedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errors.NewValidationError(err.Error()))
		return
	}

	s, _ := h.session(c)
	added := s.AddDetected(req.Names)
	c.JSON(http.StatusOK, PantryResponse{Changed: added > 0, Added: added, Snapshot: s.Snapshot()})
}

// Generate handles POST /api/v1/session/generate
func (h *SessionHandlers) Generate(c *gin.Context) {
	s, _ := h.session(c)
	if err := s.Generate(c.Request.Context()); err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, s.Snapshot())
}

// LoadFavorites handles POST /api/v1/session/favorites/load
func (h *SessionHandlers) LoadFavorites(c *gin.Context) {
	s, subject := h.session(c)
	if err := s.LoadFavorites(c.Request.Context(), subject); err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, s.Snapshot())
}

// ToggleFavorite handles POST /api/v1/session/favorites/:id/toggle
func (h *SessionHandlers) ToggleFavorite(c *gin.Context) {
	s, subject := h.session(c)
	recipeID := c.Param("id")

	favorite, err := s.ToggleFavorite(c.Request.Context(), subject, recipeID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, FavoriteResponse{RecipeID: recipeID, Favorite: favorite})
}

// Next handles POST /api/v1/session/carousel/next
func (h *SessionHandlers) Next(c *gin.Context) {
	s, _ := h.session(c)
	s.Next()
	c.JSON(http.StatusOK, s.Snapshot())
}

// Prev handles POST /api/v1/session/carousel/prev
func (h *SessionHandlers) Prev(c *gin.Context) {
	s, _ := h.session(c)
	s.Prev()
	c.JSON(http.StatusOK, s.Snapshot())
}

// SelectLanguage handles PUT /api/v1/session/language
func (h *SessionHandlers) SelectLanguage(c *gin.Context) {
	var req languageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errors.NewValidationError(err.Error()))
		return
	}

	language, err := recipe.ParseLanguage(req.Language)
	if err != nil {
		_ = c.Error(errors.NewUnsupportedLanguageError(req.Language).WithCause(err))
		return
	}

	s, _ := h.session(c)
	if err := s.SelectLanguage(c.Request.Context(), language); err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, s.Snapshot())
}

// GetModal handles GET /api/v1/session/modal
func (h *SessionHandlers) GetModal(c *gin.Context) {
	s, _ := h.session(c)
	view := s.Modal()
	if view == nil {
		_ = c.Error(errors.NewAppError(errors.CodeNotFound, "No recipe selected", ""))
		return
	}
	c.JSON(http.StatusOK, view)
}

// OpenModal handles POST /api/v1/session/modal/:id
func (h *SessionHandlers) OpenModal(c *gin.Context) {
	s, _ := h.session(c)
	if err := s.OpenRecipe(c.Param("id")); err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, s.Modal())
}

// CloseModal handles DELETE /api/v1/session/modal
func (h *SessionHandlers) CloseModal(c *gin.Context) {
	s, _ := h.session(c)
	s.CloseRecipe()
	c.Status(http.StatusNoContent)
}
