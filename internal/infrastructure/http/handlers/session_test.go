package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/alchemorsel/ingrediate/internal/domain/recipe"
	"github.com/alchemorsel/ingrediate/internal/infrastructure/config"
	"github.com/alchemorsel/ingrediate/internal/infrastructure/http/middleware"
	"github.com/alchemorsel/ingrediate/internal/infrastructure/security"
	"github.com/alchemorsel/ingrediate/internal/ports/inbound"
	"github.com/alchemorsel/ingrediate/pkg/errors"
)

type mockSession struct {
	mock.Mock
}

func (m *mockSession) AddIngredient(name string) bool {
	return m.Called(name).Bool(0)
}

func (m *mockSession) RemoveIngredient(name string) bool {
	return m.Called(name).Bool(0)
}

func (m *mockSession) AddDetected(names []string) int {
	return m.Called(names).Int(0)
}

func (m *mockSession) Generate(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockSession) LoadFavorites(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}

func (m *mockSession) SelectLanguage(ctx context.Context, language recipe.Language) error {
	return m.Called(ctx, language).Error(0)
}

func (m *mockSession) ToggleFavorite(ctx context.Context, userID, recipeID string) (bool, error) {
	args := m.Called(ctx, userID, recipeID)
	return args.Bool(0), args.Error(1)
}

func (m *mockSession) Next() { m.Called() }

func (m *mockSession) Prev() { m.Called() }

func (m *mockSession) OpenRecipe(recipeID string) error {
	return m.Called(recipeID).Error(0)
}

func (m *mockSession) CloseRecipe() { m.Called() }

func (m *mockSession) Modal() *inbound.ModalView {
	args := m.Called()
	view, _ := args.Get(0).(*inbound.ModalView)
	return view
}

func (m *mockSession) Snapshot() inbound.Snapshot {
	return m.Called().Get(0).(inbound.Snapshot)
}

type fakeRegistry struct {
	session  *mockSession
	subjects []string
}

func (r *fakeRegistry) Session(subject string) inbound.SessionService {
	r.subjects = append(r.subjects, subject)
	return r.session
}

func setupRouter(t *testing.T) (*gin.Engine, *mockSession, *fakeRegistry) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	session := &mockSession{}
	registry := &fakeRegistry{session: session}
	mw := middleware.New(&config.Config{}, noop.NewTracerProvider().Tracer("test"), zap.NewNop())

	r := gin.New()
	group := r.Group("/api/v1/session")
	group.Use(mw.ErrorHandler())
	group.Use(func(c *gin.Context) {
		c.Set(security.SubjectKey, "user-1")
		c.Next()
	})
	NewSessionHandlers(registry, zap.NewNop()).Register(group)

	t.Cleanup(func() { session.AssertExpectations(t) })
	return r, session, registry
}

func perform(r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) errors.ErrorDetails {
	t.Helper()
	var resp errors.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Error
}

func TestGetSnapshot(t *testing.T) {
	r, session, registry := setupRouter(t)
	session.On("Snapshot").Return(inbound.Snapshot{Pantry: []string{"egg"}, Language: recipe.English})

	w := perform(r, http.MethodGet, "/api/v1/session", nil)

	require.Equal(t, http.StatusOK, w.Code)
	var snap inbound.Snapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	assert.Equal(t, []string{"egg"}, snap.Pantry)
	assert.Equal(t, []string{"user-1"}, registry.subjects)
}

func TestAddIngredient(t *testing.T) {
	r, session, _ := setupRouter(t)
	session.On("AddIngredient", "egg").Return(true)
	session.On("Snapshot").Return(inbound.Snapshot{Pantry: []string{"egg"}})

	w := perform(r, http.MethodPost, "/api/v1/session/pantry", map[string]string{"name": "egg"})

	require.Equal(t, http.StatusOK, w.Code)
	var resp PantryResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Changed)
	assert.Equal(t, []string{"egg"}, resp.Snapshot.Pantry)
}

func TestAddIngredient_MissingName(t *testing.T) {
	r, _, _ := setupRouter(t)

	w := perform(r, http.MethodPost, "/api/v1/session/pantry", map[string]string{})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, errors.CodeValidationFailed, decodeError(t, w).Code)
}

func TestRemoveIngredient(t *testing.T) {
	r, session, _ := setupRouter(t)
	session.On("RemoveIngredient", "egg").Return(false)
	session.On("Snapshot").Return(inbound.Snapshot{})

	w := perform(r, http.MethodDelete, "/api/v1/session/pantry/egg", nil)

	require.Equal(t, http.StatusOK, w.Code)
	var resp PantryResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Changed)
}

func TestAddDetected(t *testing.T) {
	r, session, _ := setupRouter(t)
	session.On("AddDetected", []string{"egg", "milk"}).Return(2)
	session.On("Snapshot").Return(inbound.Snapshot{Pantry: []string{"egg", "milk"}})

	w := perform(r, http.MethodPost, "/api/v1/session/pantry/detected", map[string][]string{"names": {"egg", "milk"}})

	require.Equal(t, http.StatusOK, w.Code)
	var resp PantryResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Changed)
	assert.Equal(t, 2, resp.Added)
}

func TestGenerate_EmptyPantry(t *testing.T) {
	r, session, _ := setupRouter(t)
	session.On("Generate", mock.Anything).Return(errors.NewEmptyPantryError())

	w := perform(r, http.MethodPost, "/api/v1/session/generate", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, errors.CodeEmptyPantry, decodeError(t, w).Code)
}

func TestGenerate_Stale(t *testing.T) {
	r, session, _ := setupRouter(t)
	session.On("Generate", mock.Anything).Return(errors.NewStaleResultError("generate", nil))

	w := perform(r, http.MethodPost, "/api/v1/session/generate", nil)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, errors.CodeStaleResult, decodeError(t, w).Code)
}

func TestLoadFavorites_UsesSubject(t *testing.T) {
	r, session, _ := setupRouter(t)
	session.On("LoadFavorites", mock.Anything, "user-1").Return(nil)
	session.On("Snapshot").Return(inbound.Snapshot{HasGenerated: true})

	w := perform(r, http.MethodPost, "/api/v1/session/favorites/load", nil)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestToggleFavorite(t *testing.T) {
	r, session, _ := setupRouter(t)
	session.On("ToggleFavorite", mock.Anything, "user-1", "42").Return(true, nil)

	w := perform(r, http.MethodPost, "/api/v1/session/favorites/42/toggle", nil)

	require.Equal(t, http.StatusOK, w.Code)
	var resp FavoriteResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, FavoriteResponse{RecipeID: "42", Favorite: true}, resp)
}

func TestToggleFavorite_SyncFailure(t *testing.T) {
	r, session, _ := setupRouter(t)
	session.On("ToggleFavorite", mock.Anything, "user-1", "42").
		Return(false, errors.NewFavoritesSyncError("42", assert.AnError))

	w := perform(r, http.MethodPost, "/api/v1/session/favorites/42/toggle", nil)

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, errors.CodeFavoritesSyncFailed, decodeError(t, w).Code)
}

func TestCarousel(t *testing.T) {
	r, session, _ := setupRouter(t)
	session.On("Next").Once()
	session.On("Prev").Once()
	session.On("Snapshot").Return(inbound.Snapshot{Position: 1})

	assert.Equal(t, http.StatusOK, perform(r, http.MethodPost, "/api/v1/session/carousel/next", nil).Code)
	assert.Equal(t, http.StatusOK, perform(r, http.MethodPost, "/api/v1/session/carousel/prev", nil).Code)
}

func TestSelectLanguage(t *testing.T) {
	r, session, _ := setupRouter(t)
	session.On("SelectLanguage", mock.Anything, recipe.Spanish).Return(nil)
	session.On("Snapshot").Return(inbound.Snapshot{Language: recipe.Spanish})

	w := perform(r, http.MethodPut, "/api/v1/session/language", map[string]string{"language": "es"})

	require.Equal(t, http.StatusOK, w.Code)
	var snap inbound.Snapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	assert.Equal(t, recipe.Spanish, snap.Language)
}

func TestSelectLanguage_Unsupported(t *testing.T) {
	r, _, _ := setupRouter(t)

	w := perform(r, http.MethodPut, "/api/v1/session/language", map[string]string{"language": "Klingon"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, errors.CodeUnsupportedLanguage, decodeError(t, w).Code)
}

func TestModal(t *testing.T) {
	t.Run("nothing selected", func(t *testing.T) {
		r, session, _ := setupRouter(t)
		session.On("Modal").Return(nil)

		w := perform(r, http.MethodGet, "/api/v1/session/modal", nil)

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, errors.CodeNotFound, decodeError(t, w).Code)
	})

	t.Run("open", func(t *testing.T) {
		r, session, _ := setupRouter(t)
		view := &inbound.ModalView{ID: "42", Title: "Omelette"}
		session.On("OpenRecipe", "42").Return(nil)
		session.On("Modal").Return(view)

		w := perform(r, http.MethodPost, "/api/v1/session/modal/42", nil)

		require.Equal(t, http.StatusOK, w.Code)
		var got inbound.ModalView
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		assert.Equal(t, *view, got)
	})

	t.Run("open unknown", func(t *testing.T) {
		r, session, _ := setupRouter(t)
		session.On("OpenRecipe", "missing").Return(errors.NewRecipeNotFoundError("missing"))

		w := perform(r, http.MethodPost, "/api/v1/session/modal/missing", nil)

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, errors.CodeRecipeNotFound, decodeError(t, w).Code)
	})

	t.Run("close", func(t *testing.T) {
		r, session, _ := setupRouter(t)
		session.On("CloseRecipe").Once()

		w := perform(r, http.MethodDelete, "/api/v1/session/modal", nil)

		assert.Equal(t, http.StatusNoContent, w.Code)
	})
}
