package persona

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/study-buddy/internal/model/persona"
)

func setupRouter() *chi.Mux {
	r := chi.NewRouter()
	New(persona.NewMemoryStore(persona.Seed())).RegisterRoutes(r)
	return r
}

func TestListPersonas(t *testing.T) {
	resp := httptest.NewRecorder()
	setupRouter().ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/personas", nil))

	require.Equal(t, http.StatusOK, resp.Code)
	var got []persona.Persona
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Len(t, got, len(persona.Seed()))
}

func TestGetPersona(t *testing.T) {
	r := setupRouter()

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/personas/study-buddy", nil))
	require.Equal(t, http.StatusOK, resp.Code)

	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/personas/ghost", nil))
	assert.Equal(t, http.StatusNotFound, resp.Code)
}
