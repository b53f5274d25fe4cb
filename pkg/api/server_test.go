package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gridspace/gridspace/pkg/api/handlers"
	authproviders "github.com/gridspace/gridspace/pkg/auth/providers"
	"github.com/gridspace/gridspace/pkg/spaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func mintToken(t *testing.T, userID string) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"userId": userID,
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func newTestRouter(t *testing.T) (http.Handler, spaces.Repository) {
	t.Helper()
	authProvider, err := authproviders.NewJWTAuthProvider(testSecret)
	require.NoError(t, err)
	repository := spaces.NewInMemoryRepository()
	router := NewRouter(NewAPIServerOptions{
		AuthProvider: authProvider,
		Repository:   repository,
	})
	return router, repository
}

func doRequest(t *testing.T, router http.Handler, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	return recorder
}

func TestAPI_Healthz(t *testing.T) {
	router, _ := newTestRouter(t)
	resp := doRequest(t, router, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestAPI_RequiresAuth(t *testing.T) {
	router, _ := newTestRouter(t)

	resp := doRequest(t, router, http.MethodGet, "/spaces", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	resp = doRequest(t, router, http.MethodGet, "/spaces", "bogus-token", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestAPI_SpaceLifecycle(t *testing.T) {
	router, _ := newTestRouter(t)
	token := mintToken(t, "alice")

	// Create.
	resp := doRequest(t, router, http.MethodPost, "/spaces", token, &handlers.CreateSpaceRequest{
		Name:   "Lobby",
		Width:  10,
		Height: 10,
	})
	require.Equal(t, http.StatusCreated, resp.Code)
	created := handlers.SpaceResponse{}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &created))
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "Lobby", created.Name)
	assert.Equal(t, "alice", created.CreatorID)

	// Get.
	resp = doRequest(t, router, http.MethodGet, "/spaces/"+created.ID, token, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	got := handlers.SpaceResponse{}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &got))
	assert.Equal(t, created, got)

	// List.
	resp = doRequest(t, router, http.MethodGet, "/spaces", token, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	var list []handlers.SpaceResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &list))
	assert.Len(t, list, 1)

	// Delete.
	resp = doRequest(t, router, http.MethodDelete, "/spaces/"+created.ID, token, nil)
	assert.Equal(t, http.StatusNoContent, resp.Code)

	resp = doRequest(t, router, http.MethodGet, "/spaces/"+created.ID, token, nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestAPI_CreateSpaceValidation(t *testing.T) {
	router, _ := newTestRouter(t)
	token := mintToken(t, "alice")

	tests := []struct {
		name string
		req  *handlers.CreateSpaceRequest
	}{
		{"missing name", &handlers.CreateSpaceRequest{Width: 10, Height: 10}},
		{"zero width", &handlers.CreateSpaceRequest{Name: "Lobby", Height: 10}},
		{"negative height", &handlers.CreateSpaceRequest{Name: "Lobby", Width: 10, Height: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := doRequest(t, router, http.MethodPost, "/spaces", token, tt.req)
			assert.Equal(t, http.StatusBadRequest, resp.Code)
		})
	}
}

func TestAPI_DeleteRequiresCreator(t *testing.T) {
	router, repository := newTestRouter(t)
	require.NoError(t, repository.CreateSpace(context.Background(), &spaces.Space{
		ID: "space-1", Name: "Lobby", Width: 10, Height: 10, CreatorID: "alice",
	}))

	resp := doRequest(t, router, http.MethodDelete, "/spaces/space-1", mintToken(t, "bob"), nil)
	assert.Equal(t, http.StatusForbidden, resp.Code)

	resp = doRequest(t, router, http.MethodDelete, "/spaces/space-1", mintToken(t, "alice"), nil)
	assert.Equal(t, http.StatusNoContent, resp.Code)
}
