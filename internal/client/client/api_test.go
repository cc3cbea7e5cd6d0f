package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dmitrijs2005/metaltracker/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeData(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"data": data})
}

func writeErr(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]string{"code": code, "message": message}})
}

func newTestClient(t *testing.T, mux *http.ServeMux) *Client {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return New(srv.URL, 2*time.Second)
}

func TestClient_LoginSendsCredentials(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "a@example.com", body["email"])
		assert.Equal(t, "password1", body["password"])
		writeData(w, http.StatusOK, map[string]any{
			"access_token": "acc", "refresh_token": "ref", "token_type": "bearer", "expires_in": 3600,
		})
	})
	c := newTestClient(t, mux)

	pair, err := c.Login(context.Background(), "a@example.com", "password1")
	require.NoError(t, err)
	assert.Equal(t, "acc", pair.AccessToken)
	assert.Equal(t, "ref", pair.RefreshToken)
	assert.EqualValues(t, 3600, pair.ExpiresIn)
}

func TestClient_AuthHeaders(t *testing.T) {
	var gotAuth, gotKey string
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/auth/me", func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get(common.AuthorizationHeaderName)
		gotKey = r.Header.Get(common.APIKeyHeaderName)
		writeData(w, http.StatusOK, map[string]any{"id": 7, "email": "a@example.com", "tier": "free"})
	})
	c := newTestClient(t, mux)
	ctx := context.Background()

	u, err := c.Me(ctx, Auth{AccessToken: "acc"})
	require.NoError(t, err)
	assert.EqualValues(t, 7, u.ID)
	assert.Equal(t, "Bearer acc", gotAuth)
	assert.Empty(t, gotKey)

	_, err = c.Me(ctx, Auth{AccessToken: "acc", APIKey: "mt_key"})
	require.NoError(t, err)
	assert.Empty(t, gotAuth)
	assert.Equal(t, "mt_key", gotKey)
}

func TestClient_ErrorEnvelope(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/keys", func(w http.ResponseWriter, r *http.Request) {
		writeErr(w, http.StatusConflict, "limit_exceeded", "Maximum number of API keys reached")
	})
	mux.HandleFunc("DELETE /api/keys/{id}", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "42", r.PathValue("id"))
		writeErr(w, http.StatusNotFound, "key_not_found", "API key not found")
	})
	mux.HandleFunc("GET /api/summary", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	c := newTestClient(t, mux)
	ctx := context.Background()

	_, err := c.CreateKey(ctx, Auth{AccessToken: "acc"}, "laptop")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusConflict, apiErr.Status)
	assert.ErrorIs(t, err, common.ErrLimitExceeded)
	assert.NotErrorIs(t, err, common.ErrorAlreadyExists)

	err = c.RevokeKey(ctx, Auth{AccessToken: "acc"}, 42)
	assert.ErrorIs(t, err, common.ErrKeyNotFound)
	assert.ErrorIs(t, err, common.ErrorNotFound)

	_, err = c.Summary(ctx, Auth{AccessToken: "acc"})
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "http_error", apiErr.Code)
	assert.Equal(t, "Bad Gateway", apiErr.Message)
}

func TestClient_UnauthorizedMatchesSentinel(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/positions", func(w http.ResponseWriter, r *http.Request) {
		writeErr(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
	})
	c := newTestClient(t, mux)

	_, err := c.ListPositions(context.Background(), Auth{AccessToken: "old"})
	assert.ErrorIs(t, err, common.ErrorUnauthorized)
	assert.NotErrorIs(t, err, common.ErrInvalidCredentials)
}

func TestClient_CreateKeyOmitsEmptyName(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/keys", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.NotContains(t, body, "name")
		writeData(w, http.StatusCreated, map[string]any{"id": 1, "key_prefix": "mt_abcd", "key": "mt_abcdef"})
	})
	c := newTestClient(t, mux)

	k, err := c.CreateKey(context.Background(), Auth{AccessToken: "acc"}, "")
	require.NoError(t, err)
	assert.Equal(t, "mt_abcdef", k.Key)
	assert.Equal(t, "mt_abcd", k.KeyPrefix)
	assert.Nil(t, k.Name)
}

func TestClient_LogoutNoContent(t *testing.T) {
	var body map[string]string
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.WriteHeader(http.StatusNoContent)
	})
	c := newTestClient(t, mux)

	require.NoError(t, c.Logout(context.Background(), Auth{AccessToken: "acc"}, "ref"))
	assert.Equal(t, "ref", body["refresh_token"])
}

func TestClient_Prices(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/prices", func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get(common.AuthorizationHeaderName))
		writeData(w, http.StatusOK, map[string]any{
			"prices": map[string]any{
				"gold": map[string]any{"metal_type": "gold", "spot_per_gram_eur": 100.0, "spot_per_oz_eur": 3110.35},
			},
			"source":    "GOLD.DE",
			"timestamp": "2025-01-02T10:00:00Z",
		})
	})
	c := newTestClient(t, mux)

	q, err := c.Prices(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "GOLD.DE", q.Source)
	assert.InDelta(t, 100.0, q.Prices["gold"].PerGramEUR, 1e-9)
}

func TestClient_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	c := New(srv.URL, time.Second)

	_, err := c.Prices(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GET /api/prices")
	var apiErr *APIError
	assert.NotErrorAs(t, err, &apiErr)
}
