package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/metaltracker/internal/client/client"
	"github.com/dmitrijs2005/metaltracker/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeServer issues numbered tokens and accepts only the latest access
// token.
type fakeServer struct {
	mu          sync.Mutex
	issued      int
	access      string
	refresh     string
	loggedOut   []string
	refreshDown bool
}

func (f *fakeServer) pair(w http.ResponseWriter, status int) {
	f.issued++
	f.access = "acc" + strings.Repeat("+", f.issued)
	f.refresh = "ref" + strings.Repeat("+", f.issued)
	writeJSON(w, status, map[string]any{"data": map[string]any{
		"access_token": f.access, "refresh_token": f.refresh, "token_type": "bearer", "expires_in": 3600,
	}})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func unauthorized(w http.ResponseWriter, code string) {
	writeJSON(w, http.StatusUnauthorized, map[string]any{"error": map[string]string{"code": code, "message": code}})
}

func (f *fakeServer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/register", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.pair(w, http.StatusCreated)
	})
	mux.HandleFunc("POST /api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["password"] != "password1" {
			unauthorized(w, "invalid_credentials")
			return
		}
		f.pair(w, http.StatusOK)
	})
	mux.HandleFunc("POST /api/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if f.refreshDown || body["refresh_token"] != f.refresh {
			unauthorized(w, "refresh_token_expired")
			return
		}
		f.pair(w, http.StatusOK)
	})
	mux.HandleFunc("POST /api/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.loggedOut = append(f.loggedOut, r.Header.Get(common.AuthorizationHeaderName))
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("GET /api/auth/me", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if key := r.Header.Get(common.APIKeyHeaderName); key != "" {
			writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{"id": 1, "email": "key@example.com"}})
			return
		}
		if r.Header.Get(common.AuthorizationHeaderName) != "Bearer "+f.access {
			unauthorized(w, "unauthorized")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{"id": 1, "email": "a@example.com"}})
	})
	return mux
}

// expireAccess makes the current access token stale.
func (f *fakeServer) expireAccess(refreshDown bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.access = "rotated-elsewhere"
	f.refreshDown = refreshDown
}

func (f *fakeServer) issuedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.issued
}

func (f *fakeServer) logouts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.loggedOut...)
}

func openDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := client.InitDatabase(context.Background(), filepath.Join(t.TempDir(), "client.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func setup(t *testing.T, apiKey string) (*AuthService, *fakeServer, *sql.DB) {
	t.Helper()
	fake := &fakeServer{}
	srv := httptest.NewServer(fake.handler())
	t.Cleanup(srv.Close)

	db := openDB(t)
	return NewAuthService(client.New(srv.URL, 2*time.Second), db, apiKey), fake, db
}

func me(s *AuthService) func(ctx context.Context) (string, error) {
	return func(ctx context.Context) (string, error) {
		var email string
		err := s.Do(ctx, func(auth client.Auth) error {
			u, err := s.api.Me(ctx, auth)
			if err != nil {
				return err
			}
			email = u.Email
			return nil
		})
		return email, err
	}
}

func TestAuthService_DoRequiresLogin(t *testing.T) {
	s, _, _ := setup(t, "")

	_, err := me(s)(context.Background())
	assert.ErrorIs(t, err, ErrNotLoggedIn)
	assert.ErrorIs(t, s.Logout(context.Background()), ErrNotLoggedIn)
}

func TestAuthService_LoginStoresSession(t *testing.T) {
	s, fake, _ := setup(t, "")
	ctx := context.Background()

	require.NoError(t, s.Login(ctx, "a@example.com", "password1"))

	email, err := s.Email(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", email)

	got, err := me(s)(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", got)
	assert.Equal(t, 1, fake.issuedCount())
}

func TestAuthService_LoginRejected(t *testing.T) {
	s, _, _ := setup(t, "")
	ctx := context.Background()

	err := s.Login(ctx, "a@example.com", "wrong-password")
	assert.ErrorIs(t, err, common.ErrInvalidCredentials)

	email, err := s.Email(ctx)
	require.NoError(t, err)
	assert.Empty(t, email)
}

func TestAuthService_RegisterStoresSession(t *testing.T) {
	s, _, _ := setup(t, "")
	ctx := context.Background()

	require.NoError(t, s.Register(ctx, "new@example.com", "password1"))
	email, err := s.Email(ctx)
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", email)
}

func TestAuthService_RefreshesOnce(t *testing.T) {
	s, fake, _ := setup(t, "")
	ctx := context.Background()
	require.NoError(t, s.Login(ctx, "a@example.com", "password1"))

	fake.expireAccess(false)
	got, err := me(s)(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", got)
	assert.Equal(t, 2, fake.issuedCount())

	got, err = me(s)(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", got)
	assert.Equal(t, 2, fake.issuedCount(), "fresh token is reused")
}

func TestAuthService_RefreshRejectedEndsSession(t *testing.T) {
	s, fake, _ := setup(t, "")
	ctx := context.Background()
	require.NoError(t, s.Login(ctx, "a@example.com", "password1"))

	fake.expireAccess(true)

	_, err := me(s)(ctx)
	assert.ErrorIs(t, err, ErrSessionExpired)

	_, err = me(s)(ctx)
	assert.ErrorIs(t, err, ErrNotLoggedIn)
}

func TestAuthService_Logout(t *testing.T) {
	s, fake, _ := setup(t, "")
	ctx := context.Background()
	require.NoError(t, s.Login(ctx, "a@example.com", "password1"))

	require.NoError(t, s.Logout(ctx))
	assert.Equal(t, []string{"Bearer acc+"}, fake.logouts())

	email, err := s.Email(ctx)
	require.NoError(t, err)
	assert.Empty(t, email)
	_, err = me(s)(ctx)
	assert.ErrorIs(t, err, ErrNotLoggedIn)
}

func TestAuthService_APIKeyBypassesSession(t *testing.T) {
	s, fake, _ := setup(t, "mt_key")
	ctx := context.Background()

	assert.True(t, s.UsesAPIKey())
	got, err := me(s)(ctx)
	require.NoError(t, err)
	assert.Equal(t, "key@example.com", got)
	assert.Zero(t, fake.issuedCount())
}

func TestAuthService_ClosedDatabase(t *testing.T) {
	s, _, db := setup(t, "")
	require.NoError(t, db.Close())

	_, err := me(s)(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotLoggedIn)
}
