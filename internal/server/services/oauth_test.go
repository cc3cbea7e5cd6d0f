package services

import (
	"context"
	"errors"
	"net/url"
	"testing"

	"github.com/dmitrijs2005/metaltracker/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func newTestOAuth(f *fixture) *OAuthService {
	return NewOAuthService(GoogleSettings{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURL:  "http://localhost:8000/api/auth/google/callback",
	}, f.users)
}

func TestOAuthService_AuthCodeURL(t *testing.T) {
	s := newTestOAuth(newFixture(t))

	u, err := url.Parse(s.AuthCodeURL("state-123"))
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, "accounts.google.com", u.Host)
	assert.Equal(t, "client-id", q.Get("client_id"))
	assert.Equal(t, "state-123", q.Get("state"))
	assert.Equal(t, "http://localhost:8000/api/auth/google/callback", q.Get("redirect_uri"))
	assert.Contains(t, q.Get("scope"), "email")
}

func TestOAuthService_SignIn(t *testing.T) {
	f := newFixture(t)
	s := newTestOAuth(f)

	s.exchange = func(ctx context.Context, code string) (*oauth2.Token, error) {
		assert.Equal(t, "the-code", code)
		return &oauth2.Token{AccessToken: "google-access"}, nil
	}
	s.fetchProfile = func(ctx context.Context, token *oauth2.Token) (*GoogleProfile, error) {
		assert.Equal(t, "google-access", token.AccessToken)
		return &GoogleProfile{Subject: "g-42", Email: "g@example.com", EmailVerified: true}, nil
	}

	pair, err := s.SignIn(context.Background(), "the-code")
	require.NoError(t, err)
	info, err := f.tokens.Validate(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "g@example.com", f.store.Users[info.UserID].Email)

	// Signing in again reuses the account.
	pair2, err := s.SignIn(context.Background(), "the-code")
	require.NoError(t, err)
	info2, err := f.tokens.Validate(pair2.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, info.UserID, info2.UserID)
	assert.Len(t, f.store.Users, 1)
}

func TestOAuthService_SignIn_ExchangeFails(t *testing.T) {
	s := newTestOAuth(newFixture(t))
	s.exchange = func(context.Context, string) (*oauth2.Token, error) {
		return nil, errors.New("invalid_grant")
	}

	_, err := s.SignIn(context.Background(), "bad")
	assert.ErrorIs(t, err, common.ErrorUnauthorized)
}
