// Package services holds the terminal client's session handling on top of
// the API client and the local metadata store.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/metaltracker/internal/client/client"
	"github.com/dmitrijs2005/metaltracker/internal/client/models"
	"github.com/dmitrijs2005/metaltracker/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/metaltracker/internal/common"
	"github.com/dmitrijs2005/metaltracker/internal/dbx"
)

const (
	keyAccessToken  = "access_token"
	keyRefreshToken = "refresh_token"
	keyEmail        = "email"
)

var (
	ErrNotLoggedIn    = errors.New("not logged in, run 'login' first")
	ErrSessionExpired = errors.New("session expired, run 'login' again")
)

// AuthService keeps one session per local database. When an API key is
// configured it is used for every call and the stored session is ignored.
type AuthService struct {
	api    *client.Client
	db     *sql.DB
	apiKey string
}

func NewAuthService(api *client.Client, db *sql.DB, apiKey string) *AuthService {
	return &AuthService{api: api, db: db, apiKey: apiKey}
}

func (s *AuthService) metadata(db dbx.DBTX) metadata.Repository {
	return metadata.NewSQLiteRepository(db)
}

// UsesAPIKey reports whether calls are authenticated with an API key.
func (s *AuthService) UsesAPIKey() bool {
	return s.apiKey != ""
}

func (s *AuthService) Register(ctx context.Context, email, password string) error {
	pair, err := s.api.Register(ctx, email, password)
	if err != nil {
		return err
	}
	return s.save(ctx, email, pair)
}

func (s *AuthService) Login(ctx context.Context, email, password string) error {
	pair, err := s.api.Login(ctx, email, password)
	if err != nil {
		return err
	}
	return s.save(ctx, email, pair)
}

// Logout revokes the stored session on the server and forgets it locally.
// The local copy is removed even when the server call fails.
func (s *AuthService) Logout(ctx context.Context) error {
	repo := s.metadata(s.db)
	access, err := s.get(ctx, repo, keyAccessToken)
	if err != nil {
		return err
	}
	if access == "" {
		return ErrNotLoggedIn
	}
	refresh, err := s.get(ctx, repo, keyRefreshToken)
	if err != nil {
		return err
	}

	remoteErr := s.api.Logout(ctx, client.Auth{AccessToken: access}, refresh)
	if errors.Is(remoteErr, common.ErrorUnauthorized) {
		remoteErr = nil
	}
	if err := s.clear(ctx); err != nil {
		return err
	}
	return remoteErr
}

// Email returns the address the stored session was opened with, or "".
func (s *AuthService) Email(ctx context.Context) (string, error) {
	return s.get(ctx, s.metadata(s.db), keyEmail)
}

// Do runs fn with the current credentials. A rejected access token is
// refreshed once and fn retried; a rejected refresh token ends the session.
func (s *AuthService) Do(ctx context.Context, fn func(client.Auth) error) error {
	if s.apiKey != "" {
		return fn(client.Auth{APIKey: s.apiKey})
	}

	repo := s.metadata(s.db)
	access, err := s.get(ctx, repo, keyAccessToken)
	if err != nil {
		return err
	}
	if access == "" {
		return ErrNotLoggedIn
	}

	err = fn(client.Auth{AccessToken: access})
	if !errors.Is(err, common.ErrorUnauthorized) {
		return err
	}

	refresh, rerr := s.get(ctx, repo, keyRefreshToken)
	if rerr != nil {
		return rerr
	}
	if refresh == "" {
		return s.expire(ctx)
	}
	pair, rerr := s.api.Refresh(ctx, refresh)
	if errors.Is(rerr, common.ErrorUnauthorized) {
		return s.expire(ctx)
	}
	if rerr != nil {
		return rerr
	}
	email, rerr := s.get(ctx, repo, keyEmail)
	if rerr != nil {
		return rerr
	}
	if rerr := s.save(ctx, email, pair); rerr != nil {
		return rerr
	}
	return fn(client.Auth{AccessToken: pair.AccessToken})
}

func (s *AuthService) expire(ctx context.Context) error {
	if err := s.clear(ctx); err != nil {
		return err
	}
	return ErrSessionExpired
}

func (s *AuthService) save(ctx context.Context, email string, pair *models.TokenPair) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.metadata(tx)
		for k, v := range map[string]string{
			keyAccessToken:  pair.AccessToken,
			keyRefreshToken: pair.RefreshToken,
			keyEmail:        email,
		} {
			if err := repo.Set(ctx, k, []byte(v)); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *AuthService) clear(ctx context.Context) error {
	if err := s.metadata(s.db).Delete(ctx, keyAccessToken, keyRefreshToken, keyEmail); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

func (s *AuthService) get(ctx context.Context, repo metadata.Repository, key string) (string, error) {
	v, err := repo.Get(ctx, key)
	if errors.Is(err, common.ErrKeyNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return string(v), nil
}
