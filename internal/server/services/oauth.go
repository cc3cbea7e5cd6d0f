package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/metaltracker/internal/common"
	"github.com/dmitrijs2005/metaltracker/internal/server/models"
	"github.com/go-resty/resty/v2"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const googleUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"

// GoogleProfile is the part of Google's userinfo response we use.
type GoogleProfile struct {
	Subject       string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
}

// GoogleSettings configures the OAuth client.
type GoogleSettings struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// OAuthService signs users in with Google.
type OAuthService struct {
	config *oauth2.Config
	users  *UserService

	exchange     func(ctx context.Context, code string) (*oauth2.Token, error)
	fetchProfile func(ctx context.Context, token *oauth2.Token) (*GoogleProfile, error)
}

func NewOAuthService(g GoogleSettings, users *UserService) *OAuthService {
	cfg := &oauth2.Config{
		ClientID:     g.ClientID,
		ClientSecret: g.ClientSecret,
		RedirectURL:  g.RedirectURL,
		Endpoint:     google.Endpoint,
		Scopes:       []string{"openid", "email", "profile"},
	}
	s := &OAuthService{config: cfg, users: users}
	s.exchange = func(ctx context.Context, code string) (*oauth2.Token, error) {
		return cfg.Exchange(ctx, code)
	}
	s.fetchProfile = s.googleProfile
	return s
}

func (s *OAuthService) AuthCodeURL(state string) string {
	return s.config.AuthCodeURL(state)
}

// SignIn completes the authorization code flow and returns a session for
// the Google account.
func (s *OAuthService) SignIn(ctx context.Context, code string) (*TokenPair, error) {
	token, err := s.exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: token exchange failed: %w", common.ErrorUnauthorized, err)
	}
	profile, err := s.fetchProfile(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("error fetching google profile: %w", err)
	}
	return s.users.LoginWithGoogle(ctx, profile)
}

func (s *OAuthService) googleProfile(ctx context.Context, token *oauth2.Token) (*GoogleProfile, error) {
	client := resty.NewWithClient(s.config.Client(ctx, token))

	profile := &GoogleProfile{}
	resp, err := client.R().SetContext(ctx).SetResult(profile).Get(googleUserInfoURL)
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("userinfo returned status %d", resp.StatusCode())
	}
	return profile, nil
}

// LoginWithGoogle finds the account by Google subject, else links the
// account with the same verified email, else creates a password-less one.
func (s *UserService) LoginWithGoogle(ctx context.Context, profile *GoogleProfile) (*TokenPair, error) {
	email := NormalizeEmail(profile.Email)
	if profile.Subject == "" || email == "" || !profile.EmailVerified {
		return nil, fmt.Errorf("%w: google account has no verified email", common.ErrorUnauthorized)
	}

	repo := s.repomanager.Users(s.db)

	user, err := repo.GetByGoogleID(ctx, profile.Subject)
	if errors.Is(err, common.ErrorNotFound) {
		user, err = repo.GetByEmail(ctx, email)
		switch {
		case err == nil:
			if err := repo.LinkGoogleID(ctx, user.ID, profile.Subject); err != nil {
				return nil, fmt.Errorf("error linking google account: %w", err)
			}
			s.logger.Info(ctx, "google account linked", "user_id", user.ID)
		case errors.Is(err, common.ErrorNotFound):
			subject := profile.Subject
			user, err = repo.Create(ctx, &models.User{
				Email:    email,
				GoogleID: &subject,
				Tier:     models.TierFree,
				IsActive: true,
			})
			if err != nil {
				return nil, fmt.Errorf("error creating user: %w", err)
			}
			s.logger.Info(ctx, "user registered with google", "user_id", user.ID)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("error loading user: %w", err)
	}

	if !user.IsActive {
		return nil, common.ErrInvalidCredentials
	}
	return s.generateTokenPair(ctx, s.db, user)
}
