// Package client talks to the Metal Tracker HTTP API and owns the client's
// local SQLite database.
package client

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/dmitrijs2005/metaltracker/internal/client/models"
	"github.com/dmitrijs2005/metaltracker/internal/common"
	"github.com/go-resty/resty/v2"
)

// Auth selects the credentials of one request. An API key wins over the
// access token; the zero value sends neither.
type Auth struct {
	AccessToken string
	APIKey      string
}

// Client is a thin typed wrapper over the JSON API. It holds no session
// state.
type Client struct {
	http *resty.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(timeout).
			SetHeader("Accept", "application/json"),
	}
}

type envelope[T any] struct {
	Data T `json:"data"`
}

type failure struct {
	Error *APIError `json:"error"`
}

func call[T any](ctx context.Context, c *Client, auth Auth, method, path string, body any) (T, error) {
	var (
		zero T
		out  envelope[T]
		fail failure
	)

	req := c.http.R().SetContext(ctx).SetResult(&out).SetError(&fail)
	switch {
	case auth.APIKey != "":
		req.SetHeader(common.APIKeyHeaderName, auth.APIKey)
	case auth.AccessToken != "":
		req.SetAuthToken(auth.AccessToken)
	}
	if body != nil {
		req.SetBody(body)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return zero, fmt.Errorf("%s %s: %w", method, path, err)
	}
	if resp.IsError() {
		apiErr := &APIError{Status: resp.StatusCode(), Code: "http_error", Message: http.StatusText(resp.StatusCode())}
		if fail.Error != nil {
			apiErr.Code, apiErr.Message = fail.Error.Code, fail.Error.Message
		}
		return zero, apiErr
	}
	return out.Data, nil
}

type noBody struct{}

func (c *Client) Register(ctx context.Context, email, password string) (*models.TokenPair, error) {
	pair, err := call[models.TokenPair](ctx, c, Auth{}, http.MethodPost, "/api/auth/register",
		map[string]string{"email": email, "password": password})
	return &pair, err
}

func (c *Client) Login(ctx context.Context, email, password string) (*models.TokenPair, error) {
	pair, err := call[models.TokenPair](ctx, c, Auth{}, http.MethodPost, "/api/auth/login",
		map[string]string{"email": email, "password": password})
	return &pair, err
}

func (c *Client) Refresh(ctx context.Context, refreshToken string) (*models.TokenPair, error) {
	pair, err := call[models.TokenPair](ctx, c, Auth{}, http.MethodPost, "/api/auth/refresh",
		map[string]string{"refresh_token": refreshToken})
	return &pair, err
}

// Logout revokes the access token and, when given, the refresh token.
func (c *Client) Logout(ctx context.Context, auth Auth, refreshToken string) error {
	var body any
	if refreshToken != "" {
		body = map[string]string{"refresh_token": refreshToken}
	}
	_, err := call[noBody](ctx, c, auth, http.MethodPost, "/api/auth/logout", body)
	return err
}

func (c *Client) Me(ctx context.Context, auth Auth) (*models.User, error) {
	u, err := call[models.User](ctx, c, auth, http.MethodGet, "/api/auth/me", nil)
	return &u, err
}

func (c *Client) TierInfo(ctx context.Context, auth Auth) (*models.TierInfo, error) {
	ti, err := call[models.TierInfo](ctx, c, auth, http.MethodGet, "/api/auth/tier-info", nil)
	return &ti, err
}

func (c *Client) ListKeys(ctx context.Context, auth Auth) ([]models.APIKey, error) {
	return call[[]models.APIKey](ctx, c, auth, http.MethodGet, "/api/keys", nil)
}

// CreateKey creates a key; an empty name leaves it unnamed.
func (c *Client) CreateKey(ctx context.Context, auth Auth, name string) (*models.CreatedKey, error) {
	body := map[string]any{}
	if name != "" {
		body["name"] = name
	}
	k, err := call[models.CreatedKey](ctx, c, auth, http.MethodPost, "/api/keys", body)
	return &k, err
}

func (c *Client) RevokeKey(ctx context.Context, auth Auth, id int64) error {
	_, err := call[noBody](ctx, c, auth, http.MethodDelete, "/api/keys/"+strconv.FormatInt(id, 10), nil)
	return err
}

func (c *Client) ListPositions(ctx context.Context, auth Auth) ([]models.Position, error) {
	return call[[]models.Position](ctx, c, auth, http.MethodGet, "/api/positions", nil)
}

func (c *Client) Summary(ctx context.Context, auth Auth) (*models.Summary, error) {
	s, err := call[models.Summary](ctx, c, auth, http.MethodGet, "/api/summary", nil)
	return &s, err
}

func (c *Client) Prices(ctx context.Context) (*models.Quote, error) {
	q, err := call[models.Quote](ctx, c, Auth{}, http.MethodGet, "/api/prices", nil)
	return &q, err
}
