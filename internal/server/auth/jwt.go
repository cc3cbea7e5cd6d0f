// Package auth holds the credential primitives of the server: password
// hashing, session tokens, API key hashing and the token denylist.
package auth

import (
	"errors"
	"strconv"
	"time"

	"github.com/dmitrijs2005/metaltracker/internal/common"
	"github.com/dmitrijs2005/metaltracker/internal/server/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims are the JWT claims of a session token. Subject carries the decimal
// user id; Email and Tier are informational for clients.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
	Tier  string `json:"tier,omitempty"`
}

// TokenInfo is what a valid token proves.
type TokenInfo struct {
	UserID    int64
	TokenID   string
	ExpiresAt time.Time
}

// TokenIssuer signs and validates HS256 session tokens with one secret
// injected at construction.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	leeway time.Duration
	now    func() time.Time
}

func NewTokenIssuer(secret string, ttl, leeway time.Duration) (*TokenIssuer, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is empty")
	}
	if ttl <= 0 {
		return nil, errors.New("token ttl must be positive")
	}
	return &TokenIssuer{secret: []byte(secret), ttl: ttl, leeway: leeway, now: time.Now}, nil
}

// TTL is the lifetime of issued tokens.
func (i *TokenIssuer) TTL() time.Duration {
	return i.ttl
}

// Issue mints a token for user valid for the configured TTL.
func (i *TokenIssuer) Issue(user *models.User) (string, time.Time, error) {
	now := i.now()
	expiresAt := now.Add(i.ttl)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(user.ID, 10),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Email: user.Email,
		Tier:  string(user.Tier),
	})

	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Validate checks signature, algorithm and expiry and extracts the user id.
//
// Expired tokens yield common.ErrTokenExpired. Everything else that makes a
// token unusable (bad signature, other algorithm, missing exp, missing or
// non-numeric subject) yields common.ErrTokenMalformed.
func (i *TokenIssuer) Validate(tokenString string) (*TokenInfo, error) {
	claims := &Claims{}

	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (any, error) { return i.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
		jwt.WithLeeway(i.leeway),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, common.ErrTokenMalformed
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return nil, common.ErrTokenMalformed
	}

	return &TokenInfo{
		UserID:    userID,
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
