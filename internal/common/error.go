// Package common defines shared constants and sentinel errors used across
// client and server layers of Metal Tracker. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorValidation   = errors.New("validation error")

	// Credential errors. Unknown email, OAuth-only account, wrong password
	// and inactive account all collapse into ErrInvalidCredentials.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// Token lifecycle errors.
	ErrTokenExpired        = errors.New("token expired")
	ErrTokenMalformed      = errors.New("token malformed")
	ErrTokenRevoked        = errors.New("token revoked")
	ErrRefreshTokenExpired = errors.New("refresh token expired")

	// API key errors.
	ErrKeyNotFound   = errors.New("api key not found")
	ErrLimitExceeded = errors.New("api key limit exceeded")

	// Tier errors.
	ErrForbidden = errors.New("forbidden")

	// Feature is not configured on this deployment (e.g. export bucket).
	ErrorUnavailable = errors.New("unavailable")
)
