package client

import (
	"fmt"
	"net/http"

	"github.com/dmitrijs2005/metaltracker/internal/common"
)

// APIError is an error response of the server.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (%d %s)", e.Message, e.Status, e.Code)
}

// Is matches the common sentinels, so callers can write
// errors.Is(err, common.ErrorUnauthorized).
func (e *APIError) Is(target error) bool {
	switch target {
	case common.ErrorUnauthorized:
		return e.Status == http.StatusUnauthorized
	case common.ErrInvalidCredentials:
		return e.Code == "invalid_credentials"
	case common.ErrRefreshTokenExpired:
		return e.Code == "refresh_token_expired"
	case common.ErrForbidden:
		return e.Status == http.StatusForbidden
	case common.ErrorNotFound:
		return e.Status == http.StatusNotFound
	case common.ErrKeyNotFound:
		return e.Code == "key_not_found"
	case common.ErrorAlreadyExists:
		return e.Code == "already_exists"
	case common.ErrLimitExceeded:
		return e.Code == "limit_exceeded"
	case common.ErrorValidation:
		return e.Status == http.StatusBadRequest
	case common.ErrorUnavailable:
		return e.Status == http.StatusServiceUnavailable
	}
	return false
}
