package httpapi

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/metaltracker/internal/common"
	"github.com/dmitrijs2005/metaltracker/internal/server/services"
)

// APIError is the body of every error response.
type APIError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Details    any    `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	return e.Message
}

func (e *APIError) WithMessage(message string) *APIError {
	return &APIError{Code: e.Code, Message: message, StatusCode: e.StatusCode, Details: e.Details}
}

func (e *APIError) WithDetails(details any) *APIError {
	return &APIError{Code: e.Code, Message: e.Message, StatusCode: e.StatusCode, Details: details}
}

var (
	ErrBadRequest = &APIError{
		Code: "bad_request", Message: "Invalid request", StatusCode: http.StatusBadRequest,
	}
	ErrValidation = &APIError{
		Code: "validation_error", Message: "Request validation failed", StatusCode: http.StatusBadRequest,
	}
	ErrUnauthorized = &APIError{
		Code: "unauthorized", Message: "Authentication required", StatusCode: http.StatusUnauthorized,
	}
	ErrInvalidCredentials = &APIError{
		Code: "invalid_credentials", Message: "Invalid email or password", StatusCode: http.StatusUnauthorized,
	}
	ErrRefreshExpired = &APIError{
		Code: "refresh_token_expired", Message: "Refresh token expired", StatusCode: http.StatusUnauthorized,
	}
	ErrForbidden = &APIError{
		Code: "forbidden", Message: "You don't have permission to perform this action", StatusCode: http.StatusForbidden,
	}
	ErrTierLimit = &APIError{
		Code: "tier_limit", Message: "Position limit of your tier reached", StatusCode: http.StatusForbidden,
	}
	ErrNotFound = &APIError{
		Code: "not_found", Message: "Resource not found", StatusCode: http.StatusNotFound,
	}
	ErrKeyNotFound = &APIError{
		Code: "key_not_found", Message: "API key not found", StatusCode: http.StatusNotFound,
	}
	ErrConflict = &APIError{
		Code: "already_exists", Message: "Resource already exists", StatusCode: http.StatusConflict,
	}
	ErrLimitExceeded = &APIError{
		Code: "limit_exceeded", Message: "Maximum number of API keys reached", StatusCode: http.StatusConflict,
	}
	ErrRateLimited = &APIError{
		Code: "rate_limited", Message: "Too many requests. Please try again later.", StatusCode: http.StatusTooManyRequests,
	}
	ErrUnavailable = &APIError{
		Code: "unavailable", Message: "Feature not configured", StatusCode: http.StatusServiceUnavailable,
	}
	ErrInternal = &APIError{
		Code: "internal_error", Message: "Internal server error", StatusCode: http.StatusInternalServerError,
	}
)

// AsAPIError maps service errors onto responses. Unauthorized is checked
// first because the gate wraps its cause (a missing key, a missing user)
// inside it.
func AsAPIError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	var tierErr *services.TierLimitError
	switch {
	case errors.Is(err, common.ErrInvalidCredentials):
		return ErrInvalidCredentials
	case errors.Is(err, common.ErrRefreshTokenExpired):
		return ErrRefreshExpired
	case errors.Is(err, common.ErrorUnauthorized),
		errors.Is(err, common.ErrTokenExpired),
		errors.Is(err, common.ErrTokenMalformed),
		errors.Is(err, common.ErrTokenRevoked):
		return ErrUnauthorized
	case errors.As(err, &tierErr):
		return ErrTierLimit.WithMessage(tierErr.Error())
	case errors.Is(err, common.ErrForbidden):
		return ErrForbidden
	case errors.Is(err, common.ErrLimitExceeded):
		return ErrLimitExceeded
	case errors.Is(err, common.ErrKeyNotFound):
		return ErrKeyNotFound
	case errors.Is(err, common.ErrorNotFound):
		return ErrNotFound
	case errors.Is(err, common.ErrorAlreadyExists):
		return ErrConflict
	case errors.Is(err, common.ErrorValidation):
		return ErrValidation.WithMessage(err.Error())
	case errors.Is(err, common.ErrorUnavailable):
		return ErrUnavailable
	}
	return ErrInternal
}
