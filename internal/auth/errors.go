// File: internal/auth/errors.go
package auth

import (
	"net/http"

	"fitcoach_backend/internal/common"
)

// Rejections the user can correct. They are surfaced as-is to the caller.
var (
	ErrInvalidCredentials = common.NewAPIError(http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password.")
	ErrEmailTaken         = common.NewAPIError(http.StatusConflict, "EMAIL_TAKEN", "An account with this email already exists.")
	ErrWeakPassword       = common.NewAPIError(http.StatusUnprocessableEntity, "WEAK_PASSWORD", "The password is too short.")
	ErrSessionNotFound    = common.NewAPIError(http.StatusUnauthorized, "SESSION_NOT_FOUND", "No active session.")
	ErrSessionExpired     = common.NewAPIError(http.StatusUnauthorized, "SESSION_EXPIRED", "The session has expired. Please sign in again.")
	ErrInvalidToken       = common.NewAPIError(http.StatusUnauthorized, "INVALID_TOKEN", "The access token is invalid.")
	ErrMissingClientID    = common.NewAPIError(http.StatusBadRequest, "MISSING_CLIENT_ID", "A client id is required.")
)
