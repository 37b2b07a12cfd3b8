package auth

import (
	"net/http"

	apperrors "github.com/clusterhub/server/internal/shared/errors"
)

// Auth module errors.
var (
	// Credential errors
	ErrInvalidCredentials = apperrors.NewAppError("INVALID_CREDENTIALS", "invalid email or password", http.StatusUnauthorized, apperrors.ErrUnauthorized)
	ErrNoLocalPassword    = apperrors.NewAppError("NO_LOCAL_PASSWORD", "this account signs in through the identity provider", http.StatusUnauthorized, apperrors.ErrUnauthorized)
	ErrRoleNotAllowed     = apperrors.Validation("ROLE_NOT_SELF_ASSIGNABLE", "role must be investor, project_owner or team_member")
	ErrInvalidPassword    = apperrors.Validation("INVALID_PASSWORD", "password must be 8 to 20 characters")

	// Token errors
	ErrInvalidToken       = apperrors.NewAppError("INVALID_TOKEN", "invalid or expired token", http.StatusUnauthorized, apperrors.ErrUnauthorized)
	ErrInvalidTokenClaims = apperrors.NewAppError("INVALID_TOKEN_CLAIMS", "token claims are malformed", http.StatusUnauthorized, apperrors.ErrUnauthorized)
)
