package user

import (
	"net/http"

	apperrors "github.com/clusterhub/server/internal/shared/errors"
)

// Module errors.
var (
	// User errors
	ErrUserNotFound       = apperrors.NotFound("USER_NOT_FOUND", "user")
	ErrEmailAlreadyExists = apperrors.Conflict("EMAIL_ALREADY_EXISTS", "email already registered")
	ErrInvalidRole        = apperrors.Validation("INVALID_ROLE", "role must be one of investor, project_owner, super_admin, team_member")
	ErrForbidden          = apperrors.Forbidden("FORBIDDEN", "you may only view your own profile")

	ErrRoleChangeForbidden = apperrors.Forbidden("ROLE_CHANGE_FORBIDDEN", "only a super admin may change roles")

	// Email verification errors
	ErrInvalidVerificationToken = apperrors.Validation("INVALID_VERIFICATION_TOKEN", "verification link is invalid")
	ErrVerificationTokenExpired = apperrors.Validation("VERIFICATION_TOKEN_EXPIRED", "verification link has expired, request a new one")
	ErrEmailAlreadyVerified     = apperrors.Conflict("EMAIL_ALREADY_VERIFIED", "email address is already verified")

	// Webhook errors
	ErrWebhookSecretNotSet = apperrors.NewAppError("WEBHOOK_SECRET_NOT_SET", "identity webhook secret is not configured", http.StatusInternalServerError, apperrors.ErrInternal)
	ErrMissingSvixHeaders  = apperrors.Validation("MISSING_SVIX_HEADERS", "svix-id, svix-timestamp and svix-signature headers are required")
	ErrInvalidSignature    = apperrors.NewAppError("INVALID_WEBHOOK_SIGNATURE", "webhook signature verification failed", http.StatusUnauthorized, apperrors.ErrUnauthorized)
	ErrTimestampOutOfRange = apperrors.NewAppError("WEBHOOK_TIMESTAMP_OUT_OF_RANGE", "webhook timestamp is too old or too new", http.StatusUnauthorized, apperrors.ErrUnauthorized)
	ErrInvalidPayload      = apperrors.Validation("INVALID_WEBHOOK_PAYLOAD", "webhook payload is not valid JSON")
	ErrInvalidUserID       = apperrors.Validation("INVALID_USER_ID", "event is missing a user id")
	ErrMissingEmail        = apperrors.Validation("MISSING_EMAIL", "identity has no email address")
)
