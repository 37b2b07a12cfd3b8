package project

import (
	apperrors "github.com/clusterhub/server/internal/shared/errors"
)

// Module errors.
var (
	ErrProjectNotFound  = apperrors.NotFound("PROJECT_NOT_FOUND", "project")
	ErrInvestorNotFound = apperrors.NotFound("INVESTOR_NOT_FOUND", "investor")

	ErrNotProjectOwner = apperrors.Forbidden("NOT_PROJECT_OWNER", "only the project owner can perform this action")
	ErrNoProjectAccess = apperrors.Forbidden("PROJECT_ACCESS_DENIED", "you do not have access to this project")

	ErrInvalidName      = apperrors.Validation("INVALID_PROJECT_NAME", "project name must be 3 to 25 characters")
	ErrInvalidStatus    = apperrors.Validation("INVALID_PROJECT_STATUS", "status must be one of planning, active, completed, on_hold, cancelled")
	ErrInvalidDateRange = apperrors.Validation("INVALID_DATE_RANGE", "end date must not be before start date")
)
