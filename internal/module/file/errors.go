package file

import (
	apperrors "github.com/clusterhub/server/internal/shared/errors"
)

// Module errors.
var (
	ErrFileNotFound       = apperrors.NotFound("FILE_NOT_FOUND", "file")
	ErrFileAccessDenied   = apperrors.Forbidden("FORBIDDEN_FILE_ACCESS", "you do not have access to this file")
	ErrNoFile             = apperrors.Validation("FILE_REQUIRED", "no file provided")
	ErrEmptyFile          = apperrors.Validation("EMPTY_FILE", "file is empty")
	ErrFileTooLarge       = apperrors.Validation("FILE_TOO_LARGE", "file exceeds the maximum upload size")
	ErrFileTypeNotAllowed = apperrors.Validation("FILE_TYPE_NOT_ALLOWED", "file type is not allowed")
	ErrInvalidFileName    = apperrors.Validation("INVALID_FILE_NAME", "file name must be 1 to 255 characters")
	ErrInvalidExtension   = apperrors.Validation("INVALID_FILE_EXTENSION", "file extension must be at most 16 characters")
	ErrInvalidAccessLevel = apperrors.Validation("INVALID_ACCESS_LEVEL", "access level must be one of owner, investor, public")
)
