package comment

import (
	apperrors "github.com/clusterhub/server/internal/shared/errors"
)

// Module errors.
var (
	ErrCommentNotFound = apperrors.NotFound("COMMENT_NOT_FOUND", "comment")
	ErrNotAuthor       = apperrors.Forbidden("NOT_COMMENT_AUTHOR", "only the author can edit this comment")
	ErrCannotDelete    = apperrors.Forbidden("COMMENT_DELETE_DENIED", "only the author or the project owner can delete this comment")
	ErrInvalidText     = apperrors.Validation("INVALID_COMMENT_TEXT", "comment text must be 1 to 250 characters")
)
