package stage

import (
	apperrors "github.com/clusterhub/server/internal/shared/errors"
)

// Module errors.
var (
	ErrStageNotFound = apperrors.NotFound("STAGE_NOT_FOUND", "stage")
	ErrTaskNotFound  = apperrors.NotFound("TASK_NOT_FOUND", "task")

	ErrInvalidStageName   = apperrors.Validation("INVALID_STAGE_NAME", "stage name must be 1 to 10 characters")
	ErrInvalidDescription = apperrors.Validation("INVALID_STAGE_DESCRIPTION", "stage description must be at most 25 characters")
	ErrInvalidTaskName    = apperrors.Validation("INVALID_TASK_NAME", "task name must be 3 to 255 characters")
	ErrInvalidTasksFormat = apperrors.Validation("INVALID_TASKS_FORMAT", "tasks must be a list of names, a comma separated string or {\"task_name\": ...}")
	ErrNoTasks            = apperrors.Validation("AT_LEAST_ONE_TASK_REQUIRED", "at least one task is required")
)
