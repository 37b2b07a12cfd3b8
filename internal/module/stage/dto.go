package stage

import (
	"encoding/json"
)

// CreateStageRequest is the body of POST /projects/:id/stages. Tasks may be
// a list of names, a list of {"task_name": ...} objects, or a comma
// separated string.
type CreateStageRequest struct {
	Name        string          `json:"stage_name" binding:"required"`
	Description string          `json:"stage_description"`
	Tasks       json.RawMessage `json:"tasks" swaggertype:"array,string"`
}

// UpdateStageRequest is the body of PATCH /stages/:stageId.
type UpdateStageRequest struct {
	Name        *string `json:"stage_name"`
	Description *string `json:"stage_description"`
	IsDone      *bool   `json:"is_done"`
}

// AddTasksRequest is the body of POST /stages/:stageId/tasks.
type AddTasksRequest struct {
	Tasks json.RawMessage `json:"tasks" swaggertype:"array,string"`
}

// UpdateTaskRequest is the body of PATCH /tasks/:taskId.
type UpdateTaskRequest struct {
	Name   *string `json:"task_name"`
	IsDone *bool   `json:"is_done"`
}
