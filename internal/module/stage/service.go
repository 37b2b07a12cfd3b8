package stage

import (
	"context"
	"encoding/json"
	"strings"
	"unicode/utf8"

	"github.com/clusterhub/server/internal/module/project"
	"github.com/clusterhub/server/internal/shared/authz"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ProjectAccess checks a caller's rights on a project.
type ProjectAccess interface {
	RequireAccess(ctx context.Context, caller authz.Caller, projectID uuid.UUID) (*project.Project, project.AccessLevel, error)
	RequireOwner(ctx context.Context, caller authz.Caller, projectID uuid.UUID) (*project.Project, error)
}

// Service provides stage and task operations.
type Service struct {
	repo     Repository
	projects ProjectAccess
	logger   *zap.Logger
}

// NewService creates a new stage service.
func NewService(repo Repository, projects ProjectAccess, logger *zap.Logger) *Service {
	return &Service{
		repo:     repo,
		projects: projects,
		logger:   logger,
	}
}

// ========== Stage Operations ==========

// CreateStage appends a stage, with optional initial tasks, to a project the
// caller owns.
func (s *Service) CreateStage(ctx context.Context, caller authz.Caller, projectID uuid.UUID, req *CreateStageRequest) (*Stage, error) {
	if _, err := s.projects.RequireOwner(ctx, caller, projectID); err != nil {
		return nil, err
	}

	name, err := validateStageName(req.Name)
	if err != nil {
		return nil, err
	}
	description, err := validateDescription(req.Description)
	if err != nil {
		return nil, err
	}
	tasks, err := s.buildTasks(req.Tasks, caller.UserID)
	if err != nil {
		return nil, err
	}

	position, err := s.repo.NextPosition(ctx, projectID)
	if err != nil {
		return nil, err
	}

	stage := &Stage{
		ID:          uuid.New(),
		ProjectID:   projectID,
		Name:        name,
		Description: description,
		OwnerID:     caller.UserID,
		Position:    position,
		Tasks:       tasks,
	}
	for _, t := range stage.Tasks {
		t.StageID = stage.ID
	}

	if err := s.repo.CreateStage(ctx, stage); err != nil {
		return nil, err
	}

	s.logger.Info("stage created",
		zap.String("stage_id", stage.ID.String()),
		zap.String("project_id", projectID.String()),
		zap.Int("tasks", len(stage.Tasks)),
	)
	return stage, nil
}

// ListStages returns a project's stages with their tasks.
func (s *Service) ListStages(ctx context.Context, caller authz.Caller, projectID uuid.UUID) ([]*Stage, error) {
	if _, _, err := s.projects.RequireAccess(ctx, caller, projectID); err != nil {
		return nil, err
	}
	return s.repo.ListStages(ctx, projectID)
}

// UpdateStage changes a stage's name, description or completion.
func (s *Service) UpdateStage(ctx context.Context, caller authz.Caller, stageID uuid.UUID, req *UpdateStageRequest) (*Stage, error) {
	stage, err := s.ownedStage(ctx, caller, stageID)
	if err != nil {
		return nil, err
	}

	fields := make(map[string]interface{})
	if req.Name != nil {
		name, err := validateStageName(*req.Name)
		if err != nil {
			return nil, err
		}
		fields["name"] = name
	}
	if req.Description != nil {
		description, err := validateDescription(*req.Description)
		if err != nil {
			return nil, err
		}
		fields["description"] = description
	}
	if req.IsDone != nil {
		fields["is_done"] = *req.IsDone
	}
	if len(fields) == 0 {
		return stage, nil
	}

	if err := s.repo.UpdateStage(ctx, stageID, fields); err != nil {
		return nil, err
	}
	return s.repo.GetStage(ctx, stageID)
}

// DeleteStage removes a stage with its tasks and their comments.
func (s *Service) DeleteStage(ctx context.Context, caller authz.Caller, stageID uuid.UUID) error {
	stage, err := s.ownedStage(ctx, caller, stageID)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteStage(ctx, stageID); err != nil {
		return err
	}

	s.logger.Info("stage deleted",
		zap.String("stage_id", stageID.String()),
		zap.String("project_id", stage.ProjectID.String()),
	)
	return nil
}

// ========== Task Operations ==========

// AddTasks appends tasks to a stage. At least one name is required.
func (s *Service) AddTasks(ctx context.Context, caller authz.Caller, stageID uuid.UUID, raw json.RawMessage) ([]*Task, error) {
	if _, err := s.ownedStage(ctx, caller, stageID); err != nil {
		return nil, err
	}

	tasks, err := s.buildTasks(raw, caller.UserID)
	if err != nil {
		return nil, err
	}
	if len(tasks) == 0 {
		return nil, ErrNoTasks
	}
	for _, t := range tasks {
		t.StageID = stageID
	}

	if err := s.repo.CreateTasks(ctx, tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// ListTasks returns a stage's tasks.
func (s *Service) ListTasks(ctx context.Context, caller authz.Caller, stageID uuid.UUID) ([]*Task, error) {
	stage, err := s.repo.GetStage(ctx, stageID)
	if err != nil {
		return nil, err
	}
	if _, _, err := s.projects.RequireAccess(ctx, caller, stage.ProjectID); err != nil {
		return nil, err
	}
	return s.repo.ListTasks(ctx, stageID)
}

// UpdateTask changes a task's name or completion and marks it edited.
func (s *Service) UpdateTask(ctx context.Context, caller authz.Caller, taskID uuid.UUID, req *UpdateTaskRequest) (*Task, error) {
	task, err := s.ownedTask(ctx, caller, taskID)
	if err != nil {
		return nil, err
	}

	fields := make(map[string]interface{})
	if req.Name != nil {
		name, err := validateTaskName(*req.Name)
		if err != nil {
			return nil, err
		}
		fields["name"] = name
	}
	if req.IsDone != nil {
		fields["is_done"] = *req.IsDone
	}
	if len(fields) == 0 {
		return task, nil
	}
	fields["is_edited"] = true

	if err := s.repo.UpdateTask(ctx, taskID, fields); err != nil {
		return nil, err
	}
	return s.repo.GetTask(ctx, taskID)
}

// DeleteTask removes a task and its comments.
func (s *Service) DeleteTask(ctx context.Context, caller authz.Caller, taskID uuid.UUID) error {
	if _, err := s.ownedTask(ctx, caller, taskID); err != nil {
		return err
	}
	return s.repo.DeleteTask(ctx, taskID)
}

// TaskProject resolves the project a task belongs to.
func (s *Service) TaskProject(ctx context.Context, taskID uuid.UUID) (uuid.UUID, error) {
	task, err := s.repo.GetTask(ctx, taskID)
	if err != nil {
		return uuid.Nil, err
	}
	stage, err := s.repo.GetStage(ctx, task.StageID)
	if err != nil {
		return uuid.Nil, err
	}
	return stage.ProjectID, nil
}

// ========== Helper Methods ==========

func (s *Service) ownedStage(ctx context.Context, caller authz.Caller, stageID uuid.UUID) (*Stage, error) {
	stage, err := s.repo.GetStage(ctx, stageID)
	if err != nil {
		return nil, err
	}
	if _, err := s.projects.RequireOwner(ctx, caller, stage.ProjectID); err != nil {
		return nil, err
	}
	return stage, nil
}

func (s *Service) ownedTask(ctx context.Context, caller authz.Caller, taskID uuid.UUID) (*Task, error) {
	task, err := s.repo.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if _, err := s.ownedStage(ctx, caller, task.StageID); err != nil {
		return nil, err
	}
	return task, nil
}

func (s *Service) buildTasks(raw json.RawMessage, ownerID uuid.UUID) ([]*Task, error) {
	names, err := ParseTaskNames(raw)
	if err != nil {
		return nil, err
	}
	tasks := make([]*Task, 0, len(names))
	for _, n := range names {
		name, err := validateTaskName(n)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, &Task{ID: uuid.New(), Name: name, OwnerID: ownerID})
	}
	return tasks, nil
}

func validateStageName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if n := utf8.RuneCountInString(name); n < MinStageNameLength || n > MaxStageNameLength {
		return "", ErrInvalidStageName
	}
	return name, nil
}

func validateDescription(description string) (string, error) {
	description = strings.TrimSpace(description)
	if utf8.RuneCountInString(description) > MaxStageDescriptionSize {
		return "", ErrInvalidDescription
	}
	return description, nil
}
