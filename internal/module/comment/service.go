package comment

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/clusterhub/server/internal/module/project"
	"github.com/clusterhub/server/internal/module/user"
	"github.com/clusterhub/server/internal/shared/authz"
	"github.com/clusterhub/server/internal/utils/pagination"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TaskLocator resolves the project a task belongs to.
type TaskLocator interface {
	TaskProject(ctx context.Context, taskID uuid.UUID) (uuid.UUID, error)
}

// ProjectAccess checks a caller's rights on a project.
type ProjectAccess interface {
	RequireAccess(ctx context.Context, caller authz.Caller, projectID uuid.UUID) (*project.Project, project.AccessLevel, error)
}

// UserDirectory resolves comment authors.
type UserDirectory interface {
	Get(ctx context.Context, id uuid.UUID) (*user.User, error)
}

// Service provides comment operations.
type Service struct {
	repo     Repository
	tasks    TaskLocator
	projects ProjectAccess
	users    UserDirectory
	logger   *zap.Logger
}

// NewService creates a new comment service.
func NewService(repo Repository, tasks TaskLocator, projects ProjectAccess, users UserDirectory, logger *zap.Logger) *Service {
	return &Service{
		repo:     repo,
		tasks:    tasks,
		projects: projects,
		users:    users,
		logger:   logger,
	}
}

// Create adds a comment to a task on a project the caller can access.
func (s *Service) Create(ctx context.Context, caller authz.Caller, taskID uuid.UUID, text string) (*Comment, error) {
	text, err := validateText(text)
	if err != nil {
		return nil, err
	}
	if _, err := s.taskAccess(ctx, caller, taskID); err != nil {
		return nil, err
	}

	author, err := s.users.Get(ctx, caller.UserID)
	if err != nil {
		return nil, err
	}

	comment := &Comment{
		ID:         uuid.New(),
		TaskID:     taskID,
		AuthorID:   caller.UserID,
		AuthorName: author.DisplayName(),
		Text:       text,
	}
	if err := s.repo.Create(ctx, comment); err != nil {
		return nil, err
	}

	s.logger.Debug("comment created",
		zap.String("comment_id", comment.ID.String()),
		zap.String("task_id", taskID.String()),
	)
	return comment, nil
}

// List returns a task's comments.
func (s *Service) List(ctx context.Context, caller authz.Caller, taskID uuid.UUID, p *pagination.Pagination) ([]*Comment, int64, error) {
	if _, err := s.taskAccess(ctx, caller, taskID); err != nil {
		return nil, 0, err
	}
	return s.repo.ListByTask(ctx, taskID, p)
}

// Edit replaces the text of the caller's own comment.
func (s *Service) Edit(ctx context.Context, caller authz.Caller, commentID uuid.UUID, text string) (*Comment, error) {
	text, err := validateText(text)
	if err != nil {
		return nil, err
	}

	comment, err := s.repo.GetByID(ctx, commentID)
	if err != nil {
		return nil, err
	}
	if !comment.IsAuthor(caller.UserID) && !caller.IsSuperAdmin() {
		return nil, ErrNotAuthor
	}

	if err := s.repo.Update(ctx, commentID, map[string]interface{}{
		"text":      text,
		"is_edited": true,
	}); err != nil {
		return nil, err
	}

	comment.Text = text
	comment.IsEdited = true
	return comment, nil
}

// Delete removes a comment. The author, the project owner and super admins may delete.
func (s *Service) Delete(ctx context.Context, caller authz.Caller, commentID uuid.UUID) error {
	comment, err := s.repo.GetByID(ctx, commentID)
	if err != nil {
		return err
	}

	if !comment.IsAuthor(caller.UserID) && !caller.IsSuperAdmin() {
		level, err := s.taskAccess(ctx, caller, comment.TaskID)
		if err != nil {
			return err
		}
		if level != project.AccessOwner {
			return ErrCannotDelete
		}
	}

	if err := s.repo.Delete(ctx, commentID); err != nil {
		return err
	}

	s.logger.Info("comment deleted",
		zap.String("comment_id", commentID.String()),
		zap.String("deleted_by", caller.UserID.String()),
	)
	return nil
}

func (s *Service) taskAccess(ctx context.Context, caller authz.Caller, taskID uuid.UUID) (project.AccessLevel, error) {
	projectID, err := s.tasks.TaskProject(ctx, taskID)
	if err != nil {
		return project.AccessNone, err
	}
	_, level, err := s.projects.RequireAccess(ctx, caller, projectID)
	return level, err
}

func validateText(text string) (string, error) {
	text = strings.TrimSpace(text)
	if n := utf8.RuneCountInString(text); n < MinTextLength || n > MaxTextLength {
		return "", ErrInvalidText
	}
	return text, nil
}
