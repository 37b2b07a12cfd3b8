package project

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/clusterhub/server/internal/module/user"
	"github.com/clusterhub/server/internal/shared/authz"
	"github.com/clusterhub/server/internal/utils/pagination"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// UserDirectory resolves users for projects.
type UserDirectory interface {
	Get(ctx context.Context, id uuid.UUID) (*user.User, error)
	DisplayNames(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error)
}

// Service provides project operations and project access control.
type Service struct {
	repo   Repository
	users  UserDirectory
	logger *zap.Logger
}

// NewService creates a new project service.
func NewService(repo Repository, users UserDirectory, logger *zap.Logger) *Service {
	return &Service{
		repo:   repo,
		users:  users,
		logger: logger,
	}
}

// ========== Access Control ==========

// RequireAccess loads the project and checks the caller is the owner, an
// investor or a super admin.
func (s *Service) RequireAccess(ctx context.Context, caller authz.Caller, projectID uuid.UUID) (*Project, AccessLevel, error) {
	p, err := s.repo.GetByID(ctx, projectID)
	if err != nil {
		return nil, AccessNone, err
	}
	level := p.AccessLevelFor(caller)
	if level == AccessNone {
		return nil, AccessNone, ErrNoProjectAccess
	}
	return p, level, nil
}

// RequireOwner loads the project and checks the caller owns it or is a super admin.
func (s *Service) RequireOwner(ctx context.Context, caller authz.Caller, projectID uuid.UUID) (*Project, error) {
	p, err := s.repo.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if err := p.VerifyOwner(caller); err != nil {
		return nil, err
	}
	return p, nil
}

// GetProject loads a project without any access check.
func (s *Service) GetProject(ctx context.Context, projectID uuid.UUID) (*Project, error) {
	return s.repo.GetByID(ctx, projectID)
}

// ========== Project Operations ==========

// Create creates a project owned by the caller.
func (s *Service) Create(ctx context.Context, caller authz.Caller, req *CreateProjectRequest) (*Project, error) {
	name, err := validateName(req.Name)
	if err != nil {
		return nil, err
	}
	status := StatusPlanning
	if req.Status != "" {
		status = Status(req.Status)
		if !status.Valid() {
			return nil, ErrInvalidStatus
		}
	}
	if err := validateDates(req.StartDate, req.EndDate); err != nil {
		return nil, err
	}

	p := &Project{
		ID:          uuid.New(),
		Name:        name,
		Description: strings.TrimSpace(req.Description),
		OwnerID:     caller.UserID,
		Status:      status,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
	}

	now := time.Now()
	seen := map[uuid.UUID]bool{caller.UserID: true}
	for _, id := range req.InvestorIDs {
		if id == uuid.Nil || seen[id] {
			continue
		}
		seen[id] = true
		p.Investors = append(p.Investors, Investor{ProjectID: p.ID, UserID: id, JoinedAt: now})
	}

	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}

	s.logger.Info("project created",
		zap.String("project_id", p.ID.String()),
		zap.String("owner_id", caller.UserID.String()),
		zap.Int("investors", len(p.Investors)),
	)
	return p, nil
}

// Get returns a project the caller may access, with their access level.
func (s *Service) Get(ctx context.Context, caller authz.Caller, id uuid.UUID) (*ProjectDetail, error) {
	p, level, err := s.RequireAccess(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	stages, err := s.repo.CountStages(ctx, id)
	if err != nil {
		return nil, err
	}
	return &ProjectDetail{
		ProjectResponse: p.ToResponse(),
		AccessLevel:     level,
		StageCount:      stages,
	}, nil
}

// List returns every project for a super admin, and the caller's projects otherwise.
func (s *Service) List(ctx context.Context, caller authz.Caller, p *pagination.Pagination) ([]*Project, int64, error) {
	if caller.IsSuperAdmin() {
		return s.repo.List(ctx, p)
	}
	return s.repo.ListForMember(ctx, caller.UserID, p)
}

// ListForUser returns the projects a user owns or invests in. Callers may
// only list their own unless they are a super admin.
func (s *Service) ListForUser(ctx context.Context, caller authz.Caller, userID uuid.UUID, p *pagination.Pagination) ([]*Project, int64, error) {
	if caller.UserID != userID && !caller.IsSuperAdmin() {
		return nil, 0, ErrNoProjectAccess
	}
	if _, err := s.users.Get(ctx, userID); err != nil {
		return nil, 0, err
	}
	return s.repo.ListForMember(ctx, userID, p)
}

// Update changes a project's name, description or dates.
func (s *Service) Update(ctx context.Context, caller authz.Caller, id uuid.UUID, req *UpdateProjectRequest) (*Project, error) {
	p, err := s.RequireOwner(ctx, caller, id)
	if err != nil {
		return nil, err
	}

	fields := map[string]interface{}{}
	if req.Name != nil {
		name, err := validateName(*req.Name)
		if err != nil {
			return nil, err
		}
		fields["name"] = name
	}
	if req.Description != nil {
		fields["description"] = strings.TrimSpace(*req.Description)
	}

	start, end := p.StartDate, p.EndDate
	if req.StartDate != nil {
		start = req.StartDate
		fields["start_date"] = req.StartDate
	}
	if req.EndDate != nil {
		end = req.EndDate
		fields["end_date"] = req.EndDate
	}
	if err := validateDates(start, end); err != nil {
		return nil, err
	}

	if len(fields) > 0 {
		if err := s.repo.Update(ctx, id, fields); err != nil {
			return nil, err
		}
		s.logger.Info("project updated",
			zap.String("project_id", id.String()),
			zap.String("updated_by", caller.UserID.String()),
		)
	}
	return s.repo.GetByID(ctx, id)
}

// ChangeStatus moves a project to another status.
func (s *Service) ChangeStatus(ctx context.Context, caller authz.Caller, id uuid.UUID, status string) (*Project, error) {
	st := Status(status)
	if !st.Valid() {
		return nil, ErrInvalidStatus
	}
	if _, err := s.RequireOwner(ctx, caller, id); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, id, map[string]interface{}{"status": st}); err != nil {
		return nil, err
	}

	s.logger.Info("project status changed",
		zap.String("project_id", id.String()),
		zap.String("status", status),
	)
	return s.repo.GetByID(ctx, id)
}

// Delete removes a project and all of its children.
func (s *Service) Delete(ctx context.Context, caller authz.Caller, id uuid.UUID) error {
	if _, err := s.RequireOwner(ctx, caller, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info("project deleted",
		zap.String("project_id", id.String()),
		zap.String("deleted_by", caller.UserID.String()),
	)
	return nil
}

// ========== Investors ==========

// ListInvestors returns the project's investors with display names.
func (s *Service) ListInvestors(ctx context.Context, caller authz.Caller, projectID uuid.UUID) ([]InvestorResponse, error) {
	if _, _, err := s.RequireAccess(ctx, caller, projectID); err != nil {
		return nil, err
	}

	investors, err := s.repo.ListInvestors(ctx, projectID)
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, len(investors))
	for i, inv := range investors {
		ids[i] = inv.UserID
	}
	names, err := s.users.DisplayNames(ctx, ids)
	if err != nil {
		return nil, err
	}

	resp := make([]InvestorResponse, len(investors))
	for i, inv := range investors {
		resp[i] = InvestorResponse{UserID: inv.UserID, Name: names[inv.UserID], JoinedAt: inv.JoinedAt}
	}
	return resp, nil
}

// RemoveInvestor drops an investor from the project.
func (s *Service) RemoveInvestor(ctx context.Context, caller authz.Caller, projectID, investorID uuid.UUID) error {
	if _, err := s.RequireOwner(ctx, caller, projectID); err != nil {
		return err
	}
	if err := s.repo.RemoveInvestor(ctx, projectID, investorID); err != nil {
		return err
	}

	s.logger.Info("investor removed",
		zap.String("project_id", projectID.String()),
		zap.String("investor_id", investorID.String()),
		zap.String("removed_by", caller.UserID.String()),
	)
	return nil
}

// ========== User Lifecycle ==========

// PurgeUser deletes every project the user owns and removes their
// investor memberships.
func (s *Service) PurgeUser(ctx context.Context, userID uuid.UUID) error {
	owned, err := s.repo.ListOwnedBy(ctx, userID)
	if err != nil {
		return err
	}
	for _, p := range owned {
		if err := s.repo.Delete(ctx, p.ID); err != nil {
			return err
		}
	}

	removed, err := s.repo.RemoveMemberships(ctx, userID)
	if err != nil {
		return err
	}

	s.logger.Info("user projects purged",
		zap.String("user_id", userID.String()),
		zap.Int("projects_deleted", len(owned)),
		zap.Int64("memberships_removed", removed),
	)
	return nil
}

// ========== Helpers ==========

func validateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if n := utf8.RuneCountInString(name); n < MinNameLength || n > MaxNameLength {
		return "", ErrInvalidName
	}
	return name, nil
}

func validateDates(start, end *time.Time) error {
	if start != nil && end != nil && end.Before(*start) {
		return ErrInvalidDateRange
	}
	return nil
}
