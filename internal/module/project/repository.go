package project

import (
	"context"
	"errors"
	"time"

	"github.com/clusterhub/server/internal/utils/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository defines the interface for project data access.
type Repository interface {
	// Project operations
	Create(ctx context.Context, project *Project) error
	GetByID(ctx context.Context, id uuid.UUID) (*Project, error)
	List(ctx context.Context, p *pagination.Pagination) ([]*Project, int64, error)
	ListForMember(ctx context.Context, userID uuid.UUID, p *pagination.Pagination) ([]*Project, int64, error)
	ListOwnedBy(ctx context.Context, userID uuid.UUID) ([]*Project, error)
	Update(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error
	Delete(ctx context.Context, id uuid.UUID) error
	CountStages(ctx context.Context, projectID uuid.UUID) (int64, error)

	// Investor operations
	AddInvestor(ctx context.Context, projectID, userID uuid.UUID) (bool, error)
	RemoveInvestor(ctx context.Context, projectID, userID uuid.UUID) error
	IsInvestor(ctx context.Context, projectID, userID uuid.UUID) (bool, error)
	ListInvestors(ctx context.Context, projectID uuid.UUID) ([]Investor, error)
	RemoveMemberships(ctx context.Context, userID uuid.UUID) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository creates a new project repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// Create inserts the project and any investors attached to it.
func (r *repository) Create(ctx context.Context, project *Project) error {
	return r.db.WithContext(ctx).Create(project).Error
}

// GetByID retrieves a project with its investors.
func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Project, error) {
	var project Project
	err := r.db.WithContext(ctx).
		Preload("Investors").
		Where("id = ?", id).
		First(&project).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, err
	}
	return &project, nil
}

// List returns all projects, newest first.
func (r *repository) List(ctx context.Context, p *pagination.Pagination) ([]*Project, int64, error) {
	return r.page(r.db.WithContext(ctx).Model(&Project{}), p)
}

// ListForMember returns projects the user owns or has joined as an investor.
func (r *repository) ListForMember(ctx context.Context, userID uuid.UUID, p *pagination.Pagination) ([]*Project, int64, error) {
	query := r.db.WithContext(ctx).Model(&Project{}).
		Where("owner_id = ? OR id IN (?)", userID,
			r.db.Model(&Investor{}).Select("project_id").Where("user_id = ?", userID))
	return r.page(query, p)
}

func (r *repository) page(query *gorm.DB, p *pagination.Pagination) ([]*Project, int64, error) {
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var projects []*Project
	err := query.
		Preload("Investors").
		Order("created_at DESC").
		Offset(p.Offset()).
		Limit(p.Limit()).
		Find(&projects).Error
	if err != nil {
		return nil, 0, err
	}
	return projects, total, nil
}

// ListOwnedBy returns every project owned by the user.
func (r *repository) ListOwnedBy(ctx context.Context, userID uuid.UUID) ([]*Project, error) {
	var projects []*Project
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", userID).
		Find(&projects).Error
	return projects, err
}

// Update applies fields to a project.
func (r *repository) Update(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error {
	fields["updated_at"] = time.Now()
	result := r.db.WithContext(ctx).
		Model(&Project{}).
		Where("id = ?", id).
		Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrProjectNotFound
	}
	return nil
}

// Delete removes the project and everything hanging off it in one
// transaction: comments, tasks, stages, files, invitations and investors.
func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cascade := []string{
			`DELETE FROM comments WHERE task_id IN (
				SELECT t.id FROM tasks t JOIN stages s ON s.id = t.stage_id WHERE s.project_id = ?)`,
			`DELETE FROM tasks WHERE stage_id IN (SELECT id FROM stages WHERE project_id = ?)`,
			`DELETE FROM stages WHERE project_id = ?`,
			`DELETE FROM project_files WHERE project_id = ?`,
			`DELETE FROM invitations WHERE project_id = ?`,
			`DELETE FROM project_investors WHERE project_id = ?`,
		}
		for _, stmt := range cascade {
			if err := tx.Exec(stmt, id).Error; err != nil {
				return err
			}
		}

		result := tx.Where("id = ?", id).Delete(&Project{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrProjectNotFound
		}
		return nil
	})
}

// CountStages returns the number of stages in the project.
func (r *repository) CountStages(ctx context.Context, projectID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Table("stages").
		Where("project_id = ?", projectID).
		Count(&count).Error
	return count, err
}

// ========== Investors ==========

// AddInvestor inserts the membership. It reports false when the user was
// already an investor.
func (r *repository) AddInvestor(ctx context.Context, projectID, userID uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&Investor{ProjectID: projectID, UserID: userID, JoinedAt: time.Now()})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// RemoveInvestor deletes a membership.
func (r *repository) RemoveInvestor(ctx context.Context, projectID, userID uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Where("project_id = ? AND user_id = ?", projectID, userID).
		Delete(&Investor{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrInvestorNotFound
	}
	return nil
}

// IsInvestor reports whether the user is an investor in the project.
func (r *repository) IsInvestor(ctx context.Context, projectID, userID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&Investor{}).
		Where("project_id = ? AND user_id = ?", projectID, userID).
		Count(&count).Error
	return count > 0, err
}

// ListInvestors returns a project's investors in join order.
func (r *repository) ListInvestors(ctx context.Context, projectID uuid.UUID) ([]Investor, error) {
	var investors []Investor
	err := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("joined_at ASC").
		Find(&investors).Error
	return investors, err
}

// RemoveMemberships drops the user from every project they invested in.
func (r *repository) RemoveMemberships(ctx context.Context, userID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&Investor{})
	return result.RowsAffected, result.Error
}
