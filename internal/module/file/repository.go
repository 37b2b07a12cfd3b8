package file

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository defines the interface for file metadata access.
type Repository interface {
	Create(ctx context.Context, file *File) error
	GetByID(ctx context.Context, id uuid.UUID) (*File, error)
	ListByProject(ctx context.Context, projectID uuid.UUID) ([]*File, error)
	SoftDelete(ctx context.Context, id uuid.UUID, at time.Time) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository creates a new file repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, file *File) error {
	return r.db.WithContext(ctx).Create(file).Error
}

// GetByID retrieves a file that has not been deleted.
func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*File, error) {
	var file File
	err := r.db.WithContext(ctx).
		Where("id = ? AND is_deleted = ?", id, false).
		First(&file).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrFileNotFound
		}
		return nil, err
	}
	return &file, nil
}

// ListByProject returns a project's live files, newest first.
func (r *repository) ListByProject(ctx context.Context, projectID uuid.UUID) ([]*File, error) {
	var files []*File
	err := r.db.WithContext(ctx).
		Where("project_id = ? AND is_deleted = ?", projectID, false).
		Order("created_at DESC").
		Find(&files).Error
	return files, err
}

// SoftDelete flags the file as deleted.
func (r *repository) SoftDelete(ctx context.Context, id uuid.UUID, at time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&File{}).
		Where("id = ? AND is_deleted = ?", id, false).
		Updates(map[string]interface{}{
			"is_deleted": true,
			"deleted_at": at,
			"updated_at": at,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrFileNotFound
	}
	return nil
}
