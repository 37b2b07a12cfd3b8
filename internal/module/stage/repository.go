package stage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository defines the interface for stage and task data access.
type Repository interface {
	// Stage operations
	CreateStage(ctx context.Context, stage *Stage) error
	GetStage(ctx context.Context, id uuid.UUID) (*Stage, error)
	ListStages(ctx context.Context, projectID uuid.UUID) ([]*Stage, error)
	NextPosition(ctx context.Context, projectID uuid.UUID) (int, error)
	UpdateStage(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error
	DeleteStage(ctx context.Context, id uuid.UUID) error

	// Task operations
	CreateTasks(ctx context.Context, tasks []*Task) error
	GetTask(ctx context.Context, id uuid.UUID) (*Task, error)
	ListTasks(ctx context.Context, stageID uuid.UUID) ([]*Task, error)
	UpdateTask(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error
	DeleteTask(ctx context.Context, id uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository creates a new stage repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// ========== Stages ==========

// CreateStage inserts the stage together with its tasks.
func (r *repository) CreateStage(ctx context.Context, stage *Stage) error {
	return r.db.WithContext(ctx).Create(stage).Error
}

// GetStage retrieves a stage with its tasks.
func (r *repository) GetStage(ctx context.Context, id uuid.UUID) (*Stage, error) {
	var stage Stage
	err := r.db.WithContext(ctx).
		Preload("Tasks", orderTasks).
		Where("id = ?", id).
		First(&stage).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStageNotFound
		}
		return nil, err
	}
	return &stage, nil
}

// ListStages returns a project's stages in position order, each with its tasks.
func (r *repository) ListStages(ctx context.Context, projectID uuid.UUID) ([]*Stage, error) {
	var stages []*Stage
	err := r.db.WithContext(ctx).
		Preload("Tasks", orderTasks).
		Where("project_id = ?", projectID).
		Order("position ASC, created_at ASC").
		Find(&stages).Error
	return stages, err
}

func orderTasks(db *gorm.DB) *gorm.DB {
	return db.Order("created_at ASC")
}

// NextPosition returns the position after the project's last stage.
func (r *repository) NextPosition(ctx context.Context, projectID uuid.UUID) (int, error) {
	var last *int
	err := r.db.WithContext(ctx).
		Model(&Stage{}).
		Select("MAX(position)").
		Where("project_id = ?", projectID).
		Scan(&last).Error
	if err != nil {
		return 0, err
	}
	if last == nil {
		return 0, nil
	}
	return *last + 1, nil
}

// UpdateStage applies fields to a stage.
func (r *repository) UpdateStage(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error {
	fields["updated_at"] = time.Now()
	result := r.db.WithContext(ctx).
		Model(&Stage{}).
		Where("id = ?", id).
		Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrStageNotFound
	}
	return nil
}

// DeleteStage removes the stage, its tasks and their comments.
func (r *repository) DeleteStage(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(`DELETE FROM comments WHERE task_id IN (SELECT id FROM tasks WHERE stage_id = ?)`, id).Error; err != nil {
			return err
		}
		if err := tx.Where("stage_id = ?", id).Delete(&Task{}).Error; err != nil {
			return err
		}

		result := tx.Where("id = ?", id).Delete(&Stage{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrStageNotFound
		}
		return nil
	})
}

// ========== Tasks ==========

// CreateTasks inserts tasks in one statement.
func (r *repository) CreateTasks(ctx context.Context, tasks []*Task) error {
	if len(tasks) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&tasks).Error
}

// GetTask retrieves a task.
func (r *repository) GetTask(ctx context.Context, id uuid.UUID) (*Task, error) {
	var task Task
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&task).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}
	return &task, nil
}

// ListTasks returns a stage's tasks in creation order.
func (r *repository) ListTasks(ctx context.Context, stageID uuid.UUID) ([]*Task, error) {
	var tasks []*Task
	err := r.db.WithContext(ctx).
		Where("stage_id = ?", stageID).
		Order("created_at ASC").
		Find(&tasks).Error
	return tasks, err
}

// UpdateTask applies fields to a task.
func (r *repository) UpdateTask(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error {
	fields["updated_at"] = time.Now()
	result := r.db.WithContext(ctx).
		Model(&Task{}).
		Where("id = ?", id).
		Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrTaskNotFound
	}
	return nil
}

// DeleteTask removes the task and its comments.
func (r *repository) DeleteTask(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(`DELETE FROM comments WHERE task_id = ?`, id).Error; err != nil {
			return err
		}
		result := tx.Where("id = ?", id).Delete(&Task{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrTaskNotFound
		}
		return nil
	})
}
