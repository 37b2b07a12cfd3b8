package stage

import (
	"time"

	"github.com/google/uuid"
)

// Field bounds.
const (
	MinStageNameLength      = 1
	MaxStageNameLength      = 10
	MaxStageDescriptionSize = 25
	MinTaskNameLength       = 3
	MaxTaskNameLength       = 255
)

// Stage is an ordered phase of a project.
type Stage struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ProjectID   uuid.UUID `json:"project_id" gorm:"type:uuid;not null;index"`
	Name        string    `json:"name" gorm:"not null"`
	Description string    `json:"description"`
	IsDone      bool      `json:"is_done"`
	OwnerID     uuid.UUID `json:"owner_id" gorm:"type:uuid;not null"`
	Position    int       `json:"position"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Tasks []*Task `json:"tasks" gorm:"foreignKey:StageID"`
}

// TableName returns the database table name.
func (Stage) TableName() string {
	return "stages"
}

// Task is a unit of work within a stage.
type Task struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	StageID   uuid.UUID `json:"stage_id" gorm:"type:uuid;not null;index"`
	Name      string    `json:"name" gorm:"not null"`
	IsDone    bool      `json:"is_done"`
	IsEdited  bool      `json:"is_edited"`
	OwnerID   uuid.UUID `json:"owner_id" gorm:"type:uuid;not null"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name.
func (Task) TableName() string {
	return "tasks"
}
