package comment

import (
	"time"

	"github.com/google/uuid"
)

// Text bounds.
const (
	MinTextLength = 1
	MaxTextLength = 250
)

// Comment is a note left on a task.
type Comment struct {
	ID         uuid.UUID `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	TaskID     uuid.UUID `json:"task_id" gorm:"type:uuid;not null;index"`
	AuthorID   uuid.UUID `json:"author_id" gorm:"type:uuid;not null"`
	AuthorName string    `json:"author_name"`
	Text       string    `json:"text" gorm:"not null"`
	IsEdited   bool      `json:"is_edited"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TableName returns the database table name.
func (Comment) TableName() string {
	return "comments"
}

// IsAuthor reports whether the user wrote the comment.
func (c *Comment) IsAuthor(userID uuid.UUID) bool {
	return c.AuthorID == userID
}
