package project

import (
	"time"

	"github.com/google/uuid"
)

// CreateProjectRequest is the body of POST /projects.
type CreateProjectRequest struct {
	Name        string      `json:"name" binding:"required"`
	Description string      `json:"description" binding:"max=2000"`
	Status      string      `json:"status"`
	StartDate   *time.Time  `json:"start_date"`
	EndDate     *time.Time  `json:"end_date"`
	InvestorIDs []uuid.UUID `json:"investor_ids"`
}

// UpdateProjectRequest is the body of PATCH /projects/:id. Ownership and
// status cannot be changed here.
type UpdateProjectRequest struct {
	Name        *string    `json:"name"`
	Description *string    `json:"description" binding:"omitempty,max=2000"`
	StartDate   *time.Time `json:"start_date"`
	EndDate     *time.Time `json:"end_date"`
}

// ChangeStatusRequest is the body of PATCH /projects/:id/status.
type ChangeStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// ProjectResponse is the API shape of a project.
type ProjectResponse struct {
	ID          uuid.UUID   `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	OwnerID     uuid.UUID   `json:"owner_id"`
	Status      Status      `json:"status"`
	StartDate   *time.Time  `json:"start_date,omitempty"`
	EndDate     *time.Time  `json:"end_date,omitempty"`
	InvestorIDs []uuid.UUID `json:"investor_ids"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// ToResponse converts the project to its API shape.
func (p *Project) ToResponse() *ProjectResponse {
	return &ProjectResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		OwnerID:     p.OwnerID,
		Status:      p.Status,
		StartDate:   p.StartDate,
		EndDate:     p.EndDate,
		InvestorIDs: p.InvestorIDs(),
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

// ProjectDetail is a project as seen by one caller.
type ProjectDetail struct {
	*ProjectResponse
	AccessLevel AccessLevel `json:"access_level"`
	StageCount  int64       `json:"stage_count"`
}

// InvestorResponse is an investor with a display name.
type InvestorResponse struct {
	UserID   uuid.UUID `json:"user_id"`
	Name     string    `json:"name"`
	JoinedAt time.Time `json:"joined_at"`
}
