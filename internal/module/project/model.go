package project

import (
	"time"

	"github.com/clusterhub/server/internal/shared/authz"
	"github.com/google/uuid"
)

// Status is a project's lifecycle status.
type Status string

const (
	StatusPlanning  Status = "planning"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusOnHold    Status = "on_hold"
	StatusCancelled Status = "cancelled"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPlanning, StatusActive, StatusCompleted, StatusOnHold, StatusCancelled:
		return true
	}
	return false
}

// Project name bounds.
const (
	MinNameLength = 3
	MaxNameLength = 25
)

// Project is a collaboration space owned by one user.
type Project struct {
	ID          uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name        string     `json:"name" gorm:"not null"`
	Description string     `json:"description"`
	OwnerID     uuid.UUID  `json:"owner_id" gorm:"type:uuid;not null;index"`
	Status      Status     `json:"status" gorm:"type:varchar(16);not null;default:planning"`
	StartDate   *time.Time `json:"start_date,omitempty"`
	EndDate     *time.Time `json:"end_date,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	Investors []Investor `json:"-" gorm:"foreignKey:ProjectID"`
}

// TableName returns the database table name.
func (Project) TableName() string {
	return "projects"
}

// Investor is a user admitted to a project, usually by accepting an invitation.
type Investor struct {
	ProjectID uuid.UUID `json:"project_id" gorm:"type:uuid;primaryKey"`
	UserID    uuid.UUID `json:"user_id" gorm:"type:uuid;primaryKey"`
	JoinedAt  time.Time `json:"joined_at"`
}

// TableName returns the database table name.
func (Investor) TableName() string {
	return "project_investors"
}

// AccessLevel is a caller's relationship to a project.
type AccessLevel string

const (
	AccessOwner    AccessLevel = "owner"
	AccessInvestor AccessLevel = "investor"
	AccessNone     AccessLevel = "none"
)

// HasInvestor reports whether userID is in the loaded investor set.
func (p *Project) HasInvestor(userID uuid.UUID) bool {
	for _, inv := range p.Investors {
		if inv.UserID == userID {
			return true
		}
	}
	return false
}

// InvestorIDs returns the IDs of the loaded investors.
func (p *Project) InvestorIDs() []uuid.UUID {
	ids := make([]uuid.UUID, len(p.Investors))
	for i, inv := range p.Investors {
		ids[i] = inv.UserID
	}
	return ids
}

// IsOwner reports whether userID owns the project.
func (p *Project) IsOwner(userID uuid.UUID) bool {
	return p.OwnerID == userID
}

// AccessLevelFor derives the caller's access from ownership and the loaded
// investor set. A super admin is reported as owner.
func (p *Project) AccessLevelFor(caller authz.Caller) AccessLevel {
	switch {
	case caller.IsSuperAdmin(), p.IsOwner(caller.UserID):
		return AccessOwner
	case p.HasInvestor(caller.UserID):
		return AccessInvestor
	default:
		return AccessNone
	}
}

// CanAccess reports whether the caller may read the project.
func (p *Project) CanAccess(caller authz.Caller) bool {
	return p.AccessLevelFor(caller) != AccessNone
}

// VerifyOwner returns ErrNotProjectOwner unless the caller owns the project
// or is a super admin.
func (p *Project) VerifyOwner(caller authz.Caller) error {
	if caller.IsSuperAdmin() || p.IsOwner(caller.UserID) {
		return nil
	}
	return ErrNotProjectOwner
}
