package invitation

import (
	"time"

	"github.com/clusterhub/server/internal/module/project"
	"github.com/google/uuid"
)

// IssueRequest is the body of POST /invitations/invite.
type IssueRequest struct {
	ProjectID    uuid.UUID `json:"project_id" binding:"required"`
	InviteeEmail string    `json:"invitee_email" binding:"required"`
	Message      string    `json:"message"`
}

// AcceptRequest is the body of POST /invitations/accept.
type AcceptRequest struct {
	Token string `json:"token" binding:"required"`
}

// ListQuery filters GET /invitations/project/:projectId.
type ListQuery struct {
	Status string `form:"status"`
}

// InvitationResponse is the API shape of an invitation. Token and AcceptURL
// are only set in the response to issue.
type InvitationResponse struct {
	ID               uuid.UUID  `json:"id"`
	ProjectID        uuid.UUID  `json:"project_id"`
	InviterID        uuid.UUID  `json:"inviter_id"`
	InviteeEmail     string     `json:"invitee_email"`
	Status           Status     `json:"status"`
	Message          string     `json:"message,omitempty"`
	ExpiresAt        time.Time  `json:"expires_at"`
	AcceptedAt       *time.Time `json:"accepted_at,omitempty"`
	AcceptedBy       *uuid.UUID `json:"accepted_by,omitempty"`
	EmailSendFailed  bool       `json:"email_send_failed"`
	LastEmailError   string     `json:"last_email_error,omitempty"`
	LastEmailErrorAt *time.Time `json:"last_email_error_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	Token            string     `json:"token,omitempty"`
	AcceptURL        string     `json:"accept_url,omitempty"`
	ProjectName      string     `json:"project_name,omitempty"`
	InviterName      string     `json:"inviter_name,omitempty"`
	RecipientName    string     `json:"recipient_name,omitempty"`
}

// ToResponse converts the invitation to its API shape without the token.
// The status is reported as expired once the expiry has passed.
func (i *Invitation) ToResponse(now time.Time) *InvitationResponse {
	return &InvitationResponse{
		ID:               i.ID,
		ProjectID:        i.ProjectID,
		InviterID:        i.InviterID,
		InviteeEmail:     i.InviteeEmail,
		Status:           i.EffectiveStatus(now),
		Message:          i.Message,
		ExpiresAt:        i.ExpiresAt,
		AcceptedAt:       i.AcceptedAt,
		AcceptedBy:       i.AcceptedBy,
		EmailSendFailed:  i.EmailSendFailed,
		LastEmailError:   i.LastEmailError,
		LastEmailErrorAt: i.LastEmailErrorAt,
		CreatedAt:        i.CreatedAt,
	}
}

// ToResponse converts the view to its API shape.
func (v *View) ToResponse(now time.Time) *InvitationResponse {
	resp := v.Invitation.ToResponse(now)
	resp.ProjectName = v.ProjectName
	resp.InviterName = v.InviterName
	resp.RecipientName = v.RecipientName
	return resp
}

// ProjectSummary is the project shown on the invitation landing page.
type ProjectSummary struct {
	ID          uuid.UUID      `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Status      project.Status `json:"status"`
	OwnerName   string         `json:"owner_name"`
}

// Resolution is the result of resolving a live token.
type Resolution struct {
	Invitation  *InvitationResponse `json:"invitation"`
	Project     ProjectSummary      `json:"project"`
	InviterName string              `json:"inviter_name"`
}

// AcceptResult is the result of accepting an invitation.
type AcceptResult struct {
	Project         *project.Project
	AlreadyInvestor bool
}

// AcceptResponse is the API shape of AcceptResult.
type AcceptResponse struct {
	Project         *project.ProjectResponse `json:"project"`
	AlreadyInvestor bool                     `json:"already_investor"`
	Message         string                   `json:"message"`
}

// ToResponse converts the result to its API shape.
func (r *AcceptResult) ToResponse() *AcceptResponse {
	msg := "You have joined the project as an investor"
	if r.AlreadyInvestor {
		msg = "You are already an investor in this project"
	}
	return &AcceptResponse{
		Project:         r.Project.ToResponse(),
		AlreadyInvestor: r.AlreadyInvestor,
		Message:         msg,
	}
}
