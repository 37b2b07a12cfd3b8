package invitation

import (
	"time"

	"github.com/google/uuid"
)

// Status is an invitation's lifecycle state. Every state other than
// pending is terminal.
type Status string

const (
	StatusPending   Status = "pending"
	StatusAccepted  Status = "accepted"
	StatusExpired   Status = "expired"
	StatusCancelled Status = "cancelled"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusAccepted, StatusExpired, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no transition leaves s.
func (s Status) Terminal() bool {
	return s != StatusPending
}

// MaxMessageLength bounds the optional personal message.
const MaxMessageLength = 500

// Invitation grants investor membership to whoever proves ownership of
// the invitee email and presents the token.
type Invitation struct {
	ID               uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Token            string     `json:"-" gorm:"uniqueIndex;not null"`
	ProjectID        uuid.UUID  `json:"project_id" gorm:"type:uuid;not null;index"`
	InviterID        uuid.UUID  `json:"inviter_id" gorm:"type:uuid;not null"`
	InviteeEmail     string     `json:"invitee_email" gorm:"not null"`
	Status           Status     `json:"status" gorm:"type:varchar(16);not null;default:pending"`
	Message          string     `json:"message"`
	ExpiresAt        time.Time  `json:"expires_at" gorm:"not null"`
	AcceptedAt       *time.Time `json:"accepted_at,omitempty"`
	AcceptedBy       *uuid.UUID `json:"accepted_by,omitempty" gorm:"type:uuid"`
	EmailSendFailed  bool       `json:"email_send_failed"`
	LastEmailError   string     `json:"last_email_error,omitempty"`
	LastEmailErrorAt *time.Time `json:"last_email_error_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// TableName returns the database table name.
func (Invitation) TableName() string {
	return "invitations"
}

// IsOverdue reports whether the expiry has passed at now. A stored status
// of pending is not enough to accept an overdue invitation.
func (i *Invitation) IsOverdue(now time.Time) bool {
	return !now.Before(i.ExpiresAt)
}

// CheckLive returns nil when the invitation is pending and not overdue,
// and the error describing its effective state otherwise.
func (i *Invitation) CheckLive(now time.Time) error {
	switch i.Status {
	case StatusPending:
		if i.IsOverdue(now) {
			return ErrInvitationExpired
		}
		return nil
	case StatusCancelled:
		return ErrInvitationCancelled
	case StatusAccepted:
		return ErrAlreadyAccepted
	case StatusExpired:
		return ErrInvitationExpired
	default:
		return ErrInvitationInvalid
	}
}

// EffectiveStatus is the status with overdue pending reported as expired.
func (i *Invitation) EffectiveStatus(now time.Time) Status {
	if i.Status == StatusPending && i.IsOverdue(now) {
		return StatusExpired
	}
	return i.Status
}

// WasAcceptedBy reports whether userID accepted the invitation.
func (i *Invitation) WasAcceptedBy(userID uuid.UUID) bool {
	return i.AcceptedBy != nil && *i.AcceptedBy == userID
}

// View is an invitation joined with the names shown in listings.
type View struct {
	Invitation
	ProjectName   string `json:"project_name"`
	InviterName   string `json:"inviter_name"`
	RecipientName string `json:"recipient_name"`
}
