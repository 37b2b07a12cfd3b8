package events

import "github.com/google/uuid"

// Event type constants.
const (
	InvitationIssuedType    = "InvitationIssued"
	InvitationAcceptedType  = "InvitationAccepted"
	InvitationCancelledType = "InvitationCancelled"
	UserDeletedType         = "UserDeleted"
)

// InvitationIssuedEvent is emitted after an invitation is persisted.
// It is defined here so the project and invitation modules can share it
// without importing each other.
type InvitationIssuedEvent struct {
	BaseEvent

	InvitationID uuid.UUID `json:"invitation_id"`
	ProjectID    uuid.UUID `json:"project_id"`
	InviterID    uuid.UUID `json:"inviter_id"`
	InviteeEmail string    `json:"invitee_email"`

	// EmailDelivered is false when the notification could not be sent.
	EmailDelivered bool `json:"email_delivered"`
}

// NewInvitationIssuedEvent creates a new InvitationIssuedEvent.
func NewInvitationIssuedEvent(invitationID, projectID, inviterID uuid.UUID, email string, delivered bool) *InvitationIssuedEvent {
	return &InvitationIssuedEvent{
		BaseEvent:      NewBaseEvent(InvitationIssuedType, invitationID, "Invitation"),
		InvitationID:   invitationID,
		ProjectID:      projectID,
		InviterID:      inviterID,
		InviteeEmail:   email,
		EmailDelivered: delivered,
	}
}

// InvitationAcceptedEvent is emitted when an invitation converts into membership.
type InvitationAcceptedEvent struct {
	BaseEvent

	InvitationID    uuid.UUID `json:"invitation_id"`
	ProjectID       uuid.UUID `json:"project_id"`
	UserID          uuid.UUID `json:"user_id"`
	AlreadyInvestor bool      `json:"already_investor"`
}

// NewInvitationAcceptedEvent creates a new InvitationAcceptedEvent.
func NewInvitationAcceptedEvent(invitationID, projectID, userID uuid.UUID, alreadyInvestor bool) *InvitationAcceptedEvent {
	return &InvitationAcceptedEvent{
		BaseEvent:       NewBaseEvent(InvitationAcceptedType, invitationID, "Invitation"),
		InvitationID:    invitationID,
		ProjectID:       projectID,
		UserID:          userID,
		AlreadyInvestor: alreadyInvestor,
	}
}

// InvitationCancelledEvent is emitted when an owner withdraws an invitation.
type InvitationCancelledEvent struct {
	BaseEvent

	InvitationID uuid.UUID `json:"invitation_id"`
	ProjectID    uuid.UUID `json:"project_id"`
	CancelledBy  uuid.UUID `json:"cancelled_by"`
}

// NewInvitationCancelledEvent creates a new InvitationCancelledEvent.
func NewInvitationCancelledEvent(invitationID, projectID, cancelledBy uuid.UUID) *InvitationCancelledEvent {
	return &InvitationCancelledEvent{
		BaseEvent:    NewBaseEvent(InvitationCancelledType, invitationID, "Invitation"),
		InvitationID: invitationID,
		ProjectID:    projectID,
		CancelledBy:  cancelledBy,
	}
}

// UserDeletedEvent is emitted when the identity provider removes a user.
// Owned projects and investor memberships are cleaned up by subscribers.
type UserDeletedEvent struct {
	BaseEvent

	UserID     uuid.UUID `json:"user_id"`
	ExternalID string    `json:"external_id"`
}

// NewUserDeletedEvent creates a new UserDeletedEvent.
func NewUserDeletedEvent(userID uuid.UUID, externalID string) *UserDeletedEvent {
	return &UserDeletedEvent{
		BaseEvent:  NewBaseEvent(UserDeletedType, userID, "User"),
		UserID:     userID,
		ExternalID: externalID,
	}
}
