package invitation

import (
	"errors"

	apperrors "github.com/clusterhub/server/internal/shared/errors"
)

// Module errors.
var (
	ErrInvitationNotFound = apperrors.NotFound("INVITATION_NOT_FOUND", "invitation")

	ErrInvitationExpired   = apperrors.StateInvalid("INVITATION_EXPIRED", "invitation has expired")
	ErrInvitationCancelled = apperrors.StateInvalid("INVITATION_CANCELLED", "invitation was cancelled")
	ErrInvitationInvalid   = apperrors.StateInvalid("INVITATION_INVALID", "invitation is no longer valid")
	ErrNotPending          = apperrors.StateInvalid("INVITATION_NOT_PENDING", "only pending invitations can be changed")
	ErrAlreadyAccepted     = apperrors.Conflict("INVITATION_ALREADY_ACCEPTED", "invitation has already been accepted")

	ErrEmailMismatch    = apperrors.Forbidden("INVITATION_EMAIL_MISMATCH", "this invitation was sent to a different email address")
	ErrEmailNotVerified = apperrors.Forbidden("EMAIL_NOT_VERIFIED", "verify your email address before using invitations")

	ErrInvalidEmail       = apperrors.Validation("INVALID_EMAIL", "invitee email is not a valid address")
	ErrMessageTooLong     = apperrors.Validation("MESSAGE_TOO_LONG", "message must be at most 500 characters")
	ErrInvalidStatus      = apperrors.Validation("INVALID_INVITATION_STATUS", "status must be one of pending, accepted, expired, cancelled")
	ErrCannotInviteOwner  = apperrors.Validation("CANNOT_INVITE_OWNER", "the project owner cannot be invited")
	ErrAlreadyInvestor    = apperrors.Conflict("ALREADY_INVESTOR", "this user is already an investor in the project")
	ErrPendingExists      = apperrors.Conflict("PENDING_INVITATION_EXISTS", "a pending invitation already exists for this email")
	ErrOwnerNotInvestable = apperrors.Conflict("OWNER_CANNOT_BE_INVESTOR", "the project owner cannot join as an investor")
)

// ErrStatusChanged is returned by the repository when a conditional status
// update matched no row because the invitation left the live pending state.
var ErrStatusChanged = errors.New("invitation status changed concurrently")
