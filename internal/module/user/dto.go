package user

import (
	"strings"
	"time"

	"github.com/clusterhub/server/internal/shared/authz"
	"github.com/google/uuid"
)

// Filter narrows user listings.
type Filter struct {
	Role  *authz.Role
	Email string
}

// UserResponse is the public representation of a user.
type UserResponse struct {
	ID            uuid.UUID  `json:"id"`
	Email         string     `json:"email"`
	Name          string     `json:"name"`
	Role          authz.Role `json:"role"`
	Local         bool       `json:"local"`
	EmailVerified bool       `json:"email_verified"`
	CreatedAt     time.Time  `json:"created_at"`
}

// ToResponse converts the user to its API shape.
func (u *User) ToResponse() *UserResponse {
	return &UserResponse{
		ID:            u.ID,
		Email:         u.Email,
		Name:          u.DisplayName(),
		Role:          u.Role,
		Local:         u.IsLocal(),
		EmailVerified: u.EmailVerified,
		CreatedAt:     u.CreatedAt,
	}
}

// ListQuery is the query string for GET /users.
type ListQuery struct {
	Role  string `form:"role"`
	Email string `form:"email"`
}

// ChangeRoleRequest is the body of PATCH /users/:id/role.
type ChangeRoleRequest struct {
	Role string `json:"role" binding:"required"`
}

// --- Identity provider webhook payloads ---

// Identity event types.
const (
	EventUserCreated = "user.created"
	EventUserUpdated = "user.updated"
	EventUserDeleted = "user.deleted"
)

// IdentityEvent is a webhook delivery from the identity provider.
type IdentityEvent struct {
	Type string       `json:"type"`
	Data IdentityData `json:"data"`
}

// IdentityData is the user object carried by an IdentityEvent.
type IdentityData struct {
	ID                    string          `json:"id"`
	EmailAddresses        []IdentityEmail `json:"email_addresses"`
	PrimaryEmailAddressID string          `json:"primary_email_address_id"`
	FirstName             string          `json:"first_name"`
	LastName              string          `json:"last_name"`
	Username              string          `json:"username"`
	PublicMetadata        map[string]any  `json:"public_metadata"`
	UnsafeMetadata        map[string]any  `json:"unsafe_metadata"`
}

// IdentityEmail is one address on an identity.
type IdentityEmail struct {
	ID           string `json:"id"`
	EmailAddress string `json:"email_address"`
}

// PrimaryEmail returns the primary address, falling back to the first one.
func (d IdentityData) PrimaryEmail() string {
	for _, e := range d.EmailAddresses {
		if e.ID == d.PrimaryEmailAddressID {
			return NormalizeEmail(e.EmailAddress)
		}
	}
	if len(d.EmailAddresses) > 0 {
		return NormalizeEmail(d.EmailAddresses[0].EmailAddress)
	}
	return ""
}

// DisplayName builds a name from first/last name or the username.
func (d IdentityData) DisplayName() string {
	if name := strings.TrimSpace(d.FirstName + " " + d.LastName); name != "" {
		return name
	}
	return d.Username
}

// RequestedRole returns the role from public metadata, then unsafe metadata.
// Unsafe metadata is writable by the end user, so only self-assignable roles
// are taken from it.
func (d IdentityData) RequestedRole() (authz.Role, bool) {
	if role, ok := metadataRole(d.PublicMetadata); ok {
		return role, true
	}
	if role, ok := metadataRole(d.UnsafeMetadata); ok && role.SelfAssignable() {
		return role, true
	}
	return "", false
}

func metadataRole(md map[string]any) (authz.Role, bool) {
	s, ok := md["role"].(string)
	if !ok {
		return "", false
	}
	return authz.ParseRole(s)
}

// WebhookResponse acknowledges a webhook delivery.
type WebhookResponse struct {
	Message string        `json:"message"`
	User    *UserResponse `json:"user,omitempty"`
}
