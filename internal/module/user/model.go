package user

import (
	"strings"
	"time"

	"github.com/clusterhub/server/internal/shared/authz"
	"github.com/google/uuid"
)

// User is a local profile mapped from an external identity or local credentials.
type User struct {
	ID           uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ExternalID   *string    `json:"external_id,omitempty" gorm:"column:external_id;uniqueIndex"`
	Email        string     `json:"email" gorm:"uniqueIndex;not null"`
	Name         string     `json:"name" gorm:"not null"`
	Role         authz.Role `json:"role" gorm:"type:varchar(32);not null"`
	PasswordHash *string    `json:"-" gorm:"column:password_hash"`

	// EmailVerified is set by the identity provider sync or by confirming
	// the token mailed at local registration.
	EmailVerified         bool       `json:"email_verified" gorm:"column:email_verified;not null;default:false"`
	VerificationToken     *string    `json:"-" gorm:"column:verification_token"`
	VerificationExpiresAt *time.Time `json:"-" gorm:"column:verification_expires_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name.
func (User) TableName() string {
	return "users"
}

// IsLocal returns true if the user can sign in with a password.
func (u *User) IsLocal() bool {
	return u.PasswordHash != nil && *u.PasswordHash != ""
}

// DisplayName returns the name, or the local part of the email when unset.
func (u *User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	local, _, _ := strings.Cut(u.Email, "@")
	return local
}

// Caller returns the user as an authorization subject.
func (u *User) Caller() authz.Caller {
	return authz.Caller{UserID: u.ID, Email: u.Email, Role: u.Role}
}

// NormalizeEmail lowercases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
