package authz

import (
	"strings"

	"github.com/google/uuid"
)

// Role is a user's global role.
type Role string

const (
	RoleInvestor     Role = "investor"
	RoleProjectOwner Role = "project_owner"
	RoleSuperAdmin   Role = "super_admin"
	RoleTeamMember   Role = "team_member"
)

// DefaultRole is assigned when the identity provider supplies none.
const DefaultRole = RoleProjectOwner

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleInvestor, RoleProjectOwner, RoleSuperAdmin, RoleTeamMember:
		return true
	}
	return false
}

// SelfAssignable reports whether a user may pick r at registration.
func (r Role) SelfAssignable() bool {
	return r.Valid() && r != RoleSuperAdmin
}

// ParseRole normalizes s into a Role. Legacy provider names are mapped.
func ParseRole(s string) (Role, bool) {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case "cluster_owner", "owner":
		return RoleProjectOwner, true
	case "cluster_god", "admin":
		return RoleSuperAdmin, true
	default:
		return r, r.Valid()
	}
}

// Caller is the authenticated identity performing an operation.
type Caller struct {
	UserID uuid.UUID
	Email  string
	Role   Role
}

// IsSuperAdmin reports whether the caller bypasses ownership checks.
func (c Caller) IsSuperAdmin() bool {
	return c.Role == RoleSuperAdmin
}
