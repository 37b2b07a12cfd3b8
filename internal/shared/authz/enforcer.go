package authz

import (
	_ "embed"
	"fmt"

	"github.com/casbin/casbin/v3"
	"github.com/casbin/casbin/v3/model"
)

//go:embed model.conf
var modelText string

// Objects and actions checked by RequirePermission.
const (
	ObjProject    = "project"
	ObjInvitation = "invitation"
	ObjStage      = "stage"
	ObjComment    = "comment"
	ObjFile       = "file"
	ObjUser       = "user"

	ActRead   = "read"
	ActCreate = "create"
	ActManage = "manage"
	ActAccept = "accept"
	ActWrite  = "write"
	ActUpload = "upload"
)

// memberRole is the implicit role every authenticated role inherits.
const memberRole = "member"

var defaultPolicies = [][]string{
	{memberRole, ObjProject, ActRead},
	{memberRole, ObjInvitation, ActAccept},
	{memberRole, ObjComment, ActWrite},

	{string(RoleProjectOwner), ObjProject, ActCreate},
	{string(RoleProjectOwner), ObjInvitation, ActManage},
	{string(RoleProjectOwner), ObjStage, ActManage},
	{string(RoleProjectOwner), ObjFile, ActUpload},

	{string(RoleSuperAdmin), ObjUser, ActManage},
}

var defaultGroupings = [][]string{
	{string(RoleInvestor), memberRole},
	{string(RoleTeamMember), memberRole},
	{string(RoleProjectOwner), memberRole},
	{string(RoleSuperAdmin), string(RoleProjectOwner)},
}

// Enforcer answers coarse role permission questions. Per-project ownership
// is checked separately by the project module.
type Enforcer struct {
	enforcer *casbin.Enforcer
}

// NewEnforcer builds the role policy from the embedded model.
func NewEnforcer() (*Enforcer, error) {
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, fmt.Errorf("load casbin model: %w", err)
	}

	e, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("create casbin enforcer: %w", err)
	}

	if _, err := e.AddPolicies(defaultPolicies); err != nil {
		return nil, fmt.Errorf("add policies: %w", err)
	}
	if _, err := e.AddGroupingPolicies(defaultGroupings); err != nil {
		return nil, fmt.Errorf("add role groupings: %w", err)
	}

	return &Enforcer{enforcer: e}, nil
}

// Can reports whether role may perform act on obj. Unknown roles are denied.
func (e *Enforcer) Can(role Role, obj, act string) bool {
	if !role.Valid() {
		return false
	}
	ok, err := e.enforcer.Enforce(string(role), obj, act)
	return err == nil && ok
}
