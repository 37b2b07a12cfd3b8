package project

import (
	"testing"

	"github.com/clusterhub/server/internal/shared/authz"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestStatus_Valid(t *testing.T) {
	for _, s := range []Status{StatusPlanning, StatusActive, StatusCompleted, StatusOnHold, StatusCancelled} {
		assert.True(t, s.Valid(), s)
	}
	assert.False(t, Status("archived").Valid())
	assert.False(t, Status("").Valid())
}

func TestProject_AccessLevelFor(t *testing.T) {
	owner := uuid.New()
	investor := uuid.New()
	stranger := uuid.New()
	p := &Project{ID: uuid.New(), OwnerID: owner, Investors: []Investor{{UserID: investor}}}

	tests := []struct {
		name     string
		caller   authz.Caller
		expected AccessLevel
	}{
		{"owner", authz.Caller{UserID: owner, Role: authz.RoleProjectOwner}, AccessOwner},
		{"investor", authz.Caller{UserID: investor, Role: authz.RoleInvestor}, AccessInvestor},
		{"stranger", authz.Caller{UserID: stranger, Role: authz.RoleProjectOwner}, AccessNone},
		{"super admin", authz.Caller{UserID: stranger, Role: authz.RoleSuperAdmin}, AccessOwner},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, p.AccessLevelFor(tt.caller))
			assert.Equal(t, tt.expected != AccessNone, p.CanAccess(tt.caller))
		})
	}
}

func TestProject_VerifyOwner(t *testing.T) {
	owner := uuid.New()
	investor := uuid.New()
	p := &Project{OwnerID: owner, Investors: []Investor{{UserID: investor}}}

	assert.NoError(t, p.VerifyOwner(authz.Caller{UserID: owner, Role: authz.RoleProjectOwner}))
	assert.NoError(t, p.VerifyOwner(authz.Caller{UserID: uuid.New(), Role: authz.RoleSuperAdmin}))
	assert.ErrorIs(t, p.VerifyOwner(authz.Caller{UserID: investor, Role: authz.RoleInvestor}), ErrNotProjectOwner)
	assert.ErrorIs(t, p.VerifyOwner(authz.Caller{UserID: uuid.New(), Role: authz.RoleProjectOwner}), ErrNotProjectOwner)
}

func TestProject_InvestorIDs(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	p := &Project{Investors: []Investor{{UserID: a}, {UserID: b}}}

	assert.Equal(t, []uuid.UUID{a, b}, p.InvestorIDs())
	assert.True(t, p.HasInvestor(b))
	assert.False(t, p.HasInvestor(uuid.New()))
	assert.Empty(t, (&Project{}).InvestorIDs())
}
