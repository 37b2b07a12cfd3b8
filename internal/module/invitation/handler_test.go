package invitation

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/clusterhub/server/internal/module/user"
	"github.com/clusterhub/server/internal/shared/authz"
	"github.com/clusterhub/server/internal/utils/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func asCaller(caller authz.Caller) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.UserIDKey, caller.UserID)
		c.Set(middleware.EmailKey, caller.Email)
		c.Set(middleware.RoleKey, string(caller.Role))
		c.Next()
	}
}

func setupRouter(t *testing.T, f *fixture, caller authz.Caller) *gin.Engine {
	t.Helper()
	enforcer, err := authz.NewEnforcer()
	require.NoError(t, err)

	h := NewHandler(f.svc, enforcer, nil, 0)

	r := gin.New()
	h.RegisterPublicRoutes(r.Group("/api/v1"))
	h.RegisterRoutes(r.Group("/api/v1", asCaller(caller)))
	return r
}

func doJSON(r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Error.Code
}

func TestHandler_Issue(t *testing.T) {
	t.Run("returns token once", func(t *testing.T) {
		f := newFixture()
		f.expectIssuePreconditions("bob@example.com")
		f.repo.On("Create", mock.Anything, mock.Anything).Return(nil)
		f.users.On("DisplayNames", mock.Anything, mock.Anything).Return(map[uuid.UUID]string{}, nil)
		f.sender.On("SendInvitationEmail", mock.Anything, mock.Anything).Return(nil)
		f.pub.On("Publish", mock.Anything).Return()
		r := setupRouter(t, f, f.ownerCaller())

		w := doJSON(r, http.MethodPost, "/api/v1/invitations/invite", map[string]string{
			"project_id":    f.project.ID.String(),
			"invitee_email": "bob@example.com",
		})

		require.Equal(t, http.StatusCreated, w.Code)
		var resp InvitationResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Len(t, resp.Token, 64)
		assert.Equal(t, "https://app.example.com/invite/accept?token="+resp.Token, resp.AcceptURL)
		assert.Equal(t, StatusPending, resp.Status)
	})

	t.Run("investor role is rejected", func(t *testing.T) {
		f := newFixture()
		r := setupRouter(t, f, authz.Caller{UserID: uuid.New(), Role: authz.RoleInvestor})

		w := doJSON(r, http.MethodPost, "/api/v1/invitations/invite", map[string]string{
			"project_id":    f.project.ID.String(),
			"invitee_email": "bob@example.com",
		})
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, "INSUFFICIENT_ROLE", errorCode(t, w))
	})

	t.Run("missing fields", func(t *testing.T) {
		f := newFixture()
		r := setupRouter(t, f, f.ownerCaller())

		w := doJSON(r, http.MethodPost, "/api/v1/invitations/invite", map[string]string{})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("duplicate pending is a conflict", func(t *testing.T) {
		f := newFixture()
		f.projects.On("GetProject", mock.Anything, f.project.ID).Return(f.project, nil)
		f.users.On("Get", mock.Anything, f.owner.ID).Return(f.owner, nil)
		f.users.On("FindByEmail", mock.Anything, "bob@example.com").Return(nil, nil)
		f.repo.On("ExpireStale", mock.Anything, f.project.ID, "bob@example.com", fixedNow).Return(int64(0), nil)
		f.repo.On("FindLivePending", mock.Anything, f.project.ID, "bob@example.com", fixedNow).
			Return(f.pending("bob@example.com"), nil)
		r := setupRouter(t, f, f.ownerCaller())

		w := doJSON(r, http.MethodPost, "/api/v1/invitations/invite", map[string]string{
			"project_id":    f.project.ID.String(),
			"invitee_email": "bob@example.com",
		})
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, "PENDING_INVITATION_EXISTS", errorCode(t, w))
	})
}

func TestHandler_Resolve(t *testing.T) {
	t.Run("public and live", func(t *testing.T) {
		f := newFixture()
		inv := f.pending("bob@example.com")
		f.repo.On("GetByToken", mock.Anything, inv.Token).Return(inv, nil)
		f.projects.On("GetProject", mock.Anything, f.project.ID).Return(f.project, nil)
		f.users.On("DisplayNames", mock.Anything, mock.Anything).Return(map[uuid.UUID]string{f.owner.ID: "Olive"}, nil)

		r := gin.New()
		enforcer, err := authz.NewEnforcer()
		require.NoError(t, err)
		NewHandler(f.svc, enforcer, nil, 0).RegisterPublicRoutes(r.Group("/api/v1"))

		w := doJSON(r, http.MethodGet, "/api/v1/invitations/accept/"+inv.Token, nil)

		require.Equal(t, http.StatusOK, w.Code)
		var res Resolution
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
		assert.Equal(t, "Solar", res.Project.Name)
		assert.Equal(t, "Olive", res.InviterName)
		assert.NotContains(t, w.Body.String(), inv.Token)
	})

	t.Run("unknown token", func(t *testing.T) {
		f := newFixture()
		f.repo.On("GetByToken", mock.Anything, "nope").Return(nil, ErrInvitationNotFound)
		r := setupRouter(t, f, f.ownerCaller())

		w := doJSON(r, http.MethodGet, "/api/v1/invitations/accept/nope", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("expired", func(t *testing.T) {
		f := newFixture()
		inv := f.pending("bob@example.com")
		inv.ExpiresAt = fixedNow.Add(-1)
		f.repo.On("GetByToken", mock.Anything, inv.Token).Return(inv, nil)
		r := setupRouter(t, f, f.ownerCaller())

		w := doJSON(r, http.MethodGet, "/api/v1/invitations/accept/"+inv.Token, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "INVITATION_EXPIRED", errorCode(t, w))
	})

	t.Run("already accepted", func(t *testing.T) {
		f := newFixture()
		inv := f.pending("bob@example.com")
		inv.Status = StatusAccepted
		f.repo.On("GetByToken", mock.Anything, inv.Token).Return(inv, nil)
		r := setupRouter(t, f, f.ownerCaller())

		w := doJSON(r, http.MethodGet, "/api/v1/invitations/accept/"+inv.Token, nil)
		assert.Equal(t, http.StatusConflict, w.Code)
	})
}

func TestHandler_Accept(t *testing.T) {
	bob := &user.User{ID: uuid.New(), Email: "bob@example.com", Role: authz.RoleInvestor, EmailVerified: true}

	t.Run("joins", func(t *testing.T) {
		f := newFixture()
		inv := f.pending("bob@example.com")
		f.users.On("Get", mock.Anything, bob.ID).Return(bob, nil)
		f.repo.On("GetByToken", mock.Anything, inv.Token).Return(inv, nil)
		f.projects.On("GetProject", mock.Anything, f.project.ID).Return(f.project, nil)
		f.repo.On("Accept", mock.Anything, inv.ID, f.project.ID, bob.ID, fixedNow).Return(false, nil)
		f.pub.On("Publish", mock.Anything).Return()
		r := setupRouter(t, f, bob.Caller())

		w := doJSON(r, http.MethodPost, "/api/v1/invitations/accept", map[string]string{"token": inv.Token})

		require.Equal(t, http.StatusOK, w.Code)
		var resp struct {
			Project struct {
				ID          uuid.UUID   `json:"id"`
				InvestorIDs []uuid.UUID `json:"investor_ids"`
			} `json:"project"`
			AlreadyInvestor bool `json:"already_investor"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.False(t, resp.AlreadyInvestor)
		assert.Equal(t, f.project.ID, resp.Project.ID)
		assert.Equal(t, []uuid.UUID{bob.ID}, resp.Project.InvestorIDs)
	})

	t.Run("email mismatch is forbidden", func(t *testing.T) {
		f := newFixture()
		inv := f.pending("carol@example.com")
		f.users.On("Get", mock.Anything, bob.ID).Return(bob, nil)
		f.repo.On("GetByToken", mock.Anything, inv.Token).Return(inv, nil)
		r := setupRouter(t, f, bob.Caller())

		w := doJSON(r, http.MethodPost, "/api/v1/invitations/accept", map[string]string{"token": inv.Token})
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, "INVITATION_EMAIL_MISMATCH", errorCode(t, w))
	})

	t.Run("unverified email is forbidden", func(t *testing.T) {
		f := newFixture()
		inv := f.pending("bob@example.com")
		squatter := &user.User{ID: uuid.New(), Email: "bob@example.com", Role: authz.RoleInvestor}
		f.users.On("Get", mock.Anything, squatter.ID).Return(squatter, nil)
		r := setupRouter(t, f, squatter.Caller())

		w := doJSON(r, http.MethodPost, "/api/v1/invitations/accept", map[string]string{"token": inv.Token})
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, "EMAIL_NOT_VERIFIED", errorCode(t, w))
		f.repo.AssertNotCalled(t, "GetByToken", mock.Anything, mock.Anything)
		f.repo.AssertNotCalled(t, "Accept", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("missing token", func(t *testing.T) {
		f := newFixture()
		r := setupRouter(t, f, bob.Caller())

		w := doJSON(r, http.MethodPost, "/api/v1/invitations/accept", map[string]string{})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestHandler_Cancel(t *testing.T) {
	t.Run("cancels", func(t *testing.T) {
		f := newFixture()
		inv := f.pending("bob@example.com")
		f.repo.On("GetByID", mock.Anything, inv.ID).Return(inv, nil)
		f.projects.On("GetProject", mock.Anything, f.project.ID).Return(f.project, nil)
		f.repo.On("Cancel", mock.Anything, inv.ID, fixedNow).Return(nil)
		f.pub.On("Publish", mock.Anything).Return()
		r := setupRouter(t, f, f.ownerCaller())

		w := doJSON(r, http.MethodDelete, "/api/v1/invitations/"+inv.ID.String(), nil)

		require.Equal(t, http.StatusOK, w.Code)
		var resp InvitationResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, StatusCancelled, resp.Status)
	})

	t.Run("not pending", func(t *testing.T) {
		f := newFixture()
		inv := f.pending("bob@example.com")
		inv.Status = StatusExpired
		f.repo.On("GetByID", mock.Anything, inv.ID).Return(inv, nil)
		f.projects.On("GetProject", mock.Anything, f.project.ID).Return(f.project, nil)
		f.repo.On("Cancel", mock.Anything, inv.ID, fixedNow).Return(ErrStatusChanged)
		r := setupRouter(t, f, f.ownerCaller())

		w := doJSON(r, http.MethodDelete, "/api/v1/invitations/"+inv.ID.String(), nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "INVITATION_EXPIRED", errorCode(t, w))
	})

	t.Run("bad id", func(t *testing.T) {
		f := newFixture()
		r := setupRouter(t, f, f.ownerCaller())

		w := doJSON(r, http.MethodDelete, "/api/v1/invitations/not-a-uuid", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestHandler_ListByProject(t *testing.T) {
	f := newFixture()
	views := []*View{{Invitation: *f.pending("bob@example.com"), InviterName: "Olive", RecipientName: "bob"}}
	f.projects.On("GetProject", mock.Anything, f.project.ID).Return(f.project, nil)
	f.repo.On("ListByProject", mock.Anything, f.project.ID, Status("")).Return(views, nil)
	r := setupRouter(t, f, f.ownerCaller())

	w := doJSON(r, http.MethodGet, "/api/v1/invitations/project/"+f.project.ID.String(), nil)

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Invitations []InvitationResponse `json:"invitations"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Invitations, 1)
	assert.Equal(t, "Olive", resp.Invitations[0].InviterName)
	assert.Equal(t, "bob", resp.Invitations[0].RecipientName)
	assert.Empty(t, resp.Invitations[0].Token)
}

func TestHandler_ListMine(t *testing.T) {
	f := newFixture()
	bob := &user.User{ID: uuid.New(), Email: "bob@example.com", Role: authz.RoleInvestor, EmailVerified: true}
	f.users.On("Get", mock.Anything, bob.ID).Return(bob, nil)
	f.repo.On("ListPendingByEmail", mock.Anything, "bob@example.com", fixedNow).
		Return([]*View{{Invitation: *f.pending("bob@example.com"), ProjectName: "Solar"}}, nil)
	r := setupRouter(t, f, bob.Caller())

	w := doJSON(r, http.MethodGet, "/api/v1/invitations/mine", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"project_name":"Solar"`)
}
