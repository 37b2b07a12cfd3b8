package comment

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/clusterhub/server/internal/module/project"
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

	r := gin.New()
	NewHandler(f.svc, enforcer).RegisterRoutes(r.Group("/api/v1", asCaller(caller)))
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

func TestHandler_Create(t *testing.T) {
	caller := investorCaller()
	taskID := uuid.New()
	path := "/api/v1/tasks/" + taskID.String() + "/comments"

	t.Run("created", func(t *testing.T) {
		f := newFixture()
		f.allowTask(taskID, caller, project.AccessInvestor)
		f.users.On("Get", mock.Anything, caller.UserID).Return(&user.User{ID: caller.UserID, Name: "Ada"}, nil)
		f.repo.On("Create", mock.Anything, mock.AnythingOfType("*comment.Comment")).Return(nil)
		r := setupRouter(t, f, caller)

		w := doJSON(r, http.MethodPost, path, map[string]string{"text": "Nice progress"})

		assert.Equal(t, http.StatusCreated, w.Code)
		var resp Comment
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "Ada", resp.AuthorName)
		assert.Equal(t, taskID, resp.TaskID)
	})

	t.Run("missing text", func(t *testing.T) {
		r := setupRouter(t, newFixture(), caller)

		w := doJSON(r, http.MethodPost, path, map[string]string{})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("bad task id", func(t *testing.T) {
		r := setupRouter(t, newFixture(), caller)

		w := doJSON(r, http.MethodPost, "/api/v1/tasks/x/comments", map[string]string{"text": "hi"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestHandler_List(t *testing.T) {
	caller := investorCaller()
	taskID := uuid.New()
	f := newFixture()
	f.allowTask(taskID, caller, project.AccessInvestor)
	f.repo.On("ListByTask", mock.Anything, taskID, mock.Anything).Return([]*Comment{{ID: uuid.New(), Text: "hi"}}, int64(1), nil)
	r := setupRouter(t, f, caller)

	w := doJSON(r, http.MethodGet, "/api/v1/tasks/"+taskID.String()+"/comments?page=1&page_size=10", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp["items"], 1)
}

func TestHandler_Edit(t *testing.T) {
	caller := investorCaller()
	comment := &Comment{ID: uuid.New(), AuthorID: uuid.New(), Text: "hi"}
	f := newFixture()
	f.repo.On("GetByID", mock.Anything, comment.ID).Return(comment, nil)
	r := setupRouter(t, f, caller)

	w := doJSON(r, http.MethodPatch, "/api/v1/comments/"+comment.ID.String(), map[string]string{"text": "edit"})

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "NOT_COMMENT_AUTHOR")
}

func TestHandler_Delete(t *testing.T) {
	caller := investorCaller()
	comment := &Comment{ID: uuid.New(), AuthorID: caller.UserID}
	f := newFixture()
	f.repo.On("GetByID", mock.Anything, comment.ID).Return(comment, nil)
	f.repo.On("Delete", mock.Anything, comment.ID).Return(nil)
	r := setupRouter(t, f, caller)

	w := doJSON(r, http.MethodDelete, "/api/v1/comments/"+comment.ID.String(), nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}
