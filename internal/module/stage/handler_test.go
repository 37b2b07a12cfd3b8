package stage

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/clusterhub/server/internal/module/project"
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

func setupRouter(t *testing.T, caller authz.Caller) (*gin.Engine, *MockRepository, *MockProjectAccess) {
	t.Helper()
	enforcer, err := authz.NewEnforcer()
	require.NoError(t, err)

	svc, repo, projects := newTestService()
	h := NewHandler(svc, enforcer)

	r := gin.New()
	h.RegisterRoutes(r.Group("/api/v1", asCaller(caller)))
	return r, repo, projects
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

func TestHandler_CreateStage(t *testing.T) {
	caller := ownerCaller()
	p := ownedProject(caller)
	path := "/api/v1/projects/" + p.ID.String() + "/stages"

	t.Run("created", func(t *testing.T) {
		r, repo, projects := setupRouter(t, caller)
		projects.On("RequireOwner", mock.Anything, caller, p.ID).Return(p, nil)
		repo.On("NextPosition", mock.Anything, p.ID).Return(0, nil)
		repo.On("CreateStage", mock.Anything, mock.AnythingOfType("*stage.Stage")).Return(nil)

		w := doJSON(r, http.MethodPost, path, map[string]interface{}{
			"stage_name": "Design",
			"tasks":      []string{"Survey", "Permit"},
		})

		assert.Equal(t, http.StatusCreated, w.Code)
		var resp Stage
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "Design", resp.Name)
		assert.Len(t, resp.Tasks, 2)
	})

	t.Run("investor role rejected", func(t *testing.T) {
		r, _, projects := setupRouter(t, authz.Caller{UserID: uuid.New(), Role: authz.RoleInvestor})

		w := doJSON(r, http.MethodPost, path, map[string]string{"stage_name": "Design"})

		assert.Equal(t, http.StatusForbidden, w.Code)
		projects.AssertNotCalled(t, "RequireOwner", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("invalid tasks format", func(t *testing.T) {
		r, _, projects := setupRouter(t, caller)
		projects.On("RequireOwner", mock.Anything, caller, p.ID).Return(p, nil)

		w := doJSON(r, http.MethodPost, path, map[string]interface{}{"stage_name": "Design", "tasks": 5})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "INVALID_TASKS_FORMAT")
	})

	t.Run("bad project id", func(t *testing.T) {
		r, _, _ := setupRouter(t, caller)

		w := doJSON(r, http.MethodPost, "/api/v1/projects/nope/stages", map[string]string{"stage_name": "Design"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestHandler_ListStages(t *testing.T) {
	caller := authz.Caller{UserID: uuid.New(), Role: authz.RoleInvestor}
	projectID := uuid.New()

	t.Run("listed", func(t *testing.T) {
		r, repo, projects := setupRouter(t, caller)
		projects.On("RequireAccess", mock.Anything, caller, projectID).Return(&project.Project{ID: projectID}, project.AccessInvestor, nil)
		repo.On("ListStages", mock.Anything, projectID).Return([]*Stage{{ID: uuid.New(), Name: "Design"}}, nil)

		w := doJSON(r, http.MethodGet, "/api/v1/projects/"+projectID.String()+"/stages", nil)

		assert.Equal(t, http.StatusOK, w.Code)
		var resp map[string][]Stage
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Len(t, resp["stages"], 1)
	})

	t.Run("no access", func(t *testing.T) {
		r, _, projects := setupRouter(t, caller)
		projects.On("RequireAccess", mock.Anything, caller, projectID).Return(nil, project.AccessNone, project.ErrNoProjectAccess)

		w := doJSON(r, http.MethodGet, "/api/v1/projects/"+projectID.String()+"/stages", nil)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestHandler_DeleteStage(t *testing.T) {
	caller := ownerCaller()

	t.Run("missing stage", func(t *testing.T) {
		r, repo, _ := setupRouter(t, caller)
		repo.On("GetStage", mock.Anything, mock.Anything).Return(nil, ErrStageNotFound)

		w := doJSON(r, http.MethodDelete, "/api/v1/stages/"+uuid.NewString(), nil)

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Contains(t, w.Body.String(), "STAGE_NOT_FOUND")
	})
}

func TestHandler_AddTasks(t *testing.T) {
	caller := ownerCaller()
	p := ownedProject(caller)
	stage := &Stage{ID: uuid.New(), ProjectID: p.ID}

	r, repo, projects := setupRouter(t, caller)
	repo.On("GetStage", mock.Anything, stage.ID).Return(stage, nil)
	projects.On("RequireOwner", mock.Anything, caller, p.ID).Return(p, nil)

	w := doJSON(r, http.MethodPost, "/api/v1/stages/"+stage.ID.String()+"/tasks", map[string]interface{}{"tasks": []string{}})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "AT_LEAST_ONE_TASK_REQUIRED")
}

func TestHandler_UpdateTask(t *testing.T) {
	caller := ownerCaller()
	p := ownedProject(caller)
	stage := &Stage{ID: uuid.New(), ProjectID: p.ID}
	task := &Task{ID: uuid.New(), StageID: stage.ID, Name: "Survey"}

	r, repo, projects := setupRouter(t, caller)
	repo.On("GetTask", mock.Anything, task.ID).Return(task, nil)
	repo.On("GetStage", mock.Anything, stage.ID).Return(stage, nil)
	projects.On("RequireOwner", mock.Anything, caller, p.ID).Return(p, nil)
	repo.On("UpdateTask", mock.Anything, task.ID, map[string]interface{}{"name": "Site survey", "is_edited": true}).Return(nil)

	w := doJSON(r, http.MethodPatch, "/api/v1/tasks/"+task.ID.String(), map[string]string{"task_name": "Site survey"})

	assert.Equal(t, http.StatusOK, w.Code)
	repo.AssertExpectations(t)
}
