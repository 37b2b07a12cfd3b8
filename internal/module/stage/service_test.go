package stage

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/clusterhub/server/internal/module/project"
	"github.com/clusterhub/server/internal/shared/authz"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockRepository is a mock implementation of Repository.
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) CreateStage(ctx context.Context, stage *Stage) error {
	args := m.Called(ctx, stage)
	return args.Error(0)
}

func (m *MockRepository) GetStage(ctx context.Context, id uuid.UUID) (*Stage, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Stage), args.Error(1)
}

func (m *MockRepository) ListStages(ctx context.Context, projectID uuid.UUID) ([]*Stage, error) {
	args := m.Called(ctx, projectID)
	return args.Get(0).([]*Stage), args.Error(1)
}

func (m *MockRepository) NextPosition(ctx context.Context, projectID uuid.UUID) (int, error) {
	args := m.Called(ctx, projectID)
	return args.Int(0), args.Error(1)
}

func (m *MockRepository) UpdateStage(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error {
	args := m.Called(ctx, id, fields)
	return args.Error(0)
}

func (m *MockRepository) DeleteStage(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockRepository) CreateTasks(ctx context.Context, tasks []*Task) error {
	args := m.Called(ctx, tasks)
	return args.Error(0)
}

func (m *MockRepository) GetTask(ctx context.Context, id uuid.UUID) (*Task, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Task), args.Error(1)
}

func (m *MockRepository) ListTasks(ctx context.Context, stageID uuid.UUID) ([]*Task, error) {
	args := m.Called(ctx, stageID)
	return args.Get(0).([]*Task), args.Error(1)
}

func (m *MockRepository) UpdateTask(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error {
	args := m.Called(ctx, id, fields)
	return args.Error(0)
}

func (m *MockRepository) DeleteTask(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockProjectAccess is a mock implementation of ProjectAccess.
type MockProjectAccess struct {
	mock.Mock
}

func (m *MockProjectAccess) RequireAccess(ctx context.Context, caller authz.Caller, projectID uuid.UUID) (*project.Project, project.AccessLevel, error) {
	args := m.Called(ctx, caller, projectID)
	if args.Get(0) == nil {
		return nil, project.AccessNone, args.Error(2)
	}
	return args.Get(0).(*project.Project), args.Get(1).(project.AccessLevel), args.Error(2)
}

func (m *MockProjectAccess) RequireOwner(ctx context.Context, caller authz.Caller, projectID uuid.UUID) (*project.Project, error) {
	args := m.Called(ctx, caller, projectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*project.Project), args.Error(1)
}

func newTestService() (*Service, *MockRepository, *MockProjectAccess) {
	repo := new(MockRepository)
	projects := new(MockProjectAccess)
	return NewService(repo, projects, zap.NewNop()), repo, projects
}

func ownerCaller() authz.Caller {
	return authz.Caller{UserID: uuid.New(), Email: "owner@example.com", Role: authz.RoleProjectOwner}
}

func ownedProject(owner authz.Caller) *project.Project {
	return &project.Project{ID: uuid.New(), OwnerID: owner.UserID, Name: "Solar"}
}

func TestService_CreateStage(t *testing.T) {
	ctx := context.Background()
	caller := ownerCaller()
	p := ownedProject(caller)

	t.Run("creates with tasks", func(t *testing.T) {
		svc, repo, projects := newTestService()
		projects.On("RequireOwner", ctx, caller, p.ID).Return(p, nil)
		repo.On("NextPosition", ctx, p.ID).Return(2, nil)
		repo.On("CreateStage", ctx, mock.AnythingOfType("*stage.Stage")).Return(nil)

		stage, err := svc.CreateStage(ctx, caller, p.ID, &CreateStageRequest{
			Name:        " Design ",
			Description: "Drawings",
			Tasks:       json.RawMessage(`"Survey, Permit"`),
		})

		require.NoError(t, err)
		assert.Equal(t, "Design", stage.Name)
		assert.Equal(t, 2, stage.Position)
		assert.Equal(t, p.ID, stage.ProjectID)
		require.Len(t, stage.Tasks, 2)
		for _, task := range stage.Tasks {
			assert.Equal(t, stage.ID, task.StageID)
			assert.Equal(t, caller.UserID, task.OwnerID)
		}
	})

	t.Run("tasks optional", func(t *testing.T) {
		svc, repo, projects := newTestService()
		projects.On("RequireOwner", ctx, caller, p.ID).Return(p, nil)
		repo.On("NextPosition", ctx, p.ID).Return(0, nil)
		repo.On("CreateStage", ctx, mock.AnythingOfType("*stage.Stage")).Return(nil)

		stage, err := svc.CreateStage(ctx, caller, p.ID, &CreateStageRequest{Name: "Build"})

		require.NoError(t, err)
		assert.Empty(t, stage.Tasks)
	})

	t.Run("not owner", func(t *testing.T) {
		svc, repo, projects := newTestService()
		projects.On("RequireOwner", ctx, caller, p.ID).Return(nil, project.ErrNotProjectOwner)

		_, err := svc.CreateStage(ctx, caller, p.ID, &CreateStageRequest{Name: "Build"})

		assert.ErrorIs(t, err, project.ErrNotProjectOwner)
		repo.AssertNotCalled(t, "CreateStage", mock.Anything, mock.Anything)
	})

	t.Run("field bounds", func(t *testing.T) {
		tests := []struct {
			name string
			req  CreateStageRequest
			err  error
		}{
			{"blank name", CreateStageRequest{Name: "   "}, ErrInvalidStageName},
			{"long name", CreateStageRequest{Name: "Construction"}, ErrInvalidStageName},
			{"long description", CreateStageRequest{Name: "Build", Description: "A description well over the limit"}, ErrInvalidDescription},
			{"short task", CreateStageRequest{Name: "Build", Tasks: json.RawMessage(`["ab"]`)}, ErrInvalidTaskName},
			{"bad tasks", CreateStageRequest{Name: "Build", Tasks: json.RawMessage(`7`)}, ErrInvalidTasksFormat},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				svc, _, projects := newTestService()
				projects.On("RequireOwner", ctx, caller, p.ID).Return(p, nil)

				_, err := svc.CreateStage(ctx, caller, p.ID, &tt.req)
				assert.ErrorIs(t, err, tt.err)
			})
		}
	})
}

func TestService_ListStages(t *testing.T) {
	ctx := context.Background()
	caller := authz.Caller{UserID: uuid.New(), Role: authz.RoleInvestor}
	projectID := uuid.New()

	t.Run("with access", func(t *testing.T) {
		svc, repo, projects := newTestService()
		stages := []*Stage{{ID: uuid.New(), Name: "Design"}}
		projects.On("RequireAccess", ctx, caller, projectID).Return(&project.Project{ID: projectID}, project.AccessInvestor, nil)
		repo.On("ListStages", ctx, projectID).Return(stages, nil)

		got, err := svc.ListStages(ctx, caller, projectID)
		require.NoError(t, err)
		assert.Equal(t, stages, got)
	})

	t.Run("without access", func(t *testing.T) {
		svc, repo, projects := newTestService()
		projects.On("RequireAccess", ctx, caller, projectID).Return(nil, project.AccessNone, project.ErrNoProjectAccess)

		_, err := svc.ListStages(ctx, caller, projectID)
		assert.ErrorIs(t, err, project.ErrNoProjectAccess)
		repo.AssertNotCalled(t, "ListStages", mock.Anything, mock.Anything)
	})
}

func TestService_UpdateStage(t *testing.T) {
	ctx := context.Background()
	caller := ownerCaller()
	p := ownedProject(caller)
	stage := &Stage{ID: uuid.New(), ProjectID: p.ID, Name: "Design"}

	t.Run("applies allowed fields", func(t *testing.T) {
		svc, repo, projects := newTestService()
		done := true
		name := "Build"
		repo.On("GetStage", ctx, stage.ID).Return(stage, nil)
		projects.On("RequireOwner", ctx, caller, p.ID).Return(p, nil)
		repo.On("UpdateStage", ctx, stage.ID, map[string]interface{}{"name": "Build", "is_done": true}).Return(nil)

		_, err := svc.UpdateStage(ctx, caller, stage.ID, &UpdateStageRequest{Name: &name, IsDone: &done})
		require.NoError(t, err)
		repo.AssertExpectations(t)
	})

	t.Run("no changes", func(t *testing.T) {
		svc, repo, projects := newTestService()
		repo.On("GetStage", ctx, stage.ID).Return(stage, nil)
		projects.On("RequireOwner", ctx, caller, p.ID).Return(p, nil)

		got, err := svc.UpdateStage(ctx, caller, stage.ID, &UpdateStageRequest{})
		require.NoError(t, err)
		assert.Same(t, stage, got)
		repo.AssertNotCalled(t, "UpdateStage", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("missing stage", func(t *testing.T) {
		svc, repo, _ := newTestService()
		repo.On("GetStage", ctx, mock.Anything).Return(nil, ErrStageNotFound)

		_, err := svc.UpdateStage(ctx, caller, uuid.New(), &UpdateStageRequest{})
		assert.ErrorIs(t, err, ErrStageNotFound)
	})
}

func TestService_DeleteStage(t *testing.T) {
	ctx := context.Background()
	caller := ownerCaller()
	p := ownedProject(caller)
	stage := &Stage{ID: uuid.New(), ProjectID: p.ID}

	t.Run("owner deletes", func(t *testing.T) {
		svc, repo, projects := newTestService()
		repo.On("GetStage", ctx, stage.ID).Return(stage, nil)
		projects.On("RequireOwner", ctx, caller, p.ID).Return(p, nil)
		repo.On("DeleteStage", ctx, stage.ID).Return(nil)

		require.NoError(t, svc.DeleteStage(ctx, caller, stage.ID))
		repo.AssertExpectations(t)
	})

	t.Run("stranger rejected", func(t *testing.T) {
		svc, repo, projects := newTestService()
		stranger := authz.Caller{UserID: uuid.New(), Role: authz.RoleProjectOwner}
		repo.On("GetStage", ctx, stage.ID).Return(stage, nil)
		projects.On("RequireOwner", ctx, stranger, p.ID).Return(nil, project.ErrNotProjectOwner)

		err := svc.DeleteStage(ctx, stranger, stage.ID)
		assert.ErrorIs(t, err, project.ErrNotProjectOwner)
		repo.AssertNotCalled(t, "DeleteStage", mock.Anything, mock.Anything)
	})
}

func TestService_AddTasks(t *testing.T) {
	ctx := context.Background()
	caller := ownerCaller()
	p := ownedProject(caller)
	stage := &Stage{ID: uuid.New(), ProjectID: p.ID}

	t.Run("adds parsed tasks", func(t *testing.T) {
		svc, repo, projects := newTestService()
		repo.On("GetStage", ctx, stage.ID).Return(stage, nil)
		projects.On("RequireOwner", ctx, caller, p.ID).Return(p, nil)
		repo.On("CreateTasks", ctx, mock.AnythingOfType("[]*stage.Task")).Return(nil)

		tasks, err := svc.AddTasks(ctx, caller, stage.ID, json.RawMessage(`[{"task_name":"Survey"},"Permit"]`))

		require.NoError(t, err)
		require.Len(t, tasks, 2)
		assert.Equal(t, "Survey", tasks[0].Name)
		assert.Equal(t, stage.ID, tasks[1].StageID)
	})

	t.Run("requires at least one", func(t *testing.T) {
		svc, repo, projects := newTestService()
		repo.On("GetStage", ctx, stage.ID).Return(stage, nil)
		projects.On("RequireOwner", ctx, caller, p.ID).Return(p, nil)

		_, err := svc.AddTasks(ctx, caller, stage.ID, json.RawMessage(`" , "`))
		assert.ErrorIs(t, err, ErrNoTasks)
	})
}

func TestService_ListTasks(t *testing.T) {
	ctx := context.Background()
	caller := authz.Caller{UserID: uuid.New(), Role: authz.RoleInvestor}
	stage := &Stage{ID: uuid.New(), ProjectID: uuid.New()}

	svc, repo, projects := newTestService()
	tasks := []*Task{{ID: uuid.New(), Name: "Survey"}}
	repo.On("GetStage", ctx, stage.ID).Return(stage, nil)
	projects.On("RequireAccess", ctx, caller, stage.ProjectID).Return(&project.Project{}, project.AccessInvestor, nil)
	repo.On("ListTasks", ctx, stage.ID).Return(tasks, nil)

	got, err := svc.ListTasks(ctx, caller, stage.ID)
	require.NoError(t, err)
	assert.Equal(t, tasks, got)
}

func TestService_UpdateTask(t *testing.T) {
	ctx := context.Background()
	caller := ownerCaller()
	p := ownedProject(caller)
	stage := &Stage{ID: uuid.New(), ProjectID: p.ID}
	task := &Task{ID: uuid.New(), StageID: stage.ID, Name: "Survey"}

	t.Run("marks edited", func(t *testing.T) {
		svc, repo, projects := newTestService()
		done := true
		repo.On("GetTask", ctx, task.ID).Return(task, nil)
		repo.On("GetStage", ctx, stage.ID).Return(stage, nil)
		projects.On("RequireOwner", ctx, caller, p.ID).Return(p, nil)
		repo.On("UpdateTask", ctx, task.ID, map[string]interface{}{"is_done": true, "is_edited": true}).Return(nil)

		_, err := svc.UpdateTask(ctx, caller, task.ID, &UpdateTaskRequest{IsDone: &done})
		require.NoError(t, err)
		repo.AssertExpectations(t)
	})

	t.Run("short name", func(t *testing.T) {
		svc, repo, projects := newTestService()
		name := "x"
		repo.On("GetTask", ctx, task.ID).Return(task, nil)
		repo.On("GetStage", ctx, stage.ID).Return(stage, nil)
		projects.On("RequireOwner", ctx, caller, p.ID).Return(p, nil)

		_, err := svc.UpdateTask(ctx, caller, task.ID, &UpdateTaskRequest{Name: &name})
		assert.ErrorIs(t, err, ErrInvalidTaskName)
	})
}

func TestService_DeleteTask(t *testing.T) {
	ctx := context.Background()
	caller := ownerCaller()
	p := ownedProject(caller)
	stage := &Stage{ID: uuid.New(), ProjectID: p.ID}
	task := &Task{ID: uuid.New(), StageID: stage.ID}

	svc, repo, projects := newTestService()
	repo.On("GetTask", ctx, task.ID).Return(task, nil)
	repo.On("GetStage", ctx, stage.ID).Return(stage, nil)
	projects.On("RequireOwner", ctx, caller, p.ID).Return(p, nil)
	repo.On("DeleteTask", ctx, task.ID).Return(nil)

	require.NoError(t, svc.DeleteTask(ctx, caller, task.ID))
	repo.AssertExpectations(t)
}

func TestService_TaskProject(t *testing.T) {
	ctx := context.Background()
	stage := &Stage{ID: uuid.New(), ProjectID: uuid.New()}
	task := &Task{ID: uuid.New(), StageID: stage.ID}

	svc, repo, _ := newTestService()
	repo.On("GetTask", ctx, task.ID).Return(task, nil)
	repo.On("GetStage", ctx, stage.ID).Return(stage, nil)

	projectID, err := svc.TaskProject(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, stage.ProjectID, projectID)
}
