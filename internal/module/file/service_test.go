package file

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/clusterhub/server/internal/module/project"
	"github.com/clusterhub/server/internal/module/user"
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

func (m *MockRepository) Create(ctx context.Context, file *File) error {
	args := m.Called(ctx, file)
	return args.Error(0)
}

func (m *MockRepository) GetByID(ctx context.Context, id uuid.UUID) (*File, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*File), args.Error(1)
}

func (m *MockRepository) ListByProject(ctx context.Context, projectID uuid.UUID) ([]*File, error) {
	args := m.Called(ctx, projectID)
	return args.Get(0).([]*File), args.Error(1)
}

func (m *MockRepository) SoftDelete(ctx context.Context, id uuid.UUID, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

// MockObjectStore is a mock implementation of ObjectStore.
type MockObjectStore struct {
	mock.Mock
}

func (m *MockObjectStore) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	args := m.Called(ctx, key, body, size, contentType)
	return args.Error(0)
}

func (m *MockObjectStore) PresignGet(ctx context.Context, key, downloadName string, expiry time.Duration) (string, error) {
	args := m.Called(ctx, key, downloadName, expiry)
	return args.String(0), args.Error(1)
}

func (m *MockObjectStore) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
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

func (m *MockProjectAccess) GetProject(ctx context.Context, projectID uuid.UUID) (*project.Project, error) {
	args := m.Called(ctx, projectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*project.Project), args.Error(1)
}

// MockUserDirectory is a mock implementation of UserDirectory.
type MockUserDirectory struct {
	mock.Mock
}

func (m *MockUserDirectory) Get(ctx context.Context, id uuid.UUID) (*user.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}

var fixedNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

type fixture struct {
	svc      *Service
	repo     *MockRepository
	store    *MockObjectStore
	projects *MockProjectAccess
	users    *MockUserDirectory
}

func newFixture() *fixture {
	f := &fixture{
		repo:     new(MockRepository),
		store:    new(MockObjectStore),
		projects: new(MockProjectAccess),
		users:    new(MockUserDirectory),
	}
	f.svc = NewService(f.repo, f.store, f.projects, f.users, Config{MaxFileSize: 1024, PresignExpiry: 5 * time.Minute}, zap.NewNop())
	f.svc.now = func() time.Time { return fixedNow }
	return f
}

func ownerCaller() authz.Caller {
	return authz.Caller{UserID: uuid.New(), Email: "owner@example.com", Role: authz.RoleProjectOwner}
}

func pdfUpload() *Upload {
	return &Upload{Name: "Plan.PDF", Size: 11, ContentType: "application/pdf", Body: strings.NewReader("%PDF-1.7 ok")}
}

func TestService_Upload(t *testing.T) {
	ctx := context.Background()
	caller := ownerCaller()
	p := &project.Project{ID: uuid.New(), OwnerID: caller.UserID}

	t.Run("stores object and metadata", func(t *testing.T) {
		f := newFixture()
		f.projects.On("RequireOwner", ctx, caller, p.ID).Return(p, nil)
		f.users.On("Get", ctx, caller.UserID).Return(&user.User{ID: caller.UserID, Name: "Olive"}, nil)
		f.store.On("Put", ctx, mock.MatchedBy(func(key string) bool {
			return strings.HasPrefix(key, "projects/"+p.ID.String()+"/") && strings.HasSuffix(key, ".pdf")
		}), mock.Anything, int64(11), "application/pdf").Return(nil)
		f.repo.On("Create", ctx, mock.AnythingOfType("*file.File")).Return(nil)

		got, err := f.svc.Upload(ctx, caller, p.ID, pdfUpload())

		require.NoError(t, err)
		assert.Equal(t, "Plan.PDF", got.FileName)
		assert.Equal(t, ".pdf", got.Extension)
		assert.Equal(t, AccessInvestor, got.AccessLevel)
		assert.Equal(t, "Olive", got.UploadedByName)
		assert.Equal(t, "projects/"+p.ID.String()+"/"+got.ID.String()+".pdf", got.StoredName)
	})

	t.Run("strips client path", func(t *testing.T) {
		f := newFixture()
		f.projects.On("RequireOwner", ctx, caller, p.ID).Return(p, nil)
		f.users.On("Get", ctx, caller.UserID).Return(&user.User{ID: caller.UserID}, nil)
		f.store.On("Put", ctx, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
		f.repo.On("Create", ctx, mock.Anything).Return(nil)

		in := pdfUpload()
		in.Name = `C:\docs\..\plan.pdf`
		got, err := f.svc.Upload(ctx, caller, p.ID, in)

		require.NoError(t, err)
		assert.Equal(t, "plan.pdf", got.FileName)
	})

	t.Run("rejections", func(t *testing.T) {
		tests := []struct {
			name   string
			mutate func(*Upload)
			err    error
		}{
			{"empty", func(u *Upload) { u.Size = 0 }, ErrEmptyFile},
			{"too large", func(u *Upload) { u.Size = 2048 }, ErrFileTooLarge},
			{"executable", func(u *Upload) { u.Name = "run.exe"; u.ContentType = "application/x-msdownload" }, ErrFileTypeNotAllowed},
			{"html", func(u *Upload) { u.ContentType = "text/html" }, ErrFileTypeNotAllowed},
			{"blank name", func(u *Upload) { u.Name = "  " }, ErrInvalidFileName},
			{"long extension", func(u *Upload) { u.Name = "plan.pdfbackupcopyfinal2" }, ErrInvalidExtension},
			{"bad level", func(u *Upload) { u.AccessLevel = "everyone" }, ErrInvalidAccessLevel},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				f := newFixture()
				f.projects.On("RequireOwner", ctx, caller, p.ID).Return(p, nil)

				in := pdfUpload()
				tt.mutate(in)
				_, err := f.svc.Upload(ctx, caller, p.ID, in)

				assert.ErrorIs(t, err, tt.err)
				f.store.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
			})
		}
	})

	t.Run("not owner", func(t *testing.T) {
		f := newFixture()
		f.projects.On("RequireOwner", ctx, caller, p.ID).Return(nil, project.ErrNotProjectOwner)

		_, err := f.svc.Upload(ctx, caller, p.ID, pdfUpload())
		assert.ErrorIs(t, err, project.ErrNotProjectOwner)
	})

	t.Run("metadata failure removes object", func(t *testing.T) {
		f := newFixture()
		f.projects.On("RequireOwner", ctx, caller, p.ID).Return(p, nil)
		f.users.On("Get", ctx, caller.UserID).Return(&user.User{ID: caller.UserID}, nil)
		f.store.On("Put", ctx, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
		f.repo.On("Create", ctx, mock.Anything).Return(assert.AnError)
		f.store.On("Delete", ctx, mock.Anything).Return(nil)

		_, err := f.svc.Upload(ctx, caller, p.ID, pdfUpload())
		assert.ErrorIs(t, err, assert.AnError)
		f.store.AssertCalled(t, "Delete", ctx, mock.Anything)
	})
}

func TestService_List(t *testing.T) {
	ctx := context.Background()
	caller := authz.Caller{UserID: uuid.New(), Role: authz.RoleInvestor}
	projectID := uuid.New()

	t.Run("member lists", func(t *testing.T) {
		f := newFixture()
		files := []*File{{ID: uuid.New()}}
		f.projects.On("RequireAccess", ctx, caller, projectID).Return(&project.Project{ID: projectID}, project.AccessInvestor, nil)
		f.repo.On("ListByProject", ctx, projectID).Return(files, nil)

		got, err := f.svc.List(ctx, caller, projectID)
		require.NoError(t, err)
		assert.Equal(t, files, got)
	})

	t.Run("stranger rejected", func(t *testing.T) {
		f := newFixture()
		f.projects.On("RequireAccess", ctx, caller, projectID).Return(nil, project.AccessNone, project.ErrNoProjectAccess)

		_, err := f.svc.List(ctx, caller, projectID)
		assert.ErrorIs(t, err, project.ErrNoProjectAccess)
	})
}

func TestService_Download(t *testing.T) {
	ctx := context.Background()
	investor := authz.Caller{UserID: uuid.New(), Role: authz.RoleInvestor}
	p := &project.Project{ID: uuid.New(), OwnerID: uuid.New(), Investors: []project.Investor{{UserID: investor.UserID}}}

	t.Run("investor gets link", func(t *testing.T) {
		f := newFixture()
		file := &File{ID: uuid.New(), ProjectID: p.ID, FileName: "plan.pdf", StoredName: "projects/x/y.pdf", AccessLevel: AccessInvestor}
		f.repo.On("GetByID", ctx, file.ID).Return(file, nil)
		f.projects.On("GetProject", ctx, p.ID).Return(p, nil)
		f.store.On("PresignGet", ctx, file.StoredName, "plan.pdf", 5*time.Minute).Return("https://s3.example/signed", nil)

		link, err := f.svc.Download(ctx, investor, file.ID)
		require.NoError(t, err)
		assert.Equal(t, "https://s3.example/signed", link.URL)
		assert.Equal(t, fixedNow.Add(5*time.Minute), link.ExpiresAt)
	})

	t.Run("owner-only file hidden from investor", func(t *testing.T) {
		f := newFixture()
		file := &File{ID: uuid.New(), ProjectID: p.ID, AccessLevel: AccessOwner}
		f.repo.On("GetByID", ctx, file.ID).Return(file, nil)
		f.projects.On("GetProject", ctx, p.ID).Return(p, nil)

		_, err := f.svc.Download(ctx, investor, file.ID)
		assert.ErrorIs(t, err, ErrFileAccessDenied)
		f.store.AssertNotCalled(t, "PresignGet", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("deleted file", func(t *testing.T) {
		f := newFixture()
		f.repo.On("GetByID", ctx, mock.Anything).Return(nil, ErrFileNotFound)

		_, err := f.svc.Download(ctx, investor, uuid.New())
		assert.ErrorIs(t, err, ErrFileNotFound)
	})
}

func TestService_Delete(t *testing.T) {
	ctx := context.Background()
	caller := ownerCaller()
	p := &project.Project{ID: uuid.New(), OwnerID: caller.UserID}
	file := &File{ID: uuid.New(), ProjectID: p.ID, StoredName: "projects/a/b.pdf"}

	t.Run("soft deletes and removes object", func(t *testing.T) {
		f := newFixture()
		f.repo.On("GetByID", ctx, file.ID).Return(file, nil)
		f.projects.On("RequireOwner", ctx, caller, p.ID).Return(p, nil)
		f.repo.On("SoftDelete", ctx, file.ID, fixedNow).Return(nil)
		f.store.On("Delete", ctx, file.StoredName).Return(nil)

		require.NoError(t, f.svc.Delete(ctx, caller, file.ID))
		f.store.AssertExpectations(t)
	})

	t.Run("object removal failure tolerated", func(t *testing.T) {
		f := newFixture()
		f.repo.On("GetByID", ctx, file.ID).Return(file, nil)
		f.projects.On("RequireOwner", ctx, caller, p.ID).Return(p, nil)
		f.repo.On("SoftDelete", ctx, file.ID, fixedNow).Return(nil)
		f.store.On("Delete", ctx, file.StoredName).Return(assert.AnError)

		assert.NoError(t, f.svc.Delete(ctx, caller, file.ID))
	})

	t.Run("not owner", func(t *testing.T) {
		f := newFixture()
		f.repo.On("GetByID", ctx, file.ID).Return(file, nil)
		f.projects.On("RequireOwner", ctx, caller, p.ID).Return(nil, project.ErrNotProjectOwner)

		err := f.svc.Delete(ctx, caller, file.ID)
		assert.ErrorIs(t, err, project.ErrNotProjectOwner)
		f.repo.AssertNotCalled(t, "SoftDelete", mock.Anything, mock.Anything, mock.Anything)
	})
}
