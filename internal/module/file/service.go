package file

import (
	"context"
	"mime"
	"path"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/clusterhub/server/internal/module/project"
	"github.com/clusterhub/server/internal/module/user"
	"github.com/clusterhub/server/internal/shared/authz"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	maxFileNameLength = 255
	// MaxExtensionLength bounds the stored extension, leading dot included.
	MaxExtensionLength = 16
)

// ProjectAccess checks a caller's rights on a project.
type ProjectAccess interface {
	RequireAccess(ctx context.Context, caller authz.Caller, projectID uuid.UUID) (*project.Project, project.AccessLevel, error)
	RequireOwner(ctx context.Context, caller authz.Caller, projectID uuid.UUID) (*project.Project, error)
	GetProject(ctx context.Context, projectID uuid.UUID) (*project.Project, error)
}

// UserDirectory resolves uploaders.
type UserDirectory interface {
	Get(ctx context.Context, id uuid.UUID) (*user.User, error)
}

// Config holds file service settings.
type Config struct {
	MaxFileSize   int64
	PresignExpiry time.Duration
}

// Service provides project file operations.
type Service struct {
	repo     Repository
	store    ObjectStore
	projects ProjectAccess
	users    UserDirectory
	config   Config
	logger   *zap.Logger
	now      func() time.Time
}

// NewService creates a new file service.
func NewService(repo Repository, store ObjectStore, projects ProjectAccess, users UserDirectory, cfg Config, logger *zap.Logger) *Service {
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = DefaultMaxFileSize
	}
	if cfg.PresignExpiry <= 0 {
		cfg.PresignExpiry = 15 * time.Minute
	}
	return &Service{
		repo:     repo,
		store:    store,
		projects: projects,
		users:    users,
		config:   cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// MaxFileSize returns the upload size limit in bytes.
func (s *Service) MaxFileSize() int64 {
	return s.config.MaxFileSize
}

// Upload stores a file for a project the caller owns.
func (s *Service) Upload(ctx context.Context, caller authz.Caller, projectID uuid.UUID, in *Upload) (*File, error) {
	if _, err := s.projects.RequireOwner(ctx, caller, projectID); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(path.Base(strings.ReplaceAll(in.Name, "\\", "/")))
	if name == "" || name == "." || name == "/" || utf8.RuneCountInString(name) > maxFileNameLength {
		return nil, ErrInvalidFileName
	}
	if in.Size <= 0 {
		return nil, ErrEmptyFile
	}
	if in.Size > s.config.MaxFileSize {
		return nil, ErrFileTooLarge
	}

	ext := strings.ToLower(path.Ext(name))
	if utf8.RuneCountInString(ext) > MaxExtensionLength {
		return nil, ErrInvalidExtension
	}
	mimeType := mediaType(in.ContentType, ext)
	if !AllowedMIMEType(mimeType) {
		return nil, ErrFileTypeNotAllowed
	}

	level := AccessInvestor
	if in.AccessLevel != "" {
		level = AccessLevel(in.AccessLevel)
		if !level.Valid() {
			return nil, ErrInvalidAccessLevel
		}
	}

	uploader, err := s.users.Get(ctx, caller.UserID)
	if err != nil {
		return nil, err
	}

	id := uuid.New()
	f := &File{
		ID:             id,
		ProjectID:      projectID,
		FileName:       name,
		StoredName:     "projects/" + projectID.String() + "/" + id.String() + ext,
		MimeType:       mimeType,
		Size:           in.Size,
		Extension:      ext,
		UploadedBy:     caller.UserID,
		UploadedByName: uploader.DisplayName(),
		AccessLevel:    level,
	}

	if err := s.store.Put(ctx, f.StoredName, in.Body, in.Size, mimeType); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, f); err != nil {
		if delErr := s.store.Delete(ctx, f.StoredName); delErr != nil {
			s.logger.Warn("failed to remove orphaned object",
				zap.String("key", f.StoredName),
				zap.Error(delErr),
			)
		}
		return nil, err
	}

	s.logger.Info("file uploaded",
		zap.String("file_id", f.ID.String()),
		zap.String("project_id", projectID.String()),
		zap.Int64("size", f.Size),
	)
	return f, nil
}

// List returns a project's live files.
func (s *Service) List(ctx context.Context, caller authz.Caller, projectID uuid.UUID) ([]*File, error) {
	if _, _, err := s.projects.RequireAccess(ctx, caller, projectID); err != nil {
		return nil, err
	}
	return s.repo.ListByProject(ctx, projectID)
}

// Download returns a presigned URL if the caller may read the file.
func (s *Service) Download(ctx context.Context, caller authz.Caller, fileID uuid.UUID) (*DownloadLink, error) {
	f, err := s.repo.GetByID(ctx, fileID)
	if err != nil {
		return nil, err
	}

	p, err := s.projects.GetProject(ctx, f.ProjectID)
	if err != nil {
		return nil, err
	}
	if !f.CanRead(caller, p.AccessLevelFor(caller)) {
		return nil, ErrFileAccessDenied
	}

	url, err := s.store.PresignGet(ctx, f.StoredName, f.FileName, s.config.PresignExpiry)
	if err != nil {
		return nil, err
	}
	return &DownloadLink{
		File:      f,
		URL:       url,
		ExpiresAt: s.now().Add(s.config.PresignExpiry),
	}, nil
}

// Delete soft-deletes a file and removes its object.
func (s *Service) Delete(ctx context.Context, caller authz.Caller, fileID uuid.UUID) error {
	f, err := s.repo.GetByID(ctx, fileID)
	if err != nil {
		return err
	}
	if _, err := s.projects.RequireOwner(ctx, caller, f.ProjectID); err != nil {
		return err
	}

	if err := s.repo.SoftDelete(ctx, fileID, s.now()); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, f.StoredName); err != nil {
		s.logger.Warn("failed to delete object",
			zap.String("file_id", fileID.String()),
			zap.String("key", f.StoredName),
			zap.Error(err),
		)
	}

	s.logger.Info("file deleted",
		zap.String("file_id", fileID.String()),
		zap.String("deleted_by", caller.UserID.String()),
	)
	return nil
}

// mediaType strips parameters from the declared content type and falls back
// to the extension when the client sent none.
func mediaType(declared, ext string) string {
	if declared == "" || declared == "application/octet-stream" {
		declared = mime.TypeByExtension(ext)
	}
	mt, _, err := mime.ParseMediaType(declared)
	if err != nil {
		return ""
	}
	return strings.ToLower(mt)
}
