package file

import (
	"slices"
	"time"

	"github.com/clusterhub/server/internal/module/project"
	"github.com/clusterhub/server/internal/shared/authz"
	"github.com/google/uuid"
)

// DefaultMaxFileSize caps uploads when storage.max_file_size is unset.
const DefaultMaxFileSize = 10 * 1024 * 1024

// AccessLevel controls who may download a file.
type AccessLevel string

// Access levels.
const (
	AccessOwner    AccessLevel = "owner"
	AccessInvestor AccessLevel = "investor"
	AccessPublic   AccessLevel = "public"
)

// Valid reports whether the level is known.
func (l AccessLevel) Valid() bool {
	switch l {
	case AccessOwner, AccessInvestor, AccessPublic:
		return true
	}
	return false
}

var allowedMIMETypes = []string{
	// Documents
	"application/pdf",
	"application/msword",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"application/vnd.ms-excel",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"application/vnd.ms-powerpoint",
	"application/vnd.openxmlformats-officedocument.presentationml.presentation",
	// Images
	"image/jpeg",
	"image/png",
	"image/gif",
	// Archives
	"application/zip",
	"application/x-rar-compressed",
	"application/x-tar",
	"application/gzip",
	// Text
	"text/plain",
	"text/csv",
	"text/markdown",
}

// AllowedMIMEType reports whether uploads of the media type are accepted.
func AllowedMIMEType(mimeType string) bool {
	return slices.Contains(allowedMIMETypes, mimeType)
}

// File is the metadata of an object stored for a project.
type File struct {
	ID             uuid.UUID   `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ProjectID      uuid.UUID   `json:"project_id" gorm:"type:uuid;not null;index"`
	FileName       string      `json:"file_name" gorm:"not null"`
	StoredName     string      `json:"-" gorm:"not null;uniqueIndex"`
	MimeType       string      `json:"mime_type" gorm:"not null"`
	Size           int64       `json:"size"`
	Extension      string      `json:"extension"`
	UploadedBy     uuid.UUID   `json:"uploaded_by" gorm:"type:uuid;not null"`
	UploadedByName string      `json:"uploaded_by_name"`
	AccessLevel    AccessLevel `json:"access_level" gorm:"type:varchar(16);not null"`
	IsDeleted      bool        `json:"-"`
	DeletedAt      *time.Time  `json:"-"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

// TableName returns the database table name.
func (File) TableName() string {
	return "project_files"
}

// CanRead decides download access given the caller's level on the owning project.
func (f *File) CanRead(caller authz.Caller, level project.AccessLevel) bool {
	switch {
	case caller.IsSuperAdmin(), f.UploadedBy == caller.UserID:
		return true
	case f.AccessLevel == AccessPublic:
		return true
	case f.AccessLevel == AccessOwner:
		return level == project.AccessOwner
	default:
		return level != project.AccessNone
	}
}
