package file

import (
	"io"
	"time"
)

// Upload describes an incoming file.
type Upload struct {
	Name        string
	Size        int64
	ContentType string
	AccessLevel string
	Body        io.Reader
}

// DownloadLink is a presigned URL for a file.
type DownloadLink struct {
	File      *File     `json:"file"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}
