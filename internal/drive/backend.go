package drive

import (
	"context"
	"io"
)

// Backend is the subset of Drive operations the façade relies on.
type Backend interface {
	// CreateFile creates a file or folder. content is nil for folders.
	CreateFile(ctx context.Context, meta File, content io.Reader) (*File, error)
	GetFile(ctx context.Context, id string) (*File, error)
	// Export converts a Google-native document to mimeType.
	Export(ctx context.Context, id, mimeType string) ([]byte, error)
	// Download returns the raw bytes of a binary file.
	Download(ctx context.Context, id string) ([]byte, error)
	ListFiles(ctx context.Context, query string, pageSize int) ([]File, error)
	DeleteFile(ctx context.Context, id string) error
	CreatePermission(ctx context.Context, id string, p Permission, notify bool) (*Permission, error)
}

// Connector opens an authenticated Backend. It may run an interactive
// consent flow, so callers should expect it to block.
type Connector interface {
	Connect(ctx context.Context) (Backend, error)
}

// validator is implemented by backends whose session can go stale.
type validator interface {
	Valid() bool
}
