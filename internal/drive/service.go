package drive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"sync"

	"github.com/nextlevelbuilder/mcpgate/internal/tracing"
)

// Service is the storage façade. It owns one lazily-established session and
// is safe for concurrent use; the session is created at most once at a time.
type Service struct {
	connector Connector
	connMu    sync.Mutex

	mu      sync.Mutex
	backend Backend
}

// NewService returns a façade that connects through c on first use.
func NewService(c Connector) *Service {
	return &Service{connector: c}
}

// NewServiceWithBackend returns a façade bound to an existing session.
func NewServiceWithBackend(b Backend) *Service {
	return &Service{backend: b}
}

// Authenticate establishes the session now, running the consent flow if
// needed. It is a no-op when a usable session already exists.
func (s *Service) Authenticate(ctx context.Context) error {
	_, err := s.ensure(ctx)
	return err
}

// Status reports session state without connecting.
func (s *Service) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	ok := s.backend != nil
	return Status{Authenticated: ok, ServiceAvailable: ok}
}

// Reset drops the session; the next operation reconnects.
func (s *Service) Reset() {
	s.mu.Lock()
	s.backend = nil
	s.mu.Unlock()
}

func (s *Service) current() Backend {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.backend == nil {
		return nil
	}
	if v, ok := s.backend.(validator); ok && !v.Valid() {
		slog.Info("drive: session no longer valid, reconnecting")
		s.backend = nil
	}
	return s.backend
}

func (s *Service) ensure(ctx context.Context) (Backend, error) {
	if b := s.current(); b != nil {
		return b, nil
	}

	// connMu serialises connection attempts without blocking Status.
	s.connMu.Lock()
	defer s.connMu.Unlock()
	if b := s.current(); b != nil {
		return b, nil
	}
	if s.connector == nil {
		return nil, &StorageError{Op: "authenticate", Err: errors.New("no connector configured")}
	}

	b, err := s.connector.Connect(ctx)
	if err != nil {
		return nil, wrap("authenticate", err)
	}
	s.mu.Lock()
	s.backend = b
	s.mu.Unlock()
	slog.Info("drive: authenticated")
	return b, nil
}

// CreateFolder creates a folder, under parentID when it is non-empty.
func (s *Service) CreateFolder(ctx context.Context, name, parentID string) (*File, error) {
	ctx, span := tracing.Start(ctx, "drive.create_folder")
	b, err := s.ensure(ctx)
	if err != nil {
		tracing.End(span, err)
		return nil, err
	}

	meta := File{Name: name, MimeType: FolderMimeType}
	if parentID != "" {
		meta.Parents = []string{parentID}
	}
	f, err := b.CreateFile(ctx, meta, nil)
	err = wrap("create folder", err)
	tracing.End(span, err)
	if err != nil {
		return nil, err
	}
	slog.Info("drive: folder created", "name", name, "id", f.ID)
	return f, nil
}

// UploadFile uploads a local file, keeping its base name.
func (s *Service) UploadFile(ctx context.Context, path, folderID string) (*File, error) {
	fh, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &StorageError{Op: "upload file", Err: fmt.Errorf("File not found: %s", path)}
		}
		return nil, wrap("upload file", err)
	}
	defer fh.Close()

	mimeType := mime.TypeByExtension(filepath.Ext(path))
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	return s.upload(ctx, "upload file", filepath.Base(path), folderID, mimeType, fh)
}

// UploadContent uploads in-memory bytes as a new file.
func (s *Service) UploadContent(ctx context.Context, content []byte, name, folderID, mimeType string) (*File, error) {
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	return s.upload(ctx, "upload content", name, folderID, mimeType, bytes.NewReader(content))
}

func (s *Service) upload(ctx context.Context, op, name, folderID, mimeType string, r io.Reader) (*File, error) {
	ctx, span := tracing.Start(ctx, "drive.upload")
	b, err := s.ensure(ctx)
	if err != nil {
		tracing.End(span, err)
		return nil, err
	}

	meta := File{Name: name, MimeType: mimeType}
	if folderID != "" {
		meta.Parents = []string{folderID}
	}
	f, err := b.CreateFile(ctx, meta, r)
	err = wrap(op, err)
	tracing.End(span, err)
	if err != nil {
		return nil, err
	}
	slog.Info("drive: file uploaded", "name", name, "id", f.ID)
	return f, nil
}

// DownloadFile returns the file's bytes. Google-native documents are exported:
// documents and presentations as PDF, spreadsheets as xlsx.
func (s *Service) DownloadFile(ctx context.Context, fileID string) ([]byte, error) {
	ctx, span := tracing.Start(ctx, "drive.download")
	data, err := s.download(ctx, fileID)
	tracing.End(span, err)
	return data, err
}

func (s *Service) download(ctx context.Context, fileID string) ([]byte, error) {
	b, err := s.ensure(ctx)
	if err != nil {
		return nil, err
	}
	meta, err := b.GetFile(ctx, fileID)
	if err != nil {
		return nil, wrap("download file", err)
	}
	if target, ok := exportFormats[meta.MimeType]; ok {
		data, err := b.Export(ctx, fileID, target)
		return data, wrap("export file", err)
	}
	data, err := b.Download(ctx, fileID)
	return data, wrap("download file", err)
}

// ListFiles lists non-trashed files, restricted to folderID when given.
// extraQuery is AND-ed onto the generated filter.
func (s *Service) ListFiles(ctx context.Context, folderID, extraQuery string) ([]File, error) {
	return s.list(ctx, "list files", buildListQuery(folderID, extraQuery))
}

// SearchFiles finds non-trashed files whose name contains term.
func (s *Service) SearchFiles(ctx context.Context, term string) ([]File, error) {
	return s.list(ctx, "search files", buildSearchQuery(term))
}

func (s *Service) list(ctx context.Context, op, q string) ([]File, error) {
	ctx, span := tracing.Start(ctx, "drive.list")
	b, err := s.ensure(ctx)
	if err != nil {
		tracing.End(span, err)
		return nil, err
	}
	files, err := b.ListFiles(ctx, q, DefaultPageSize)
	err = wrap(op, err)
	tracing.End(span, err)
	if err != nil {
		return nil, err
	}
	if files == nil {
		files = []File{}
	}
	return files, nil
}

// DeleteFile permanently deletes a file or folder.
func (s *Service) DeleteFile(ctx context.Context, fileID string) error {
	ctx, span := tracing.Start(ctx, "drive.delete")
	b, err := s.ensure(ctx)
	if err != nil {
		tracing.End(span, err)
		return err
	}
	err = wrap("delete file", b.DeleteFile(ctx, fileID))
	tracing.End(span, err)
	if err == nil {
		slog.Info("drive: file deleted", "id", fileID)
	}
	return err
}

// ShareFile grants role to email. An empty role means reader.
func (s *Service) ShareFile(ctx context.Context, fileID, email, role string, notify bool) (*Permission, error) {
	if role == "" {
		role = "reader"
	}
	b, err := s.ensure(ctx)
	if err != nil {
		return nil, err
	}
	p, err := b.CreatePermission(ctx, fileID, Permission{Type: "user", Role: role, EmailAddress: email}, notify)
	if err != nil {
		return nil, wrap("share file", err)
	}
	slog.Info("drive: file shared", "id", fileID, "role", role)
	return p, nil
}

// CreateSharedLink makes the file readable by anyone with the link and
// returns its web view link.
func (s *Service) CreateSharedLink(ctx context.Context, fileID, role string) (string, error) {
	if role == "" {
		role = "reader"
	}
	b, err := s.ensure(ctx)
	if err != nil {
		return "", err
	}
	if _, err := b.CreatePermission(ctx, fileID, Permission{Type: "anyone", Role: role}, false); err != nil {
		return "", wrap("create shared link", err)
	}
	f, err := b.GetFile(ctx, fileID)
	if err != nil {
		return "", wrap("create shared link", err)
	}
	return f.WebViewLink, nil
}
