package drive

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

func TestQueries(t *testing.T) {
	tests := []struct {
		name, got, want string
	}{
		{"root", buildListQuery("", ""), "trashed=false"},
		{"folder", buildListQuery("abc", ""), "'abc' in parents"},
		{"folder+extra", buildListQuery("abc", "mimeType='x'"), "'abc' in parents and mimeType='x'"},
		{"root+extra", buildListQuery("", "starred=true"), "trashed=false and starred=true"},
		{"search", buildSearchQuery("report"), "name contains 'report' and trashed=false"},
		{"search quote", buildSearchQuery("bob's"), `name contains 'bob\'s' and trashed=false`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}

func TestStatusDoesNotConnect(t *testing.T) {
	conn := &countingConnector{backend: newFakeBackend()}
	s := NewService(conn)

	if st := s.Status(); st.Authenticated || st.ServiceAvailable {
		t.Fatalf("fresh status = %+v", st)
	}
	if conn.calls != 0 {
		t.Fatalf("Status connected %d times", conn.calls)
	}

	if err := s.Authenticate(context.Background()); err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if st := s.Status(); !st.Authenticated || !st.ServiceAvailable {
		t.Errorf("after auth status = %+v", st)
	}
}

func TestLazyConnectOnce(t *testing.T) {
	conn := &countingConnector{backend: newFakeBackend()}
	s := NewService(conn)
	ctx := context.Background()

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.ListFiles(ctx, "", ""); err != nil {
				t.Errorf("ListFiles: %v", err)
			}
		}()
	}
	wg.Wait()
	if conn.calls != 1 {
		t.Errorf("connect calls = %d, want 1", conn.calls)
	}
}

func TestConnectFailureIsStorageError(t *testing.T) {
	s := NewService(&countingConnector{err: errors.New("Credentials file not found: x.json")})
	_, err := s.ListFiles(context.Background(), "", "")
	var se *StorageError
	if !errors.As(err, &se) {
		t.Fatalf("err = %T %v, want *StorageError", err, err)
	}
	if !strings.Contains(err.Error(), "Credentials file not found") {
		t.Errorf("err = %v", err)
	}
	if s.Status().Authenticated {
		t.Error("failed connect should leave service unauthenticated")
	}
}

type staleBackend struct {
	*fakeBackend
	valid bool
}

func (s *staleBackend) Valid() bool { return s.valid }

func TestInvalidSessionReconnects(t *testing.T) {
	fresh := newFakeBackend()
	conn := &countingConnector{backend: fresh}
	s := NewService(conn)
	s.backend = &staleBackend{fakeBackend: newFakeBackend(), valid: false}

	if _, err := s.CreateFolder(context.Background(), "x", ""); err != nil {
		t.Fatalf("CreateFolder: %v", err)
	}
	if conn.calls != 1 {
		t.Errorf("connect calls = %d, want 1", conn.calls)
	}
	if fresh.byName("x") == nil {
		t.Error("folder not created on the fresh backend")
	}
}

func TestFolderAndUpload(t *testing.T) {
	fb := newFakeBackend()
	s := NewServiceWithBackend(fb)
	ctx := context.Background()

	folder, err := s.CreateFolder(ctx, "Reports", "")
	if err != nil {
		t.Fatalf("CreateFolder: %v", err)
	}
	if !folder.IsFolder() || folder.Kind() != "folder" {
		t.Errorf("folder = %+v", folder)
	}

	f, err := s.UploadContent(ctx, []byte("hello"), "a.txt", folder.ID, "")
	if err != nil {
		t.Fatalf("UploadContent: %v", err)
	}
	if f.MimeType != "application/octet-stream" {
		t.Errorf("default mime = %q", f.MimeType)
	}
	if len(f.Parents) != 1 || f.Parents[0] != folder.ID {
		t.Errorf("parents = %v", f.Parents)
	}

	path := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(path, []byte("n"), 0o600); err != nil {
		t.Fatal(err)
	}
	up, err := s.UploadFile(ctx, path, "")
	if err != nil {
		t.Fatalf("UploadFile: %v", err)
	}
	if up.Name != "notes.txt" || !strings.HasPrefix(up.MimeType, "text/plain") {
		t.Errorf("uploaded = %+v", up)
	}

	children, err := s.ListFiles(ctx, folder.ID, "")
	if err != nil || len(children) != 1 || children[0].Name != "a.txt" {
		t.Errorf("ListFiles = %v, %v", children, err)
	}
}

func TestUploadMissingFile(t *testing.T) {
	s := NewServiceWithBackend(newFakeBackend())
	_, err := s.UploadFile(context.Background(), "/nonexistent/x.bin", "")
	if err == nil || !strings.Contains(err.Error(), "File not found: /nonexistent/x.bin") {
		t.Errorf("err = %v", err)
	}
}

func TestDownloadExports(t *testing.T) {
	fb := newFakeBackend()
	s := NewServiceWithBackend(fb)
	ctx := context.Background()

	tests := []struct {
		mime, want string
	}{
		{"application/vnd.google-apps.document", "application/pdf"},
		{"application/vnd.google-apps.spreadsheet", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"},
		{"application/vnd.google-apps.presentation", "application/pdf"},
	}
	for _, tt := range tests {
		t.Run(tt.mime, func(t *testing.T) {
			f, _ := fb.CreateFile(ctx, File{Name: "doc", MimeType: tt.mime}, nil)
			data, err := s.DownloadFile(ctx, f.ID)
			if err != nil {
				t.Fatalf("DownloadFile: %v", err)
			}
			if string(data) != "exported:"+tt.want {
				t.Errorf("data = %q", data)
			}
		})
	}

	t.Run("binary", func(t *testing.T) {
		f, _ := s.UploadContent(ctx, []byte{1, 2, 3}, "b.bin", "", "")
		data, err := s.DownloadFile(ctx, f.ID)
		if err != nil || len(data) != 3 {
			t.Errorf("DownloadFile = %v, %v", data, err)
		}
	})

	t.Run("missing", func(t *testing.T) {
		_, err := s.DownloadFile(ctx, "nope")
		var se *StorageError
		if !errors.As(err, &se) {
			t.Errorf("err = %v", err)
		}
	})
}

func TestSearchDeleteShare(t *testing.T) {
	fb := newFakeBackend()
	s := NewServiceWithBackend(fb)
	ctx := context.Background()

	a, _ := s.UploadContent(ctx, []byte("x"), "q3 report.pdf", "", "application/pdf")
	s.UploadContent(ctx, []byte("y"), "invoice.pdf", "", "application/pdf")

	found, err := s.SearchFiles(ctx, "report")
	if err != nil || len(found) != 1 || found[0].ID != a.ID {
		t.Fatalf("SearchFiles = %v, %v", found, err)
	}

	link, err := s.CreateSharedLink(ctx, a.ID, "")
	if err != nil || link != "https://drive.example/"+a.ID {
		t.Errorf("CreateSharedLink = %q, %v", link, err)
	}
	if p := fb.perms[a.ID]; len(p) != 1 || p[0].Type != "anyone" || p[0].Role != "reader" {
		t.Errorf("link perms = %+v", p)
	}

	p, err := s.ShareFile(ctx, a.ID, "bob@example.com", "writer", true)
	if err != nil || p.Type != "user" || p.EmailAddress != "bob@example.com" {
		t.Errorf("ShareFile = %+v, %v", p, err)
	}

	if err := s.DeleteFile(ctx, a.ID); err != nil {
		t.Fatalf("DeleteFile: %v", err)
	}
	if err := s.DeleteFile(ctx, a.ID); err == nil {
		t.Error("second delete should fail")
	}
}

func TestListEmptyIsNotNil(t *testing.T) {
	s := NewServiceWithBackend(newFakeBackend())
	files, err := s.ListFiles(context.Background(), "", "")
	if err != nil || files == nil || len(files) != 0 {
		t.Errorf("ListFiles = %#v, %v", files, err)
	}
}

func TestBackendErrorWrapped(t *testing.T) {
	fb := newFakeBackend()
	fb.failOn = "list"
	s := NewServiceWithBackend(fb)
	_, err := s.SearchFiles(context.Background(), "x")
	if !errors.Is(err, errBoom) {
		t.Fatalf("err = %v", err)
	}
	if !strings.HasPrefix(err.Error(), "search files: ") {
		t.Errorf("err = %q", err.Error())
	}
}
