package drive

import (
	"context"
	"errors"
	"io"
	"strconv"
	"strings"
	"sync"
)

// fakeBackend is an in-memory Drive used by the façade tests.
type fakeBackend struct {
	mu      sync.Mutex
	seq     int
	files   map[string]*File
	content map[string][]byte
	perms   map[string][]Permission
	queries []string
	exports []string
	failOn  string
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		files:   map[string]*File{},
		content: map[string][]byte{},
		perms:   map[string][]Permission{},
	}
}

var errBoom = errors.New("boom")

func (f *fakeBackend) fail(op string) error {
	if f.failOn == op {
		return errBoom
	}
	return nil
}

func (f *fakeBackend) CreateFile(_ context.Context, meta File, content io.Reader) (*File, error) {
	if err := f.fail("create"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	meta.ID = "id" + strconv.Itoa(f.seq)
	meta.WebViewLink = "https://drive.example/" + meta.ID
	if content != nil {
		data, err := io.ReadAll(content)
		if err != nil {
			return nil, err
		}
		f.content[meta.ID] = data
		meta.Size = int64(len(data))
	}
	cp := meta
	f.files[meta.ID] = &cp
	return &meta, nil
}

func (f *fakeBackend) GetFile(_ context.Context, id string) (*File, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if file, ok := f.files[id]; ok {
		cp := *file
		return &cp, nil
	}
	return nil, errors.New("googleapi: Error 404: File not found: " + id)
}

func (f *fakeBackend) Export(_ context.Context, id, mimeType string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.exports = append(f.exports, mimeType)
	return []byte("exported:" + mimeType), nil
}

func (f *fakeBackend) Download(_ context.Context, id string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.content[id], nil
}

// ListFiles understands the two query shapes the façade generates plus an
// optional folder mime filter.
func (f *fakeBackend) ListFiles(_ context.Context, query string, pageSize int) ([]File, error) {
	if err := f.fail("list"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, query)

	var parent, nameLike string
	if strings.HasPrefix(query, "'") {
		end := strings.Index(query, "' in parents")
		parent = query[1:end]
	}
	if strings.HasPrefix(query, "name contains '") {
		rest := strings.TrimPrefix(query, "name contains '")
		nameLike = rest[:strings.Index(rest, "' and")]
	}
	foldersOnly := strings.Contains(query, "mimeType='"+FolderMimeType+"'")

	var out []File
	for _, file := range f.files {
		if parent != "" && (len(file.Parents) == 0 || file.Parents[0] != parent) {
			continue
		}
		if nameLike != "" && !strings.Contains(file.Name, nameLike) {
			continue
		}
		if foldersOnly && !file.IsFolder() {
			continue
		}
		out = append(out, *file)
		if len(out) == pageSize {
			break
		}
	}
	return out, nil
}

func (f *fakeBackend) DeleteFile(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.files[id]; !ok {
		return errors.New("googleapi: Error 404: File not found: " + id)
	}
	delete(f.files, id)
	return nil
}

func (f *fakeBackend) CreatePermission(_ context.Context, id string, p Permission, _ bool) (*Permission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p.ID = "perm-" + id
	f.perms[id] = append(f.perms[id], p)
	return &p, nil
}

func (f *fakeBackend) byName(name string) *File {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, file := range f.files {
		if file.Name == name {
			cp := *file
			return &cp
		}
	}
	return nil
}

type countingConnector struct {
	mu      sync.Mutex
	calls   int
	backend Backend
	err     error
}

func (c *countingConnector) Connect(context.Context) (Backend, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return c.backend, nil
}
