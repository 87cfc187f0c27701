package dispatch

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/nextlevelbuilder/mcpgate/internal/drive"
	"github.com/nextlevelbuilder/mcpgate/internal/providers"
)

// fakeStorage records calls and serves canned results.
type fakeStorage struct {
	mu       sync.Mutex
	calls    []string
	files    []drive.File
	content  map[string][]byte
	uploaded map[string][]byte
	deleted  []string
	status   drive.Status
	err      error
	panicOn  string
}

func newFakeStorage(files ...drive.File) *fakeStorage {
	return &fakeStorage{files: files, content: map[string][]byte{}, uploaded: map[string][]byte{}}
}

func (f *fakeStorage) record(op string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, op)
	if op == f.panicOn {
		panic("kaboom")
	}
	return f.err
}

func (f *fakeStorage) called(op string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.calls {
		if c == op {
			return true
		}
	}
	return false
}

func (f *fakeStorage) Authenticate(context.Context) error {
	if err := f.record("authenticate"); err != nil {
		return err
	}
	f.status = drive.Status{Authenticated: true, ServiceAvailable: true}
	return nil
}

func (f *fakeStorage) Status() drive.Status { return f.status }

func (f *fakeStorage) CreateFolder(_ context.Context, name, parentID string) (*drive.File, error) {
	if err := f.record("create_folder"); err != nil {
		return nil, err
	}
	return &drive.File{ID: "fold-" + name, Name: name, MimeType: drive.FolderMimeType, Parents: []string{parentID}}, nil
}

func (f *fakeStorage) UploadFile(_ context.Context, path, folderID string) (*drive.File, error) {
	if err := f.record("upload_file"); err != nil {
		return nil, err
	}
	return &drive.File{ID: "up-1", Name: path}, nil
}

func (f *fakeStorage) UploadContent(_ context.Context, content []byte, name, folderID, mimeType string) (*drive.File, error) {
	if err := f.record("upload_content"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.uploaded[name] = content
	f.mu.Unlock()
	return &drive.File{ID: "up-" + name, Name: name, Size: int64(len(content)), Parents: []string{folderID}}, nil
}

func (f *fakeStorage) DownloadFile(_ context.Context, id string) ([]byte, error) {
	if err := f.record("download"); err != nil {
		return nil, err
	}
	data, ok := f.content[id]
	if !ok {
		return nil, &drive.StorageError{Op: "download file", Err: errors.New("File not found: " + id)}
	}
	return data, nil
}

func (f *fakeStorage) ListFiles(_ context.Context, folderID, _ string) ([]drive.File, error) {
	if err := f.record("list"); err != nil {
		return nil, err
	}
	var out []drive.File
	for _, file := range f.files {
		if folderID == "" || (len(file.Parents) > 0 && file.Parents[0] == folderID) {
			out = append(out, file)
		}
	}
	return out, nil
}

func (f *fakeStorage) SearchFiles(_ context.Context, term string) ([]drive.File, error) {
	if err := f.record("search"); err != nil {
		return nil, err
	}
	var out []drive.File
	for _, file := range f.files {
		if strings.Contains(file.Name, term) {
			out = append(out, file)
		}
	}
	return out, nil
}

func (f *fakeStorage) DeleteFile(_ context.Context, id string) error {
	if err := f.record("delete"); err != nil {
		return err
	}
	f.mu.Lock()
	f.deleted = append(f.deleted, id)
	f.mu.Unlock()
	return nil
}

func (f *fakeStorage) ShareFile(_ context.Context, id, email, role string, notify bool) (*drive.Permission, error) {
	if err := f.record("share"); err != nil {
		return nil, err
	}
	return &drive.Permission{ID: "p1", Type: "user", Role: role, EmailAddress: email}, nil
}

func (f *fakeStorage) CreateSharedLink(_ context.Context, id, role string) (string, error) {
	if err := f.record("link"); err != nil {
		return "", err
	}
	return "https://drive.example/" + id, nil
}

func (f *fakeStorage) CreateCustomerFolder(_ context.Context, name, email string) (*drive.CustomerFolder, error) {
	if err := f.record("customer_folder"); err != nil {
		return nil, err
	}
	subs := map[string]drive.File{}
	for _, sf := range drive.CustomerSubfolders {
		subs[sf.Key] = drive.File{ID: "sub-" + sf.Key, Name: sf.Name}
	}
	return &drive.CustomerFolder{
		Root:          drive.File{ID: "root-1", Name: drive.CustomerRootName(name)},
		Subfolders:    subs,
		CustomerName:  name,
		CustomerEmail: email,
	}, nil
}

func (f *fakeStorage) UploadCustomerDocument(_ context.Context, folderID string, content []byte, name, docType, mimeType string) (*drive.File, error) {
	if err := f.record("customer_upload:" + docType); err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.uploaded[name] = content
	f.mu.Unlock()
	return &drive.File{ID: "doc-1", Name: name}, nil
}

func (f *fakeStorage) GetCustomerDocuments(_ context.Context, folderID string) (map[string][]drive.File, error) {
	if err := f.record("customer_docs"); err != nil {
		return nil, err
	}
	return map[string][]drive.File{
		"documents": {{ID: "d1", Name: "a.pdf"}},
		"contracts": {},
	}, nil
}

type fakeClient struct {
	reply string
	err   error
	got   string
}

func (c *fakeClient) Family() providers.Family { return providers.FamilyOpenAI }

func (c *fakeClient) Chat(_ context.Context, msg string, _ providers.Options) (string, error) {
	c.got = msg
	return c.reply, c.err
}

type fakeResolver struct {
	client providers.Client
	err    error
	model  string
}

func (r *fakeResolver) Resolve(_ context.Context, _, model string) (providers.Client, error) {
	r.model = model
	return r.client, r.err
}
