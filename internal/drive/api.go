package drive

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/oauth2"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
)

const fileFields = "id, name, mimeType, size, createdTime, modifiedTime, webViewLink, parents"

// apiBackend implements Backend on the Drive v3 REST client.
type apiBackend struct {
	srv    *drive.Service
	tokens oauth2.TokenSource
}

// Valid reports whether a usable access token can be obtained.
func (a *apiBackend) Valid() bool {
	if a.tokens == nil {
		return true
	}
	tok, err := a.tokens.Token()
	return err == nil && tok.Valid()
}

func fromAPI(f *drive.File) *File {
	if f == nil {
		return nil
	}
	return &File{
		ID:           f.Id,
		Name:         f.Name,
		MimeType:     f.MimeType,
		Size:         f.Size,
		CreatedTime:  f.CreatedTime,
		ModifiedTime: f.ModifiedTime,
		WebViewLink:  f.WebViewLink,
		Parents:      f.Parents,
	}
}

func (a *apiBackend) CreateFile(ctx context.Context, meta File, content io.Reader) (*File, error) {
	call := a.srv.Files.Create(&drive.File{
		Name:     meta.Name,
		MimeType: meta.MimeType,
		Parents:  meta.Parents,
	}).Fields(fileFields).Context(ctx)
	if content != nil {
		call = call.Media(content, googleapi.ContentType(meta.MimeType))
	}
	f, err := call.Do()
	if err != nil {
		return nil, err
	}
	return fromAPI(f), nil
}

func (a *apiBackend) GetFile(ctx context.Context, id string) (*File, error) {
	f, err := a.srv.Files.Get(id).Fields(fileFields).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	return fromAPI(f), nil
}

func (a *apiBackend) Export(ctx context.Context, id, mimeType string) ([]byte, error) {
	resp, err := a.srv.Files.Export(id, mimeType).Context(ctx).Download()
	if err != nil {
		return nil, err
	}
	return readBody(resp)
}

func (a *apiBackend) Download(ctx context.Context, id string) ([]byte, error) {
	resp, err := a.srv.Files.Get(id).Context(ctx).Download()
	if err != nil {
		return nil, err
	}
	return readBody(resp)
}

func readBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read download: %w", err)
	}
	return data, nil
}

func (a *apiBackend) ListFiles(ctx context.Context, query string, pageSize int) ([]File, error) {
	res, err := a.srv.Files.List().
		Q(query).
		PageSize(int64(pageSize)).
		Fields("nextPageToken, files(" + fileFields + ")").
		Context(ctx).
		Do()
	if err != nil {
		return nil, err
	}
	out := make([]File, 0, len(res.Files))
	for _, f := range res.Files {
		out = append(out, *fromAPI(f))
	}
	return out, nil
}

func (a *apiBackend) DeleteFile(ctx context.Context, id string) error {
	return a.srv.Files.Delete(id).Context(ctx).Do()
}

func (a *apiBackend) CreatePermission(ctx context.Context, id string, p Permission, notify bool) (*Permission, error) {
	call := a.srv.Permissions.Create(id, &drive.Permission{
		Type:         p.Type,
		Role:         p.Role,
		EmailAddress: p.EmailAddress,
	}).Fields("id, type, role, emailAddress").Context(ctx)
	if p.Type == "user" {
		call = call.SendNotificationEmail(notify)
	}
	res, err := call.Do()
	if err != nil {
		return nil, err
	}
	return &Permission{ID: res.Id, Type: res.Type, Role: res.Role, EmailAddress: res.EmailAddress}, nil
}
