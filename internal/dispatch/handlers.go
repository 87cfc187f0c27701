package dispatch

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/nextlevelbuilder/mcpgate/internal/drive"
)

func (d *Dispatcher) help(context.Context, *call) (string, error) {
	var b strings.Builder
	b.WriteString("Google Drive commands:\n")
	for _, c := range d.table.cmds {
		fmt.Fprintf(&b, "  %-64s %s\n", c.Usage, c.Help)
	}
	b.WriteString("\nAnything else is sent to the selected model as a chat message.")
	return b.String(), nil
}

func (d *Dispatcher) authenticate(ctx context.Context, _ *call) (string, error) {
	if err := d.storage.Authenticate(ctx); err != nil {
		return "", err
	}
	return "Google Drive authenticated successfully.", nil
}

func (d *Dispatcher) createFolder(ctx context.Context, c *call) (string, error) {
	f, err := d.storage.CreateFolder(ctx, c.arg(0, ""), c.arg(1, ""))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Folder created: %s (id: %s)", f.Name, f.ID), nil
}

func (d *Dispatcher) uploadFile(ctx context.Context, c *call) (string, error) {
	path := c.arg(0, "")
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("File not found: %s", path)
	}
	f, err := d.storage.UploadFile(ctx, path, c.arg(1, ""))
	if err != nil {
		return "", err
	}
	return "File uploaded: " + describe(f), nil
}

func (d *Dispatcher) uploadContent(ctx context.Context, c *call) (string, error) {
	f, err := d.storage.UploadContent(ctx, decodeContent(c.arg(1, "")), c.arg(0, ""), c.arg(2, ""), "text/plain")
	if err != nil {
		return "", err
	}
	return "File uploaded: " + describe(f), nil
}

// decodeContent treats s as base64 when it decodes cleanly and as literal
// text otherwise.
func decodeContent(s string) []byte {
	if data, err := base64.StdEncoding.DecodeString(s); err == nil {
		return data
	}
	return []byte(s)
}

func (d *Dispatcher) listFiles(ctx context.Context, c *call) (string, error) {
	files, err := d.storage.ListFiles(ctx, c.arg(0, ""), "")
	if err != nil {
		return "", err
	}
	if len(files) == 0 {
		return "No files found.", nil
	}
	return fmt.Sprintf("Files (%d):\n%s", len(files), listing(files)), nil
}

func (d *Dispatcher) searchFiles(ctx context.Context, c *call) (string, error) {
	q := c.joined()
	files, err := d.storage.SearchFiles(ctx, q)
	if err != nil {
		return "", err
	}
	if len(files) == 0 {
		return fmt.Sprintf("No files found matching '%s'.", q), nil
	}
	return fmt.Sprintf("Found %d file(s) matching '%s':\n%s", len(files), q, listing(files)), nil
}

// resolveByName searches for name and keeps exact (case-insensitive) name
// matches. folders selects folder results; otherwise folders are excluded.
// A nil filter keeps both kinds.
func (d *Dispatcher) resolveByName(ctx context.Context, name string, folders *bool) ([]drive.File, error) {
	found, err := d.storage.SearchFiles(ctx, name)
	if err != nil {
		return nil, err
	}
	var out []drive.File
	for _, f := range found {
		if !strings.EqualFold(f.Name, name) {
			continue
		}
		if folders != nil && f.IsFolder() != *folders {
			continue
		}
		out = append(out, f)
	}
	return out, nil
}

func (d *Dispatcher) deleteByName(folder bool) handlerFunc {
	noun := "file"
	if folder {
		noun = "folder"
	}
	return func(ctx context.Context, c *call) (string, error) {
		name := c.joined()
		matches, err := d.resolveByName(ctx, name, &folder)
		if err != nil {
			return "", err
		}
		switch len(matches) {
		case 0:
			return fmt.Sprintf("No %s named '%s' found.", noun, name), nil
		case 1:
			f := matches[0]
			if err := d.storage.DeleteFile(ctx, f.ID); err != nil {
				return "", err
			}
			return fmt.Sprintf("%s deleted: %s (id: %s)", capitalize(noun), f.Name, f.ID), nil
		default:
			return ambiguous(noun, name, matches, "delete "+noun+" <file_id>"), nil
		}
	}
}

func (d *Dispatcher) deleteFile(ctx context.Context, c *call) (string, error) {
	id := c.arg(0, "")
	if err := d.storage.DeleteFile(ctx, id); err != nil {
		return "", err
	}
	return fmt.Sprintf("File deleted: %s", id), nil
}

func (d *Dispatcher) shareFile(ctx context.Context, c *call) (string, error) {
	id, email, role := c.arg(0, ""), c.arg(1, ""), c.arg(2, "reader")
	notify := true
	if v := c.arg(3, ""); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return "", &UsageError{Usage: c.cmd.Usage}
		}
		notify = b
	}
	p, err := d.storage.ShareFile(ctx, id, email, role, notify)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("File %s shared with %s as %s.", id, p.EmailAddress, p.Role), nil
}

func (d *Dispatcher) createSharedLink(ctx context.Context, c *call) (string, error) {
	link, err := d.storage.CreateSharedLink(ctx, c.arg(0, ""), c.arg(1, "reader"))
	if err != nil {
		return "", err
	}
	return "Shared link created: " + link, nil
}

func (d *Dispatcher) createCustomerFolder(ctx context.Context, c *call) (string, error) {
	// The email is the last token; everything before it is the name.
	email := c.args[len(c.args)-1]
	name := strings.Join(c.args[:len(c.args)-1], " ")
	cf, err := d.storage.CreateCustomerFolder(ctx, name, email)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Customer folder created for %s (%s): %s (id: %s)\nSubfolders:\n", name, email, cf.Root.Name, cf.Root.ID)
	for _, sf := range drive.CustomerSubfolders {
		if f, ok := cf.Subfolders[sf.Key]; ok {
			fmt.Fprintf(&b, "- %s: %s (id: %s)\n", sf.Key, f.Name, f.ID)
		}
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func (d *Dispatcher) uploadCustomerDocument(ctx context.Context, c *call) (string, error) {
	folderID, name := c.arg(0, ""), c.arg(1, "")
	content := decodeContent(c.arg(2, ""))
	docType := c.arg(3, "documents")
	f, err := d.storage.UploadCustomerDocument(ctx, folderID, content, name, docType, "text/plain")
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Customer document uploaded to %s: %s", docType, describe(f)), nil
}

func (d *Dispatcher) getCustomerDocuments(ctx context.Context, c *call) (string, error) {
	docs, err := d.storage.GetCustomerDocuments(ctx, c.arg(0, ""))
	if err != nil {
		return "", err
	}
	if len(docs) == 0 {
		return "No customer documents found.", nil
	}

	keys := make([]string, 0, len(docs))
	for k := range docs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("Customer documents:")
	for _, k := range keys {
		files := docs[k]
		fmt.Fprintf(&b, "\n[%s] %d file(s)", k, len(files))
		if len(files) > 0 {
			b.WriteString("\n")
			b.WriteString(listing(files))
		}
	}
	return b.String(), nil
}

func (d *Dispatcher) status(context.Context, *call) (string, error) {
	st := d.storage.Status()
	return fmt.Sprintf("Google Drive status:\n- authenticated: %t\n- service_available: %t", st.Authenticated, st.ServiceAvailable), nil
}

func (d *Dispatcher) downloadByName(ctx context.Context, c *call) (string, error) {
	name := c.joined()
	matches, err := d.resolveByName(ctx, name, nil)
	if err != nil {
		return "", err
	}
	switch len(matches) {
	case 0:
		return fmt.Sprintf("No file named '%s' found.", name), nil
	case 1:
		return d.download(ctx, matches[0].ID)
	default:
		return ambiguous("file", name, matches, "download file <file_id>"), nil
	}
}

func (d *Dispatcher) downloadFile(ctx context.Context, c *call) (string, error) {
	return d.download(ctx, c.arg(0, ""))
}

func (d *Dispatcher) download(ctx context.Context, id string) (string, error) {
	data, err := d.storage.DownloadFile(ctx, id)
	if err != nil {
		return "", err
	}
	dir := d.downloadDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create download dir: %w", err)
	}
	// Ids come from the user; keep the write inside dir.
	path := filepath.Join(dir, "downloaded_"+filepath.Base(id))
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("write download: %w", err)
	}
	return fmt.Sprintf("File downloaded successfully to %s (%d bytes)", path, len(data)), nil
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
