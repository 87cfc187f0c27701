package dispatch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nextlevelbuilder/mcpgate/internal/drive"
	"github.com/nextlevelbuilder/mcpgate/internal/providers"
)

func newTestDispatcher(st *fakeStorage) (*Dispatcher, *fakeResolver) {
	res := &fakeResolver{client: &fakeClient{reply: "hi from model"}}
	return New(st, res, Config{DefaultModel: "openai"}), res
}

func dispatch(d *Dispatcher, msg string) string {
	return d.Dispatch(context.Background(), Request{Username: "alice", Message: msg})
}

func TestCatalogueOrderIsValid(t *testing.T) {
	d, _ := newTestDispatcher(newFakeStorage())
	names := d.Commands()
	if len(names) != 18 {
		t.Fatalf("catalogue has %d commands, want 18", len(names))
	}
	idx := func(name string) int {
		for i, n := range names {
			if n == name {
				return i
			}
		}
		t.Fatalf("command %q missing", name)
		return -1
	}
	if idx("delete_file_by_name") > idx("delete_file") || idx("delete_folder_by_name") > idx("delete_file") {
		t.Error("by-name deletes must precede bare delete file")
	}
	if idx("download_file_by_name") > idx("download_file") {
		t.Error("download by name must precede bare download file")
	}
}

func TestNewTableRejectsShadowing(t *testing.T) {
	noop := func(context.Context, *call) (string, error) { return "", nil }
	tests := []struct {
		name    string
		cmds    []*command
		wantErr string
	}{
		{
			name: "shorter first",
			cmds: []*command{
				{Name: "delete_file", Priority: 1, Prefixes: []string{"delete file"}, handler: noop},
				{Name: "delete_file_by_name", Priority: 2, Prefixes: []string{"delete file by name"}, handler: noop},
			},
			wantErr: "shadows",
		},
		{
			name: "duplicate priority",
			cmds: []*command{
				{Name: "a", Priority: 1, Prefixes: []string{"a"}, handler: noop},
				{Name: "b", Priority: 1, Prefixes: []string{"b"}, handler: noop},
			},
			wantErr: "share priority",
		},
		{
			name: "longer first",
			cmds: []*command{
				{Name: "delete_file", Priority: 2, Prefixes: []string{"delete file"}, handler: noop},
				{Name: "delete_file_by_name", Priority: 1, Prefixes: []string{"delete file by name"}, handler: noop},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTable(tt.cmds)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("err = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestMatching(t *testing.T) {
	d, _ := newTestDispatcher(newFakeStorage())
	tests := []struct {
		msg, want, rest string
	}{
		{"help", "help", ""},
		{"  HELP  ", "help", ""},
		{"Google Drive Help", "help", ""},
		{"drive help", "help", ""},
		{"helpful tips please", "", ""},
		{"helpme", "", ""},
		{"help me", "help", "me"},
		{"list filesystem layout", "", ""},
		{"create   folder   Reports", "create_folder", "Reports"},
		{"CREATE FOLDER x parent", "create_folder", "x parent"},
		{"create folderx", "", ""},
		{"delete file by name report.pdf", "delete_file_by_name", "report.pdf"},
		{"delete folder by name Archive", "delete_folder_by_name", "Archive"},
		{"delete file abc123", "delete_file", "abc123"},
		{"delete file byname", "delete_file", "byname"},
		{"download file by name a.txt", "download_file_by_name", "a.txt"},
		{"download file xyz", "download_file", "xyz"},
		{"google drive status", "drive_status", ""},
		{"what is the weather", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			cmd, rest := d.table.match(strings.TrimSpace(tt.msg))
			got := ""
			if cmd != nil {
				got = cmd.Name
			}
			if got != tt.want {
				t.Fatalf("match(%q) = %q, want %q", tt.msg, got, tt.want)
			}
			if cmd != nil && rest != tt.rest {
				t.Errorf("rest = %q, want %q", rest, tt.rest)
			}
		})
	}
}

func TestSplitArgs(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"a b", []string{"a", "b"}},
		{`"my report.pdf" folder1`, []string{"my report.pdf", "folder1"}},
		{`it's broken`, []string{"it's", "broken"}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := splitArgs(tt.in)
			if fmt.Sprint(got) != fmt.Sprint(tt.want) || len(got) != len(tt.want) {
				t.Errorf("splitArgs(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestDeleteByNamePrecedence(t *testing.T) {
	st := newFakeStorage(drive.File{ID: "f1", Name: "report.pdf", MimeType: "application/pdf"})
	d, _ := newTestDispatcher(st)

	got := dispatch(d, "delete file by name report.pdf")
	if !strings.Contains(got, "File deleted: report.pdf (id: f1)") {
		t.Fatalf("reply = %q", got)
	}
	if !st.called("search") {
		t.Error("by-name branch did not search")
	}
	if len(st.deleted) != 1 || st.deleted[0] != "f1" {
		t.Errorf("deleted = %v, want [f1] (never the literal \"by\")", st.deleted)
	}
}

func TestDeleteByNameResolution(t *testing.T) {
	folder := drive.FolderMimeType
	tests := []struct {
		name        string
		files       []drive.File
		msg         string
		want        string
		wantDeleted int
	}{
		{
			name:  "file not found",
			files: []drive.File{{ID: "x", Name: "other.txt"}},
			msg:   "delete file by name budget.xlsx",
			want:  "No file named 'budget.xlsx' found.",
		},
		{
			name:  "folders excluded for file delete",
			files: []drive.File{{ID: "x", Name: "Archive", MimeType: folder}},
			msg:   "delete file by name Archive",
			want:  "No file named 'Archive' found.",
		},
		{
			name: "two folders named Archive",
			files: []drive.File{
				{ID: "a1", Name: "Archive", MimeType: folder, CreatedTime: "2024-01-01T00:00:00Z"},
				{ID: "a2", Name: "Archive", MimeType: folder, CreatedTime: "2024-02-01T00:00:00Z"},
				{ID: "f", Name: "Archive", MimeType: "text/plain"},
			},
			msg:  "delete folder by name Archive",
			want: "Multiple folders named 'Archive' found (2)",
		},
		{
			name:        "single folder",
			files:       []drive.File{{ID: "a1", Name: "Archive", MimeType: folder}},
			msg:         "DELETE FOLDER BY NAME Archive",
			want:        "Folder deleted: Archive (id: a1)",
			wantDeleted: 1,
		},
		{
			name:  "substring is not a name match",
			files: []drive.File{{ID: "a1", Name: "Archive 2023", MimeType: folder}},
			msg:   "delete folder by name Archive",
			want:  "No folder named 'Archive' found.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := newFakeStorage(tt.files...)
			d, _ := newTestDispatcher(st)
			got := dispatch(d, tt.msg)
			if !strings.Contains(got, tt.want) {
				t.Fatalf("reply = %q, want substring %q", got, tt.want)
			}
			if len(st.deleted) != tt.wantDeleted {
				t.Errorf("deleted = %v", st.deleted)
			}
		})
	}

	t.Run("enumerates both candidates", func(t *testing.T) {
		st := newFakeStorage(
			drive.File{ID: "a1", Name: "Archive", MimeType: folder, CreatedTime: "t1"},
			drive.File{ID: "a2", Name: "Archive", MimeType: folder, CreatedTime: "t2"},
		)
		d, _ := newTestDispatcher(st)
		got := dispatch(d, "delete folder by name Archive")
		for _, s := range []string{"id: a1, created: t1", "id: a2, created: t2"} {
			if !strings.Contains(got, s) {
				t.Errorf("reply missing %q:\n%s", s, got)
			}
		}
		if st.called("delete") {
			t.Error("ambiguous match must not delete")
		}
	})
}

func TestUploadContentDecoding(t *testing.T) {
	tests := []struct {
		msg, name, want string
	}{
		{"upload content report.txt aGVsbG8=", "report.txt", "hello"},
		{"upload content report.txt not-base64!!", "report.txt", "not-base64!!"},
		{`upload content "q 1.txt" "plain words"`, "q 1.txt", "plain words"},
		{`upload content path.txt C:\temp\notes`, "path.txt", `C:\temp\notes`},
		{`upload content note.txt it's`, "note.txt", "it's"},
		{`upload content q.txt "say \"hi\""`, "q.txt", `say \"hi\"`},
	}
	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			st := newFakeStorage()
			d, _ := newTestDispatcher(st)
			got := dispatch(d, tt.msg)
			if !strings.Contains(got, "File uploaded") {
				t.Fatalf("reply = %q", got)
			}
			if string(st.uploaded[tt.name]) != tt.want {
				t.Errorf("uploaded %q = %q, want %q", tt.name, st.uploaded[tt.name], tt.want)
			}
		})
	}
}

func TestLiteralArgs(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{`a  b`, []string{"a", "b"}},
		{`C:\temp\notes x`, []string{`C:\temp\notes`, "x"}},
		{`"my report.pdf" 'two words'`, []string{"my report.pdf", "two words"}},
		{`don't 'stop`, []string{"don't", "'stop"}},
		{`"a\"b" c`, []string{`a\"b`, "c"}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := literalArgs(tt.in)
			if fmt.Sprint(got) != fmt.Sprint(tt.want) || len(got) != len(tt.want) {
				t.Errorf("literalArgs(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestUploadCustomerDocumentKeepsContent(t *testing.T) {
	st := newFakeStorage()
	d, _ := newTestDispatcher(st)
	got := dispatch(d, `upload customer document cust-1 notes.txt C:\share\it's tickets`)
	if !strings.Contains(got, "uploaded to tickets") {
		t.Fatalf("reply = %q", got)
	}
	if string(st.uploaded["notes.txt"]) != `C:\share\it's` {
		t.Errorf("content = %q", st.uploaded["notes.txt"])
	}
	if !st.called("customer_upload:tickets") {
		t.Errorf("calls = %v", st.calls)
	}
}

func TestSearchMessages(t *testing.T) {
	st := newFakeStorage(
		drive.File{ID: "1", Name: "budget 2023.xlsx"},
		drive.File{ID: "2", Name: "budget 2024.xlsx"},
	)
	d, _ := newTestDispatcher(st)

	none := dispatch(d, "search files invoices")
	many := dispatch(d, "search files budget")
	if none != "No files found matching 'invoices'." {
		t.Errorf("none = %q", none)
	}
	if !strings.HasPrefix(many, "Found 2 file(s) matching 'budget'") {
		t.Errorf("many = %q", many)
	}
	if none == many || strings.HasPrefix(none, "Found") {
		t.Error("not-found and match listings must be distinguishable")
	}
}

func TestScenarios(t *testing.T) {
	tests := []struct {
		msg  string
		want string
	}{
		{"help", "Google Drive commands"},
		{"google drive status", "authenticated: false"},
		{"create folder test_pytest_folder", "Folder created"},
		{"authenticate google drive", "authenticated successfully"},
		{"list files", "No files found."},
		{"share file f1 bob@example.com writer false", "shared with bob@example.com as writer"},
		{"create shared link f1", "Shared link created: https://drive.example/f1"},
		{"create customer folder Acme Corp ops@acme.test", "Customer folder created for Acme Corp (ops@acme.test)"},
		{"upload customer document root-1 nda.txt aGVsbG8= contracts", "Customer document uploaded to contracts"},
		{"get customer documents root-1", "[documents] 1 file(s)"},
		{"delete file abc", "File deleted: abc"},
	}
	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			d, _ := newTestDispatcher(newFakeStorage())
			if got := dispatch(d, tt.msg); !strings.Contains(got, tt.want) {
				t.Errorf("reply = %q, want substring %q", got, tt.want)
			}
		})
	}
}

func TestUsageErrors(t *testing.T) {
	tests := []struct {
		msg, usage string
	}{
		{"create folder", "create folder <name> [parent_id]"},
		{"upload content onlyname", "upload content <name> <content> [folder_id]"},
		{"delete file", "delete file <file_id>"},
		{"share file f1", "share file <file_id> <email> [role=reader] [notify=true]"},
		{"share file f1 a@b.c reader maybe", "share file <file_id> <email> [role=reader] [notify=true]"},
		{"create customer folder Acme", "create customer folder <name> <email>"},
	}
	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			st := newFakeStorage()
			d, _ := newTestDispatcher(st)
			got := dispatch(d, tt.msg)
			if got != "Error: Usage: "+tt.usage {
				t.Errorf("reply = %q", got)
			}
			if st.called("share") || st.called("delete") || st.called("create_folder") {
				t.Error("usage error must not reach storage")
			}
		})
	}
}

func TestUploadFile(t *testing.T) {
	st := newFakeStorage()
	d, _ := newTestDispatcher(st)

	got := dispatch(d, "upload file /does/not/exist.txt")
	if got != "Error: File not found: /does/not/exist.txt" {
		t.Errorf("missing file reply = %q", got)
	}
	if st.called("upload_file") {
		t.Error("missing file must not be uploaded")
	}

	path := filepath.Join(t.TempDir(), "up.txt")
	if err := os.WriteFile(path, []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}
	if got := dispatch(d, "upload file "+path); !strings.Contains(got, "File uploaded") {
		t.Errorf("reply = %q", got)
	}
}

func TestDownload(t *testing.T) {
	dir := t.TempDir()
	st := newFakeStorage(drive.File{ID: "f9", Name: "notes.txt"})
	st.content["f9"] = []byte("payload")
	d := New(st, &fakeResolver{}, Config{DownloadDir: dir})

	for _, msg := range []string{"download file f9", "download file by name notes.txt"} {
		t.Run(msg, func(t *testing.T) {
			got := dispatch(d, msg)
			if !strings.Contains(got, "File downloaded successfully") {
				t.Fatalf("reply = %q", got)
			}
			data, err := os.ReadFile(filepath.Join(dir, "downloaded_f9"))
			if err != nil || string(data) != "payload" {
				t.Errorf("file = %q, %v", data, err)
			}
		})
	}

	t.Run("unknown id", func(t *testing.T) {
		got := dispatch(d, "download file nope")
		if !strings.HasPrefix(got, "Error: download file: File not found: nope") {
			t.Errorf("reply = %q", got)
		}
	})
}

func TestStorageFailureRendered(t *testing.T) {
	st := newFakeStorage()
	st.err = &drive.StorageError{Op: "create folder", Err: errors.New("googleapi: Error 403: insufficient permissions")}
	d, _ := newTestDispatcher(st)
	got := dispatch(d, "create folder x")
	if got != "Error: create folder: googleapi: Error 403: insufficient permissions" {
		t.Errorf("reply = %q", got)
	}
}

func TestPanicRecovered(t *testing.T) {
	st := newFakeStorage()
	st.panicOn = "list"
	d, _ := newTestDispatcher(st)
	got := dispatch(d, "list files")
	if got != "Error: internal error: kaboom" {
		t.Errorf("reply = %q", got)
	}
}

func TestChatFallback(t *testing.T) {
	st := newFakeStorage()
	client := &fakeClient{reply: "Paris"}
	res := &fakeResolver{client: client}
	d := New(st, res, Config{DefaultModel: "openai"})

	got := d.Dispatch(context.Background(), Request{Username: "alice", Message: "  capital of France?  "})
	if got != "Paris" {
		t.Fatalf("reply = %q", got)
	}
	if client.got != "capital of France?" || res.model != "openai" {
		t.Errorf("client got %q, model %q", client.got, res.model)
	}

	d.Dispatch(context.Background(), Request{Username: "alice", Message: "hi", Model: "claude"})
	if res.model != "claude" {
		t.Errorf("model = %q, want explicit model", res.model)
	}

	// Prefixes match whole words only.
	if got := d.Dispatch(context.Background(), Request{Username: "alice", Message: "helpme"}); got != "Paris" {
		t.Errorf("helpme reply = %q, want the chat reply", got)
	}
	if client.got != "helpme" {
		t.Errorf("client got %q", client.got)
	}
	if len(st.calls) != 0 {
		t.Errorf("chat touched storage: %v", st.calls)
	}
}

func TestChatErrors(t *testing.T) {
	tests := []struct {
		name string
		res  *fakeResolver
		want string
	}{
		{
			name: "credential missing",
			res:  &fakeResolver{err: &providers.CredentialMissingError{Username: "alice", Model: "gpt-4"}},
			want: "Error: API key for model 'gpt-4' not found for user 'alice'. Please set it using /set_api_key endpoint.",
		},
		{
			name: "provider error verbatim",
			res:  &fakeResolver{client: &fakeClient{err: &providers.ProviderError{Provider: "openai", Status: 429, Message: "Rate limit reached"}}},
			want: "Error: OpenAI API error: Rate limit reached",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := New(newFakeStorage(), tt.res, Config{DefaultModel: "gpt-4"})
			if got := dispatch(d, "hello there"); got != tt.want {
				t.Errorf("reply = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestKind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{&UsageError{Usage: "x"}, KindUsage},
		{&providers.CredentialMissingError{}, KindCredentialMissing},
		{fmt.Errorf("wrapped: %w", &providers.UnsupportedProviderError{Model: "m"}), KindUnsupportedProvider},
		{&providers.ProviderError{Provider: "local"}, KindProvider},
		{&drive.StorageError{Op: "x", Err: errors.New("y")}, KindStorage},
		{errors.New("other"), KindInternal},
	}
	for _, tt := range tests {
		if got := Kind(tt.err); got != tt.want {
			t.Errorf("Kind(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
