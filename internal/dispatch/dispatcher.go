// Package dispatch maps free-form chat messages onto Google Drive commands
// and falls back to a provider chat completion when nothing matches.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime/debug"
	"strings"

	"github.com/nextlevelbuilder/mcpgate/internal/drive"
	"github.com/nextlevelbuilder/mcpgate/internal/providers"
	"github.com/nextlevelbuilder/mcpgate/internal/tracing"
)

// Storage is the subset of the Drive façade the dispatcher drives.
type Storage interface {
	Authenticate(ctx context.Context) error
	Status() drive.Status
	CreateFolder(ctx context.Context, name, parentID string) (*drive.File, error)
	UploadFile(ctx context.Context, path, folderID string) (*drive.File, error)
	UploadContent(ctx context.Context, content []byte, name, folderID, mimeType string) (*drive.File, error)
	DownloadFile(ctx context.Context, fileID string) ([]byte, error)
	ListFiles(ctx context.Context, folderID, extraQuery string) ([]drive.File, error)
	SearchFiles(ctx context.Context, term string) ([]drive.File, error)
	DeleteFile(ctx context.Context, fileID string) error
	ShareFile(ctx context.Context, fileID, email, role string, notify bool) (*drive.Permission, error)
	CreateSharedLink(ctx context.Context, fileID, role string) (string, error)
	CreateCustomerFolder(ctx context.Context, name, email string) (*drive.CustomerFolder, error)
	UploadCustomerDocument(ctx context.Context, folderID string, content []byte, name, docType, mimeType string) (*drive.File, error)
	GetCustomerDocuments(ctx context.Context, folderID string) (map[string][]drive.File, error)
}

// Resolver yields a provider client for a (user, model) pair.
type Resolver interface {
	Resolve(ctx context.Context, username, model string) (providers.Client, error)
}

// Request is one inbound message with its verified identity.
type Request struct {
	Username string
	Message  string
	Model    string // empty = Config.DefaultModel
	Options  providers.Options
}

// Config holds dispatcher settings.
type Config struct {
	DefaultModel string
	// DownloadDir receives downloaded files. Empty means os.TempDir().
	DownloadDir string
}

// Dispatcher routes messages. It is safe for concurrent use.
type Dispatcher struct {
	storage  Storage
	resolver Resolver
	cfg      Config
	table    *table
}

// New builds a dispatcher over the built-in command catalogue.
func New(storage Storage, resolver Resolver, cfg Config) *Dispatcher {
	d := &Dispatcher{storage: storage, resolver: resolver, cfg: cfg}
	t, err := newTable(d.catalogue())
	if err != nil {
		panic("dispatch: invalid command catalogue: " + err.Error())
	}
	d.table = t
	return d
}

// Commands lists the catalogue in match order.
func (d *Dispatcher) Commands() []string {
	out := make([]string, 0, len(d.table.cmds))
	for _, c := range d.table.cmds {
		out = append(out, c.Name)
	}
	return out
}

// Dispatch handles one message and always returns a string. Failures,
// including handler panics, are rendered as "Error: ...".
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) (reply string) {
	msg := strings.TrimSpace(req.Message)
	cmd, rest := d.table.match(msg)
	name := "chat"
	if cmd != nil {
		name = cmd.Name
	}

	ctx, span := tracing.Start(ctx, "dispatch",
		tracing.AttrUser.String(req.Username), tracing.AttrCommand.String(name))

	var err error
	defer func() {
		if r := recover(); r != nil {
			slog.Error("dispatch: handler panic", "command", name, "panic", r, "stack", string(debug.Stack()))
			err = fmt.Errorf("internal error: %v", r)
			reply = render(err)
		}
		if err != nil {
			kind := Kind(err)
			span.SetAttributes(tracing.AttrErrorKind.String(kind))
			slog.Warn("dispatch: command failed", "command", name, "user", req.Username, "kind", kind, "error", err)
		}
		tracing.End(span, err)
	}()

	if cmd == nil {
		reply, err = d.chat(ctx, req, msg)
	} else {
		reply, err = d.run(ctx, cmd, req, rest)
	}
	if err != nil {
		return render(err)
	}
	return reply
}

func (d *Dispatcher) run(ctx context.Context, cmd *command, req Request, rest string) (string, error) {
	c := &call{cmd: cmd, req: req, rest: rest}
	if cmd.Literal {
		c.args = literalArgs(rest)
	} else {
		c.args = splitArgs(rest)
	}
	if len(c.args) < cmd.MinArgs {
		return "", &UsageError{Usage: cmd.Usage}
	}
	slog.Debug("dispatch: command matched", "command", cmd.Name, "user", req.Username, "args", len(c.args))
	return cmd.handler(ctx, c)
}

func (d *Dispatcher) chat(ctx context.Context, req Request, msg string) (string, error) {
	model := req.Model
	if model == "" {
		model = d.cfg.DefaultModel
	}
	client, err := d.resolver.Resolve(ctx, req.Username, model)
	if err != nil {
		return "", err
	}
	return client.Chat(ctx, msg, req.Options)
}

func (d *Dispatcher) downloadDir() string {
	if d.cfg.DownloadDir != "" {
		return d.cfg.DownloadDir
	}
	return os.TempDir()
}
