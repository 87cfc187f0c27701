// Package mcp exposes chat and Google Drive operations as Model Context
// Protocol tools over streamable HTTP.
package mcp

import (
	"context"
	"net/http"

	"github.com/mark3labs/mcp-go/server"

	"github.com/nextlevelbuilder/mcpgate/internal/dispatch"
	"github.com/nextlevelbuilder/mcpgate/internal/store"
)

// ServerName is reported to MCP clients during initialize.
const ServerName = "Protected MCP"

// Chatter routes one chat message and always returns a reply string.
type Chatter interface {
	Dispatch(ctx context.Context, req dispatch.Request) string
}

// Deps are the collaborators the tools call into.
type Deps struct {
	Chat         Chatter
	Drive        dispatch.Storage
	DefaultModel string
	Version      string
}

// Server wraps an mcp-go server with the mcpgate tool set.
type Server struct {
	deps Deps
	mcp  *server.MCPServer
}

func NewServer(d Deps) *Server {
	if d.Version == "" {
		d.Version = "dev"
	}
	s := &Server{
		deps: d,
		mcp: server.NewMCPServer(ServerName, d.Version,
			server.WithToolCapabilities(false),
			server.WithRecovery(),
		),
	}
	s.registerTools()
	return s
}

// MCPServer returns the underlying server, e.g. for in-process clients.
func (s *Server) MCPServer() *server.MCPServer { return s.mcp }

// Handler serves streamable HTTP. It is stateless: every request must carry
// its bearer token, and the username the auth middleware put on the request
// context is handed to tool handlers.
func (s *Server) Handler() http.Handler {
	return server.NewStreamableHTTPServer(s.mcp,
		server.WithStateLess(true),
		server.WithHTTPContextFunc(func(ctx context.Context, r *http.Request) context.Context {
			if user := store.UsernameFromContext(r.Context()); user != "" {
				ctx = store.WithUsername(ctx, user)
			}
			return ctx
		}),
	)
}
