// Package gateway serves the WebSocket RPC endpoint. Method groups register
// themselves on the Server's MethodRouter (see the methods subpackage).
package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/nextlevelbuilder/mcpgate/pkg/protocol"
)

// Authenticator verifies the bearer token presented in connect.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (string, error)
}

// Server upgrades HTTP requests to WebSocket clients and tracks them.
type Server struct {
	auth     Authenticator
	router   *MethodRouter
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[string]*Client
	closing bool
}

func NewServer(auth Authenticator) *Server {
	s := &Server{
		auth:    auth,
		clients: make(map[string]*Client),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Every request must authenticate with a JWT in connect, so
			// cross-origin browsers gain nothing from an ambient session.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
	s.router = NewMethodRouter(s)
	return s
}

// Router returns the method router so method groups can register.
func (s *Server) Router() *MethodRouter { return s.router }

// ServeHTTP upgrades the connection and blocks until the client goes away.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("gateway: upgrade failed", "error", err, "remote", r.RemoteAddr)
		return
	}

	client := NewClient(conn, s)
	if !s.add(client) {
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
		conn.Close()
		return
	}
	defer s.remove(client)

	slog.Debug("gateway: client connected", "client", client.id, "remote", r.RemoteAddr)
	client.Run(context.WithoutCancel(r.Context()))
}

func (s *Server) add(c *Client) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closing {
		return false
	}
	s.clients[c.id] = c
	return true
}

func (s *Server) remove(c *Client) {
	s.mu.Lock()
	delete(s.clients, c.id)
	s.mu.Unlock()
	c.Close()
	slog.Debug("gateway: client disconnected", "client", c.id, "user", c.Username())
}

// ClientCount returns the number of open connections.
func (s *Server) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// Broadcast pushes an event to every authenticated client.
func (s *Server) Broadcast(event *protocol.EventFrame) {
	data, err := json.Marshal(event)
	if err != nil {
		slog.Error("gateway: marshal event failed", "event", event.Event, "error", err)
		return
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.clients {
		if c.Authenticated() {
			c.enqueue(data)
		}
	}
}

// SendToUser pushes an event to every authenticated connection of username.
func (s *Server) SendToUser(username string, event *protocol.EventFrame) {
	data, err := json.Marshal(event)
	if err != nil {
		slog.Error("gateway: marshal event failed", "event", event.Event, "error", err)
		return
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.clients {
		if c.Authenticated() && c.Username() == username {
			c.enqueue(data)
		}
	}
}

// Shutdown tells every client the server is going away and stops accepting
// new connections. Read pumps end when their connections close.
func (s *Server) Shutdown() {
	data, _ := json.Marshal(protocol.NewEvent(protocol.EventShutdown, nil))

	s.mu.Lock()
	s.closing = true
	clients := make([]*Client, 0, len(s.clients))
	for _, c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.Unlock()

	for _, c := range clients {
		c.enqueue(data)
		c.Close()
	}
	slog.Info("gateway: shutdown", "clients", len(clients))
}
