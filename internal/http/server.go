// Package http serves the REST API: accounts, API keys, chat, cache
// administration and the Google Drive router. Other transports (MCP,
// WebSocket) are mounted onto the same router.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/nextlevelbuilder/mcpgate/internal/auth"
	"github.com/nextlevelbuilder/mcpgate/internal/dispatch"
	"github.com/nextlevelbuilder/mcpgate/internal/providers"
	"github.com/nextlevelbuilder/mcpgate/internal/store"
)

// Chatter routes one chat message and always returns a reply string.
type Chatter interface {
	Dispatch(ctx context.Context, req dispatch.Request) string
}

// CacheAdmin exposes one user's slice of the provider client cache.
type CacheAdmin interface {
	InspectUser(username string) providers.CacheInfo
	ClearUser(username string) int
}

// Limiter decides whether a keyed request may proceed.
type Limiter interface {
	Allow(key string) bool
}

// Deps are the collaborators the API needs. Limiter may be nil.
type Deps struct {
	Auth         *auth.Service
	Credentials  store.CredentialStore
	Cache        CacheAdmin
	Chat         Chatter
	Drive        dispatch.Storage
	Limiter      Limiter
	DefaultModel string
	MaxBodyBytes int64
}

// Server owns the chi router.
type Server struct {
	deps   Deps
	router chi.Router
}

func NewServer(d Deps) *Server {
	if d.MaxBodyBytes <= 0 {
		d.MaxBodyBytes = 10 << 20
	}
	s := &Server{deps: d, router: chi.NewRouter()}
	s.routes()
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.router }

// Mount attaches an extra transport. When protected is true the bearer
// middleware runs first and the username is on the request context.
func (s *Server) Mount(pattern string, h http.Handler, protected bool) {
	if protected {
		s.router.With(s.requireUser).Mount(pattern, h)
		return
	}
	s.router.Mount(pattern, h)
}

// RequireUser exposes the bearer middleware for handlers mounted elsewhere.
func (s *Server) RequireUser(next http.Handler) http.Handler { return s.requireUser(next) }

func (s *Server) routes() {
	r := s.router
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Post("/register", s.handleRegister)
	r.Post("/login", s.handleLogin)

	r.Group(func(api chi.Router) {
		api.Use(s.requireUser)

		api.Get("/protected", s.handleProtected)
		api.Post("/set_api_key", s.handleSetAPIKey)
		api.Get("/api_keys", s.handleListAPIKeys)
		api.Delete("/api_keys/{model_name}", s.handleDeleteAPIKey)

		api.Post("/chat", s.handleChat)
		api.Get("/hello", s.handleHello)
		api.Get("/cache", s.handleCacheInspect)
		api.Delete("/cache", s.handleCacheClear)

		api.Route("/google-drive", s.driveRoutes)
	})
}

// requestLogger records one line per request and threads the request id
// onto the context for downstream logs.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		reqID := middleware.GetReqID(r.Context())
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(store.WithRequestID(r.Context(), reqID)))

		slog.Debug("http: request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", reqID,
		)
	})
}
