package http

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/nextlevelbuilder/mcpgate/internal/store"
)

// extractBearerToken extracts a bearer token from the Authorization header.
// The scheme is matched case-insensitively.
func extractBearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// requireUser verifies the bearer token and puts the username on the context.
func (s *Server) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractBearerToken(r)
		if token == "" {
			unauthorized(w, "Not authenticated")
			return
		}
		username, err := s.deps.Auth.Authenticate(r.Context(), token)
		if err != nil {
			slog.Warn("security.invalid_token", "path", r.URL.Path, "remote", r.RemoteAddr, "error", err)
			unauthorized(w, "Could not validate credentials")
			return
		}
		next.ServeHTTP(w, r.WithContext(store.WithUsername(r.Context(), username)))
	})
}

func unauthorized(w http.ResponseWriter, detail string) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	writeDetail(w, http.StatusUnauthorized, detail)
}
