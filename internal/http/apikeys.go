package http

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nextlevelbuilder/mcpgate/internal/store"
)

type setAPIKeyRequest struct {
	ModelName string `json:"model_name"`
	APIKey    string `json:"api_key"`
}

// handleSetAPIKey upserts a key. The provider cache is deliberately left
// alone: an already-cached client keeps its old key until DELETE /cache.
func (s *Server) handleSetAPIKey(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.deps.MaxBodyBytes)
	var req setAPIKeyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDetail(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.APIKey == "" {
		missingParam(w, "api_key")
		return
	}
	if err := store.ValidateModelName(req.ModelName); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	user := store.UsernameFromContext(r.Context())
	if err := s.deps.Credentials.Upsert(r.Context(), user, req.ModelName, req.APIKey); err != nil {
		slog.Error("http: save api key failed", "user", user, "model", req.ModelName, "error", err)
		writeDetail(w, http.StatusInternalServerError, "failed to save API key")
		return
	}
	slog.Info("http: api key saved", "user", user, "model", req.ModelName)
	writeMsg(w, http.StatusOK, fmt.Sprintf("API key for model '%s' saved successfully for user '%s'", req.ModelName, user))
}

func (s *Server) handleListAPIKeys(w http.ResponseWriter, r *http.Request) {
	user := store.UsernameFromContext(r.Context())
	infos, err := s.deps.Credentials.List(r.Context(), user)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, err.Error())
		return
	}
	models := make([]string, 0, len(infos))
	for _, ci := range infos {
		models = append(models, ci.ModelName)
	}
	writeJSON(w, http.StatusOK, map[string]any{"models": models, "keys": infos})
}

func (s *Server) handleDeleteAPIKey(w http.ResponseWriter, r *http.Request) {
	user := store.UsernameFromContext(r.Context())
	model := chi.URLParam(r, "model_name")
	ok, err := s.deps.Credentials.Delete(r.Context(), user, model)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !ok {
		writeDetail(w, http.StatusNotFound, fmt.Sprintf("API key for model '%s' not found", model))
		return
	}
	slog.Info("http: api key deleted", "user", user, "model", model)
	writeMsg(w, http.StatusOK, fmt.Sprintf("API key for model '%s' deleted", model))
}
