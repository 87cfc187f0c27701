package http

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/nextlevelbuilder/mcpgate/internal/dispatch"
	"github.com/nextlevelbuilder/mcpgate/internal/providers"
	"github.com/nextlevelbuilder/mcpgate/internal/store"
)

type chatRequest struct {
	Message     string   `json:"message"`
	ModelName   string   `json:"model_name"`
	MaxTokens   *int     `json:"max_tokens"`
	Temperature *float64 `json:"temperature"`
}

// readChatRequest takes query parameters, overlaid by a JSON body if present.
func readChatRequest(r *http.Request) (chatRequest, error) {
	q := r.URL.Query()
	req := chatRequest{Message: q.Get("message"), ModelName: q.Get("model_name")}
	if v := q.Get("max_tokens"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return req, fmt.Errorf("max_tokens must be an integer")
		}
		req.MaxTokens = &n
	}
	if v := q.Get("temperature"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return req, fmt.Errorf("temperature must be a number")
		}
		req.Temperature = &f
	}

	if isJSON(r) && r.ContentLength != 0 {
		var body chatRequest
		if err := decodeJSON(r, &body); err != nil {
			return req, err
		}
		if body.Message != "" {
			req.Message = body.Message
		}
		if body.ModelName != "" {
			req.ModelName = body.ModelName
		}
		if body.MaxTokens != nil {
			req.MaxTokens = body.MaxTokens
		}
		if body.Temperature != nil {
			req.Temperature = body.Temperature
		}
	}
	return req, nil
}

// handleChat always answers 200 with the dispatcher's text once the request
// is admitted; only malformed input and rate limiting change the status.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	user := store.UsernameFromContext(r.Context())
	if s.deps.Limiter != nil && !s.deps.Limiter.Allow("user:"+user) {
		w.Header().Set("Retry-After", "60")
		writeDetail(w, http.StatusTooManyRequests, "Rate limit exceeded")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.deps.MaxBodyBytes)
	req, err := readChatRequest(r)
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if req.Message == "" {
		missingParam(w, "message")
		return
	}
	model := req.ModelName
	if model == "" {
		model = s.deps.DefaultModel
	}

	reply := s.deps.Chat.Dispatch(r.Context(), dispatch.Request{
		Username: user,
		Message:  req.Message,
		Model:    model,
		Options:  providers.Options{MaxTokens: req.MaxTokens, Temperature: req.Temperature},
	})
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(reply))
}

func (s *Server) handleHello(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintf(w, "MCP says hi to %s", store.UsernameFromContext(r.Context()))
}

// Cache admin is scoped to the caller: entries of other users are neither
// listed nor evicted.
func (s *Server) handleCacheInspect(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Cache.InspectUser(store.UsernameFromContext(r.Context())))
}

func (s *Server) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	n := s.deps.Cache.ClearUser(store.UsernameFromContext(r.Context()))
	writeJSON(w, http.StatusOK, map[string]any{"msg": "Cache cleared", "evicted": n})
}
