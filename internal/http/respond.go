package http

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("http: write response failed", "error", err)
	}
}

// writeDetail writes an error body as {"detail": "..."}.
func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func writeMsg(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"msg": msg})
}

func isJSON(r *http.Request) bool {
	mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return mt == "application/json"
}

// decodeJSON decodes the body into v, rejecting unknown trailing data.
func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

// requireParams reads form/query values and reports the first missing one.
func requireParams(r *http.Request, names ...string) (map[string]string, string) {
	out := make(map[string]string, len(names))
	for _, n := range names {
		v := r.FormValue(n)
		if v == "" {
			return nil, n
		}
		out[n] = v
	}
	return out, ""
}

func missingParam(w http.ResponseWriter, name string) {
	writeDetail(w, http.StatusUnprocessableEntity, name+" is required")
}
