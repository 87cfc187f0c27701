package http

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/nextlevelbuilder/mcpgate/internal/auth"
	"github.com/nextlevelbuilder/mcpgate/internal/store"
)

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// readCredentials accepts JSON or form-encoded username/password.
func readCredentials(r *http.Request) (credentialsRequest, error) {
	var req credentialsRequest
	if isJSON(r) {
		err := decodeJSON(r, &req)
		return req, err
	}
	if err := r.ParseForm(); err != nil {
		return req, err
	}
	req.Username = r.PostFormValue("username")
	req.Password = r.PostFormValue("password")
	return req, nil
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.deps.MaxBodyBytes)
	req, err := readCredentials(r)
	if err != nil {
		writeDetail(w, http.StatusBadRequest, err.Error())
		return
	}

	_, err = s.deps.Auth.Register(r.Context(), req.Username, req.Password)
	switch {
	case errors.Is(err, store.ErrUserExists):
		writeDetail(w, http.StatusBadRequest, "Username already exists")
	case err != nil:
		writeDetail(w, http.StatusBadRequest, err.Error())
	default:
		writeMsg(w, http.StatusCreated, "User registered")
	}
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.deps.MaxBodyBytes)
	req, err := readCredentials(r)
	if err != nil {
		writeDetail(w, http.StatusBadRequest, err.Error())
		return
	}

	token, err := s.deps.Auth.Login(r.Context(), req.Username, req.Password)
	if errors.Is(err, auth.ErrBadCredentials) {
		writeDetail(w, http.StatusBadRequest, "Invalid credentials")
		return
	}
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"access_token": token, "token_type": "bearer"})
}

func (s *Server) handleProtected(w http.ResponseWriter, r *http.Request) {
	user := store.UsernameFromContext(r.Context())
	writeMsg(w, http.StatusOK, fmt.Sprintf("Hello, %s! This is protected.", user))
}
