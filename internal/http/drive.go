package http

import (
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nextlevelbuilder/mcpgate/internal/store"
)

func (s *Server) driveRoutes(r chi.Router) {
	r.Post("/authenticate", s.driveAuthenticate)
	r.Post("/create-folder", s.driveCreateFolder)
	r.Post("/upload-file", s.driveUploadFile)
	r.Post("/upload-content", s.driveUploadContent)
	r.Get("/download-file/{file_id}", s.driveDownload)
	r.Get("/list-files", s.driveListFiles)
	r.Get("/search-files", s.driveSearchFiles)
	r.Delete("/delete-file/{file_id}", s.driveDeleteFile)
	r.Post("/share-file", s.driveShareFile)
	r.Post("/create-shared-link", s.driveCreateSharedLink)
	r.Post("/create-customer-folder", s.driveCreateCustomerFolder)
	r.Post("/upload-customer-document", s.driveUploadCustomerDocument)
	r.Get("/get-customer-documents/{customer_folder_id}", s.driveGetCustomerDocuments)
	r.Get("/status", s.driveStatus)
}

// driveError reports a façade failure as 500 with an operation prefix.
func driveError(w http.ResponseWriter, r *http.Request, what string, err error) {
	slog.Warn("http: drive operation failed", "op", what, "user", store.UsernameFromContext(r.Context()), "error", err)
	writeDetail(w, http.StatusInternalServerError, fmt.Sprintf("Error %s: %v", what, err))
}

func (s *Server) driveAuthenticate(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Drive.Authenticate(r.Context()); err != nil {
		writeDetail(w, http.StatusInternalServerError, "Authentication error: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"authenticated": true, "message": "Authentication successful"})
}

func (s *Server) driveCreateFolder(w http.ResponseWriter, r *http.Request) {
	p, missing := requireParams(r, "folder_name")
	if missing != "" {
		missingParam(w, missing)
		return
	}
	f, err := s.deps.Drive.CreateFolder(r.Context(), p["folder_name"], r.FormValue("parent_folder_id"))
	if err != nil {
		driveError(w, r, "creating folder", err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

func (s *Server) driveUploadFile(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.deps.MaxBodyBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid multipart body: "+err.Error())
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		missingParam(w, "file")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeDetail(w, http.StatusBadRequest, err.Error())
		return
	}
	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = mime.TypeByExtension(filepath.Ext(header.Filename))
	}

	f, err := s.deps.Drive.UploadContent(r.Context(), data, header.Filename, r.FormValue("folder_id"), mimeType)
	if err != nil {
		driveError(w, r, "uploading file", err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

func (s *Server) driveUploadContent(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.deps.MaxBodyBytes)
	p, missing := requireParams(r, "content", "file_name")
	if missing != "" {
		missingParam(w, missing)
		return
	}
	data, err := base64.StdEncoding.DecodeString(p["content"])
	if err != nil {
		driveError(w, r, "uploading content", fmt.Errorf("invalid base64 content: %w", err))
		return
	}
	mimeType := r.FormValue("mime_type")
	if mimeType == "" {
		mimeType = "text/plain"
	}

	f, err := s.deps.Drive.UploadContent(r.Context(), data, p["file_name"], r.FormValue("folder_id"), mimeType)
	if err != nil {
		driveError(w, r, "uploading content", err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

func (s *Server) driveDownload(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "file_id")
	data, err := s.deps.Drive.DownloadFile(r.Context(), id)
	if err != nil {
		driveError(w, r, "downloading file", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"file_id": id,
		"content": base64.StdEncoding.EncodeToString(data),
		"size":    len(data),
	})
}

func (s *Server) driveListFiles(w http.ResponseWriter, r *http.Request) {
	files, err := s.deps.Drive.ListFiles(r.Context(), r.FormValue("folder_id"), r.FormValue("query"))
	if err != nil {
		driveError(w, r, "listing files", err)
		return
	}
	writeJSON(w, http.StatusOK, files)
}

func (s *Server) driveSearchFiles(w http.ResponseWriter, r *http.Request) {
	p, missing := requireParams(r, "query")
	if missing != "" {
		missingParam(w, missing)
		return
	}
	files, err := s.deps.Drive.SearchFiles(r.Context(), p["query"])
	if err != nil {
		driveError(w, r, "searching files", err)
		return
	}
	writeJSON(w, http.StatusOK, files)
}

func (s *Server) driveDeleteFile(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Drive.DeleteFile(r.Context(), chi.URLParam(r, "file_id")); err != nil {
		driveError(w, r, "deleting file", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "File deleted successfully"})
}

func (s *Server) driveShareFile(w http.ResponseWriter, r *http.Request) {
	p, missing := requireParams(r, "file_id", "email")
	if missing != "" {
		missingParam(w, missing)
		return
	}
	role := r.FormValue("role")
	if role == "" {
		role = "reader"
	}
	notify := true
	if v := r.FormValue("notify"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeDetail(w, http.StatusUnprocessableEntity, "notify must be a boolean")
			return
		}
		notify = b
	}

	perm, err := s.deps.Drive.ShareFile(r.Context(), p["file_id"], p["email"], role, notify)
	if err != nil {
		driveError(w, r, "sharing file", err)
		return
	}
	writeJSON(w, http.StatusOK, perm)
}

func (s *Server) driveCreateSharedLink(w http.ResponseWriter, r *http.Request) {
	p, missing := requireParams(r, "file_id")
	if missing != "" {
		missingParam(w, missing)
		return
	}
	perm := r.FormValue("permission")
	if perm == "" {
		perm = "reader"
	}
	link, err := s.deps.Drive.CreateSharedLink(r.Context(), p["file_id"], perm)
	if err != nil {
		driveError(w, r, "creating shared link", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"file_id": p["file_id"], "shared_link": link})
}

func (s *Server) driveCreateCustomerFolder(w http.ResponseWriter, r *http.Request) {
	p, missing := requireParams(r, "customer_name", "customer_email")
	if missing != "" {
		missingParam(w, missing)
		return
	}
	cf, err := s.deps.Drive.CreateCustomerFolder(r.Context(), p["customer_name"], p["customer_email"])
	if err != nil {
		driveError(w, r, "creating customer folder", err)
		return
	}
	writeJSON(w, http.StatusOK, cf)
}

func (s *Server) driveUploadCustomerDocument(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.deps.MaxBodyBytes)
	p, missing := requireParams(r, "customer_folder_id", "document_content", "document_name")
	if missing != "" {
		missingParam(w, missing)
		return
	}
	data, err := base64.StdEncoding.DecodeString(p["document_content"])
	if err != nil {
		driveError(w, r, "uploading customer document", fmt.Errorf("invalid base64 content: %w", err))
		return
	}
	docType := r.FormValue("document_type")
	if docType == "" {
		docType = "documents"
	}

	f, err := s.deps.Drive.UploadCustomerDocument(r.Context(), p["customer_folder_id"], data, p["document_name"], docType, "")
	if err != nil {
		driveError(w, r, "uploading customer document", err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

func (s *Server) driveGetCustomerDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := s.deps.Drive.GetCustomerDocuments(r.Context(), chi.URLParam(r, "customer_folder_id"))
	if err != nil {
		driveError(w, r, "getting customer documents", err)
		return
	}
	writeJSON(w, http.StatusOK, docs)
}

func (s *Server) driveStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Drive.Status())
}
