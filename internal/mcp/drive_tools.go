package mcp

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
)

// requireStrings returns the named non-empty string arguments, or a tool
// error naming the first one missing.
func requireStrings(req mcpgo.CallToolRequest, names ...string) (map[string]string, *mcpgo.CallToolResult) {
	out := make(map[string]string, len(names))
	for _, n := range names {
		v, err := req.RequireString(n)
		if err != nil || v == "" {
			return nil, mcpgo.NewToolResultError(n + " is required")
		}
		out[n] = v
	}
	return out, nil
}

func driveError(user, what string, err error) *mcpgo.CallToolResult {
	slog.Warn("mcp: drive tool failed", "user", user, "op", what, "error", err)
	return mcpgo.NewToolResultError(fmt.Sprintf("Error %s: %v", what, err))
}

func jsonResult(v any) (*mcpgo.CallToolResult, error) {
	res, err := mcpgo.NewToolResultJSON(v)
	if err != nil {
		return mcpgo.NewToolResultErrorFromErr("encode result", err), nil
	}
	return res, nil
}

func decodeBase64(name, s string) ([]byte, *mcpgo.CallToolResult) {
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, mcpgo.NewToolResultError(fmt.Sprintf("%s must be base64: %v", name, err))
	}
	return data, nil
}

func (s *Server) driveAuthenticate(ctx context.Context, user string, _ mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	if err := s.deps.Drive.Authenticate(ctx); err != nil {
		return driveError(user, "authenticating", err), nil
	}
	return jsonResult(map[string]any{"success": true, "message": "Google Drive authenticated successfully"})
}

func (s *Server) driveCreateFolder(ctx context.Context, user string, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	p, bad := requireStrings(req, "folder_name")
	if bad != nil {
		return bad, nil
	}
	f, err := s.deps.Drive.CreateFolder(ctx, p["folder_name"], req.GetString("parent_folder_id", ""))
	if err != nil {
		return driveError(user, "creating folder", err), nil
	}
	return jsonResult(f)
}

func (s *Server) driveUploadFile(ctx context.Context, user string, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	p, bad := requireStrings(req, "file_path")
	if bad != nil {
		return bad, nil
	}
	f, err := s.deps.Drive.UploadFile(ctx, p["file_path"], req.GetString("folder_id", ""))
	if err != nil {
		return driveError(user, "uploading file", err), nil
	}
	return jsonResult(f)
}

func (s *Server) driveUploadContent(ctx context.Context, user string, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	p, bad := requireStrings(req, "content", "file_name")
	if bad != nil {
		return bad, nil
	}
	data, bad := decodeBase64("content", p["content"])
	if bad != nil {
		return bad, nil
	}
	f, err := s.deps.Drive.UploadContent(ctx, data, p["file_name"], req.GetString("folder_id", ""), req.GetString("mime_type", "text/plain"))
	if err != nil {
		return driveError(user, "uploading content", err), nil
	}
	return jsonResult(f)
}

func (s *Server) driveDownload(ctx context.Context, user string, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	p, bad := requireStrings(req, "file_id")
	if bad != nil {
		return bad, nil
	}
	data, err := s.deps.Drive.DownloadFile(ctx, p["file_id"])
	if err != nil {
		return driveError(user, "downloading file", err), nil
	}
	return jsonResult(map[string]any{
		"file_id": p["file_id"],
		"content": base64.StdEncoding.EncodeToString(data),
		"size":    len(data),
	})
}

func (s *Server) driveList(ctx context.Context, user string, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	files, err := s.deps.Drive.ListFiles(ctx, req.GetString("folder_id", ""), req.GetString("query", ""))
	if err != nil {
		return driveError(user, "listing files", err), nil
	}
	return jsonResult(map[string]any{"files": files, "count": len(files)})
}

func (s *Server) driveSearch(ctx context.Context, user string, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	p, bad := requireStrings(req, "query")
	if bad != nil {
		return bad, nil
	}
	files, err := s.deps.Drive.SearchFiles(ctx, p["query"])
	if err != nil {
		return driveError(user, "searching files", err), nil
	}
	return jsonResult(map[string]any{"files": files, "count": len(files)})
}

func (s *Server) driveDelete(ctx context.Context, user string, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	p, bad := requireStrings(req, "file_id")
	if bad != nil {
		return bad, nil
	}
	if err := s.deps.Drive.DeleteFile(ctx, p["file_id"]); err != nil {
		return driveError(user, "deleting file", err), nil
	}
	return jsonResult(map[string]any{"success": true, "message": "File deleted successfully"})
}

func (s *Server) driveShare(ctx context.Context, user string, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	p, bad := requireStrings(req, "file_id", "email")
	if bad != nil {
		return bad, nil
	}
	perm, err := s.deps.Drive.ShareFile(ctx, p["file_id"], p["email"], req.GetString("role", "reader"), req.GetBool("notify", true))
	if err != nil {
		return driveError(user, "sharing file", err), nil
	}
	return jsonResult(perm)
}

func (s *Server) driveSharedLink(ctx context.Context, user string, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	p, bad := requireStrings(req, "file_id")
	if bad != nil {
		return bad, nil
	}
	link, err := s.deps.Drive.CreateSharedLink(ctx, p["file_id"], req.GetString("permission", "reader"))
	if err != nil {
		return driveError(user, "creating shared link", err), nil
	}
	return jsonResult(map[string]string{"file_id": p["file_id"], "shared_link": link})
}

func (s *Server) driveCustomerFolder(ctx context.Context, user string, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	p, bad := requireStrings(req, "customer_name", "customer_email")
	if bad != nil {
		return bad, nil
	}
	cf, err := s.deps.Drive.CreateCustomerFolder(ctx, p["customer_name"], p["customer_email"])
	if err != nil {
		return driveError(user, "creating customer folder", err), nil
	}
	return jsonResult(cf)
}

func (s *Server) driveCustomerUpload(ctx context.Context, user string, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	p, bad := requireStrings(req, "customer_folder_id", "document_content", "document_name")
	if bad != nil {
		return bad, nil
	}
	data, bad := decodeBase64("document_content", p["document_content"])
	if bad != nil {
		return bad, nil
	}
	f, err := s.deps.Drive.UploadCustomerDocument(ctx, p["customer_folder_id"], data, p["document_name"],
		req.GetString("document_type", "documents"), "")
	if err != nil {
		return driveError(user, "uploading customer document", err), nil
	}
	return jsonResult(f)
}

func (s *Server) driveCustomerDocs(ctx context.Context, user string, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	p, bad := requireStrings(req, "customer_folder_id")
	if bad != nil {
		return bad, nil
	}
	docs, err := s.deps.Drive.GetCustomerDocuments(ctx, p["customer_folder_id"])
	if err != nil {
		return driveError(user, "getting customer documents", err), nil
	}
	return jsonResult(docs)
}

func (s *Server) driveStatus(_ context.Context, _ string, _ mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return jsonResult(s.deps.Drive.Status())
}
