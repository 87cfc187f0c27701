package mcp

import (
	"context"
	"fmt"
	"log/slog"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/nextlevelbuilder/mcpgate/internal/dispatch"
	"github.com/nextlevelbuilder/mcpgate/internal/providers"
	"github.com/nextlevelbuilder/mcpgate/internal/store"
)

// toolFunc is a handler that has already been given the caller's username.
type toolFunc func(ctx context.Context, user string, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error)

// authed rejects calls without a username on the context.
func authed(name string, fn toolFunc) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
		user := store.UsernameFromContext(ctx)
		if user == "" {
			slog.Warn("security.unauthenticated_tool_call", "tool", name)
			return mcpgo.NewToolResultError("Not authenticated"), nil
		}
		return fn(ctx, user, req)
	}
}

func (s *Server) add(tool mcpgo.Tool, fn toolFunc) {
	s.mcp.AddTool(tool, authed(tool.Name, fn))
}

func (s *Server) registerTools() {
	s.add(mcpgo.NewTool("dummy_tool",
		mcpgo.WithDescription("Greets the authenticated user."),
	), s.dummy)

	s.add(mcpgo.NewTool("llm_chat_tool",
		mcpgo.WithDescription("Send a message to an LLM (OpenAI, Anthropic or a local model) and get a response. "+
			"Messages that start with a Google Drive command are executed against Drive instead."),
		mcpgo.WithString("message", mcpgo.Required(), mcpgo.Description("The message to send")),
		mcpgo.WithString("model_name", mcpgo.Description("Model to use: 'openai', 'anthropic', 'gpt-4', 'claude', etc.")),
		mcpgo.WithNumber("max_tokens", mcpgo.Description("Maximum tokens for the response")),
		mcpgo.WithNumber("temperature", mcpgo.Description("Sampling temperature")),
	), s.chat)

	if s.deps.Drive != nil {
		s.registerDriveTools()
	}
}

func (s *Server) dummy(_ context.Context, user string, _ mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return mcpgo.NewToolResultText(fmt.Sprintf("MCP says hi to %s", user)), nil
}

type chatArgs struct {
	Message     string   `json:"message"`
	ModelName   string   `json:"model_name"`
	MaxTokens   *int     `json:"max_tokens"`
	Temperature *float64 `json:"temperature"`
}

// chat mirrors POST /chat: dispatcher failures come back as ordinary text
// starting with "Error:", not as tool errors.
func (s *Server) chat(ctx context.Context, user string, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	var args chatArgs
	if err := req.BindArguments(&args); err != nil {
		return mcpgo.NewToolResultErrorFromErr("invalid arguments", err), nil
	}
	if args.Message == "" {
		return mcpgo.NewToolResultError("message is required"), nil
	}
	model := args.ModelName
	if model == "" {
		model = s.deps.DefaultModel
	}
	reply := s.deps.Chat.Dispatch(ctx, dispatch.Request{
		Username: user,
		Message:  args.Message,
		Model:    model,
		Options:  providers.Options{MaxTokens: args.MaxTokens, Temperature: args.Temperature},
	})
	return mcpgo.NewToolResultText(reply), nil
}

func (s *Server) registerDriveTools() {
	s.add(mcpgo.NewTool("google_drive_authenticate",
		mcpgo.WithDescription("Authenticate with Google Drive."),
	), s.driveAuthenticate)

	s.add(mcpgo.NewTool("google_drive_create_folder",
		mcpgo.WithDescription("Create a folder in Google Drive."),
		mcpgo.WithString("folder_name", mcpgo.Required()),
		mcpgo.WithString("parent_folder_id", mcpgo.Description("Parent folder; root when empty")),
	), s.driveCreateFolder)

	s.add(mcpgo.NewTool("google_drive_upload_file",
		mcpgo.WithDescription("Upload a file from the server's filesystem to Google Drive."),
		mcpgo.WithString("file_path", mcpgo.Required()),
		mcpgo.WithString("folder_id"),
	), s.driveUploadFile)

	s.add(mcpgo.NewTool("google_drive_upload_content",
		mcpgo.WithDescription("Upload base64-encoded content as a new Google Drive file."),
		mcpgo.WithString("content", mcpgo.Required(), mcpgo.Description("Base64-encoded bytes")),
		mcpgo.WithString("file_name", mcpgo.Required()),
		mcpgo.WithString("folder_id"),
		mcpgo.WithString("mime_type", mcpgo.DefaultString("text/plain")),
	), s.driveUploadContent)

	s.add(mcpgo.NewTool("google_drive_download_file",
		mcpgo.WithDescription("Download a file; the content is returned base64-encoded."),
		mcpgo.WithString("file_id", mcpgo.Required()),
	), s.driveDownload)

	s.add(mcpgo.NewTool("google_drive_list_files",
		mcpgo.WithDescription("List files, optionally inside a folder and filtered by an extra Drive query."),
		mcpgo.WithString("folder_id"),
		mcpgo.WithString("query"),
	), s.driveList)

	s.add(mcpgo.NewTool("google_drive_search_files",
		mcpgo.WithDescription("Search files by name."),
		mcpgo.WithString("query", mcpgo.Required()),
	), s.driveSearch)

	s.add(mcpgo.NewTool("google_drive_delete_file",
		mcpgo.WithDescription("Delete a file or folder by id."),
		mcpgo.WithString("file_id", mcpgo.Required()),
	), s.driveDelete)

	s.add(mcpgo.NewTool("google_drive_share_file",
		mcpgo.WithDescription("Share a file with a user."),
		mcpgo.WithString("file_id", mcpgo.Required()),
		mcpgo.WithString("email", mcpgo.Required()),
		mcpgo.WithString("role", mcpgo.Enum("reader", "commenter", "writer"), mcpgo.DefaultString("reader")),
		mcpgo.WithBoolean("notify", mcpgo.DefaultBool(true)),
	), s.driveShare)

	s.add(mcpgo.NewTool("google_drive_create_shared_link",
		mcpgo.WithDescription("Make a file readable by anyone with the link and return the link."),
		mcpgo.WithString("file_id", mcpgo.Required()),
		mcpgo.WithString("permission", mcpgo.Enum("reader", "commenter", "writer"), mcpgo.DefaultString("reader")),
	), s.driveSharedLink)

	s.add(mcpgo.NewTool("google_drive_create_customer_folder",
		mcpgo.WithDescription("Create the folder structure for a support customer."),
		mcpgo.WithString("customer_name", mcpgo.Required()),
		mcpgo.WithString("customer_email", mcpgo.Required()),
	), s.driveCustomerFolder)

	s.add(mcpgo.NewTool("google_drive_upload_customer_document",
		mcpgo.WithDescription("Upload a base64-encoded document into a customer's subfolder."),
		mcpgo.WithString("customer_folder_id", mcpgo.Required()),
		mcpgo.WithString("document_content", mcpgo.Required(), mcpgo.Description("Base64-encoded bytes")),
		mcpgo.WithString("document_name", mcpgo.Required()),
		mcpgo.WithString("document_type", mcpgo.DefaultString("documents")),
	), s.driveCustomerUpload)

	s.add(mcpgo.NewTool("google_drive_get_customer_documents",
		mcpgo.WithDescription("List a customer's documents grouped by subfolder."),
		mcpgo.WithString("customer_folder_id", mcpgo.Required()),
	), s.driveCustomerDocs)

	s.add(mcpgo.NewTool("google_drive_status",
		mcpgo.WithDescription("Report whether Google Drive is authenticated and reachable."),
	), s.driveStatus)
}
