// Package drive is a thin, session-holding façade over Google Drive: folder
// and file CRUD, search, sharing, and the customer-support folder convention.
package drive

import "strings"

// FolderMimeType marks Drive folders.
const FolderMimeType = "application/vnd.google-apps.folder"

// DefaultPageSize bounds list and search results.
const DefaultPageSize = 100

// exportFormats maps Google-native document types to a concrete download format.
var exportFormats = map[string]string{
	"application/vnd.google-apps.document":     "application/pdf",
	"application/vnd.google-apps.spreadsheet":  "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"application/vnd.google-apps.presentation": "application/pdf",
}

// File is the metadata the façade exposes for files and folders.
type File struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	MimeType     string   `json:"mimeType,omitempty"`
	Size         int64    `json:"size,omitempty"`
	CreatedTime  string   `json:"createdTime,omitempty"`
	ModifiedTime string   `json:"modifiedTime,omitempty"`
	WebViewLink  string   `json:"webViewLink,omitempty"`
	Parents      []string `json:"parents,omitempty"`
}

// IsFolder reports whether f is a Drive folder.
func (f File) IsFolder() bool { return f.MimeType == FolderMimeType }

// Kind returns "folder" or "file".
func (f File) Kind() string {
	if f.IsFolder() {
		return "folder"
	}
	return "file"
}

// Permission is a sharing grant on a file.
type Permission struct {
	ID           string `json:"id,omitempty"`
	Type         string `json:"type"` // user | anyone
	Role         string `json:"role"` // reader | commenter | writer | owner
	EmailAddress string `json:"emailAddress,omitempty"`
}

// Status reports the session state without triggering authentication.
type Status struct {
	Authenticated    bool `json:"authenticated"`
	ServiceAvailable bool `json:"service_available"`
}

// CustomerSubfolder pairs a hierarchy key with the folder name created for it.
type CustomerSubfolder struct {
	Key  string
	Name string
}

// CustomerSubfolders is the fixed hierarchy created under every customer root.
var CustomerSubfolders = []CustomerSubfolder{
	{Key: "documents", Name: "Documents"},
	{Key: "contracts", Name: "Contracts"},
	{Key: "tickets", Name: "Support Tickets"},
	{Key: "communications", Name: "Communications"},
}

// CustomerFolder is the result of provisioning a customer hierarchy.
type CustomerFolder struct {
	Root          File            `json:"customer_folder"`
	Subfolders    map[string]File `json:"subfolders"`
	CustomerName  string          `json:"customer_name"`
	CustomerEmail string          `json:"customer_email"`
}

// CustomerRootName is the naming convention for a customer's root folder.
func CustomerRootName(customer string) string {
	return "Customer Support - " + customer
}

// escapeQuery escapes a value for use inside a single-quoted Drive query literal.
func escapeQuery(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `'`, `\'`)
}

// buildListQuery composes the Drive q parameter for ListFiles.
func buildListQuery(folderID, extra string) string {
	q := "trashed=false"
	if folderID != "" {
		q = "'" + escapeQuery(folderID) + "' in parents"
	}
	if extra != "" {
		q += " and " + extra
	}
	return q
}

// buildSearchQuery matches names containing term, excluding trashed items.
func buildSearchQuery(term string) string {
	return "name contains '" + escapeQuery(term) + "' and trashed=false"
}
