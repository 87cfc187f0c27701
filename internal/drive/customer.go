package drive

import (
	"context"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// CreateCustomerFolder provisions "Customer Support - <name>" with the fixed
// subfolder hierarchy. email is informational and echoed in the result.
func (s *Service) CreateCustomerFolder(ctx context.Context, customerName, customerEmail string) (*CustomerFolder, error) {
	root, err := s.CreateFolder(ctx, CustomerRootName(customerName), "")
	if err != nil {
		return nil, err
	}

	subs := make(map[string]File, len(CustomerSubfolders))
	for _, sf := range CustomerSubfolders {
		f, err := s.CreateFolder(ctx, sf.Name, root.ID)
		if err != nil {
			return nil, err
		}
		subs[sf.Key] = *f
	}

	slog.Info("drive: customer folder created", "customer", customerName, "id", root.ID)
	return &CustomerFolder{
		Root:          *root,
		Subfolders:    subs,
		CustomerName:  customerName,
		CustomerEmail: customerEmail,
	}, nil
}

// UploadCustomerDocument puts content into the customer subfolder for
// docType. A hierarchy key such as "tickets" maps to its folder name first;
// otherwise docType is matched against folder names case-insensitively. A
// missing folder is created.
func (s *Service) UploadCustomerDocument(ctx context.Context, customerFolderID string, content []byte, name, docType, mimeType string) (*File, error) {
	children, err := s.ListFiles(ctx, customerFolderID, "mimeType='"+FolderMimeType+"'")
	if err != nil {
		return nil, err
	}

	folderName := subfolderName(docType)
	target := ""
	for _, c := range children {
		if strings.EqualFold(c.Name, folderName) {
			target = c.ID
			break
		}
	}
	if target == "" {
		f, err := s.CreateFolder(ctx, folderName, customerFolderID)
		if err != nil {
			return nil, err
		}
		target = f.ID
	}
	return s.UploadContent(ctx, content, name, target, mimeType)
}

// subfolderName returns the folder name a document type lives in.
func subfolderName(docType string) string {
	for _, sf := range CustomerSubfolders {
		if strings.EqualFold(docType, sf.Key) || strings.EqualFold(docType, sf.Name) {
			return sf.Name
		}
	}
	return cases.Title(language.English).String(docType)
}

// GetCustomerDocuments lists every subfolder's contents, keyed by the
// lower-cased subfolder name. Subfolders are listed concurrently.
func (s *Service) GetCustomerDocuments(ctx context.Context, customerFolderID string) (map[string][]File, error) {
	children, err := s.ListFiles(ctx, customerFolderID, "mimeType='"+FolderMimeType+"'")
	if err != nil {
		return nil, err
	}

	results := make([][]File, len(children))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, c := range children {
		g.Go(func() error {
			files, err := s.ListFiles(gctx, c.ID, "")
			if err != nil {
				return err
			}
			results[i] = files
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[string][]File, len(children))
	for i, c := range children {
		out[strings.ToLower(c.Name)] = results[i]
	}
	return out, nil
}
