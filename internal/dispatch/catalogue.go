package dispatch

// catalogue is the full command set. Priorities are spaced so entries can be
// inserted without renumbering; newTable rejects any order in which a shorter
// prefix would shadow a longer one.
func (d *Dispatcher) catalogue() []*command {
	return []*command{
		{Name: "help", Priority: 10, Prefixes: []string{"help", "google drive help", "drive help"},
			Usage: "help", Help: "show this reference", handler: d.help},
		{Name: "authenticate", Priority: 20, Prefixes: []string{"authenticate google drive"},
			Usage: "authenticate google drive", Help: "connect to Google Drive", handler: d.authenticate},
		{Name: "create_folder", Priority: 30, Prefixes: []string{"create folder"}, MinArgs: 1,
			Usage: "create folder <name> [parent_id]", Help: "create a folder", handler: d.createFolder},
		{Name: "upload_file", Priority: 40, Prefixes: []string{"upload file"}, MinArgs: 1,
			Usage: "upload file <path> [folder_id]", Help: "upload a local file", handler: d.uploadFile},
		{Name: "upload_content", Priority: 50, Prefixes: []string{"upload content"}, MinArgs: 2, Literal: true,
			Usage: "upload content <name> <content> [folder_id]", Help: "upload base64 or literal text", handler: d.uploadContent},
		{Name: "list_files", Priority: 60, Prefixes: []string{"list files"},
			Usage: "list files [folder_id]", Help: "list files", handler: d.listFiles},
		{Name: "search_files", Priority: 70, Prefixes: []string{"search files"}, MinArgs: 1,
			Usage: "search files <query>", Help: "search by name", handler: d.searchFiles},
		{Name: "delete_file_by_name", Priority: 80, Prefixes: []string{"delete file by name"}, MinArgs: 1,
			Usage: "delete file by name <name>", Help: "delete a uniquely named file", handler: d.deleteByName(false)},
		{Name: "delete_folder_by_name", Priority: 90, Prefixes: []string{"delete folder by name"}, MinArgs: 1,
			Usage: "delete folder by name <name>", Help: "delete a uniquely named folder", handler: d.deleteByName(true)},
		{Name: "delete_file", Priority: 100, Prefixes: []string{"delete file"}, MinArgs: 1,
			Usage: "delete file <file_id>", Help: "delete by id", handler: d.deleteFile},
		{Name: "share_file", Priority: 110, Prefixes: []string{"share file"}, MinArgs: 2,
			Usage: "share file <file_id> <email> [role=reader] [notify=true]", Help: "share with a user", handler: d.shareFile},
		{Name: "create_shared_link", Priority: 120, Prefixes: []string{"create shared link"}, MinArgs: 1,
			Usage: "create shared link <file_id> [permission=reader]", Help: "make a link anyone can open", handler: d.createSharedLink},
		{Name: "create_customer_folder", Priority: 130, Prefixes: []string{"create customer folder"}, MinArgs: 2,
			Usage: "create customer folder <name> <email>", Help: "provision a customer folder hierarchy", handler: d.createCustomerFolder},
		{Name: "upload_customer_document", Priority: 140, Prefixes: []string{"upload customer document"}, MinArgs: 3, Literal: true,
			Usage: "upload customer document <folder_id> <doc_name> <doc_content> [doc_type=documents]", Help: "upload into a customer subfolder", handler: d.uploadCustomerDocument},
		{Name: "get_customer_documents", Priority: 150, Prefixes: []string{"get customer documents"}, MinArgs: 1,
			Usage: "get customer documents <folder_id>", Help: "list a customer's documents", handler: d.getCustomerDocuments},
		{Name: "drive_status", Priority: 160, Prefixes: []string{"google drive status"},
			Usage: "google drive status", Help: "show connection status", handler: d.status},
		{Name: "download_file_by_name", Priority: 170, Prefixes: []string{"download file by name"}, MinArgs: 1,
			Usage: "download file by name <name>", Help: "download a uniquely named file", handler: d.downloadByName},
		{Name: "download_file", Priority: 180, Prefixes: []string{"download file"}, MinArgs: 1,
			Usage: "download file <file_id>", Help: "download by id", handler: d.downloadFile},
	}
}
