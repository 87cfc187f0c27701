// Package migrations embeds the versioned SQL schema for each supported database.
package migrations

import "embed"

// FS holds postgres/*.sql and sqlite/*.sql in golang-migrate naming
// (NNNNNN_name.up.sql / NNNNNN_name.down.sql).
//
//go:embed postgres/*.sql sqlite/*.sql
var FS embed.FS

// Dir returns the embedded directory for a driver name ("postgres" or "sqlite").
func Dir(driver string) string {
	if driver == "postgres" {
		return "postgres"
	}
	return "sqlite"
}
