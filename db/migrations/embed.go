// Package migrations contains embedded SQL migration files for database schema management.
package migrations

import "embed"

// Files exposes the compiled-in migration SQL files, one directory per
// backend.
//
//go:embed sqlite/*.sql postgres/*.sql
var Files embed.FS

