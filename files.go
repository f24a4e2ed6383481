package auth

import (
	"embed"
)

//go:embed data/sql/migrations
var migrationsFS embed.FS

// GetMigrationsFS returns the embedded schema migrations for the
// auth tables.
func GetMigrationsFS() embed.FS {
	return migrationsFS
}
