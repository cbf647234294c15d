// Package migrations embeds the SQL migration files into the binary.
//
// Files live in one directory per dialect (sqlite, postgres) and share
// version numbers, so both schemas advance in lockstep.
package migrations

import (
	"embed"

	"github.com/nerrad567/taller-core/internal/infrastructure/database"
)

//go:embed sqlite/*.sql postgres/*.sql
var migrationsFS embed.FS

func init() {
	database.MigrationsFS = migrationsFS
}
