// Package migrations embeds the nestwire SQL schema into the binary and
// registers it with the database package on import.
package migrations

import (
	"embed"

	"github.com/nestwire/nestwire-core/internal/infrastructure/database"
)

//go:embed *.sql
var migrationsFS embed.FS

func init() {
	database.RegisterMigrations(migrationsFS, ".")
}
