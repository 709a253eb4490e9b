// Package migrations embeds the streamdeckx SQL schema into the binary.
package migrations

import (
	"embed"

	"github.com/nerrad567/streamdeckx/internal/infrastructure/database"
)

//go:embed *.sql
var files embed.FS

// Source returns the embedded migrations in the form database.Migrate expects.
func Source() database.Source {
	return database.Source{FS: files, Dir: "."}
}
