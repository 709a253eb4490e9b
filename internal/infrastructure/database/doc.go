// Package database provides SQLite connectivity for streamdeckx.
//
// This package manages:
//   - The database connection (WAL mode, busy timeout, foreign keys on)
//   - Embedded schema migrations, each applied in its own transaction
//   - Transaction helpers for multi-row entity writes
//
// Usage:
//
//	db, err := database.Open(database.Config{Path: cfg.Database.Path, WALMode: true})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx, migrations.Source()); err != nil {
//	    log.Fatal(err)
//	}
//
// Migration files live in the top-level migrations package and are named
// YYYYMMDD_HHMMSS_description.up.sql with an optional .down.sql partner.
package database
