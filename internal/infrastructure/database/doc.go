// Package database provides the SQLite store behind every nestwire repository.
//
// Open configures the mattn/go-sqlite3 driver with WAL journaling, a busy
// timeout and enforced foreign keys, and pins the pool to one connection so
// writes serialise. Endpoint merge-updates rely on that: each is one UPDATE
// statement and therefore atomic with respect to every other writer.
//
// Schema changes live in the top-level migrations package, which registers
// its embedded files here with RegisterMigrations.
//
//	db, err := database.Open(database.Config{Path: cfg.Database.Path, WALMode: true, BusyTimeout: 5})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
package database
