// Package dbtest opens migrated throwaway databases for repository tests.
package dbtest

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/nestwire/nestwire-core/internal/infrastructure/database"
	_ "github.com/nestwire/nestwire-core/migrations" // registers the schema
)

// Epoch is a fixed instant tests use as "now".
var Epoch = time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

// New returns a fully migrated database in t's temp directory. It is closed
// when the test finishes.
func New(t testing.TB) *sql.DB {
	t.Helper()

	db, err := database.Open(database.Config{
		Path:        filepath.Join(t.TempDir(), "test.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // test cleanup

	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("migrating test database: %v", err)
	}
	return db.DB
}

// Exec runs a statement and fails the test on error.
func Exec(t testing.TB, db *sql.DB, query string, args ...any) {
	t.Helper()
	if _, err := db.ExecContext(context.Background(), query, args...); err != nil {
		t.Fatalf("exec %q: %v", query, err)
	}
}

// SeedHouse inserts a house owned by ownerID.
func SeedHouse(t testing.TB, db *sql.DB, id, ownerID string) {
	t.Helper()
	Exec(t, db, `INSERT INTO houses (id, owner_id, name, created_at) VALUES (?, ?, ?, ?)`,
		id, ownerID, "House "+id, database.FormatTime(Epoch))
}

// SeedRoom inserts a room in houseID.
func SeedRoom(t testing.TB, db *sql.DB, id, houseID string) {
	t.Helper()
	Exec(t, db, `INSERT INTO rooms (id, house_id, name, created_at) VALUES (?, ?, ?, ?)`,
		id, houseID, "Room "+id, database.FormatTime(Epoch))
}

// SeedMember inserts a membership row.
func SeedMember(t testing.TB, db *sql.DB, houseID, userID, role, status string) {
	t.Helper()
	Exec(t, db, `INSERT INTO home_members (house_id, user_id, role, status, created_at) VALUES (?, ?, ?, ?, ?)`,
		houseID, userID, role, status, database.FormatTime(Epoch))
}

// Count returns SELECT COUNT(*) FROM table WHERE where.
func Count(t testing.TB, db *sql.DB, table, where string, args ...any) int {
	t.Helper()
	var n int
	q := "SELECT COUNT(*) FROM " + table
	if where != "" {
		q += " WHERE " + where
	}
	if err := db.QueryRowContext(context.Background(), q, args...).Scan(&n); err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	return n
}
