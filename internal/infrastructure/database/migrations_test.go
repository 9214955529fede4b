package database

import (
	"context"
	"testing"
	"testing/fstest"
)

func withMigrations(t *testing.T, fsys fstest.MapFS) {
	t.Helper()
	RegisterMigrations(fsys, ".")
	t.Cleanup(func() { RegisterMigrations(nil, ".") })
}

var testMigrations = fstest.MapFS{
	"20260101_000000_create_widgets.up.sql":   {Data: []byte("CREATE TABLE widgets (id TEXT PRIMARY KEY);")},
	"20260101_000000_create_widgets.down.sql": {Data: []byte("DROP TABLE widgets;")},
	"20260102_000000_add_gadgets.up.sql":      {Data: []byte("CREATE TABLE gadgets (id TEXT PRIMARY KEY);")},
	"20260102_000000_add_gadgets.down.sql":    {Data: []byte("DROP TABLE gadgets;")},
	"README.md":                               {Data: []byte("ignored")},
}

func tableExists(t *testing.T, db *DB, name string) bool {
	t.Helper()
	var n int
	err := db.QueryRowContext(context.Background(),
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", name).Scan(&n)
	if err != nil {
		t.Fatalf("querying sqlite_master: %v", err)
	}
	return n == 1
}

func TestMigrate(t *testing.T) {
	withMigrations(t, testMigrations)
	db := openTestDB(t)
	ctx := context.Background()

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	if !tableExists(t, db, "widgets") || !tableExists(t, db, "gadgets") {
		t.Fatal("expected both tables after Migrate")
	}

	applied, pending, err := db.GetMigrationStatus(ctx)
	if err != nil {
		t.Fatalf("GetMigrationStatus() error = %v", err)
	}
	if len(applied) != 2 || len(pending) != 0 {
		t.Errorf("applied=%d pending=%d, want 2 and 0", len(applied), len(pending))
	}
	if applied[0].Version != "20260101_000000" {
		t.Errorf("first applied = %q", applied[0].Version)
	}

	// Idempotent.
	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("second Migrate() error = %v", err)
	}
}

func TestMigrateDown(t *testing.T) {
	withMigrations(t, testMigrations)
	db := openTestDB(t)
	ctx := context.Background()

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	if err := db.MigrateDown(ctx); err != nil {
		t.Fatalf("MigrateDown() error = %v", err)
	}

	if tableExists(t, db, "gadgets") {
		t.Error("gadgets should be dropped by MigrateDown")
	}
	if !tableExists(t, db, "widgets") {
		t.Error("widgets should survive a single MigrateDown")
	}

	_, pending, err := db.GetMigrationStatus(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 1 || pending[0].Name != "add_gadgets" {
		t.Errorf("pending = %+v, want add_gadgets", pending)
	}
}

func TestMigrate_FailureStopsAtBrokenVersion(t *testing.T) {
	withMigrations(t, fstest.MapFS{
		"20260101_000000_ok.up.sql":     {Data: []byte("CREATE TABLE ok (id TEXT);")},
		"20260102_000000_broken.up.sql": {Data: []byte("CREATE TABLE nope (;")},
		"20260103_000000_later.up.sql":  {Data: []byte("CREATE TABLE later (id TEXT);")},
	})
	db := openTestDB(t)

	if err := db.Migrate(context.Background()); err == nil {
		t.Fatal("Migrate() expected error for broken migration")
	}
	if !tableExists(t, db, "ok") {
		t.Error("migration before the failure should stay applied")
	}
	if tableExists(t, db, "later") {
		t.Error("migration after the failure should not run")
	}
}

func TestMigrate_NoneRegistered(t *testing.T) {
	RegisterMigrations(nil, ".")
	db := openTestDB(t)
	if err := db.Migrate(context.Background()); err != nil {
		t.Errorf("Migrate() with no migrations error = %v", err)
	}
}

func TestParseMigrationFilename(t *testing.T) {
	tests := []struct {
		filename    string
		wantVersion string
		wantName    string
		wantUp      bool
		wantOK      bool
	}{
		{"20260301_120000_initial_schema.up.sql", "20260301_120000", "initial_schema", true, true},
		{"20260301_120000_initial_schema.down.sql", "20260301_120000", "initial_schema", false, true},
		{"20260301_120000.up.sql", "20260301_120000", "", true, true},
		{"initial.up.sql", "", "", false, false},
		{"20260301_120000_x.sql", "", "", false, false},
		{"20260301_120000_x.up.txt", "", "", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			v, n, up, ok := parseMigrationFilename(tt.filename)
			if v != tt.wantVersion || n != tt.wantName || up != tt.wantUp || ok != tt.wantOK {
				t.Errorf("parseMigrationFilename(%q) = (%q, %q, %v, %v)", tt.filename, v, n, up, ok)
			}
		})
	}
}
