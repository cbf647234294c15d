// Package dbtest opens throwaway databases carrying the real schema.
package dbtest

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/nerrad567/taller-core/internal/infrastructure/database"
	_ "github.com/nerrad567/taller-core/migrations" // registers the embedded schema
)

// Open returns a migrated SQLite database in a temporary directory.
// It is closed automatically when the test finishes.
func Open(t testing.TB) *database.DB {
	t.Helper()
	return OpenWithDriver(t, database.DriverSQLite3)
}

// OpenWithDriver is Open for a specific SQLite driver.
func OpenWithDriver(t testing.TB, driver string) *database.DB {
	t.Helper()

	ctx := context.Background()
	db, err := database.Open(ctx, database.Config{
		Driver:      driver,
		Path:        filepath.Join(t.TempDir(), "taller-test.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("migrating test database: %v", err)
	}
	return db
}

// Exec runs a fixture statement and fails the test on error.
func Exec(t testing.TB, db *database.DB, query string, args ...any) {
	t.Helper()
	if _, err := db.ExecContext(context.Background(), db.Rebind(query), args...); err != nil {
		t.Fatalf("fixture %q: %v", query, err)
	}
}
