// Package dbtest opens migrated SQLite databases for tests.
package dbtest

import (
	"path/filepath"
	"testing"

	"github.com/doglog/doglog/internal/db"
	"github.com/jmoiron/sqlx"
)

// New returns a fresh database in t.TempDir with all migrations applied.
func New(t testing.TB) *sqlx.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "doglog.db")
	database, err := db.Init(db.DriverSQLite, path+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	err = db.RunMigrations(database.DB, db.DriverSQLite)
	if err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return database
}
