package db

import (
	"database/sql"
	"path/filepath"
	"testing"
)

// OpenTestMetastore opens a migrated SQLite metastore in t.TempDir() and
// registers cleanup.
func OpenTestMetastore(t *testing.T) *sql.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "catalog.sqlite")

	pool, err := OpenMetastore(path)
	if err != nil {
		t.Fatalf("open test metastore: %v", err)
	}
	t.Cleanup(func() { _ = pool.Close() })

	if err := RunMigrations(pool); err != nil {
		t.Fatalf("run migrations: %v", err)
	}

	return pool
}
