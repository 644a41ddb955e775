// Package db provides SQLite connectivity and migration support for the
// catalog metastore.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Hardened SQLite DSN parameters.
const (
	busyTimeoutMS = "5000"
	synchronous   = "NORMAL"
	journalMode   = "WAL"
)

// OpenMetastore opens a write pool (MaxOpenConns=1, immediate tx lock) for
// the SQLite metastore at path. All catalog mutations flow through this
// handle; SQLite serializes writers, so a single connection avoids
// SQLITE_BUSY churn.
func OpenMetastore(path string) (*sql.DB, error) {
	pool, err := open(path, true, 1)
	if err != nil {
		return nil, fmt.Errorf("open metastore (write): %w", err)
	}
	return pool, nil
}

// OpenMetastoreRead opens a read pool for the same metastore file.
// maxOpen <= 0 defaults to 4.
func OpenMetastoreRead(path string, maxOpen int) (*sql.DB, error) {
	if maxOpen <= 0 {
		maxOpen = 4
	}
	pool, err := open(path, false, maxOpen)
	if err != nil {
		return nil, fmt.Errorf("open metastore (read): %w", err)
	}
	return pool, nil
}

func open(path string, write bool, maxOpen int) (*sql.DB, error) {
	params := url.Values{}
	params.Set("_journal_mode", journalMode)
	params.Set("_busy_timeout", busyTimeoutMS)
	params.Set("_synchronous", synchronous)
	params.Set("_foreign_keys", "on")
	params.Set("_loc", "UTC")
	if write {
		params.Set("_txlock", "immediate")
	}

	pool, err := sql.Open("sqlite3", path+"?"+params.Encode())
	if err != nil {
		return nil, err
	}
	pool.SetMaxOpenConns(maxOpen)
	pool.SetMaxIdleConns(maxOpen)
	pool.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.PingContext(ctx); err != nil {
		_ = pool.Close()
		return nil, err
	}
	return pool, nil
}
