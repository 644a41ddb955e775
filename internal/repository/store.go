// Package repository persists catalog metadata in the SQLite metastore.
// Repos accept any DBTX so the same code runs against a pool or inside a
// transaction; Store.WithTx groups multi-table writes into one commit.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/Imd11/DataPrism/internal/domain"
)

// DBTX is the query surface shared by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Store bundles all metastore repos over one connection (or transaction).
type Store struct {
	db *sql.DB // nil when the store is transaction-scoped

	Files     *FileRepo
	Tables    *TableRepo
	Versions  *VersionRepo
	Profiles  *ProfileRepo
	Keys      *KeyRepo
	Relations *RelationRepo
	Lineage   *LineageRepo
	OpLog     *OpLogRepo
}

// New builds a Store over a metastore pool.
func New(db *sql.DB) *Store {
	s := newStore(db)
	s.db = db
	return s
}

func newStore(q DBTX) *Store {
	return &Store{
		Files:     &FileRepo{q: q},
		Tables:    &TableRepo{q: q},
		Versions:  &VersionRepo{q: q},
		Profiles:  &ProfileRepo{q: q},
		Keys:      &KeyRepo{q: q},
		Relations: &RelationRepo{q: q},
		Lineage:   &LineageRepo{q: q},
		OpLog:     &OpLogRepo{q: q},
	}
}

// WithTx runs fn against a transaction-scoped Store, committing on nil
// error and rolling back otherwise.
func (s *Store) WithTx(ctx context.Context, fn func(*Store) error) error {
	if s.db == nil {
		return errors.New("store is already transaction-scoped")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(newStore(tx)); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func mapDBError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound("resource not found")
	}
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return domain.ErrConflict("resource already exists")
	}
	return err
}

// marshalStrings encodes a string slice as the JSON stored in *_json
// columns.
func marshalStrings(v []string) string {
	b, _ := json.Marshal(v)
	return string(b)
}

func unmarshalStrings(s string) ([]string, error) {
	var out []string
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil, fmt.Errorf("decode json field: %w", err)
	}
	return out, nil
}
