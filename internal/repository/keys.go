package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Imd11/DataPrism/internal/domain"
)

// KeyRepo manages the explicit and inferred primary key tables. Explicit
// declarations shadow inferred rows; callers delete the inferred row when
// an explicit key is set.
type KeyRepo struct {
	q DBTX
}

func (r *KeyRepo) UpsertExplicit(ctx context.Context, pk *domain.PrimaryKey) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO primary_keys (table_id, fields_json, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT (table_id) DO UPDATE SET fields_json = excluded.fields_json, created_at = excluded.created_at`,
		pk.TableID, marshalStrings(pk.Fields), pk.CreatedAt)
	return mapDBError(err)
}

func (r *KeyRepo) UpsertInferred(ctx context.Context, pk *domain.PrimaryKey) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO primary_keys_inferred (table_id, fields_json, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT (table_id) DO UPDATE SET fields_json = excluded.fields_json, created_at = excluded.created_at`,
		pk.TableID, marshalStrings(pk.Fields), pk.CreatedAt)
	return mapDBError(err)
}

// GetExplicit returns (nil, nil) when no explicit key is declared.
func (r *KeyRepo) GetExplicit(ctx context.Context, tableID string) (*domain.PrimaryKey, error) {
	return r.get(ctx, "primary_keys", tableID)
}

// GetInferred returns (nil, nil) when no inferred key is recorded.
func (r *KeyRepo) GetInferred(ctx context.Context, tableID string) (*domain.PrimaryKey, error) {
	return r.get(ctx, "primary_keys_inferred", tableID)
}

func (r *KeyRepo) get(ctx context.Context, table, tableID string) (*domain.PrimaryKey, error) {
	var (
		pk     domain.PrimaryKey
		fields string
	)
	err := r.q.QueryRowContext(ctx,
		`SELECT table_id, fields_json, created_at FROM `+table+` WHERE table_id = ?`, tableID).
		Scan(&pk.TableID, &fields, &pk.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	pk.Fields, err = unmarshalStrings(fields)
	if err != nil {
		return nil, err
	}
	return &pk, nil
}

func (r *KeyRepo) DeleteInferred(ctx context.Context, tableID string) error {
	_, err := r.q.ExecContext(ctx,
		`DELETE FROM primary_keys_inferred WHERE table_id = ?`, tableID)
	return mapDBError(err)
}
