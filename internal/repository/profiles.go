package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Imd11/DataPrism/internal/domain"
)

type ProfileRepo struct {
	q DBTX
}

// ReplaceForTable swaps a table's profile set wholesale. Profiles describe
// the active version only, so a refresh never patches rows in place.
func (r *ProfileRepo) ReplaceForTable(ctx context.Context, tableID string, profiles []domain.ColumnProfile) error {
	if _, err := r.q.ExecContext(ctx,
		`DELETE FROM column_profiles WHERE table_id = ?`, tableID); err != nil {
		return mapDBError(err)
	}
	for _, p := range profiles {
		_, err := r.q.ExecContext(ctx, `
			INSERT INTO column_profiles
			(table_id, column_name, row_count, missing_count, distinct_count, is_unique, is_identity, inferred_nullable, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			p.TableID, p.ColumnName, p.RowCount, p.MissingCount, p.DistinctCount,
			p.IsUnique, p.IsIdentity, p.InferredNullable, p.UpdatedAt)
		if err != nil {
			return mapDBError(err)
		}
	}
	return nil
}

func (r *ProfileRepo) ListForTable(ctx context.Context, tableID string) ([]domain.ColumnProfile, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT table_id, column_name, row_count, missing_count, distinct_count, is_unique, is_identity, inferred_nullable, updated_at
		FROM column_profiles WHERE table_id = ? ORDER BY column_name`, tableID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.ColumnProfile{}
	for rows.Next() {
		var p domain.ColumnProfile
		if err := rows.Scan(&p.TableID, &p.ColumnName, &p.RowCount, &p.MissingCount, &p.DistinctCount,
			&p.IsUnique, &p.IsIdentity, &p.InferredNullable, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// HasAny reports whether a table has at least one profile row.
func (r *ProfileRepo) HasAny(ctx context.Context, tableID string) (bool, error) {
	var one int
	err := r.q.QueryRowContext(ctx,
		`SELECT 1 FROM column_profiles WHERE table_id = ? LIMIT 1`, tableID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
