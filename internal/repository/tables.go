package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/Imd11/DataPrism/internal/domain"
)

type TableRepo struct {
	q DBTX
}

func (r *TableRepo) Insert(ctx context.Context, t *domain.Table) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO tables (id, name, source_type, source_file_id, dirty, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Name, string(t.SourceType), t.SourceFileID, t.Dirty, t.CreatedAt, t.UpdatedAt)
	return mapDBError(err)
}

func (r *TableRepo) GetByID(ctx context.Context, id string) (*domain.Table, error) {
	return r.scanOne(r.q.QueryRowContext(ctx, `
		SELECT id, name, source_type, source_file_id, dirty, created_at, updated_at
		FROM tables WHERE id = ?`, id))
}

func (r *TableRepo) GetByName(ctx context.Context, name string) (*domain.Table, error) {
	return r.scanOne(r.q.QueryRowContext(ctx, `
		SELECT id, name, source_type, source_file_id, dirty, created_at, updated_at
		FROM tables WHERE name = ?`, name))
}

func (r *TableRepo) scanOne(row *sql.Row) (*domain.Table, error) {
	var (
		t      domain.Table
		st     string
		fileID sql.NullString
	)
	err := row.Scan(&t.ID, &t.Name, &st, &fileID, &t.Dirty, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, mapDBError(err)
	}
	t.SourceType = domain.SourceType(st)
	if fileID.Valid {
		t.SourceFileID = &fileID.String
	}
	return &t, nil
}

func (r *TableRepo) List(ctx context.Context) ([]domain.Table, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT id, name, source_type, source_file_id, dirty, created_at, updated_at
		FROM tables ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Table{}
	for rows.Next() {
		var (
			t      domain.Table
			st     string
			fileID sql.NullString
		)
		if err := rows.Scan(&t.ID, &t.Name, &st, &fileID, &t.Dirty, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		t.SourceType = domain.SourceType(st)
		if fileID.Valid {
			t.SourceFileID = &fileID.String
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// SetDirty flips the stale-metadata marker.
func (r *TableRepo) SetDirty(ctx context.Context, id string, dirty bool, now time.Time) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE tables SET dirty = ?, updated_at = ? WHERE id = ?`, dirty, now, id)
	if err != nil {
		return mapDBError(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound("table %s not found", id)
	}
	return nil
}

type VersionRepo struct {
	q DBTX
}

func (r *VersionRepo) Insert(ctx context.Context, v *domain.TableVersion) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO table_versions (id, table_id, version, physical_name, op_log_id, created_at, is_active)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		v.ID, v.TableID, v.Version, v.PhysicalName, v.OpLogID, v.CreatedAt, v.IsActive)
	return mapDBError(err)
}

func (r *VersionRepo) GetByID(ctx context.Context, id string) (*domain.TableVersion, error) {
	return r.scanOne(r.q.QueryRowContext(ctx, `
		SELECT id, table_id, version, physical_name, op_log_id, created_at, is_active
		FROM table_versions WHERE id = ?`, id))
}

// GetActive returns the single active version of a table.
func (r *VersionRepo) GetActive(ctx context.Context, tableID string) (*domain.TableVersion, error) {
	v, err := r.scanOne(r.q.QueryRowContext(ctx, `
		SELECT id, table_id, version, physical_name, op_log_id, created_at, is_active
		FROM table_versions WHERE table_id = ? AND is_active = 1`, tableID))
	if err != nil {
		var nf *domain.NotFoundError
		if errors.As(err, &nf) {
			return nil, domain.ErrNotFound("table %s has no active version", tableID)
		}
		return nil, err
	}
	return v, nil
}

func (r *VersionRepo) scanOne(row *sql.Row) (*domain.TableVersion, error) {
	var (
		v     domain.TableVersion
		opLog sql.NullString
	)
	err := row.Scan(&v.ID, &v.TableID, &v.Version, &v.PhysicalName, &opLog, &v.CreatedAt, &v.IsActive)
	if err != nil {
		return nil, mapDBError(err)
	}
	if opLog.Valid {
		v.OpLogID = &opLog.String
	}
	return &v, nil
}

func (r *VersionRepo) ListForTable(ctx context.Context, tableID string) ([]domain.TableVersion, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT id, table_id, version, physical_name, op_log_id, created_at, is_active
		FROM table_versions WHERE table_id = ? ORDER BY version`, tableID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.TableVersion{}
	for rows.Next() {
		var (
			v     domain.TableVersion
			opLog sql.NullString
		)
		if err := rows.Scan(&v.ID, &v.TableID, &v.Version, &v.PhysicalName, &opLog, &v.CreatedAt, &v.IsActive); err != nil {
			return nil, err
		}
		if opLog.Valid {
			v.OpLogID = &opLog.String
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// ListAll returns every version of every table, for reconciliation.
func (r *VersionRepo) ListAll(ctx context.Context) ([]domain.TableVersion, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT id, table_id, version, physical_name, op_log_id, created_at, is_active
		FROM table_versions ORDER BY table_id, version`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.TableVersion{}
	for rows.Next() {
		var (
			v     domain.TableVersion
			opLog sql.NullString
		)
		if err := rows.Scan(&v.ID, &v.TableID, &v.Version, &v.PhysicalName, &opLog, &v.CreatedAt, &v.IsActive); err != nil {
			return nil, err
		}
		if opLog.Valid {
			v.OpLogID = &opLog.String
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// NextVersionNumber returns max(version)+1 for a table (1 when none exist).
func (r *VersionRepo) NextVersionNumber(ctx context.Context, tableID string) (int, error) {
	var n sql.NullInt64
	err := r.q.QueryRowContext(ctx,
		`SELECT MAX(version) FROM table_versions WHERE table_id = ?`, tableID).Scan(&n)
	if err != nil {
		return 0, mapDBError(err)
	}
	return int(n.Int64) + 1, nil
}

// Activate makes versionID the table's sole active version and bumps the
// table's updated_at.
func (r *VersionRepo) Activate(ctx context.Context, tableID, versionID string, now time.Time) error {
	if _, err := r.q.ExecContext(ctx,
		`UPDATE table_versions SET is_active = 0 WHERE table_id = ?`, tableID); err != nil {
		return mapDBError(err)
	}
	res, err := r.q.ExecContext(ctx,
		`UPDATE table_versions SET is_active = 1 WHERE id = ? AND table_id = ?`, versionID, tableID)
	if err != nil {
		return mapDBError(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound("version %s of table %s not found", versionID, tableID)
	}
	if _, err := r.q.ExecContext(ctx,
		`UPDATE tables SET updated_at = ? WHERE id = ?`, now, tableID); err != nil {
		return mapDBError(err)
	}
	return nil
}

// SetOpLogID back-fills the operation log id on a version created in the
// same transaction as its log entry.
func (r *VersionRepo) SetOpLogID(ctx context.Context, versionID, opLogID string) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE table_versions SET op_log_id = ? WHERE id = ?`, opLogID, versionID)
	if err != nil {
		return mapDBError(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound("version %s not found", versionID)
	}
	return nil
}
