package repository

import (
	"context"
	"database/sql"

	"github.com/Imd11/DataPrism/internal/domain"
)

// OpLogRepo manages the append-only operation log. Undo never deletes an
// entry; it flips undoable off via MarkUndone.
type OpLogRepo struct {
	q DBTX
}

func (r *OpLogRepo) Insert(ctx context.Context, e *domain.OperationLogEntry) error {
	params := "{}"
	if len(e.Params) > 0 {
		params = string(e.Params)
	}
	var result interface{}
	if len(e.Result) > 0 {
		result = string(e.Result)
	}
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO operation_logs (id, type, table_id, table_name, params_json, result_json, created_at, undoable, prev_version_id, new_version_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, string(e.Type), e.TableID, e.TableName, params, result,
		e.CreatedAt, e.Undoable, e.PrevVersionID, e.NewVersionID)
	return mapDBError(err)
}

// List returns the newest entries first, capped at limit.
func (r *OpLogRepo) List(ctx context.Context, limit int) ([]domain.OperationLogEntry, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT id, type, table_id, table_name, params_json, result_json, created_at, undoable, prev_version_id, new_version_id
		FROM operation_logs ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.OperationLogEntry{}
	for rows.Next() {
		e, err := scanOpLog(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

// LatestUndoableClean returns the most recent still-undoable clean entry,
// or (nil, nil) when none exists. Ties on created_at break by insertion
// order.
func (r *OpLogRepo) LatestUndoableClean(ctx context.Context) (*domain.OperationLogEntry, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT id, type, table_id, table_name, params_json, result_json, created_at, undoable, prev_version_id, new_version_id
		FROM operation_logs
		WHERE type = 'clean' AND undoable = 1
		ORDER BY created_at DESC, rowid DESC LIMIT 1`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	return scanOpLog(rows)
}

// MarkUndone flips an entry's undoable flag off.
func (r *OpLogRepo) MarkUndone(ctx context.Context, id string) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE operation_logs SET undoable = 0 WHERE id = ?`, id)
	if err != nil {
		return mapDBError(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound("operation %s not found", id)
	}
	return nil
}

func scanOpLog(rows *sql.Rows) (*domain.OperationLogEntry, error) {
	var (
		e       domain.OperationLogEntry
		typ     string
		params  string
		result  sql.NullString
		prevVer sql.NullString
		newVer  sql.NullString
	)
	if err := rows.Scan(&e.ID, &typ, &e.TableID, &e.TableName, &params, &result,
		&e.CreatedAt, &e.Undoable, &prevVer, &newVer); err != nil {
		return nil, err
	}
	e.Type = domain.OperationType(typ)
	e.Params = []byte(params)
	if result.Valid {
		e.Result = []byte(result.String)
	}
	if prevVer.Valid {
		e.PrevVersionID = &prevVer.String
	}
	if newVer.Valid {
		e.NewVersionID = &newVer.String
	}
	return &e, nil
}
