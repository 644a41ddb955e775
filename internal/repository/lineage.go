package repository

import (
	"context"

	"github.com/Imd11/DataPrism/internal/domain"
)

type LineageRepo struct {
	q DBTX
}

func (r *LineageRepo) Insert(ctx context.Context, e *domain.LineageEdge) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO lineage_edges (id, derived_table_id, source_table_ids_json, operation, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		e.ID, e.DerivedTableID, marshalStrings(e.SourceTableIDs), string(e.Operation), e.CreatedAt)
	return mapDBError(err)
}

func (r *LineageRepo) List(ctx context.Context) ([]domain.LineageEdge, error) {
	return r.list(ctx, `
		SELECT id, derived_table_id, source_table_ids_json, operation, created_at
		FROM lineage_edges ORDER BY created_at, id`)
}

func (r *LineageRepo) ListForDerived(ctx context.Context, tableID string) ([]domain.LineageEdge, error) {
	return r.list(ctx, `
		SELECT id, derived_table_id, source_table_ids_json, operation, created_at
		FROM lineage_edges WHERE derived_table_id = ? ORDER BY created_at, id`, tableID)
}

func (r *LineageRepo) list(ctx context.Context, query string, args ...interface{}) ([]domain.LineageEdge, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.LineageEdge{}
	for rows.Next() {
		var (
			e       domain.LineageEdge
			sources string
			op      string
		)
		if err := rows.Scan(&e.ID, &e.DerivedTableID, &sources, &op, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Operation = domain.OperationType(op)
		if e.SourceTableIDs, err = unmarshalStrings(sources); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
