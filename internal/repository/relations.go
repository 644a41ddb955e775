package repository

import (
	"context"
	"database/sql"

	"github.com/Imd11/DataPrism/internal/domain"
)

// RelationRepo manages explicit and inferred relation edges. Inferred
// edges carry a coverage value and are fully replaced on each inference
// pass; explicit edges are append-only declarations.
type RelationRepo struct {
	q DBTX
}

func (r *RelationRepo) InsertExplicit(ctx context.Context, e *domain.RelationEdge) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO relation_edges (id, fk_table_id, fk_fields_json, pk_table_id, pk_fields_json, cardinality, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.FkTableID, marshalStrings(e.FkFields), e.PkTableID, marshalStrings(e.PkFields),
		string(e.Cardinality), e.CreatedAt)
	return mapDBError(err)
}

func (r *RelationRepo) UpsertInferred(ctx context.Context, e *domain.RelationEdge) error {
	if e.Coverage == nil {
		return domain.ErrValidation("inferred relation requires coverage")
	}
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO relation_edges_inferred (id, fk_table_id, fk_fields_json, pk_table_id, pk_fields_json, cardinality, coverage, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET cardinality = excluded.cardinality, coverage = excluded.coverage, created_at = excluded.created_at`,
		e.ID, e.FkTableID, marshalStrings(e.FkFields), e.PkTableID, marshalStrings(e.PkFields),
		string(e.Cardinality), *e.Coverage, e.CreatedAt)
	return mapDBError(err)
}

func (r *RelationRepo) DeleteAllInferred(ctx context.Context) error {
	_, err := r.q.ExecContext(ctx, `DELETE FROM relation_edges_inferred`)
	return mapDBError(err)
}

func (r *RelationRepo) ListExplicit(ctx context.Context) ([]domain.RelationEdge, error) {
	return r.list(ctx, `
		SELECT id, fk_table_id, fk_fields_json, pk_table_id, pk_fields_json, cardinality, NULL, created_at
		FROM relation_edges ORDER BY created_at, id`)
}

func (r *RelationRepo) ListInferred(ctx context.Context) ([]domain.RelationEdge, error) {
	return r.list(ctx, `
		SELECT id, fk_table_id, fk_fields_json, pk_table_id, pk_fields_json, cardinality, coverage, created_at
		FROM relation_edges_inferred ORDER BY created_at, id`)
}

// ListForFkTable returns all edges (explicit then inferred) whose fk side
// is the given table.
func (r *RelationRepo) ListForFkTable(ctx context.Context, tableID string) ([]domain.RelationEdge, error) {
	explicit, err := r.list(ctx, `
		SELECT id, fk_table_id, fk_fields_json, pk_table_id, pk_fields_json, cardinality, NULL, created_at
		FROM relation_edges WHERE fk_table_id = ? ORDER BY created_at, id`, tableID)
	if err != nil {
		return nil, err
	}
	inferred, err := r.list(ctx, `
		SELECT id, fk_table_id, fk_fields_json, pk_table_id, pk_fields_json, cardinality, coverage, created_at
		FROM relation_edges_inferred WHERE fk_table_id = ? ORDER BY created_at, id`, tableID)
	if err != nil {
		return nil, err
	}
	return append(explicit, inferred...), nil
}

// Get looks an edge up by id in the explicit table first, then the
// inferred one.
func (r *RelationRepo) Get(ctx context.Context, id string) (*domain.RelationEdge, error) {
	edges, err := r.list(ctx, `
		SELECT id, fk_table_id, fk_fields_json, pk_table_id, pk_fields_json, cardinality, NULL, created_at
		FROM relation_edges WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(edges) == 0 {
		edges, err = r.list(ctx, `
			SELECT id, fk_table_id, fk_fields_json, pk_table_id, pk_fields_json, cardinality, coverage, created_at
			FROM relation_edges_inferred WHERE id = ?`, id)
		if err != nil {
			return nil, err
		}
	}
	if len(edges) == 0 {
		return nil, domain.ErrNotFound("relation %s not found", id)
	}
	return &edges[0], nil
}

func (r *RelationRepo) list(ctx context.Context, query string, args ...interface{}) ([]domain.RelationEdge, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.RelationEdge{}
	for rows.Next() {
		var (
			e        domain.RelationEdge
			fkFields string
			pkFields string
			card     string
			coverage sql.NullFloat64
		)
		if err := rows.Scan(&e.ID, &e.FkTableID, &fkFields, &e.PkTableID, &pkFields, &card, &coverage, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Cardinality = domain.Cardinality(card)
		if e.FkFields, err = unmarshalStrings(fkFields); err != nil {
			return nil, err
		}
		if e.PkFields, err = unmarshalStrings(pkFields); err != nil {
			return nil, err
		}
		if coverage.Valid {
			e.Coverage = &coverage.Float64
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
