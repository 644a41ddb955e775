package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Imd11/DataPrism/internal/domain"
	"github.com/Imd11/DataPrism/internal/engine"
	"github.com/Imd11/DataPrism/internal/repository"
)

// CatalogService serves the metadata read side plus explicit key and
// relation declarations.
type CatalogService struct {
	store     *repository.Store
	eng       *engine.Engine
	inference *InferenceService
	log       *slog.Logger
}

func NewCatalogService(store *repository.Store, eng *engine.Engine, inference *InferenceService, log *slog.Logger) *CatalogService {
	return &CatalogService{store: store, eng: eng, inference: inference, log: log}
}

// GetTableMeta assembles the merged field view of a table: engine schema,
// profile facts, key flags and fk references. Profiles are computed on
// first access when absent.
func (s *CatalogService) GetTableMeta(ctx context.Context, tableID string) (*domain.TableMeta, error) {
	t, err := s.store.Tables.GetByID(ctx, tableID)
	if err != nil {
		return nil, err
	}
	physical, err := activePhysical(ctx, s.store, tableID)
	if err != nil {
		return nil, err
	}

	profiles, err := s.store.Profiles.ListForTable(ctx, tableID)
	if err != nil {
		return nil, err
	}
	if len(profiles) == 0 {
		if err := s.inference.RefreshProfiles(ctx, tableID); err != nil {
			return nil, err
		}
		if profiles, err = s.store.Profiles.ListForTable(ctx, tableID); err != nil {
			return nil, err
		}
	}
	profByCol := make(map[string]domain.ColumnProfile, len(profiles))
	for _, p := range profiles {
		profByCol[p.ColumnName] = p
	}

	var rowCount int64
	if len(profiles) > 0 {
		rowCount = profiles[0].RowCount
	} else if rowCount, err = s.eng.RowCount(ctx, physical); err != nil {
		return nil, err
	}

	pkFields := map[string]bool{}
	if fields, err := s.inference.primaryKeyFields(ctx, tableID); err != nil {
		return nil, err
	} else {
		for _, f := range fields {
			pkFields[f] = true
		}
	}

	// fk field -> referenced (table, field), explicit edges first so they
	// win on collision.
	edges, err := s.store.Relations.ListForFkTable(ctx, tableID)
	if err != nil {
		return nil, err
	}
	type ref struct{ table, field string }
	fkByField := map[string]ref{}
	for _, e := range edges {
		for i, fkField := range e.FkFields {
			if _, seen := fkByField[fkField]; seen {
				continue
			}
			pkIdx := i
			if pkIdx >= len(e.PkFields) {
				pkIdx = len(e.PkFields) - 1
			}
			fkByField[fkField] = ref{table: e.PkTableID, field: e.PkFields[pkIdx]}
		}
	}

	cols, err := s.eng.Columns(ctx, physical)
	if err != nil {
		return nil, err
	}
	fields := make([]domain.FieldMeta, 0, len(cols))
	for _, col := range cols {
		fm := domain.FieldMeta{
			Name:     col.Name,
			Type:     engine.FieldType(col.Type),
			Nullable: col.Nullable,
		}
		if prof, ok := profByCol[col.Name]; ok {
			fm.MissingCount = prof.MissingCount
			if rowCount > 0 {
				fm.MissingRate = float64(prof.MissingCount) / float64(rowCount)
			}
			fm.Nullable = prof.InferredNullable
			fm.IsUnique = prof.IsUnique
			fm.IsIdentity = prof.IsIdentity
		}
		fm.IsPrimaryKey = pkFields[col.Name]
		if r, ok := fkByField[col.Name]; ok {
			fm.IsForeignKey = true
			fm.RefTable = &r.table
			fm.RefField = &r.field
		}
		fields = append(fields, fm)
	}

	return &domain.TableMeta{
		ID:           t.ID,
		Name:         t.Name,
		Fields:       fields,
		RowCount:     rowCount,
		SourceType:   t.SourceType,
		Dirty:        t.Dirty,
		SourceFileID: t.SourceFileID,
	}, nil
}

// ListTables returns merged metadata for every table.
func (s *CatalogService) ListTables(ctx context.Context) ([]domain.TableMeta, error) {
	tables, err := s.store.Tables.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.TableMeta, 0, len(tables))
	for _, t := range tables {
		meta, err := s.GetTableMeta(ctx, t.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, *meta)
	}
	return out, nil
}

// ListFiles returns all uploaded file records.
func (s *CatalogService) ListFiles(ctx context.Context) ([]domain.DataFile, error) {
	return s.store.Files.List(ctx)
}

// SetPrimaryKey declares an explicit key and retires the inferred one in
// the same transaction, so the declaration takes effect immediately.
func (s *CatalogService) SetPrimaryKey(ctx context.Context, tableID string, fields []string) error {
	if len(fields) == 0 {
		return domain.ErrValidation("primary key requires at least one field")
	}
	physical, err := activePhysical(ctx, s.store, tableID)
	if err != nil {
		return err
	}
	cols, err := s.eng.ColumnNames(ctx, physical)
	if err != nil {
		return err
	}
	if err := requireColumns(fields, cols); err != nil {
		return err
	}

	now := utcNow()
	return s.store.WithTx(ctx, func(tx *repository.Store) error {
		if err := tx.Keys.UpsertExplicit(ctx, &domain.PrimaryKey{
			TableID:   tableID,
			Fields:    fields,
			CreatedAt: now,
		}); err != nil {
			return err
		}
		return tx.Keys.DeleteInferred(ctx, tableID)
	})
}

// CreateRelation declares an explicit fk→pk edge.
func (s *CatalogService) CreateRelation(ctx context.Context, e *domain.RelationEdge) (*domain.RelationEdge, error) {
	if err := e.Cardinality.Validate(); err != nil {
		return nil, err
	}
	if len(e.FkFields) == 0 || len(e.FkFields) != len(e.PkFields) {
		return nil, domain.ErrValidation("fkFields and pkFields must be non-empty and of equal length")
	}
	for _, tid := range []string{e.FkTableID, e.PkTableID} {
		if _, err := s.store.Tables.GetByID(ctx, tid); err != nil {
			return nil, err
		}
	}

	e.ID = domain.NewID("rel")
	e.CreatedAt = utcNow()
	if err := s.store.Relations.InsertExplicit(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// ListRelations returns explicit edges plus inferred edges whose endpoint
// key is not shadowed by an explicit declaration.
func (s *CatalogService) ListRelations(ctx context.Context) ([]domain.RelationEdge, error) {
	explicit, err := s.store.Relations.ListExplicit(ctx)
	if err != nil {
		return nil, err
	}
	inferred, err := s.store.Relations.ListInferred(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(explicit))
	out := make([]domain.RelationEdge, 0, len(explicit)+len(inferred))
	for _, e := range explicit {
		seen[e.Key()] = true
		out = append(out, e)
	}
	for _, e := range inferred {
		if !seen[e.Key()] {
			out = append(out, e)
		}
	}
	return out, nil
}

// RelationReport measures an edge against current data: multi-column
// coverage, fk-side missing keys, and duplicate key rows on both sides.
func (s *CatalogService) RelationReport(ctx context.Context, relationID string) (*domain.RelationReport, error) {
	e, err := s.store.Relations.Get(ctx, relationID)
	if err != nil {
		return nil, err
	}
	if len(e.FkFields) != len(e.PkFields) {
		return nil, domain.ErrValidation("fk fields and pk fields length mismatch")
	}

	fkPhysical, err := activePhysical(ctx, s.store, e.FkTableID)
	if err != nil {
		return nil, err
	}
	pkPhysical, err := activePhysical(ctx, s.store, e.PkTableID)
	if err != nil {
		return nil, err
	}

	nonNull := make([]string, len(e.FkFields))
	joinPred := make([]string, len(e.FkFields))
	for i := range e.FkFields {
		nonNull[i] = engine.QuoteIdentifier(e.FkFields[i]) + " IS NOT NULL"
		joinPred[i] = fmt.Sprintf("l.%s = r.%s",
			engine.QuoteIdentifier(e.FkFields[i]), engine.QuoteIdentifier(e.PkFields[i]))
	}
	nonNullPred := strings.Join(nonNull, " AND ")

	var matched, total *int64
	err = s.eng.QueryRow(ctx, fmt.Sprintf(`
		SELECT
		  CAST(sum(CASE WHEN r.__in_right = 1 THEN 1 ELSE 0 END) AS BIGINT) AS matched,
		  count(*) AS total
		FROM (SELECT *, 1 AS __in_left FROM %s WHERE %s) l
		LEFT JOIN (SELECT *, 1 AS __in_right FROM %s) r ON %s`,
		engine.QuoteIdentifier(fkPhysical), nonNullPred,
		engine.QuoteIdentifier(pkPhysical), strings.Join(joinPred, " AND "))).
		Scan(&matched, &total)
	if err != nil {
		return nil, fmt.Errorf("relation coverage: %w", err)
	}

	report := &domain.RelationReport{
		RelationID: relationID,
		FkTableID:  e.FkTableID,
		PkTableID:  e.PkTableID,
		Timestamp:  utcNow(),
	}
	if total != nil && *total > 0 {
		var m int64
		if matched != nil {
			m = *matched
		}
		report.Coverage = float64(m) / float64(*total)
	}

	if report.FkMissing, err = s.eng.ScalarInt64(ctx, fmt.Sprintf(
		"SELECT CAST(sum(CASE WHEN NOT (%s) THEN 1 ELSE 0 END) AS BIGINT) FROM %s",
		nonNullPred, engine.QuoteIdentifier(fkPhysical))); err != nil {
		return nil, err
	}
	if report.FkDuplicateRows, err = s.duplicateRows(ctx, fkPhysical, e.FkFields); err != nil {
		return nil, err
	}
	if report.PkDuplicateRows, err = s.duplicateRows(ctx, pkPhysical, e.PkFields); err != nil {
		return nil, err
	}
	return report, nil
}

// duplicateRows counts surplus rows sharing a composite key value.
func (s *CatalogService) duplicateRows(ctx context.Context, physical string, keys []string) (int64, error) {
	return s.eng.ScalarInt64(ctx, fmt.Sprintf(
		"SELECT CAST(sum(CASE WHEN c > 1 THEN c - 1 ELSE 0 END) AS BIGINT) FROM (SELECT count(*) AS c FROM %s GROUP BY (%s))",
		engine.QuoteIdentifier(physical), compositeKeyExpr(keys)))
}

// compositeKeyExpr concatenates key columns as text with a separator that
// cannot appear in normal data, so composite values compare as one key.
func compositeKeyExpr(keys []string) string {
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = "coalesce(CAST(" + engine.QuoteIdentifier(k) + " AS VARCHAR), '')"
	}
	return strings.Join(parts, " || '␟' || ")
}

// ListLineages returns every lineage edge, newest first.
func (s *CatalogService) ListLineages(ctx context.Context) ([]domain.LineageEdge, error) {
	edges, err := s.store.Lineage.List(ctx)
	if err != nil {
		return nil, err
	}
	// Stored ascending; flip for the outward newest-first convention.
	for i, j := 0, len(edges)-1; i < j; i, j = i+1, j-1 {
		edges[i], edges[j] = edges[j], edges[i]
	}
	return edges, nil
}

// History returns the most recent operation log entries.
func (s *CatalogService) History(ctx context.Context) ([]domain.OperationLogEntry, error) {
	return s.store.OpLog.List(ctx, historyLimit)
}

// ReconcileOrphans drops snapshot tables the metastore no longer
// references. Transformations write the engine snapshot before the
// metastore commit, so a crash in between leaves an orphan behind.
func (s *CatalogService) ReconcileOrphans(ctx context.Context) (int, error) {
	versions, err := s.store.Versions.ListAll(ctx)
	if err != nil {
		return 0, err
	}
	referenced := make(map[string]bool, len(versions))
	for _, v := range versions {
		referenced[v.PhysicalName] = true
	}

	physicals, err := s.eng.ListPhysicalTables(ctx)
	if err != nil {
		return 0, err
	}
	dropped := 0
	for _, name := range physicals {
		if !strings.HasPrefix(name, "t_") || referenced[name] {
			continue
		}
		if err := s.eng.DropTable(ctx, name); err != nil {
			return dropped, err
		}
		s.log.Info("orphan snapshot dropped", "table", name)
		dropped++
	}
	return dropped, nil
}
