package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/Imd11/DataPrism/internal/domain"
	"github.com/Imd11/DataPrism/internal/engine"
	"github.com/Imd11/DataPrism/internal/repository"
)

// DefaultRelationCoverageThreshold is the minimum fraction of non-missing
// fk values that must resolve in the pk table for an edge to be inferred,
// when the caller does not override it.
const DefaultRelationCoverageThreshold = 0.9

// InferenceService derives column profiles, primary keys and relation
// edges from the data itself. All results are recomputed wholesale, so a
// refresh after any snapshot change converges to the same state.
type InferenceService struct {
	store *repository.Store
	eng   *engine.Engine
	log   *slog.Logger
}

func NewInferenceService(store *repository.Store, eng *engine.Engine, log *slog.Logger) *InferenceService {
	return &InferenceService{store: store, eng: eng, log: log}
}

// RefreshProfiles recomputes the column profiles of a table's active
// version and replaces the stored set.
func (s *InferenceService) RefreshProfiles(ctx context.Context, tableID string) error {
	physical, err := activePhysical(ctx, s.store, tableID)
	if err != nil {
		return err
	}
	cols, err := s.eng.Columns(ctx, physical)
	if err != nil {
		return err
	}
	rowCount, err := s.eng.RowCount(ctx, physical)
	if err != nil {
		return err
	}

	now := utcNow()
	profiles := make([]domain.ColumnProfile, 0, len(cols))
	for _, col := range cols {
		missing, err := s.eng.ScalarInt64(ctx, fmt.Sprintf(
			"SELECT CAST(sum(CASE WHEN %s THEN 1 ELSE 0 END) AS BIGINT) FROM %s",
			engine.MissingPredicate(col.Name, col.Type), engine.QuoteIdentifier(physical)))
		if err != nil {
			return err
		}
		distinct, err := s.eng.ScalarInt64(ctx, fmt.Sprintf(
			"SELECT count(DISTINCT %s) FROM %s",
			engine.DistinctValueExpr(col.Name, col.Type), engine.QuoteIdentifier(physical)))
		if err != nil {
			return err
		}

		isUnique := rowCount > 0 && missing == 0 && distinct == rowCount

		isIdentity := false
		if isUnique && engine.IsIntegerType(col.Type) {
			qt := engine.QuoteIdentifier(col.Name)
			vmin, minOK, err := s.eng.ScalarFloat(ctx, fmt.Sprintf(
				"SELECT min(%s) FROM %s", qt, engine.QuoteIdentifier(physical)))
			if err != nil {
				return err
			}
			vmax, maxOK, err := s.eng.ScalarFloat(ctx, fmt.Sprintf(
				"SELECT max(%s) FROM %s", qt, engine.QuoteIdentifier(physical)))
			if err != nil {
				return err
			}
			if minOK && maxOK && (int64(vmin) == 0 || int64(vmin) == 1) &&
				int64(vmax)-int64(vmin)+1 == rowCount {
				isIdentity = true
			}
		}

		profiles = append(profiles, domain.ColumnProfile{
			TableID:          tableID,
			ColumnName:       col.Name,
			RowCount:         rowCount,
			MissingCount:     missing,
			DistinctCount:    distinct,
			IsUnique:         isUnique,
			IsIdentity:       isIdentity,
			InferredNullable: missing > 0,
			UpdatedAt:        now,
		})
	}

	return s.store.Profiles.ReplaceForTable(ctx, tableID, profiles)
}

// RefreshInferredPrimaryKey infers a single-column key from profiles. An
// explicit declaration disables inference entirely; with no candidate the
// stale inferred row is removed. Candidates rank "id" first, then "*_id"
// suffixes, then everything else, lexicographically within each tier.
func (s *InferenceService) RefreshInferredPrimaryKey(ctx context.Context, tableID string) ([]string, error) {
	explicit, err := s.store.Keys.GetExplicit(ctx, tableID)
	if err != nil {
		return nil, err
	}
	if explicit != nil {
		return nil, nil
	}

	profiles, err := s.store.Profiles.ListForTable(ctx, tableID)
	if err != nil {
		return nil, err
	}
	var candidates []string
	for _, p := range profiles {
		if p.RowCount > 0 && p.IsUnique && !p.InferredNullable {
			candidates = append(candidates, p.ColumnName)
		}
	}
	if len(candidates) == 0 {
		if err := s.store.Keys.DeleteInferred(ctx, tableID); err != nil {
			return nil, err
		}
		return nil, nil
	}

	sort.Slice(candidates, func(i, j int) bool {
		ri, rj := pkRank(candidates[i]), pkRank(candidates[j])
		if ri != rj {
			return ri < rj
		}
		return strings.ToLower(candidates[i]) < strings.ToLower(candidates[j])
	})

	fields := []string{candidates[0]}
	if err := s.store.Keys.UpsertInferred(ctx, &domain.PrimaryKey{
		TableID:   tableID,
		Fields:    fields,
		CreatedAt: utcNow(),
	}); err != nil {
		return nil, err
	}
	return fields, nil
}

func pkRank(name string) int {
	n := strings.ToLower(name)
	switch {
	case n == "id":
		return 0
	case strings.HasSuffix(n, "_id"):
		return 1
	default:
		return 2
	}
}

// RefreshInferredRelations recomputes the inferred relation edge set from
// scratch. It pairs same-named columns where the pk-side column is a key
// candidate, measures coverage of non-missing fk values against distinct
// pk values, and keeps edges at or above the threshold. A non-positive
// threshold falls back to DefaultRelationCoverageThreshold. Derived tables
// are skipped on both sides; they already contain their sources' columns
// and would only produce spurious edges.
func (s *InferenceService) RefreshInferredRelations(ctx context.Context, threshold float64) error {
	if threshold <= 0 {
		threshold = DefaultRelationCoverageThreshold
	}
	tables, err := s.store.Tables.List(ctx)
	if err != nil {
		return err
	}
	var tableIDs []string
	for _, t := range tables {
		if t.SourceType != domain.SourceDerived {
			tableIDs = append(tableIDs, t.ID)
		}
	}
	if len(tableIDs) == 0 {
		return s.store.Relations.DeleteAllInferred(ctx)
	}

	for _, tid := range tableIDs {
		ok, err := s.store.Profiles.HasAny(ctx, tid)
		if err != nil {
			return err
		}
		if !ok {
			if err := s.RefreshProfiles(ctx, tid); err != nil {
				return err
			}
		}
		if _, err := s.RefreshInferredPrimaryKey(ctx, tid); err != nil {
			return err
		}
	}

	// Key candidates per table: the declared/inferred single-column key
	// when present, else every unique non-nullable column.
	pkCandidates := make(map[string]map[string]bool, len(tableIDs))
	for _, tid := range tableIDs {
		fields, err := s.primaryKeyFields(ctx, tid)
		if err != nil {
			return err
		}
		if len(fields) == 1 {
			pkCandidates[tid] = map[string]bool{fields[0]: true}
			continue
		}
		profiles, err := s.store.Profiles.ListForTable(ctx, tid)
		if err != nil {
			return err
		}
		set := map[string]bool{}
		for _, p := range profiles {
			if p.RowCount > 0 && p.IsUnique && !p.InferredNullable {
				set[p.ColumnName] = true
			}
		}
		pkCandidates[tid] = set
	}

	if err := s.store.Relations.DeleteAllInferred(ctx); err != nil {
		return err
	}
	now := utcNow()

	for _, fkTID := range tableIDs {
		fkPhysical, err := activePhysical(ctx, s.store, fkTID)
		if err != nil {
			return err
		}
		fkCols, err := s.eng.ColumnNames(ctx, fkPhysical)
		if err != nil {
			return err
		}
		fkProfiles, err := s.store.Profiles.ListForTable(ctx, fkTID)
		if err != nil {
			return err
		}
		profByCol := make(map[string]domain.ColumnProfile, len(fkProfiles))
		for _, p := range fkProfiles {
			profByCol[p.ColumnName] = p
		}

		for _, pkTID := range tableIDs {
			if pkTID == fkTID || len(pkCandidates[pkTID]) == 0 {
				continue
			}
			pkPhysical, err := activePhysical(ctx, s.store, pkTID)
			if err != nil {
				return err
			}
			for _, shared := range sharedColumns(fkCols, pkCandidates[pkTID]) {
				prof, ok := profByCol[shared]
				if !ok || prof.DistinctCount == 0 {
					continue
				}

				key := engine.NormalizedKeyExpr(shared)
				matched, total, err := s.coverage(ctx, fkPhysical, pkPhysical, key)
				if err != nil {
					return err
				}
				if total == 0 {
					continue
				}
				coverage := float64(matched) / float64(total)
				if coverage < threshold {
					continue
				}

				cardinality := domain.CardinalityManyToOne
				if prof.IsUnique && !prof.InferredNullable {
					cardinality = domain.CardinalityOneToOne
				}

				edge := &domain.RelationEdge{
					ID:          domain.InferredRelationID(fkTID, []string{shared}, pkTID, []string{shared}),
					FkTableID:   fkTID,
					FkFields:    []string{shared},
					PkTableID:   pkTID,
					PkFields:    []string{shared},
					Cardinality: cardinality,
					Coverage:    &coverage,
					CreatedAt:   now,
				}
				if err := s.store.Relations.UpsertInferred(ctx, edge); err != nil {
					return err
				}
				s.log.Debug("relation inferred",
					"fkTable", fkTID, "pkTable", pkTID, "field", shared, "coverage", coverage)
			}
		}
	}
	return nil
}

// RefreshAll recomputes profiles and key inference for every table, then
// the relation edge set.
func (s *InferenceService) RefreshAll(ctx context.Context) error {
	tables, err := s.store.Tables.List(ctx)
	if err != nil {
		return err
	}
	for _, t := range tables {
		if err := s.RefreshProfiles(ctx, t.ID); err != nil {
			return err
		}
		if _, err := s.RefreshInferredPrimaryKey(ctx, t.ID); err != nil {
			return err
		}
	}
	return s.RefreshInferredRelations(ctx, DefaultRelationCoverageThreshold)
}

// RefreshTable recomputes one table's profiles and inferred key, then the
// global relation edge set.
func (s *InferenceService) RefreshTable(ctx context.Context, tableID string) error {
	if err := s.RefreshProfiles(ctx, tableID); err != nil {
		return err
	}
	if _, err := s.RefreshInferredPrimaryKey(ctx, tableID); err != nil {
		return err
	}
	return s.RefreshInferredRelations(ctx, DefaultRelationCoverageThreshold)
}

// primaryKeyFields returns the explicit key if declared, else the inferred
// one, else nil.
func (s *InferenceService) primaryKeyFields(ctx context.Context, tableID string) ([]string, error) {
	if pk, err := s.store.Keys.GetExplicit(ctx, tableID); err != nil || pk != nil {
		if err != nil {
			return nil, err
		}
		return pk.Fields, nil
	}
	pk, err := s.store.Keys.GetInferred(ctx, tableID)
	if err != nil || pk == nil {
		return nil, err
	}
	return pk.Fields, nil
}

func (s *InferenceService) coverage(ctx context.Context, fkPhysical, pkPhysical, keyExpr string) (int64, int64, error) {
	q := fmt.Sprintf(`
		WITH
		  fk AS (SELECT %[1]s AS k FROM %[2]s WHERE %[1]s IS NOT NULL),
		  pk AS (SELECT DISTINCT %[1]s AS k FROM %[3]s WHERE %[1]s IS NOT NULL)
		SELECT
		  CAST(sum(CASE WHEN pk.k IS NOT NULL THEN 1 ELSE 0 END) AS BIGINT) AS matched,
		  count(*) AS total
		FROM fk LEFT JOIN pk USING (k)`,
		keyExpr, engine.QuoteIdentifier(fkPhysical), engine.QuoteIdentifier(pkPhysical))

	var matched, total int64
	row := s.eng.QueryRow(ctx, q)
	var m, t *int64
	if err := row.Scan(&m, &t); err != nil {
		return 0, 0, fmt.Errorf("coverage: %w", err)
	}
	if m != nil {
		matched = *m
	}
	if t != nil {
		total = *t
	}
	return matched, total, nil
}

func sharedColumns(fkCols []string, pkCandidates map[string]bool) []string {
	var shared []string
	for _, c := range fkCols {
		if pkCandidates[c] {
			shared = append(shared, c)
		}
	}
	sort.Strings(shared)
	return shared
}
