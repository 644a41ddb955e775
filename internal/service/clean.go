package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Imd11/DataPrism/internal/domain"
	"github.com/Imd11/DataPrism/internal/engine"
	"github.com/Imd11/DataPrism/internal/repository"
)

// CleanService applies in-place cleaning actions. Each apply snapshots the
// next version of the same table; the previous version stays on disk so
// undo is a metadata-only flip.
type CleanService struct {
	store *repository.Store
	eng   *engine.Engine
	log   *slog.Logger
}

func NewCleanService(store *repository.Store, eng *engine.Engine, log *slog.Logger) *CleanService {
	return &CleanService{store: store, eng: eng, log: log}
}

// Clean applies one action to the selected fields of a table's active
// version, producing and activating version v+1.
func (s *CleanService) Clean(ctx context.Context, tableID string, req domain.CleanRequest) (*domain.CleanResult, error) {
	if err := req.Action.Validate(); err != nil {
		return nil, err
	}
	if len(req.Fields) == 0 {
		return nil, domain.ErrValidation("clean requires at least one field")
	}
	if len(req.Filters) > 0 && !req.Action.SupportsScope() {
		return nil, domain.ErrValidation("scoped apply is not supported for action %q", req.Action)
	}

	t, err := s.store.Tables.GetByID(ctx, tableID)
	if err != nil {
		return nil, err
	}
	prev, err := s.store.Versions.GetActive(ctx, tableID)
	if err != nil {
		return nil, err
	}
	cols, err := s.eng.Columns(ctx, prev.PhysicalName)
	if err != nil {
		return nil, err
	}
	names := columnNames(cols)
	if err := requireColumns(req.Fields, names); err != nil {
		return nil, err
	}

	scopeSQL, scopeArgs, err := engine.BuildWhere(req.Filters, names)
	if err != nil {
		return nil, err
	}

	newVer, err := s.store.Versions.NextVersionNumber(ctx, tableID)
	if err != nil {
		return nil, err
	}
	newPhysical := engine.PhysicalName(tableID, newVer)

	selectSQL, args, err := s.buildCleanSelect(ctx, req, cols, prev.PhysicalName, scopeSQL, scopeArgs)
	if err != nil {
		return nil, err
	}
	if err := s.eng.CreateTableAs(ctx, newPhysical, selectSQL, args...); err != nil {
		return nil, err
	}

	now := utcNow()
	opID := domain.NewID("op")
	newVersionID := domain.NewID("ver")
	err = s.store.WithTx(ctx, func(tx *repository.Store) error {
		if err := tx.Versions.Insert(ctx, &domain.TableVersion{
			ID:           newVersionID,
			TableID:      tableID,
			Version:      newVer,
			PhysicalName: newPhysical,
			CreatedAt:    now,
		}); err != nil {
			return err
		}
		if err := tx.Versions.Activate(ctx, tableID, newVersionID, now); err != nil {
			return err
		}
		if err := tx.Tables.SetDirty(ctx, tableID, true, now); err != nil {
			return err
		}
		params, _ := json.Marshal(map[string]interface{}{
			"action": req.Action, "fields": req.Fields, "filters": req.Filters,
		})
		result, _ := json.Marshal(map[string]int{"newVersion": newVer})
		if err := tx.OpLog.Insert(ctx, &domain.OperationLogEntry{
			ID:            opID,
			Type:          domain.OpClean,
			TableID:       tableID,
			TableName:     t.Name,
			Params:        params,
			Result:        result,
			CreatedAt:     now,
			Undoable:      true,
			PrevVersionID: &prev.ID,
			NewVersionID:  &newVersionID,
		}); err != nil {
			return err
		}
		return tx.Versions.SetOpLogID(ctx, newVersionID, opID)
	})
	if err != nil {
		_ = s.eng.DropTable(ctx, newPhysical)
		return nil, err
	}

	s.log.Info("clean applied", "table", tableID, "action", req.Action, "version", newVer)
	return &domain.CleanResult{
		OperationID: opID,
		TableID:     tableID,
		NewVersion:  newVer,
		Timestamp:   now,
	}, nil
}

// buildCleanSelect assembles the SELECT materializing the cleaned version.
// Bind args follow clause order: scope args repeat per rewritten column,
// fill values bind one per filled column.
func (s *CleanService) buildCleanSelect(ctx context.Context, req domain.CleanRequest, cols []engine.Column, physical, scopeSQL string, scopeArgs []interface{}) (string, []interface{}, error) {
	target := make(map[string]bool, len(req.Fields))
	for _, f := range req.Fields {
		target[f] = true
	}

	if req.Action == domain.CleanDropMissing {
		preds := make([]string, 0, len(req.Fields))
		for _, f := range req.Fields {
			preds = append(preds, engine.QuoteIdentifier(f)+" IS NOT NULL")
		}
		exprs := make([]string, len(cols))
		for i, c := range cols {
			exprs[i] = engine.QuoteIdentifier(c.Name)
		}
		sql := fmt.Sprintf("SELECT %s FROM %s WHERE %s",
			strings.Join(exprs, ", "), engine.QuoteIdentifier(physical), strings.Join(preds, " AND "))
		return sql, nil, nil
	}

	// Fill values aggregate over the current active version, missing rows
	// included in the denominator semantics of avg/median.
	fillValues := map[string]interface{}{}
	if req.Action == domain.CleanFillMean || req.Action == domain.CleanFillMedian {
		agg := "avg"
		if req.Action == domain.CleanFillMedian {
			agg = "median"
		}
		for _, c := range cols {
			if !target[c.Name] {
				continue
			}
			if !engine.IsNumericType(c.Type) {
				return "", nil, domain.ErrValidation("%s only supports numeric columns: %q", req.Action, c.Name)
			}
			v, ok, err := s.eng.ScalarFloat(ctx, fmt.Sprintf(
				"SELECT %s(%s) FROM %s", agg, engine.QuoteIdentifier(c.Name), engine.QuoteIdentifier(physical)))
			if err != nil {
				return "", nil, err
			}
			if ok {
				fillValues[c.Name] = v
			} else {
				fillValues[c.Name] = nil
			}
		}
	}

	var (
		exprs []string
		args  []interface{}
	)
	for _, c := range cols {
		qt := engine.QuoteIdentifier(c.Name)
		if !target[c.Name] {
			exprs = append(exprs, qt)
			continue
		}

		var expr string
		switch req.Action {
		case domain.CleanTrim:
			expr = "trim(CAST(" + qt + " AS VARCHAR))"
		case domain.CleanLowercase:
			expr = "lower(CAST(" + qt + " AS VARCHAR))"
		case domain.CleanStandardizeMissing:
			expr = "CASE WHEN " + missingTokenCond(c.Name) + " THEN NULL ELSE " + qt + " END"
		case domain.CleanFillMean, domain.CleanFillMedian:
			exprs = append(exprs, "coalesce("+qt+", ?) AS "+qt)
			args = append(args, fillValues[c.Name])
			continue
		}

		if scopeSQL != "" {
			expr = "CASE WHEN (" + scopeSQL + ") THEN " + expr + " ELSE " + qt + " END"
			args = append(args, scopeArgs...)
		}
		exprs = append(exprs, expr+" AS "+qt)
	}

	sql := fmt.Sprintf("SELECT %s FROM %s",
		strings.Join(exprs, ", "), engine.QuoteIdentifier(physical))
	return sql, args, nil
}

// missingTokenCond matches non-null values that normalize to a missing
// placeholder token or the empty string.
func missingTokenCond(col string) string {
	qt := engine.QuoteIdentifier(col)
	tok := "lower(trim(CAST(" + qt + " AS VARCHAR)))"
	quoted := make([]string, len(domain.MissingTokens))
	for i, t := range domain.MissingTokens {
		quoted[i] = engine.QuoteLiteral(t)
	}
	return qt + " IS NOT NULL AND (" + tok + " = '' OR " + tok + " IN (" + strings.Join(quoted, ", ") + "))"
}

// UndoLastClean re-points the affected table at the version preceding the
// most recent undoable clean and retires that log entry. The newer
// version's snapshot is kept; history is append-only.
func (s *CleanService) UndoLastClean(ctx context.Context) (*domain.UndoResult, error) {
	entry, err := s.store.OpLog.LatestUndoableClean(ctx)
	if err != nil {
		return nil, err
	}
	if entry == nil || entry.PrevVersionID == nil {
		return nil, domain.ErrNotFound("no undoable clean operation")
	}

	now := utcNow()
	err = s.store.WithTx(ctx, func(tx *repository.Store) error {
		if err := tx.Versions.Activate(ctx, entry.TableID, *entry.PrevVersionID, now); err != nil {
			return err
		}
		return tx.OpLog.MarkUndone(ctx, entry.ID)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("clean undone", "table", entry.TableID, "operation", entry.ID)
	return &domain.UndoResult{UndoneOperationID: entry.ID, TableID: entry.TableID}, nil
}

// Preview estimates the effect of trim, lowercase or standardize-missing
// without snapshotting anything. Row ids in samples are positional and
// only stable within one preview.
func (s *CleanService) Preview(ctx context.Context, tableID string, req domain.CleanRequest, limit int) (*domain.CleanPreview, error) {
	if !req.Action.SupportsScope() {
		return nil, domain.ErrValidation("preview is not supported for action %q", req.Action)
	}
	physical, err := activePhysical(ctx, s.store, tableID)
	if err != nil {
		return nil, err
	}
	names, err := s.eng.ColumnNames(ctx, physical)
	if err != nil {
		return nil, err
	}
	if err := requireColumns(req.Fields, names); err != nil {
		return nil, err
	}
	scopeSQL, scopeArgs, err := engine.BuildWhere(req.Filters, names)
	if err != nil {
		return nil, err
	}
	if scopeSQL == "" {
		scopeSQL = "true"
	}

	base := "SELECT row_number() OVER () AS __rid, * FROM " + engine.QuoteIdentifier(physical)

	preview := &domain.CleanPreview{
		TableID:  tableID,
		Action:   req.Action,
		Fields:   req.Fields,
		PerField: []domain.CleanPreviewField{},
		Samples:  []map[string]interface{}{},
	}

	conds := make([]string, 0, len(req.Fields))
	for _, f := range req.Fields {
		cond := previewCond(req.Action, f)
		conds = append(conds, "("+cond+")")
		count, err := s.eng.ScalarInt64(ctx,
			fmt.Sprintf("SELECT count(*) FROM (%s) t WHERE (%s) AND %s", base, scopeSQL, cond),
			scopeArgs...)
		if err != nil {
			return nil, err
		}
		preview.AffectedCells += count
		preview.PerField = append(preview.PerField, domain.CleanPreviewField{
			Field: f, AffectedCells: count,
		})
	}
	if len(conds) == 0 {
		return preview, nil
	}

	anyCond := strings.Join(conds, " OR ")
	if preview.AffectedRows, err = s.eng.ScalarInt64(ctx,
		fmt.Sprintf("SELECT count(*) FROM (%s) t WHERE (%s) AND (%s)", base, scopeSQL, anyCond),
		scopeArgs...); err != nil {
		return nil, err
	}

	if limit > 0 && preview.AffectedRows > 0 {
		sampleArgs := append(append([]interface{}{}, scopeArgs...), limit)
		rows, err := s.eng.QueryMaps(ctx,
			fmt.Sprintf("SELECT * FROM (%s) t WHERE (%s) AND (%s) LIMIT ?", base, scopeSQL, anyCond),
			sampleArgs...)
		if err != nil {
			return nil, err
		}
		for _, r := range rows {
			item := map[string]interface{}{"__rid": r["__rid"]}
			for _, f := range req.Fields {
				before := r[f]
				item[f] = map[string]interface{}{
					"before": before,
					"after":  previewApply(req.Action, before),
				}
			}
			preview.Samples = append(preview.Samples, item)
		}
	}
	return preview, nil
}

func previewCond(action domain.CleanAction, field string) string {
	qt := engine.QuoteIdentifier(field)
	switch action {
	case domain.CleanStandardizeMissing:
		return missingTokenCond(field)
	case domain.CleanTrim:
		return qt + " IS NOT NULL AND CAST(" + qt + " AS VARCHAR) != trim(CAST(" + qt + " AS VARCHAR))"
	case domain.CleanLowercase:
		return qt + " IS NOT NULL AND CAST(" + qt + " AS VARCHAR) != lower(CAST(" + qt + " AS VARCHAR))"
	default:
		return "false"
	}
}

// previewApply mirrors the SQL rewrite in Go for sample before/after pairs.
func previewApply(action domain.CleanAction, before interface{}) interface{} {
	if before == nil {
		return nil
	}
	s := fmt.Sprintf("%v", before)
	switch action {
	case domain.CleanStandardizeMissing:
		norm := strings.ToLower(strings.TrimSpace(s))
		if norm == "" {
			return nil
		}
		for _, tok := range domain.MissingTokens {
			if norm == tok {
				return nil
			}
		}
		return before
	case domain.CleanTrim:
		return strings.TrimSpace(s)
	case domain.CleanLowercase:
		return strings.ToLower(s)
	default:
		return before
	}
}
