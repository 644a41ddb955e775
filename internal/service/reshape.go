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

// ReshapeService pivots tables between wide and long forms as new derived
// tables, using the engine's UNPIVOT and PIVOT.
type ReshapeService struct {
	store *repository.Store
	eng   *engine.Engine
	log   *slog.Logger
}

func NewReshapeService(store *repository.Store, eng *engine.Engine, log *slog.Logger) *ReshapeService {
	return &ReshapeService{store: store, eng: eng, log: log}
}

// Reshape executes the pivot and registers the derived table, lineage
// edge and log entry in one metastore commit.
func (s *ReshapeService) Reshape(ctx context.Context, req domain.ReshapeRequest) (string, *domain.ReshapeReport, *domain.LineageEdge, error) {
	if err := req.Direction.Validate(); err != nil {
		return "", nil, nil, err
	}

	sourcePhysical, err := activePhysical(ctx, s.store, req.TableID)
	if err != nil {
		return "", nil, nil, err
	}
	cols, err := s.eng.ColumnNames(ctx, sourcePhysical)
	if err != nil {
		return "", nil, nil, err
	}
	if err := requireColumns(req.IdVars, cols); err != nil {
		return "", nil, nil, err
	}

	rowsBefore, err := s.eng.RowCount(ctx, sourcePhysical)
	if err != nil {
		return "", nil, nil, err
	}
	colsBefore := len(cols)

	resultTableID := domain.NewID("table")
	resultName := req.ResultName
	if resultName == "" {
		resultName = "reshape_" + shortID(req.TableID)
	}
	resultPhysical := engine.PhysicalName(resultTableID, 1)

	var selectSQL string
	switch req.Direction {
	case domain.WideToLong:
		if len(req.ValueVars) == 0 {
			return "", nil, nil, domain.ErrValidation("wide-to-long requires valueVars")
		}
		if err := requireColumns(req.ValueVars, cols); err != nil {
			return "", nil, nil, err
		}
		selectSQL = buildUnpivot(sourcePhysical, req)
	case domain.LongToWide:
		if req.PivotColumns == "" || req.PivotValues == "" {
			return "", nil, nil, domain.ErrValidation("long-to-wide requires pivotColumns and pivotValues")
		}
		if err := requireColumns([]string{req.PivotColumns, req.PivotValues}, cols); err != nil {
			return "", nil, nil, err
		}
		selectSQL = buildPivot(sourcePhysical, req)
	}

	if err := s.eng.CreateTableAs(ctx, resultPhysical, selectSQL); err != nil {
		return "", nil, nil, err
	}

	rowsAfter, err := s.eng.RowCount(ctx, resultPhysical)
	if err != nil {
		_ = s.eng.DropTable(ctx, resultPhysical)
		return "", nil, nil, err
	}
	resultCols, err := s.eng.ColumnNames(ctx, resultPhysical)
	if err != nil {
		_ = s.eng.DropTable(ctx, resultPhysical)
		return "", nil, nil, err
	}

	now := utcNow()
	lineage := &domain.LineageEdge{
		ID:             domain.NewID("lin"),
		DerivedTableID: resultTableID,
		SourceTableIDs: []string{req.TableID},
		Operation:      domain.OpReshape,
		CreatedAt:      now,
	}
	report := &domain.ReshapeReport{
		ID:            domain.NewID("reshape"),
		SourceTable:   req.TableID,
		ResultTable:   resultTableID,
		Direction:     req.Direction,
		IdVars:        req.IdVars,
		ValueVars:     req.ValueVars,
		RowsBefore:    rowsBefore,
		RowsAfter:     rowsAfter,
		ColumnsBefore: colsBefore,
		ColumnsAfter:  len(resultCols),
		Timestamp:     now,
	}

	err = s.store.WithTx(ctx, func(tx *repository.Store) error {
		if err := tx.Tables.Insert(ctx, &domain.Table{
			ID:         resultTableID,
			Name:       resultName,
			SourceType: domain.SourceDerived,
			CreatedAt:  now,
			UpdatedAt:  now,
		}); err != nil {
			return err
		}
		if err := tx.Versions.Insert(ctx, &domain.TableVersion{
			ID:           domain.NewID("ver"),
			TableID:      resultTableID,
			Version:      1,
			PhysicalName: resultPhysical,
			CreatedAt:    now,
			IsActive:     true,
		}); err != nil {
			return err
		}
		if err := tx.Lineage.Insert(ctx, lineage); err != nil {
			return err
		}
		params, _ := json.Marshal(req)
		result, _ := json.Marshal(report)
		return tx.OpLog.Insert(ctx, &domain.OperationLogEntry{
			ID:        domain.NewID("op"),
			Type:      domain.OpReshape,
			TableID:   resultTableID,
			TableName: resultName,
			Params:    params,
			Result:    result,
			CreatedAt: now,
			Undoable:  false,
		})
	})
	if err != nil {
		_ = s.eng.DropTable(ctx, resultPhysical)
		return "", nil, nil, err
	}

	s.log.Info("table reshaped",
		"source", req.TableID, "result", resultTableID, "direction", req.Direction)
	return resultTableID, report, lineage, nil
}

// buildUnpivot melts ValueVars into (variable, value) pairs while carrying
// the id columns through.
func buildUnpivot(physical string, req domain.ReshapeRequest) string {
	variable := req.VariableName
	if variable == "" {
		variable = "variable"
	}
	value := req.ValueName
	if value == "" {
		value = "value"
	}

	keep := make([]string, 0, len(req.IdVars)+2)
	for _, c := range req.IdVars {
		keep = append(keep, engine.QuoteIdentifier(c))
	}
	keep = append(keep, engine.QuoteIdentifier(variable), engine.QuoteIdentifier(value))

	valueVars := make([]string, len(req.ValueVars))
	for i, c := range req.ValueVars {
		valueVars[i] = engine.QuoteIdentifier(c)
	}

	// INCLUDE NULLS keeps empty cells so every input row yields one output
	// row per value column.
	return fmt.Sprintf("SELECT %s FROM %s UNPIVOT INCLUDE NULLS (%s FOR %s IN (%s))",
		strings.Join(keep, ", "), engine.QuoteIdentifier(physical),
		engine.QuoteIdentifier(value), engine.QuoteIdentifier(variable),
		strings.Join(valueVars, ", "))
}

// buildPivot spreads distinct PivotColumns values into columns, one row
// per id-var combination, resolving cell collisions by first value.
func buildPivot(physical string, req domain.ReshapeRequest) string {
	groupBy := ""
	if len(req.IdVars) > 0 {
		ids := make([]string, len(req.IdVars))
		for i, c := range req.IdVars {
			ids[i] = engine.QuoteIdentifier(c)
		}
		groupBy = " GROUP BY " + strings.Join(ids, ", ")
	}
	return fmt.Sprintf("SELECT * FROM (PIVOT %s ON %s USING first(%s)%s)",
		engine.QuoteIdentifier(physical),
		engine.QuoteIdentifier(req.PivotColumns),
		engine.QuoteIdentifier(req.PivotValues), groupBy)
}
