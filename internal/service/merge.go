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

// Merge provenance markers: 3 = matched both sides, 1 = left only,
// 2 = right only.
const (
	mergeMarkerColumn = "_merge"
	mergeLeftOnly     = 1
	mergeRightOnly    = 2
	mergeBoth         = 3
)

// MergeService joins two tables into a new derived table with a _merge
// provenance column and records the lineage edge.
type MergeService struct {
	store *repository.Store
	eng   *engine.Engine
	log   *slog.Logger
}

func NewMergeService(store *repository.Store, eng *engine.Engine, log *slog.Logger) *MergeService {
	return &MergeService{store: store, eng: eng, log: log}
}

// Merge executes the join and registers the derived table, its first
// version, the lineage edge and the log entry in one metastore commit.
func (s *MergeService) Merge(ctx context.Context, req domain.MergeRequest) (string, *domain.MergeReport, *domain.LineageEdge, error) {
	if err := req.How.Validate(); err != nil {
		return "", nil, nil, err
	}
	if err := req.JoinType.Validate(); err != nil {
		return "", nil, nil, err
	}
	if len(req.LeftKeys) == 0 || len(req.LeftKeys) != len(req.RightKeys) {
		return "", nil, nil, domain.ErrValidation("leftKeys and rightKeys must be non-empty and of equal length")
	}

	leftPhysical, err := activePhysical(ctx, s.store, req.LeftTableID)
	if err != nil {
		return "", nil, nil, err
	}
	rightPhysical, err := activePhysical(ctx, s.store, req.RightTableID)
	if err != nil {
		return "", nil, nil, err
	}
	leftCols, err := s.eng.ColumnNames(ctx, leftPhysical)
	if err != nil {
		return "", nil, nil, err
	}
	rightCols, err := s.eng.ColumnNames(ctx, rightPhysical)
	if err != nil {
		return "", nil, nil, err
	}
	if err := requireColumns(req.LeftKeys, leftCols); err != nil {
		return "", nil, nil, err
	}
	if err := requireColumns(req.RightKeys, rightCols); err != nil {
		return "", nil, nil, err
	}

	resultTableID := domain.NewID("table")
	resultName := req.ResultName
	if resultName == "" {
		resultName = fmt.Sprintf("merge_%s_%s", shortID(req.LeftTableID), shortID(req.RightTableID))
	}
	resultPhysical := engine.PhysicalName(resultTableID, 1)

	if err := s.eng.CreateTableAs(ctx, resultPhysical,
		s.buildMergeSelect(req, leftPhysical, rightPhysical, leftCols, rightCols)); err != nil {
		return "", nil, nil, err
	}

	report, err := s.measure(ctx, req, leftPhysical, rightPhysical, resultPhysical, resultTableID)
	if err != nil {
		_ = s.eng.DropTable(ctx, resultPhysical)
		return "", nil, nil, err
	}

	now := utcNow()
	lineage := &domain.LineageEdge{
		ID:             domain.NewID("lin"),
		DerivedTableID: resultTableID,
		SourceTableIDs: []string{req.LeftTableID, req.RightTableID},
		Operation:      domain.OpMerge,
		CreatedAt:      now,
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
			Type:      domain.OpMerge,
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

	s.log.Info("tables merged",
		"left", req.LeftTableID, "right", req.RightTableID, "result", resultTableID, "how", req.How)
	return resultTableID, report, lineage, nil
}

// buildMergeSelect keeps every left column under its own name; right
// columns colliding with a left name come out as right_<name>. Sentinel
// columns __in_left/__in_right drive the _merge marker and are not kept.
func (s *MergeService) buildMergeSelect(req domain.MergeRequest, leftPhysical, rightPhysical string, leftCols, rightCols []string) string {
	leftSet := make(map[string]bool, len(leftCols))
	selects := make([]string, 0, len(leftCols)+len(rightCols)+1)
	for _, c := range leftCols {
		leftSet[c] = true
		selects = append(selects, "l."+engine.QuoteIdentifier(c)+" AS "+engine.QuoteIdentifier(c))
	}
	for _, c := range rightCols {
		out := c
		if leftSet[c] {
			out = "right_" + c
		}
		selects = append(selects, "r."+engine.QuoteIdentifier(c)+" AS "+engine.QuoteIdentifier(out))
	}
	selects = append(selects, fmt.Sprintf(`CASE
		WHEN l.__in_left = 1 AND r.__in_right = 1 THEN %d
		WHEN l.__in_left = 1 AND r.__in_right IS NULL THEN %d
		WHEN l.__in_left IS NULL AND r.__in_right = 1 THEN %d
		ELSE NULL
	END AS %s`, mergeBoth, mergeLeftOnly, mergeRightOnly, engine.QuoteIdentifier(mergeMarkerColumn)))

	joinPred := make([]string, len(req.LeftKeys))
	for i := range req.LeftKeys {
		joinPred[i] = fmt.Sprintf("l.%s = r.%s",
			engine.QuoteIdentifier(req.LeftKeys[i]), engine.QuoteIdentifier(req.RightKeys[i]))
	}

	joinSQL := map[domain.JoinKind]string{
		domain.JoinFull:  "FULL OUTER",
		domain.JoinLeft:  "LEFT",
		domain.JoinRight: "RIGHT",
		domain.JoinInner: "INNER",
	}[req.How]

	return fmt.Sprintf(`SELECT %s
		FROM (SELECT *, 1 AS __in_left FROM %s) l
		%s JOIN (SELECT *, 1 AS __in_right FROM %s) r ON %s`,
		strings.Join(selects, ", "),
		engine.QuoteIdentifier(leftPhysical), joinSQL,
		engine.QuoteIdentifier(rightPhysical), strings.Join(joinPred, " AND "))
}

func (s *MergeService) measure(ctx context.Context, req domain.MergeRequest, leftPhysical, rightPhysical, resultPhysical, resultTableID string) (*domain.MergeReport, error) {
	left, err := s.eng.RowCount(ctx, leftPhysical)
	if err != nil {
		return nil, err
	}
	right, err := s.eng.RowCount(ctx, rightPhysical)
	if err != nil {
		return nil, err
	}
	after, err := s.eng.RowCount(ctx, resultPhysical)
	if err != nil {
		return nil, err
	}

	marker := engine.QuoteIdentifier(mergeMarkerColumn)
	matched, err := s.eng.CountWhere(ctx, resultPhysical, marker+" = ?", []interface{}{mergeBoth})
	if err != nil {
		return nil, err
	}
	unmatchedLeft, err := s.eng.CountWhere(ctx, resultPhysical, marker+" = ?", []interface{}{mergeLeftOnly})
	if err != nil {
		return nil, err
	}
	unmatchedRight, err := s.eng.CountWhere(ctx, resultPhysical, marker+" = ?", []interface{}{mergeRightOnly})
	if err != nil {
		return nil, err
	}

	keyFields := make([]string, len(req.LeftKeys))
	for i := range req.LeftKeys {
		keyFields[i] = req.LeftKeys[i] + "=" + req.RightKeys[i]
	}

	return &domain.MergeReport{
		ID:             domain.NewID("merge"),
		LeftTable:      req.LeftTableID,
		RightTable:     req.RightTableID,
		ResultTable:    resultTableID,
		JoinType:       req.JoinType,
		KeyFields:      keyFields,
		RowsBefore:     map[string]int64{"left": left, "right": right},
		RowsAfter:      after,
		MatchedRows:    matched,
		UnmatchedLeft:  unmatchedLeft,
		UnmatchedRight: unmatchedRight,
		Timestamp:      utcNow(),
	}, nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
