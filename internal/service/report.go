package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/Imd11/DataPrism/internal/domain"
	"github.com/Imd11/DataPrism/internal/engine"
	"github.com/Imd11/DataPrism/internal/repository"
)

const (
	defaultHistogramBins = 20
	defaultTopValues     = 10
	// typeIssueThreshold flags a text column when at least this fraction
	// of values parses as numeric or date but not all of them do.
	typeIssueThreshold = 0.8
)

// ReportService computes summary statistics, quality diagnostics and
// chart aggregations over active versions.
type ReportService struct {
	store *repository.Store
	eng   *engine.Engine
	log   *slog.Logger
}

func NewReportService(store *repository.Store, eng *engine.Engine, log *slog.Logger) *ReportService {
	return &ReportService{store: store, eng: eng, log: log}
}

// Summary computes per-column descriptive statistics: moments and
// quantiles for numeric columns, distinct and top-value counts otherwise.
func (s *ReportService) Summary(ctx context.Context, tableID string) (*domain.SummaryReport, error) {
	t, err := s.store.Tables.GetByID(ctx, tableID)
	if err != nil {
		return nil, err
	}
	physical, err := activePhysical(ctx, s.store, tableID)
	if err != nil {
		return nil, err
	}
	cols, err := s.eng.Columns(ctx, physical)
	if err != nil {
		return nil, err
	}

	report := &domain.SummaryReport{
		TableID:          tableID,
		TableName:        t.Name,
		NumericStats:     []domain.NumericFieldStats{},
		CategoricalStats: []domain.CategoricalFieldStats{},
		Timestamp:        utcNow(),
	}

	// Per-column stats are independent reads; compute them concurrently
	// into a slot per column so the report keeps the table's column order.
	type columnStats struct {
		numeric     *domain.NumericFieldStats
		categorical *domain.CategoricalFieldStats
	}
	slots := make([]columnStats, len(cols))

	qphys := engine.QuoteIdentifier(physical)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4) // bounded parallelism

	for i := range cols {
		col := cols[i]
		g.Go(func() error {
			qt := engine.QuoteIdentifier(col.Name)
			missing, err := s.eng.ScalarInt64(gctx, fmt.Sprintf(
				"SELECT CAST(sum(CASE WHEN %s IS NULL THEN 1 ELSE 0 END) AS BIGINT) FROM %s", qt, qphys))
			if err != nil {
				return err
			}

			if engine.IsNumericType(col.Type) {
				stats := domain.NumericFieldStats{Field: col.Name, Missing: missing}
				var mean, std, min, p25, median, p75, max *float64
				err := s.eng.QueryRow(gctx, fmt.Sprintf(`
					SELECT
					  count(%[1]s),
					  avg(%[1]s),
					  stddev_samp(%[1]s),
					  min(%[1]s),
					  quantile_cont(%[1]s, 0.25),
					  median(%[1]s),
					  quantile_cont(%[1]s, 0.75),
					  max(%[1]s)
					FROM %[2]s`, qt, qphys)).
					Scan(&stats.Count, &mean, &std, &min, &p25, &median, &p75, &max)
				if err != nil {
					return fmt.Errorf("summary stats for %s: %w", col.Name, err)
				}
				stats.Mean = deref(mean)
				stats.Std = deref(std)
				stats.Min = deref(min)
				stats.P25 = deref(p25)
				stats.Median = deref(median)
				stats.P75 = deref(p75)
				stats.Max = deref(max)
				slots[i].numeric = &stats
				return nil
			}

			unique, err := s.eng.ScalarInt64(gctx, fmt.Sprintf(
				"SELECT count(DISTINCT %s) FROM %s", qt, qphys))
			if err != nil {
				return err
			}
			top, err := s.eng.QueryMaps(gctx, fmt.Sprintf(`
				SELECT %[1]s AS value, count(*) AS count
				FROM %[2]s WHERE %[1]s IS NOT NULL
				GROUP BY %[1]s ORDER BY count DESC, value LIMIT %[3]d`,
				qt, qphys, defaultTopValues))
			if err != nil {
				return err
			}
			slots[i].categorical = &domain.CategoricalFieldStats{
				Field:     col.Name,
				Unique:    unique,
				TopValues: top,
				Missing:   missing,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, slot := range slots {
		if slot.numeric != nil {
			report.NumericStats = append(report.NumericStats, *slot.numeric)
		}
		if slot.categorical != nil {
			report.CategoricalStats = append(report.CategoricalStats, *slot.categorical)
		}
	}
	return report, nil
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

// Quality aggregates missing-value ranking, duplicate counts under a
// caller-chosen key, parse-failure heuristics for text columns, and
// declared-key uniqueness conflicts.
func (s *ReportService) Quality(ctx context.Context, tableID string, keys []string) (*domain.QualityReport, error) {
	t, err := s.store.Tables.GetByID(ctx, tableID)
	if err != nil {
		return nil, err
	}
	physical, err := activePhysical(ctx, s.store, tableID)
	if err != nil {
		return nil, err
	}
	cols, err := s.eng.Columns(ctx, physical)
	if err != nil {
		return nil, err
	}
	totalRows, err := s.eng.RowCount(ctx, physical)
	if err != nil {
		return nil, err
	}

	report := &domain.QualityReport{
		TableID:         tableID,
		TableName:       t.Name,
		TotalRows:       totalRows,
		TotalColumns:    len(cols),
		MissingByColumn: []domain.MissingColumnStat{},
		DuplicatesByKey: []domain.DuplicateKeyStat{},
		TypeIssues:      []domain.TypeIssue{},
		KeyConflicts:    []domain.KeyConflict{},
		Timestamp:       utcNow(),
	}

	qphys := engine.QuoteIdentifier(physical)
	for _, col := range cols {
		missing, err := s.eng.ScalarInt64(ctx, fmt.Sprintf(
			"SELECT CAST(sum(CASE WHEN %s THEN 1 ELSE 0 END) AS BIGINT) FROM %s",
			engine.MissingPredicate(col.Name, col.Type), qphys))
		if err != nil {
			return nil, err
		}
		stat := domain.MissingColumnStat{Field: col.Name, Count: missing}
		if totalRows > 0 {
			stat.Rate = float64(missing) / float64(totalRows)
		}
		report.MissingByColumn = append(report.MissingByColumn, stat)
	}
	sortMissingDesc(report.MissingByColumn)

	if pk, err := s.store.Keys.GetExplicit(ctx, tableID); err != nil {
		return nil, err
	} else if pk != nil && len(pk.Fields) > 0 {
		dup, err := s.eng.ScalarInt64(ctx, fmt.Sprintf(
			"SELECT count(*) - count(DISTINCT (%s)) FROM %s",
			compositeKeyExpr(pk.Fields), qphys))
		if err != nil {
			return nil, err
		}
		if dup > 0 {
			report.KeyConflicts = append(report.KeyConflicts, domain.KeyConflict{
				Key:     pk.Fields,
				Message: fmt.Sprintf("Primary key is not unique: %d duplicate rows", dup),
			})
		}
	}

	if len(keys) > 0 {
		if err := requireColumns(keys, columnNames(cols)); err != nil {
			return nil, err
		}
		keyList := ""
		for i, k := range keys {
			if i > 0 {
				keyList += ", "
			}
			keyList += engine.QuoteIdentifier(k)
		}
		dup, err := s.eng.ScalarInt64(ctx, fmt.Sprintf(
			"SELECT CAST(sum(CASE WHEN c > 1 THEN c - 1 ELSE 0 END) AS BIGINT) FROM (SELECT count(*) AS c FROM %s GROUP BY %s)",
			qphys, keyList))
		if err != nil {
			return nil, err
		}
		stat := domain.DuplicateKeyStat{Key: keys, Count: dup}
		if totalRows > 0 {
			stat.Rate = float64(dup) / float64(totalRows)
		}
		report.DuplicatesByKey = append(report.DuplicatesByKey, stat)
	}

	for _, col := range cols {
		if !engine.IsTextType(col.Type) {
			continue
		}
		issue, err := s.textTypeIssues(ctx, physical, col.Name)
		if err != nil {
			return nil, err
		}
		if issue != nil {
			report.TypeIssues = append(report.TypeIssues, *issue)
		}
	}
	return report, nil
}

func (s *ReportService) textTypeIssues(ctx context.Context, physical, col string) (*domain.TypeIssue, error) {
	qt := engine.QuoteIdentifier(col)
	qphys := engine.QuoteIdentifier(physical)

	nonNull, err := s.eng.ScalarInt64(ctx, fmt.Sprintf(
		"SELECT count(*) FROM %s WHERE %s IS NOT NULL", qphys, qt))
	if err != nil {
		return nil, err
	}
	if nonNull == 0 {
		return nil, nil
	}

	numericOK, err := s.eng.ScalarInt64(ctx, fmt.Sprintf(
		"SELECT count(*) FROM %s WHERE %s IS NOT NULL AND try_cast(%s AS DOUBLE) IS NOT NULL", qphys, qt, qt))
	if err != nil {
		return nil, err
	}
	dateOK, err := s.eng.ScalarInt64(ctx, fmt.Sprintf(
		"SELECT count(*) FROM %s WHERE %s IS NOT NULL AND try_cast(%s AS DATE) IS NOT NULL", qphys, qt, qt))
	if err != nil {
		return nil, err
	}

	var issues []string
	if r := float64(numericOK) / float64(nonNull); r >= typeIssueThreshold && r < 1.0 {
		issues = append(issues, fmt.Sprintf("Some values look numeric but fail parsing (%d bad)", nonNull-numericOK))
	}
	if r := float64(dateOK) / float64(nonNull); r >= typeIssueThreshold && r < 1.0 {
		issues = append(issues, fmt.Sprintf("Some values look like dates but fail parsing (%d bad)", nonNull-dateOK))
	}
	if len(issues) == 0 {
		return nil, nil
	}
	return &domain.TypeIssue{Field: col, Issues: issues}, nil
}

func sortMissingDesc(stats []domain.MissingColumnStat) {
	sort.SliceStable(stats, func(i, j int) bool { return stats[i].Count > stats[j].Count })
}

// Chart aggregates one field for rendering and attaches a Vega-Lite spec.
func (s *ReportService) Chart(ctx context.Context, tableID string, req domain.ChartRequest) (*domain.ChartData, error) {
	if err := req.Kind.Validate(); err != nil {
		return nil, err
	}
	physical, err := activePhysical(ctx, s.store, tableID)
	if err != nil {
		return nil, err
	}
	names, err := s.eng.ColumnNames(ctx, physical)
	if err != nil {
		return nil, err
	}
	if err := requireColumns([]string{req.Field}, names); err != nil {
		return nil, err
	}

	switch req.Kind {
	case domain.ChartHistogram:
		return s.histogram(ctx, physical, req)
	case domain.ChartBar:
		return s.barChart(ctx, physical, req)
	default:
		return s.lineChart(ctx, physical, req, names)
	}
}

func vegaLite(spec map[string]interface{}) map[string]interface{} {
	out := map[string]interface{}{
		"$schema": "https://vega.github.io/schema/vega-lite/v5.json",
	}
	for k, v := range spec {
		out[k] = v
	}
	return out
}

func (s *ReportService) histogram(ctx context.Context, physical string, req domain.ChartRequest) (*domain.ChartData, error) {
	bins := req.Bins
	if bins <= 0 {
		bins = defaultHistogramBins
	}
	qt := engine.QuoteIdentifier(req.Field)
	qphys := engine.QuoteIdentifier(physical)

	chart := &domain.ChartData{Kind: req.Kind, Field: req.Field, Timestamp: utcNow()}

	var min, max *float64
	if err := s.eng.QueryRow(ctx, fmt.Sprintf(
		"SELECT min(%[1]s), max(%[1]s) FROM %[2]s WHERE %[1]s IS NOT NULL", qt, qphys)).
		Scan(&min, &max); err != nil {
		return nil, fmt.Errorf("histogram range: %w", err)
	}
	if min == nil || max == nil {
		chart.Data = map[string]interface{}{"bins": []interface{}{}}
		return chart, nil
	}
	if *min == *max {
		count, err := s.eng.CountWhere(ctx, physical, qt+" IS NOT NULL", nil)
		if err != nil {
			return nil, err
		}
		chart.Data = map[string]interface{}{"bins": []map[string]interface{}{
			{"x0": *min, "x1": *max, "count": count},
		}}
		return chart, nil
	}

	width := (*max - *min) / float64(bins)
	rows, err := s.eng.QueryMaps(ctx, fmt.Sprintf(`
		SELECT CAST(floor((%[1]s - ?) / ?) AS INTEGER) AS b, count(*) AS count
		FROM %[2]s WHERE %[1]s IS NOT NULL
		GROUP BY b ORDER BY b`, qt, qphys), *min, width)
	if err != nil {
		return nil, err
	}

	outBins := make([]map[string]interface{}, 0, len(rows))
	for _, r := range rows {
		b := toFloat(r["b"])
		outBins = append(outBins, map[string]interface{}{
			"x0":    *min + b*width,
			"x1":    *min + (b+1)*width,
			"count": r["count"],
		})
	}
	chart.Data = map[string]interface{}{"bins": outBins}
	chart.VegaLite = vegaLite(map[string]interface{}{
		"description": "Histogram of " + req.Field,
		"data":        map[string]interface{}{"values": outBins},
		"mark":        "bar",
		"encoding": map[string]interface{}{
			"x":  map[string]interface{}{"field": "x0", "type": "quantitative", "bin": map[string]interface{}{"binned": true}},
			"x2": map[string]interface{}{"field": "x1"},
			"y":  map[string]interface{}{"field": "count", "type": "quantitative"},
		},
	})
	return chart, nil
}

func (s *ReportService) barChart(ctx context.Context, physical string, req domain.ChartRequest) (*domain.ChartData, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = defaultTopValues
	}
	qt := engine.QuoteIdentifier(req.Field)

	values, err := s.eng.QueryMaps(ctx, fmt.Sprintf(`
		SELECT %[1]s AS value, count(*) AS count
		FROM %[2]s WHERE %[1]s IS NOT NULL
		GROUP BY %[1]s ORDER BY count DESC LIMIT ?`,
		qt, engine.QuoteIdentifier(physical)), limit)
	if err != nil {
		return nil, err
	}

	return &domain.ChartData{
		Kind:  req.Kind,
		Field: req.Field,
		Data:  map[string]interface{}{"values": values},
		VegaLite: vegaLite(map[string]interface{}{
			"description": "Top categories of " + req.Field,
			"data":        map[string]interface{}{"values": values},
			"mark":        "bar",
			"encoding": map[string]interface{}{
				"x": map[string]interface{}{"field": "value", "type": "nominal", "sort": "-y"},
				"y": map[string]interface{}{"field": "count", "type": "quantitative"},
			},
		}),
		Timestamp: utcNow(),
	}, nil
}

func (s *ReportService) lineChart(ctx context.Context, physical string, req domain.ChartRequest, names []string) (*domain.ChartData, error) {
	qt := engine.QuoteIdentifier(req.Field)
	qphys := engine.QuoteIdentifier(physical)

	var (
		points []map[string]interface{}
		err    error
		yTitle = "count"
	)
	if req.ValueField != "" {
		if err := requireColumns([]string{req.ValueField}, names); err != nil {
			return nil, err
		}
		qv := engine.QuoteIdentifier(req.ValueField)
		points, err = s.eng.QueryMaps(ctx, fmt.Sprintf(`
			SELECT %[1]s AS x, avg(%[2]s) AS y
			FROM %[3]s WHERE %[1]s IS NOT NULL AND %[2]s IS NOT NULL
			GROUP BY x ORDER BY x`, qt, qv, qphys))
		yTitle = "avg(" + req.ValueField + ")"
	} else {
		points, err = s.eng.QueryMaps(ctx, fmt.Sprintf(`
			SELECT %[1]s AS x, count(*) AS y
			FROM %[2]s WHERE %[1]s IS NOT NULL
			GROUP BY x ORDER BY x`, qt, qphys))
	}
	if err != nil {
		return nil, err
	}

	return &domain.ChartData{
		Kind:  req.Kind,
		Field: req.Field,
		Data:  map[string]interface{}{"points": points},
		VegaLite: vegaLite(map[string]interface{}{
			"description": "Line chart by " + req.Field,
			"data":        map[string]interface{}{"values": points},
			"mark":        map[string]interface{}{"type": "line", "point": true},
			"encoding": map[string]interface{}{
				"x": map[string]interface{}{"field": "x", "type": "temporal"},
				"y": map[string]interface{}{"field": "y", "type": "quantitative", "title": yTitle},
			},
		}),
		Timestamp: utcNow(),
	}, nil
}

func toFloat(v interface{}) float64 {
	switch n := v.(type) {
	case int64:
		return float64(n)
	case int32:
		return float64(n)
	case int:
		return float64(n)
	case float64:
		return n
	default:
		return 0
	}
}
