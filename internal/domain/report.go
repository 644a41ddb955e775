package domain

import "time"

// NumericFieldStats holds summary statistics for one numeric column.
type NumericFieldStats struct {
	Field   string  `json:"field"`
	Count   int64   `json:"count"`
	Mean    float64 `json:"mean"`
	Std     float64 `json:"std"`
	Min     float64 `json:"min"`
	P25     float64 `json:"p25"`
	Median  float64 `json:"median"`
	P75     float64 `json:"p75"`
	Max     float64 `json:"max"`
	Missing int64   `json:"missing"`
}

// CategoricalFieldStats holds summary statistics for one non-numeric column.
type CategoricalFieldStats struct {
	Field     string                   `json:"field"`
	Unique    int64                    `json:"uniqueCount"`
	TopValues []map[string]interface{} `json:"topValues"`
	Missing   int64                    `json:"missing"`
}

// SummaryReport is per-column descriptive statistics over the active version.
type SummaryReport struct {
	TableID          string                  `json:"tableId"`
	TableName        string                  `json:"tableName"`
	NumericStats     []NumericFieldStats     `json:"numericStats"`
	CategoricalStats []CategoricalFieldStats `json:"categoricalStats"`
	Timestamp        time.Time               `json:"timestamp"`
}

// MissingColumnStat ranks one column by missing values.
type MissingColumnStat struct {
	Field string  `json:"field"`
	Count int64   `json:"count"`
	Rate  float64 `json:"rate"`
}

// DuplicateKeyStat reports duplicate rows under a caller-chosen key.
type DuplicateKeyStat struct {
	Key   []string `json:"key"`
	Count int64    `json:"count"`
	Rate  float64  `json:"rate"`
}

// TypeIssue flags a text column whose values mostly-but-not-fully parse as
// another type.
type TypeIssue struct {
	Field  string   `json:"field"`
	Issues []string `json:"issues"`
}

// KeyConflict reports a non-unique declared primary key.
type KeyConflict struct {
	Key     []string `json:"key"`
	Message string   `json:"message"`
}

// QualityReport aggregates data-quality diagnostics for a table.
type QualityReport struct {
	TableID         string              `json:"tableId"`
	TableName       string              `json:"tableName"`
	TotalRows       int64               `json:"totalRows"`
	TotalColumns    int                 `json:"totalColumns"`
	MissingByColumn []MissingColumnStat `json:"missingByColumn"`
	DuplicatesByKey []DuplicateKeyStat  `json:"duplicatesByKey"`
	TypeIssues      []TypeIssue         `json:"typeIssues"`
	KeyConflicts    []KeyConflict       `json:"keyConflicts"`
	Timestamp       time.Time           `json:"timestamp"`
}

// ChartKind is the closed set of chart data requests.
type ChartKind string

const (
	ChartHistogram ChartKind = "histogram"
	ChartBar       ChartKind = "bar"
	ChartLine      ChartKind = "line"
)

// Validate rejects unrecognized chart kinds.
func (k ChartKind) Validate() error {
	switch k {
	case ChartHistogram, ChartBar, ChartLine:
		return nil
	default:
		return ErrValidation("unsupported chart kind: %q", string(k))
	}
}

// ChartRequest asks for pre-aggregated chart data over one field.
type ChartRequest struct {
	Kind       ChartKind `json:"kind"`
	Field      string    `json:"field"`
	Bins       int       `json:"bins"`
	Limit      int       `json:"limit"`
	ValueField string    `json:"valueField,omitempty"`
}

// ChartData carries aggregated chart values plus a ready-to-render
// Vega-Lite spec.
type ChartData struct {
	Kind      ChartKind              `json:"kind"`
	Field     string                 `json:"field"`
	Data      map[string]interface{} `json:"data"`
	VegaLite  map[string]interface{} `json:"vegaLite,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// CleanPreviewField counts affected cells for one field.
type CleanPreviewField struct {
	Field         string `json:"field"`
	AffectedCells int64  `json:"affectedCells"`
}

// CleanPreview estimates the effect of a clean action without applying it.
type CleanPreview struct {
	TableID       string                   `json:"tableId"`
	Action        CleanAction              `json:"action"`
	Fields        []string                 `json:"fields"`
	AffectedRows  int64                    `json:"affectedRows"`
	AffectedCells int64                    `json:"affectedCells"`
	PerField      []CleanPreviewField      `json:"perField"`
	Samples       []map[string]interface{} `json:"samples"`
}
