package domain

import "time"

// CleanAction is the closed set of in-place cleaning actions. A clean
// produces version v+1 of the same table and never creates a lineage edge.
type CleanAction string

const (
	CleanDropMissing        CleanAction = "drop-missing"
	CleanFillMean           CleanAction = "fill-mean"
	CleanFillMedian         CleanAction = "fill-median"
	CleanTrim               CleanAction = "trim"
	CleanLowercase          CleanAction = "lowercase"
	CleanStandardizeMissing CleanAction = "standardize-missing"
)

// Validate rejects unrecognized action tags.
func (a CleanAction) Validate() error {
	switch a {
	case CleanDropMissing, CleanFillMean, CleanFillMedian, CleanTrim, CleanLowercase, CleanStandardizeMissing:
		return nil
	default:
		return ErrValidation("unsupported clean action: %q", string(a))
	}
}

// SupportsScope reports whether the action honors an optional row-scope
// filter. drop-missing removes whole rows and does not compose with a
// scope; fill-mean/fill-median always aggregate over the whole active
// version.
func (a CleanAction) SupportsScope() bool {
	switch a {
	case CleanTrim, CleanLowercase, CleanStandardizeMissing:
		return true
	default:
		return false
	}
}

// MissingTokens are the case-insensitive, trimmed placeholder values that
// standardize-missing maps to true null.
var MissingTokens = []string{"na", "n/a", "null", "none", "nan", "-", "—", "--", "?", "9999"}

// CleanRequest applies one action to a field list, optionally scoped to
// rows matching Filters.
type CleanRequest struct {
	Action  CleanAction `json:"action"`
	Fields  []string    `json:"fields"`
	Filters []Filter    `json:"filters"`
}

// CleanResult identifies the logged operation.
type CleanResult struct {
	OperationID string    `json:"operationId"`
	TableID     string    `json:"tableId"`
	NewVersion  int       `json:"newVersion"`
	Timestamp   time.Time `json:"timestamp"`
}

// UndoResult reports which clean entry was undone.
type UndoResult struct {
	UndoneOperationID string `json:"undoneOperationId"`
	TableID           string `json:"tableId"`
}

// JoinKind is the closed set of merge join kinds.
type JoinKind string

const (
	JoinFull  JoinKind = "full"
	JoinLeft  JoinKind = "left"
	JoinRight JoinKind = "right"
	JoinInner JoinKind = "inner"
)

// Validate rejects unrecognized join kinds.
func (k JoinKind) Validate() error {
	switch k {
	case JoinFull, JoinLeft, JoinRight, JoinInner:
		return nil
	default:
		return ErrValidation("unsupported join kind: %q", string(k))
	}
}

// MergeRequest joins two tables into a new derived table. Key lists must
// have equal length and reference existing columns on their side.
type MergeRequest struct {
	LeftTableID  string      `json:"leftTableId"`
	RightTableID string      `json:"rightTableId"`
	LeftKeys     []string    `json:"leftKeys"`
	RightKeys    []string    `json:"rightKeys"`
	JoinType     Cardinality `json:"joinType"`
	How          JoinKind    `json:"how"`
	ResultName   string      `json:"resultName,omitempty"`
}

// MergeReport summarizes a merge: row counts per side before, result rows
// after, and the matched/unmatched split. For a full-outer merge,
// matched + unmatchedLeft + unmatchedRight == rowsAfter.
type MergeReport struct {
	ID             string           `json:"id"`
	LeftTable      string           `json:"leftTable"`
	RightTable     string           `json:"rightTable"`
	ResultTable    string           `json:"resultTable"`
	JoinType       Cardinality      `json:"joinType"`
	KeyFields      []string         `json:"keyFields"`
	RowsBefore     map[string]int64 `json:"rowsBefore"`
	RowsAfter      int64            `json:"rowsAfter"`
	MatchedRows    int64            `json:"matchedRows"`
	UnmatchedLeft  int64            `json:"unmatchedLeft"`
	UnmatchedRight int64            `json:"unmatchedRight"`
	Timestamp      time.Time        `json:"timestamp"`
}

// ReshapeDirection is the closed set of reshape directions.
type ReshapeDirection string

const (
	WideToLong ReshapeDirection = "wide-to-long"
	LongToWide ReshapeDirection = "long-to-wide"
)

// Validate rejects unrecognized directions.
func (d ReshapeDirection) Validate() error {
	switch d {
	case WideToLong, LongToWide:
		return nil
	default:
		return ErrValidation("unsupported reshape direction: %q", string(d))
	}
}

// ReshapeRequest reshapes one table into a new derived table.
//
// wide-to-long un-pivots ValueVars into (VariableName, ValueName) pairs,
// carrying IdVars. long-to-wide pivots with index IdVars, new columns from
// distinct PivotColumns values, and cells from PivotValues aggregated by
// "first"; both pivot parameters are required.
type ReshapeRequest struct {
	TableID      string           `json:"tableId"`
	Direction    ReshapeDirection `json:"direction"`
	IdVars       []string         `json:"idVars"`
	ValueVars    []string         `json:"valueVars"`
	VariableName string           `json:"variableName,omitempty"`
	ValueName    string           `json:"valueName,omitempty"`
	ResultName   string           `json:"resultName,omitempty"`
	PivotColumns string           `json:"pivotColumns,omitempty"`
	PivotValues  string           `json:"pivotValues,omitempty"`
}

// ReshapeReport summarizes a reshape.
type ReshapeReport struct {
	ID            string           `json:"id"`
	SourceTable   string           `json:"sourceTable"`
	ResultTable   string           `json:"resultTable"`
	Direction     ReshapeDirection `json:"direction"`
	IdVars        []string         `json:"idVars"`
	ValueVars     []string         `json:"valueVars"`
	RowsBefore    int64            `json:"rowsBefore"`
	RowsAfter     int64            `json:"rowsAfter"`
	ColumnsBefore int              `json:"columnsBefore"`
	ColumnsAfter  int              `json:"columnsAfter"`
	Timestamp     time.Time        `json:"timestamp"`
}
