package domain

import "time"

// ColumnProfile holds data-driven facts about one column of a table's
// active version. Profiles are fully replaced on each refresh, never
// patched.
//
// Facts derive from normalized values: text is trimmed with blank mapped
// to null, floating point NaN maps to null. IsUnique requires a non-empty
// column with no missing values and distinct == rows. IsIdentity further
// requires an integer column whose [min,max] range is contiguous, starts
// at 0 or 1, and spans exactly the row count.
type ColumnProfile struct {
	TableID          string    `json:"tableId"`
	ColumnName       string    `json:"columnName"`
	RowCount         int64     `json:"rowCount"`
	MissingCount     int64     `json:"missingCount"`
	DistinctCount    int64     `json:"distinctCount"`
	IsUnique         bool      `json:"isUnique"`
	IsIdentity       bool      `json:"isIdentity"`
	InferredNullable bool      `json:"inferredNullable"`
	UpdatedAt        time.Time `json:"updatedAt"`
}
