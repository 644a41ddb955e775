package domain

import (
	"encoding/json"
	"time"
)

// OperationType names a catalog-changing operation.
type OperationType string

const (
	OpImport  OperationType = "import"
	OpClean   OperationType = "clean"
	OpMerge   OperationType = "merge"
	OpReshape OperationType = "reshape"
)

// LineageEdge records that a derived table was produced from one or more
// source tables by a named operation. Append-only.
type LineageEdge struct {
	ID             string        `json:"id"`
	DerivedTableID string        `json:"derivedTableId"`
	SourceTableIDs []string      `json:"sourceTableIds"`
	Operation      OperationType `json:"operation"`
	CreatedAt      time.Time     `json:"-"`
}

// OperationLogEntry is an append-only audit record of one operation.
// Undo flips Undoable to false on the affected entry; entries are never
// deleted.
type OperationLogEntry struct {
	ID            string          `json:"id"`
	Type          OperationType   `json:"type"`
	TableID       string          `json:"tableId"`
	TableName     string          `json:"tableName"`
	Params        json.RawMessage `json:"params"`
	Result        json.RawMessage `json:"result,omitempty"`
	CreatedAt     time.Time       `json:"timestamp"`
	Undoable      bool            `json:"undoable"`
	PrevVersionID *string         `json:"-"`
	NewVersionID  *string         `json:"-"`
}
