package domain

import (
	"strings"
	"time"
)

// Cardinality describes the fk→pk relationship shape.
type Cardinality string

const (
	CardinalityOneToOne  Cardinality = "1:1"
	CardinalityOneToMany Cardinality = "1:m"
	CardinalityManyToOne Cardinality = "m:1"
)

// Validate rejects unrecognized cardinality tags.
func (c Cardinality) Validate() error {
	switch c {
	case CardinalityOneToOne, CardinalityOneToMany, CardinalityManyToOne:
		return nil
	default:
		return ErrValidation("unsupported cardinality: %q", string(c))
	}
}

// PrimaryKey is a field-name set declared (or inferred) as a table's key.
// An explicit declaration always wins; the inferred row is recomputed on
// refresh and only persisted when no explicit declaration exists.
type PrimaryKey struct {
	TableID   string    `json:"tableId"`
	Fields    []string  `json:"fields"`
	CreatedAt time.Time `json:"createdAt"`
}

// RelationEdge is a fk→pk edge between two tables. Explicit edges are
// authoritative; inferred edges carry the observed coverage and are fully
// recomputed on each inference pass.
type RelationEdge struct {
	ID          string      `json:"id"`
	FkTableID   string      `json:"fkTableId"`
	FkFields    []string    `json:"fkFields"`
	PkTableID   string      `json:"pkTableId"`
	PkFields    []string    `json:"pkFields"`
	Cardinality Cardinality `json:"cardinality"`
	Coverage    *float64    `json:"coverage,omitempty"`
	CreatedAt   time.Time   `json:"-"`
}

// Key identifies the edge's endpoints independent of its id, used to
// suppress inferred edges shadowed by an explicit declaration.
func (e RelationEdge) Key() string {
	return e.FkTableID + "|" + strings.Join(e.FkFields, ",") + "|" +
		e.PkTableID + "|" + strings.Join(e.PkFields, ",")
}

// RelationReport holds data-level diagnostics for one relation edge.
type RelationReport struct {
	RelationID      string    `json:"relationId"`
	FkTableID       string    `json:"fkTableId"`
	PkTableID       string    `json:"pkTableId"`
	Coverage        float64   `json:"coverage"`
	FkMissing       int64     `json:"fkMissing"`
	FkDuplicateRows int64     `json:"fkDuplicateRows"`
	PkDuplicateRows int64     `json:"pkDuplicateRows"`
	Timestamp       time.Time `json:"timestamp"`
}
