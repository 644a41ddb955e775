package domain

// FilterOp is the closed set of row-filter operators.
type FilterOp string

const (
	OpEq       FilterOp = "eq"
	OpNeq      FilterOp = "neq"
	OpLt       FilterOp = "lt"
	OpLte      FilterOp = "lte"
	OpGt       FilterOp = "gt"
	OpGte      FilterOp = "gte"
	OpContains FilterOp = "contains"
	OpIn       FilterOp = "in"
	OpIsNull   FilterOp = "isnull"
	OpNotNull  FilterOp = "notnull"
	OpBetween  FilterOp = "between"
)

// Validate rejects unrecognized operator tags.
func (op FilterOp) Validate() error {
	switch op {
	case OpEq, OpNeq, OpLt, OpLte, OpGt, OpGte, OpContains, OpIn, OpIsNull, OpNotNull, OpBetween:
		return nil
	default:
		return ErrValidation("unsupported filter op: %q", string(op))
	}
}

// Filter is a single row predicate. Filters combine conjunctively.
//
// Value conventions: eq/neq/lt/lte/gt/gte/contains take a scalar, "in"
// takes a non-empty list, "between" takes exactly two bounds, and
// isnull/notnull take no value.
type Filter struct {
	Field string      `json:"field"`
	Op    FilterOp    `json:"op"`
	Value interface{} `json:"value,omitempty"`
}

// SortDirection is "asc" or "desc".
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// Validate rejects unrecognized sort directions; empty defaults to asc.
func (d SortDirection) Validate() error {
	switch d {
	case SortAsc, SortDesc, "":
		return nil
	default:
		return ErrValidation("sort direction must be asc|desc, got %q", string(d))
	}
}

// SortKey orders results by one field.
type SortKey struct {
	Field     string        `json:"field"`
	Direction SortDirection `json:"direction"`
}

// RowsQuery is a filter/sort/paginate request against a table's active
// version.
type RowsQuery struct {
	Offset  int       `json:"offset"`
	Limit   int       `json:"limit"`
	Filters []Filter  `json:"filters"`
	Sort    []SortKey `json:"sort"`
}

// RowsPage is one page of rows plus the total match count before
// pagination.
type RowsPage struct {
	Rows      []map[string]interface{} `json:"rows"`
	TotalRows int64                    `json:"totalRows"`
}
