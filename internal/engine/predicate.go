package engine

import (
	"fmt"
	"strings"

	"github.com/Imd11/DataPrism/internal/domain"
)

// BuildWhere compiles filters into a WHERE clause body (without the WHERE
// keyword) plus bind arguments. Conditions are AND-combined. Every filter
// field must appear in columns; unknown fields, unknown operators, empty
// "in" lists and "between" values without exactly two bounds are
// validation errors. An empty filter list yields an empty clause.
func BuildWhere(filters []domain.Filter, columns []string) (string, []interface{}, error) {
	known := make(map[string]bool, len(columns))
	for _, c := range columns {
		known[c] = true
	}

	var (
		conds []string
		args  []interface{}
	)
	for _, f := range filters {
		if !known[f.Field] {
			return "", nil, domain.ErrValidation("unknown filter field %q", f.Field)
		}
		if err := f.Op.Validate(); err != nil {
			return "", nil, err
		}
		col := QuoteIdentifier(f.Field)

		switch f.Op {
		case domain.OpEq:
			conds = append(conds, col+" = ?")
			args = append(args, f.Value)
		case domain.OpNeq:
			conds = append(conds, col+" != ?")
			args = append(args, f.Value)
		case domain.OpLt:
			conds = append(conds, col+" < ?")
			args = append(args, f.Value)
		case domain.OpLte:
			conds = append(conds, col+" <= ?")
			args = append(args, f.Value)
		case domain.OpGt:
			conds = append(conds, col+" > ?")
			args = append(args, f.Value)
		case domain.OpGte:
			conds = append(conds, col+" >= ?")
			args = append(args, f.Value)
		case domain.OpContains:
			conds = append(conds, "CAST("+col+" AS VARCHAR) ILIKE ?")
			args = append(args, "%"+fmt.Sprintf("%v", f.Value)+"%")
		case domain.OpIn:
			list, err := valueList(f.Value)
			if err != nil {
				return "", nil, domain.ErrValidation("filter %q: %v", f.Field, err)
			}
			if len(list) == 0 {
				return "", nil, domain.ErrValidation("filter %q: in list must not be empty", f.Field)
			}
			ph := strings.TrimSuffix(strings.Repeat("?, ", len(list)), ", ")
			conds = append(conds, col+" IN ("+ph+")")
			args = append(args, list...)
		case domain.OpIsNull:
			conds = append(conds, col+" IS NULL")
		case domain.OpNotNull:
			conds = append(conds, col+" IS NOT NULL")
		case domain.OpBetween:
			bounds, err := valueList(f.Value)
			if err != nil {
				return "", nil, domain.ErrValidation("filter %q: %v", f.Field, err)
			}
			if len(bounds) != 2 {
				return "", nil, domain.ErrValidation("filter %q: between requires exactly two bounds, got %d", f.Field, len(bounds))
			}
			conds = append(conds, col+" BETWEEN ? AND ?")
			args = append(args, bounds[0], bounds[1])
		default:
			return "", nil, domain.ErrValidation("unsupported filter operator %q", f.Op)
		}
	}
	return strings.Join(conds, " AND "), args, nil
}

// BuildOrderBy compiles sort keys into an ORDER BY clause body (without
// the ORDER BY keyword). Unknown fields and directions are validation
// errors; an empty key list yields an empty clause.
func BuildOrderBy(sort []domain.SortKey, columns []string) (string, error) {
	known := make(map[string]bool, len(columns))
	for _, c := range columns {
		known[c] = true
	}

	parts := make([]string, 0, len(sort))
	for _, s := range sort {
		if !known[s.Field] {
			return "", domain.ErrValidation("unknown sort field %q", s.Field)
		}
		if err := s.Direction.Validate(); err != nil {
			return "", err
		}
		dir := "ASC"
		if s.Direction == domain.SortDesc {
			dir = "DESC"
		}
		parts = append(parts, QuoteIdentifier(s.Field)+" "+dir)
	}
	return strings.Join(parts, ", "), nil
}

// valueList coerces a filter value into a slice of bind arguments.
func valueList(v interface{}) ([]interface{}, error) {
	switch vv := v.(type) {
	case []interface{}:
		return vv, nil
	case []string:
		out := make([]interface{}, len(vv))
		for i, s := range vv {
			out[i] = s
		}
		return out, nil
	case []float64:
		out := make([]interface{}, len(vv))
		for i, f := range vv {
			out[i] = f
		}
		return out, nil
	case nil:
		return nil, fmt.Errorf("value must be a list")
	default:
		return nil, fmt.Errorf("value must be a list, got %T", v)
	}
}
