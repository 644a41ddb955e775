package engine

import "strings"

// Type-class sets for DuckDB column types, uppercased and stripped of any
// precision suffix before lookup.
var (
	integerTypes = map[string]bool{
		"INTEGER": true, "INT": true, "INT4": true,
		"BIGINT": true, "INT8": true,
		"SMALLINT": true, "INT2": true,
		"TINYINT": true, "INT1": true,
		"UINTEGER": true, "UBIGINT": true, "USMALLINT": true, "UTINYINT": true,
	}
	floatTypes = map[string]bool{
		"DOUBLE": true, "FLOAT": true, "FLOAT4": true, "FLOAT8": true,
		"REAL": true, "DECIMAL": true, "HUGEINT": true,
	}
	textTypes = map[string]bool{
		"VARCHAR": true, "TEXT": true, "STRING": true, "CHAR": true, "BPCHAR": true,
	}
)

func normalizeType(duckType string) string {
	t := strings.ToUpper(strings.TrimSpace(duckType))
	if i := strings.IndexByte(t, '('); i > 0 {
		t = strings.TrimSpace(t[:i])
	}
	return t
}

// IsIntegerType reports whether duckType is an integer type.
func IsIntegerType(duckType string) bool { return integerTypes[normalizeType(duckType)] }

// IsFloatType reports whether duckType is a floating-point or decimal type.
func IsFloatType(duckType string) bool { return floatTypes[normalizeType(duckType)] }

// IsNumericType reports whether duckType is integer or floating point.
func IsNumericType(duckType string) bool {
	t := normalizeType(duckType)
	return integerTypes[t] || floatTypes[t]
}

// IsTextType reports whether duckType is a text type.
func IsTextType(duckType string) bool { return textTypes[normalizeType(duckType)] }

// FieldType maps a DuckDB column type to the catalog's field type labels.
func FieldType(duckType string) string {
	switch t := normalizeType(duckType); {
	case t == "INTEGER" || t == "INT" || t == "INT4":
		return "int4"
	case t == "BIGINT" || t == "INT8":
		return "int8"
	case floatTypes[t]:
		return "float8"
	case t == "BOOLEAN" || t == "BOOL":
		return "boolean"
	case t == "DATE":
		return "date"
	case t == "TIMESTAMP" || t == "TIMESTAMP_S" || t == "TIMESTAMP_MS" || t == "TIMESTAMP_NS":
		return "timestamp"
	case t == "TIMESTAMP_TZ" || t == "TIMESTAMPTZ" || t == "TIMESTAMP WITH TIME ZONE":
		return "timestamptz"
	case t == "VARCHAR":
		return "varchar"
	case t == "TEXT":
		return "text"
	case t == "UUID":
		return "uuid"
	default:
		return "string"
	}
}
