package engine

import "testing"

func TestTypeClasses(t *testing.T) {
	for _, typ := range []string{"INTEGER", "bigint", "SMALLINT", "UTINYINT"} {
		if !IsIntegerType(typ) {
			t.Errorf("IsIntegerType(%q) = false", typ)
		}
	}
	for _, typ := range []string{"DOUBLE", "FLOAT", "DECIMAL(10,2)", "real"} {
		if !IsFloatType(typ) {
			t.Errorf("IsFloatType(%q) = false", typ)
		}
	}
	for _, typ := range []string{"VARCHAR", "varchar(64)", "TEXT", "CHAR"} {
		if !IsTextType(typ) {
			t.Errorf("IsTextType(%q) = false", typ)
		}
	}
	if IsNumericType("VARCHAR") || !IsNumericType("BIGINT") || !IsNumericType("DOUBLE") {
		t.Error("IsNumericType misclassifies")
	}
}

func TestFieldType(t *testing.T) {
	cases := map[string]string{
		"INTEGER":      "int4",
		"BIGINT":       "int8",
		"DOUBLE":       "float8",
		"DECIMAL(8,2)": "float8",
		"BOOLEAN":      "boolean",
		"DATE":         "date",
		"TIMESTAMP":    "timestamp",
		"VARCHAR":      "varchar",
		"UUID":         "uuid",
		"BLOB":         "string",
	}
	for in, want := range cases {
		if got := FieldType(in); got != want {
			t.Errorf("FieldType(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestMissingPredicateByType(t *testing.T) {
	if got := MissingPredicate("c", "VARCHAR"); got != `"c" IS NULL OR trim(CAST("c" AS VARCHAR)) = ''` {
		t.Errorf("text predicate: %s", got)
	}
	if got := MissingPredicate("c", "DOUBLE"); got != `"c" IS NULL OR isnan("c")` {
		t.Errorf("float predicate: %s", got)
	}
	if got := MissingPredicate("c", "INTEGER"); got != `"c" IS NULL` {
		t.Errorf("default predicate: %s", got)
	}
}
