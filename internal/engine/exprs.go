package engine

// SQL expression builders shared by profiling, inference and cleaning.
// They all key off the engine column type so that "missing" and "distinct"
// mean the same thing everywhere in the catalog.

// MissingPredicate returns a boolean SQL expression that is true when the
// column value counts as missing: NULL always, plus blank-after-trim for
// text columns and NaN for float columns.
func MissingPredicate(col, duckType string) string {
	qt := QuoteIdentifier(col)
	switch {
	case IsTextType(duckType):
		return qt + " IS NULL OR trim(CAST(" + qt + " AS VARCHAR)) = ''"
	case IsFloatType(duckType):
		return qt + " IS NULL OR isnan(" + qt + ")"
	default:
		return qt + " IS NULL"
	}
}

// DistinctValueExpr returns an expression whose non-NULL values are the
// column's normalized distinct values: missing values collapse to NULL so
// count(distinct ...) never counts them.
func DistinctValueExpr(col, duckType string) string {
	qt := QuoteIdentifier(col)
	switch {
	case IsTextType(duckType):
		return "nullif(trim(CAST(" + qt + " AS VARCHAR)), '')"
	case IsFloatType(duckType):
		return "CASE WHEN " + qt + " IS NULL OR isnan(" + qt + ") THEN NULL ELSE " + qt + " END"
	default:
		return qt
	}
}

// NormalizedKeyExpr casts a join-key column to trimmed text with blanks
// collapsed to NULL, so coverage checks compare keys of differing types
// on equal footing.
func NormalizedKeyExpr(col string) string {
	qt := QuoteIdentifier(col)
	return "nullif(trim(CAST(" + qt + " AS VARCHAR)), '')"
}
