// Package engine adapts DuckDB as the catalog's analytical engine: it owns
// physical snapshot tables and executes parameterized, identifier-quoted
// read/aggregate/join/pivot requests on behalf of the services.
package engine

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/duckdb/duckdb-go/v2"
)

// Column is one column of a physical table as reported by the engine.
type Column struct {
	Name     string
	Type     string
	Nullable bool
}

// Engine wraps one DuckDB connection pool. All snapshot DDL and data reads
// go through it; callers build SQL with QuoteIdentifier/QuoteLiteral and
// bind values as parameters.
type Engine struct {
	db *sql.DB
}

// Open opens (or creates) the DuckDB database at path. An empty path opens
// an in-memory database.
func Open(path string) (*Engine, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping duckdb: %w", err)
	}
	return &Engine{db: db}, nil
}

// Close releases the underlying connection pool.
func (e *Engine) Close() error { return e.db.Close() }

// Exec runs a statement.
func (e *Engine) Exec(ctx context.Context, query string, args ...interface{}) error {
	if _, err := e.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("engine exec: %w", err)
	}
	return nil
}

// Query runs a row-returning statement. The caller owns the rows.
func (e *Engine) Query(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	rows, err := e.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("engine query: %w", err)
	}
	return rows, nil
}

// QueryRow runs a single-row query.
func (e *Engine) QueryRow(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return e.db.QueryRowContext(ctx, query, args...)
}

// Columns introspects a physical table via PRAGMA table_info.
func (e *Engine) Columns(ctx context.Context, physical string) ([]Column, error) {
	rows, err := e.db.QueryContext(ctx, "PRAGMA table_info("+QuoteLiteral(physical)+")")
	if err != nil {
		return nil, fmt.Errorf("table_info %s: %w", physical, err)
	}
	defer rows.Close()

	var cols []Column
	for rows.Next() {
		var (
			cid     int64
			name    string
			ctype   string
			notnull bool
			dflt    sql.NullString
			pk      bool
		)
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			return nil, fmt.Errorf("scan table_info: %w", err)
		}
		cols = append(cols, Column{Name: name, Type: ctype, Nullable: !notnull})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return cols, nil
}

// ColumnNames returns the column names of a physical table, in order.
func (e *Engine) ColumnNames(ctx context.Context, physical string) ([]string, error) {
	cols, err := e.Columns(ctx, physical)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	return names, nil
}

// RowCount counts the rows of a physical table.
func (e *Engine) RowCount(ctx context.Context, physical string) (int64, error) {
	return e.CountWhere(ctx, physical, "", nil)
}

// CountWhere counts rows matching an optional WHERE clause (without the
// WHERE keyword).
func (e *Engine) CountWhere(ctx context.Context, physical, where string, args []interface{}) (int64, error) {
	q := "SELECT count(*) FROM " + QuoteIdentifier(physical)
	if where != "" {
		q += " WHERE " + where
	}
	var n int64
	if err := e.db.QueryRowContext(ctx, q, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", physical, err)
	}
	return n, nil
}

// ScalarInt64 evaluates a query expected to yield one nullable integer;
// NULL maps to 0.
func (e *Engine) ScalarInt64(ctx context.Context, query string, args ...interface{}) (int64, error) {
	var v sql.NullInt64
	if err := e.db.QueryRowContext(ctx, query, args...).Scan(&v); err != nil {
		return 0, fmt.Errorf("scalar: %w", err)
	}
	return v.Int64, nil
}

// ScalarFloat evaluates a query expected to yield one nullable float;
// the bool reports whether the value was non-NULL.
func (e *Engine) ScalarFloat(ctx context.Context, query string, args ...interface{}) (float64, bool, error) {
	var v sql.NullFloat64
	if err := e.db.QueryRowContext(ctx, query, args...).Scan(&v); err != nil {
		return 0, false, fmt.Errorf("scalar: %w", err)
	}
	return v.Float64, v.Valid, nil
}

// CreateTableAs materializes a new physical table from a SELECT.
func (e *Engine) CreateTableAs(ctx context.Context, physical, selectSQL string, args ...interface{}) error {
	stmt := "CREATE TABLE " + QuoteIdentifier(physical) + " AS " + selectSQL
	if _, err := e.db.ExecContext(ctx, stmt, args...); err != nil {
		return fmt.Errorf("create table %s: %w", physical, err)
	}
	return nil
}

// DropTable removes a physical table if it exists.
func (e *Engine) DropTable(ctx context.Context, physical string) error {
	if _, err := e.db.ExecContext(ctx, "DROP TABLE IF EXISTS "+QuoteIdentifier(physical)); err != nil {
		return fmt.Errorf("drop table %s: %w", physical, err)
	}
	return nil
}

// ImportCSV materializes a physical table from a CSV file using the
// engine's schema-inferring reader.
func (e *Engine) ImportCSV(ctx context.Context, physical, csvPath string) error {
	stmt := "CREATE TABLE " + QuoteIdentifier(physical) + " AS SELECT * FROM read_csv_auto(?, header=true)"
	if _, err := e.db.ExecContext(ctx, stmt, csvPath); err != nil {
		return fmt.Errorf("import csv into %s: %w", physical, err)
	}
	return nil
}

// ExportCSV copies a physical table to a CSV file with a header row.
// COPY targets cannot be bound as parameters, so the path is quoted as a
// SQL literal.
func (e *Engine) ExportCSV(ctx context.Context, physical, outPath string) error {
	stmt := "COPY (SELECT * FROM " + QuoteIdentifier(physical) + ") TO " + QuoteLiteral(outPath) + " (HEADER, DELIMITER ',')"
	if _, err := e.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("export csv from %s: %w", physical, err)
	}
	return nil
}

// ListPhysicalTables returns the names of all snapshot tables in the main
// schema, for orphan reconciliation.
func (e *Engine) ListPhysicalTables(ctx context.Context) ([]string, error) {
	rows, err := e.db.QueryContext(ctx,
		"SELECT table_name FROM information_schema.tables WHERE table_schema = 'main' ORDER BY table_name")
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

// QueryMaps runs a query and scans every row into a column-name-keyed map.
// Byte slices are converted to strings for JSON serialization.
func (e *Engine) QueryMaps(ctx context.Context, query string, args ...interface{}) ([]map[string]interface{}, error) {
	rows, err := e.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("engine query: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	out := []map[string]interface{}{}
	for rows.Next() {
		vals := make([]interface{}, len(cols))
		ptrs := make([]interface{}, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(map[string]interface{}, len(cols))
		for i, c := range cols {
			if b, ok := vals[i].([]byte); ok {
				row[c] = string(b)
			} else {
				row[c] = vals[i]
			}
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
