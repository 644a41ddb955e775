// Package service implements the catalog's business operations on top of
// the metastore repositories and the DuckDB engine.
package service

import (
	"context"
	"time"

	"github.com/Imd11/DataPrism/internal/domain"
	"github.com/Imd11/DataPrism/internal/engine"
	"github.com/Imd11/DataPrism/internal/repository"
)

// historyLimit caps the operation history listing.
const historyLimit = 200

func utcNow() time.Time { return time.Now().UTC() }

// activePhysical resolves a table's active snapshot table name.
func activePhysical(ctx context.Context, store *repository.Store, tableID string) (string, error) {
	v, err := store.Versions.GetActive(ctx, tableID)
	if err != nil {
		return "", err
	}
	return v.PhysicalName, nil
}

// requireColumns validates that every field names an existing column.
func requireColumns(fields []string, columns []string) error {
	known := make(map[string]bool, len(columns))
	for _, c := range columns {
		known[c] = true
	}
	for _, f := range fields {
		if !known[f] {
			return domain.ErrValidation("unknown field %q", f)
		}
	}
	return nil
}

func columnNames(cols []engine.Column) []string {
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	return names
}
