package service

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/Imd11/DataPrism/internal/domain"
	"github.com/Imd11/DataPrism/internal/engine"
	"github.com/Imd11/DataPrism/internal/repository"
)

const (
	defaultQueryLimit = 100
	maxQueryLimit     = 10000
)

// QueryService is the row-level read facade over active versions.
type QueryService struct {
	store      *repository.Store
	eng        *engine.Engine
	exportsDir string
	log        *slog.Logger
}

func NewQueryService(store *repository.Store, eng *engine.Engine, exportsDir string, log *slog.Logger) *QueryService {
	return &QueryService{store: store, eng: eng, exportsDir: exportsDir, log: log}
}

// Rows filters, sorts and paginates the active version. TotalRows counts
// matches before pagination.
func (s *QueryService) Rows(ctx context.Context, tableID string, q domain.RowsQuery) (*domain.RowsPage, error) {
	if q.Offset < 0 {
		return nil, domain.ErrValidation("offset must not be negative")
	}
	if q.Limit <= 0 {
		q.Limit = defaultQueryLimit
	}
	if q.Limit > maxQueryLimit {
		q.Limit = maxQueryLimit
	}

	physical, err := activePhysical(ctx, s.store, tableID)
	if err != nil {
		return nil, err
	}
	names, err := s.eng.ColumnNames(ctx, physical)
	if err != nil {
		return nil, err
	}

	where, args, err := engine.BuildWhere(q.Filters, names)
	if err != nil {
		return nil, err
	}
	orderBy, err := engine.BuildOrderBy(q.Sort, names)
	if err != nil {
		return nil, err
	}

	total, err := s.eng.CountWhere(ctx, physical, where, args)
	if err != nil {
		return nil, err
	}

	sel := "SELECT * FROM " + engine.QuoteIdentifier(physical)
	if where != "" {
		sel += " WHERE " + where
	}
	if orderBy != "" {
		sel += " ORDER BY " + orderBy
	}
	sel += " LIMIT ? OFFSET ?"
	rows, err := s.eng.QueryMaps(ctx, sel, append(append([]interface{}{}, args...), q.Limit, q.Offset)...)
	if err != nil {
		return nil, err
	}

	return &domain.RowsPage{Rows: rows, TotalRows: total}, nil
}

// ExportCSV writes the active version to a timestamped CSV file in the
// exports directory and returns the file name.
func (s *QueryService) ExportCSV(ctx context.Context, tableID string) (string, error) {
	t, err := s.store.Tables.GetByID(ctx, tableID)
	if err != nil {
		return "", err
	}
	physical, err := activePhysical(ctx, s.store, tableID)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(s.exportsDir, 0o755); err != nil {
		return "", fmt.Errorf("create exports dir: %w", err)
	}

	name := fmt.Sprintf("%s_%s.csv", t.Name, time.Now().UTC().Format("20060102T150405"))
	if err := s.eng.ExportCSV(ctx, physical, filepath.Join(s.exportsDir, name)); err != nil {
		return "", err
	}

	s.log.Info("table exported", "table", tableID, "file", name)
	return name, nil
}

// ExportPath resolves an export file name back to its on-disk path,
// refusing anything that escapes the exports directory.
func (s *QueryService) ExportPath(name string) (string, error) {
	base := filepath.Base(name)
	if base != name || base == "." || base == "" {
		return "", domain.ErrValidation("invalid export file name")
	}
	path := filepath.Join(s.exportsDir, base)
	if _, err := os.Stat(path); err != nil {
		return "", domain.ErrNotFound("export %s not found", base)
	}
	return path, nil
}
