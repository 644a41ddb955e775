package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/Imd11/DataPrism/internal/domain"
	"github.com/Imd11/DataPrism/internal/engine"
	"github.com/Imd11/DataPrism/internal/repository"
)

// ImportService materializes uploaded CSV files as version 1 of a new
// logical table.
type ImportService struct {
	store    *repository.Store
	eng      *engine.Engine
	filesDir string
	log      *slog.Logger
}

func NewImportService(store *repository.Store, eng *engine.Engine, filesDir string, log *slog.Logger) *ImportService {
	return &ImportService{store: store, eng: eng, filesDir: filesDir, log: log}
}

// ImportResult pairs the stored file record with the created table id.
type ImportResult struct {
	File    *domain.DataFile
	TableID string
}

// ImportCSV stores the upload on disk, snapshots it into the engine with
// inferred column types, and registers the file, table and active version
// in one metastore transaction.
func (s *ImportService) ImportCSV(ctx context.Context, filename string, content io.Reader) (*ImportResult, error) {
	filename = filepath.Base(filename)
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	if ext != "csv" {
		return nil, domain.ErrValidation("unsupported file type %q (csv only)", ext)
	}

	fileID := domain.NewID("file")
	storedPath := filepath.Join(s.filesDir, fileID+"_"+filename)
	if err := os.MkdirAll(s.filesDir, 0o755); err != nil {
		return nil, fmt.Errorf("create files dir: %w", err)
	}
	dst, err := os.Create(storedPath)
	if err != nil {
		return nil, fmt.Errorf("store upload: %w", err)
	}
	size, err := io.Copy(dst, content)
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, fmt.Errorf("store upload: %w", err)
	}

	tableID := domain.NewID("table")
	tableName := strings.TrimSuffix(filename, filepath.Ext(filename))
	physical := engine.PhysicalName(tableID, 1)

	if err := s.eng.ImportCSV(ctx, physical, storedPath); err != nil {
		return nil, err
	}

	now := utcNow()
	file := &domain.DataFile{
		ID:         fileID,
		Name:       filename,
		Type:       ext,
		Size:       size,
		StoredPath: storedPath,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	err = s.store.WithTx(ctx, func(tx *repository.Store) error {
		if err := tx.Files.Insert(ctx, file); err != nil {
			return err
		}
		if err := tx.Tables.Insert(ctx, &domain.Table{
			ID:           tableID,
			Name:         tableName,
			SourceType:   domain.SourceImported,
			SourceFileID: &fileID,
			CreatedAt:    now,
			UpdatedAt:    now,
		}); err != nil {
			return err
		}
		if err := tx.Versions.Insert(ctx, &domain.TableVersion{
			ID:           domain.NewID("ver"),
			TableID:      tableID,
			Version:      1,
			PhysicalName: physical,
			CreatedAt:    now,
			IsActive:     true,
		}); err != nil {
			return err
		}
		params, _ := json.Marshal(map[string]string{"fileId": fileID, "fileName": filename})
		return tx.OpLog.Insert(ctx, &domain.OperationLogEntry{
			ID:        domain.NewID("op"),
			Type:      domain.OpImport,
			TableID:   tableID,
			TableName: tableName,
			Params:    params,
			CreatedAt: now,
			Undoable:  false,
		})
	})
	if err != nil {
		// Roll the snapshot back so a failed registration leaves nothing
		// behind; the reconcile sweep catches what this misses.
		_ = s.eng.DropTable(ctx, physical)
		return nil, err
	}

	s.log.Info("csv imported", "table", tableID, "file", fileID, "bytes", size)
	return &ImportResult{File: file, TableID: tableID}, nil
}
