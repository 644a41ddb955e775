package repository

import (
	"context"

	"github.com/Imd11/DataPrism/internal/domain"
)

type FileRepo struct {
	q DBTX
}

func (r *FileRepo) Insert(ctx context.Context, f *domain.DataFile) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO files (id, name, type, size, stored_path, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		f.ID, f.Name, f.Type, f.Size, f.StoredPath, f.CreatedAt, f.UpdatedAt)
	return mapDBError(err)
}

func (r *FileRepo) GetByID(ctx context.Context, id string) (*domain.DataFile, error) {
	var f domain.DataFile
	err := r.q.QueryRowContext(ctx, `
		SELECT id, name, type, size, stored_path, created_at, updated_at
		FROM files WHERE id = ?`, id).
		Scan(&f.ID, &f.Name, &f.Type, &f.Size, &f.StoredPath, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return nil, mapDBError(err)
	}
	return &f, nil
}

func (r *FileRepo) List(ctx context.Context) ([]domain.DataFile, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT id, name, type, size, stored_path, created_at, updated_at
		FROM files ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.DataFile{}
	for rows.Next() {
		var f domain.DataFile
		if err := rows.Scan(&f.ID, &f.Name, &f.Type, &f.Size, &f.StoredPath, &f.CreatedAt, &f.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}
