package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Imd11/DataPrism/internal/domain"
	"github.com/Imd11/DataPrism/internal/engine"
)

func TestImportCSV(t *testing.T) {
	env := newTestEnv(t)
	svc := NewImportService(env.store, env.eng, t.TempDir(), env.log)
	ctx := context.Background()

	csv := "id,name,age\n1,Ann,34\n2,Bob,51\n3,Cid,28\n"
	res, err := svc.ImportCSV(ctx, "people.csv", strings.NewReader(csv))
	require.NoError(t, err)
	require.NotNil(t, res.File)
	assert.Equal(t, "people.csv", res.File.Name)
	assert.Equal(t, "csv", res.File.Type)
	assert.EqualValues(t, len(csv), res.File.Size)

	tbl, err := env.store.Tables.GetByID(ctx, res.TableID)
	require.NoError(t, err)
	assert.Equal(t, "people", tbl.Name)
	assert.Equal(t, domain.SourceImported, tbl.SourceType)
	require.NotNil(t, tbl.SourceFileID)
	assert.Equal(t, res.File.ID, *tbl.SourceFileID)

	ver, err := env.store.Versions.GetActive(ctx, res.TableID)
	require.NoError(t, err)
	assert.Equal(t, 1, ver.Version)
	assert.Equal(t, engine.PhysicalName(res.TableID, 1), ver.PhysicalName)

	count, err := env.eng.RowCount(ctx, ver.PhysicalName)
	require.NoError(t, err)
	assert.EqualValues(t, 3, count)

	cols, err := env.eng.ColumnNames(ctx, ver.PhysicalName)
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name", "age"}, cols)

	ops, err := env.store.OpLog.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, ops, 1)
	assert.Equal(t, domain.OpImport, ops[0].Type)
	assert.False(t, ops[0].Undoable)
}

func TestImportRejectsNonCSV(t *testing.T) {
	env := newTestEnv(t)
	svc := NewImportService(env.store, env.eng, t.TempDir(), env.log)

	_, err := svc.ImportCSV(context.Background(), "data.xlsx", strings.NewReader("junk"))
	var ve *domain.ValidationError
	require.True(t, errors.As(err, &ve))
}

func TestImportStripsDirectoryFromFilename(t *testing.T) {
	env := newTestEnv(t)
	svc := NewImportService(env.store, env.eng, t.TempDir(), env.log)

	res, err := svc.ImportCSV(context.Background(), "../uploads/cities.csv", strings.NewReader("name\nOslo\n"))
	require.NoError(t, err)
	assert.Equal(t, "cities.csv", res.File.Name)
	assert.NotContains(t, res.File.StoredPath, "..")
}
