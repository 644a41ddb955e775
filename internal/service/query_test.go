package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Imd11/DataPrism/internal/domain"
)

func newQueryService(t *testing.T, env *testEnv) *QueryService {
	t.Helper()
	return NewQueryService(env.store, env.eng, t.TempDir(), env.log)
}

func seedQueryTable(t *testing.T, env *testEnv) string {
	t.Helper()
	return env.seedTable(t, "people", `
		SELECT * FROM (VALUES
			(1, 'Ann', 34),
			(2, 'Bob', 51),
			(3, 'Cat', 28),
			(4, 'Dan', 45)
		) t(id, name, age)`)
}

func TestRowsFilterSortPaginate(t *testing.T) {
	env := newTestEnv(t)
	svc := newQueryService(t, env)
	ctx := context.Background()
	tableID := seedQueryTable(t, env)

	page, err := svc.Rows(ctx, tableID, domain.RowsQuery{
		Filters: []domain.Filter{{Field: "age", Op: domain.OpGt, Value: 30}},
		Sort:    []domain.SortKey{{Field: "age", Direction: domain.SortDesc}},
	})
	require.NoError(t, err)
	assert.EqualValues(t, 3, page.TotalRows)
	require.Len(t, page.Rows, 3)
	assert.EqualValues(t, "Bob", page.Rows[0]["name"])
	assert.EqualValues(t, "Ann", page.Rows[2]["name"])

	// pagination keeps the pre-page total
	page, err = svc.Rows(ctx, tableID, domain.RowsQuery{
		Filters: []domain.Filter{{Field: "age", Op: domain.OpGt, Value: 30}},
		Sort:    []domain.SortKey{{Field: "age", Direction: domain.SortDesc}},
		Limit:   2, Offset: 2,
	})
	require.NoError(t, err)
	assert.EqualValues(t, 3, page.TotalRows)
	require.Len(t, page.Rows, 1)
	assert.EqualValues(t, "Ann", page.Rows[0]["name"])
}

func TestRowsValidation(t *testing.T) {
	env := newTestEnv(t)
	svc := newQueryService(t, env)
	ctx := context.Background()
	tableID := seedQueryTable(t, env)

	var ve *domain.ValidationError
	_, err := svc.Rows(ctx, tableID, domain.RowsQuery{Offset: -1})
	require.True(t, errors.As(err, &ve))

	_, err = svc.Rows(ctx, tableID, domain.RowsQuery{
		Filters: []domain.Filter{{Field: "ghost", Op: domain.OpEq, Value: 1}},
	})
	require.True(t, errors.As(err, &ve))

	var nf *domain.NotFoundError
	_, err = svc.Rows(ctx, "table-missing", domain.RowsQuery{})
	require.True(t, errors.As(err, &nf))
}

func TestRowsLimitClamped(t *testing.T) {
	env := newTestEnv(t)
	svc := newQueryService(t, env)
	tableID := seedQueryTable(t, env)

	page, err := svc.Rows(context.Background(), tableID, domain.RowsQuery{Limit: 1 << 30})
	require.NoError(t, err)
	assert.Len(t, page.Rows, 4)
}

func TestExportCSVAndPath(t *testing.T) {
	env := newTestEnv(t)
	svc := newQueryService(t, env)
	ctx := context.Background()
	tableID := seedQueryTable(t, env)

	name, err := svc.ExportCSV(ctx, tableID)
	require.NoError(t, err)
	assert.Contains(t, name, "people_")
	assert.Equal(t, ".csv", filepath.Ext(name))

	path, err := svc.ExportPath(name)
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Ann")

	var ve *domain.ValidationError
	_, err = svc.ExportPath("../" + name)
	require.True(t, errors.As(err, &ve), "path escape must be rejected")

	var nf *domain.NotFoundError
	_, err = svc.ExportPath("nope.csv")
	require.True(t, errors.As(err, &nf))
}
