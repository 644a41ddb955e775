package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Imd11/DataPrism/internal/domain"
)

func TestReshapeWideToLong(t *testing.T) {
	env := newTestEnv(t)
	svc := NewReshapeService(env.store, env.eng, env.log)
	ctx := context.Background()

	tableID := env.seedTable(t, "sales", `
		SELECT * FROM (VALUES
			('north', 10, 11),
			('south', 20, 21)
		) t(region, q1, q2)`)

	resultID, report, lineage, err := svc.Reshape(ctx, domain.ReshapeRequest{
		TableID:   tableID,
		Direction: domain.WideToLong,
		IdVars:    []string{"region"},
		ValueVars: []string{"q1", "q2"},
	})
	require.NoError(t, err)

	assert.EqualValues(t, 2, report.RowsBefore)
	assert.EqualValues(t, 4, report.RowsAfter)
	assert.Equal(t, 3, report.ColumnsBefore)
	assert.Equal(t, 3, report.ColumnsAfter)

	v, err := env.store.Versions.GetActive(ctx, resultID)
	require.NoError(t, err)
	names, err := env.eng.ColumnNames(ctx, v.PhysicalName)
	require.NoError(t, err)
	assert.Equal(t, []string{"region", "variable", "value"}, names)

	rows, err := env.eng.QueryMaps(ctx,
		`SELECT * FROM `+"\""+v.PhysicalName+"\""+` ORDER BY region, variable`)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.EqualValues(t, "north", rows[0]["region"])
	assert.EqualValues(t, "q1", rows[0]["variable"])
	assert.EqualValues(t, 10, rows[0]["value"])

	require.NotNil(t, lineage)
	assert.Equal(t, []string{tableID}, lineage.SourceTableIDs)
	assert.Equal(t, domain.OpReshape, lineage.Operation)
}

func TestReshapeWideToLongKeepsNullCells(t *testing.T) {
	env := newTestEnv(t)
	svc := NewReshapeService(env.store, env.eng, env.log)
	ctx := context.Background()

	tableID := env.seedTable(t, "sales", `
		SELECT * FROM (VALUES
			('north', 10, NULL),
			('south', 20, 21)
		) t(region, q1, q2)`)

	resultID, report, _, err := svc.Reshape(ctx, domain.ReshapeRequest{
		TableID:   tableID,
		Direction: domain.WideToLong,
		IdVars:    []string{"region"},
		ValueVars: []string{"q1", "q2"},
	})
	require.NoError(t, err)

	// Every input row contributes one output row per value column, even
	// when the cell is NULL.
	assert.EqualValues(t, 2, report.RowsBefore)
	assert.EqualValues(t, 4, report.RowsAfter)

	v, err := env.store.Versions.GetActive(ctx, resultID)
	require.NoError(t, err)
	rows, err := env.eng.QueryMaps(ctx,
		`SELECT * FROM `+"\""+v.PhysicalName+"\""+` ORDER BY region, variable`)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.EqualValues(t, "north", rows[1]["region"])
	assert.EqualValues(t, "q2", rows[1]["variable"])
	assert.Nil(t, rows[1]["value"])
}

func TestReshapeCustomNames(t *testing.T) {
	env := newTestEnv(t)
	svc := NewReshapeService(env.store, env.eng, env.log)
	ctx := context.Background()

	tableID := env.seedTable(t, "sales", `
		SELECT * FROM (VALUES ('north', 10, 11)) t(region, q1, q2)`)

	resultID, _, _, err := svc.Reshape(ctx, domain.ReshapeRequest{
		TableID:      tableID,
		Direction:    domain.WideToLong,
		IdVars:       []string{"region"},
		ValueVars:    []string{"q1", "q2"},
		VariableName: "quarter",
		ValueName:    "amount",
		ResultName:   "sales_long",
	})
	require.NoError(t, err)

	table, err := env.store.Tables.GetByID(ctx, resultID)
	require.NoError(t, err)
	assert.Equal(t, "sales_long", table.Name)
	assert.Equal(t, domain.SourceDerived, table.SourceType)

	v, err := env.store.Versions.GetActive(ctx, resultID)
	require.NoError(t, err)
	names, err := env.eng.ColumnNames(ctx, v.PhysicalName)
	require.NoError(t, err)
	assert.Equal(t, []string{"region", "quarter", "amount"}, names)
}

func TestReshapeLongToWide(t *testing.T) {
	env := newTestEnv(t)
	svc := NewReshapeService(env.store, env.eng, env.log)
	ctx := context.Background()

	tableID := env.seedTable(t, "sales_long", `
		SELECT * FROM (VALUES
			('north', 'q1', 10),
			('north', 'q2', 11),
			('south', 'q1', 20),
			('south', 'q2', 21)
		) t(region, quarter, amount)`)

	resultID, report, _, err := svc.Reshape(ctx, domain.ReshapeRequest{
		TableID:      tableID,
		Direction:    domain.LongToWide,
		IdVars:       []string{"region"},
		PivotColumns: "quarter",
		PivotValues:  "amount",
	})
	require.NoError(t, err)

	assert.EqualValues(t, 4, report.RowsBefore)
	assert.EqualValues(t, 2, report.RowsAfter)

	v, err := env.store.Versions.GetActive(ctx, resultID)
	require.NoError(t, err)
	names, err := env.eng.ColumnNames(ctx, v.PhysicalName)
	require.NoError(t, err)
	assert.Contains(t, names, "region")
	assert.Contains(t, names, "q1")
	assert.Contains(t, names, "q2")

	rows, err := env.eng.QueryMaps(ctx,
		`SELECT region, q1, q2 FROM `+"\""+v.PhysicalName+"\""+` ORDER BY region`)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.EqualValues(t, 10, rows[0]["q1"])
	assert.EqualValues(t, 11, rows[0]["q2"])
}

func TestReshapeValidation(t *testing.T) {
	env := newTestEnv(t)
	svc := NewReshapeService(env.store, env.eng, env.log)
	ctx := context.Background()

	tableID := env.seedTable(t, "sales", `
		SELECT * FROM (VALUES ('north', 10, 11)) t(region, q1, q2)`)

	var ve *domain.ValidationError

	_, _, _, err := svc.Reshape(ctx, domain.ReshapeRequest{
		TableID: tableID, Direction: "diagonal",
	})
	require.True(t, errors.As(err, &ve), "unknown direction")

	_, _, _, err = svc.Reshape(ctx, domain.ReshapeRequest{
		TableID: tableID, Direction: domain.WideToLong, IdVars: []string{"region"},
	})
	require.True(t, errors.As(err, &ve), "wide-to-long needs valueVars")

	_, _, _, err = svc.Reshape(ctx, domain.ReshapeRequest{
		TableID: tableID, Direction: domain.LongToWide, IdVars: []string{"region"},
	})
	require.True(t, errors.As(err, &ve), "long-to-wide needs pivot params")

	_, _, _, err = svc.Reshape(ctx, domain.ReshapeRequest{
		TableID: tableID, Direction: domain.WideToLong,
		IdVars: []string{"ghost"}, ValueVars: []string{"q1"},
	})
	require.True(t, errors.As(err, &ve), "unknown id var")
}
