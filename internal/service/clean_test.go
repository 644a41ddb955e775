package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Imd11/DataPrism/internal/domain"
)

func newCleanService(env *testEnv) *CleanService {
	return NewCleanService(env.store, env.eng, env.log)
}

func TestCleanTrimCreatesNewVersion(t *testing.T) {
	env := newTestEnv(t)
	svc := newCleanService(env)
	ctx := context.Background()

	tableID := env.seedTable(t, "people", `
		SELECT * FROM (VALUES (1, ' Ann '), (2, 'Bob')) t(id, name)`)

	result, err := svc.Clean(ctx, tableID, domain.CleanRequest{
		Action: domain.CleanTrim, Fields: []string{"name"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.NewVersion)

	rows := env.activeRows(t, tableID, "id")
	require.Len(t, rows, 2)
	assert.EqualValues(t, "Ann", rows[0]["name"])
	assert.EqualValues(t, "Bob", rows[1]["name"])

	// both snapshots exist; only the new one is active
	versions, err := env.store.Versions.ListForTable(ctx, tableID)
	require.NoError(t, err)
	require.Len(t, versions, 2)
	assert.False(t, versions[0].IsActive)
	assert.True(t, versions[1].IsActive)

	table, err := env.store.Tables.GetByID(ctx, tableID)
	require.NoError(t, err)
	assert.True(t, table.Dirty)

	entry, err := env.store.OpLog.LatestUndoableClean(ctx)
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, result.OperationID, entry.ID)
	require.NotNil(t, entry.NewVersionID)
	assert.Equal(t, versions[1].ID, *entry.NewVersionID)
}

func TestCleanDropMissing(t *testing.T) {
	env := newTestEnv(t)
	svc := newCleanService(env)
	ctx := context.Background()

	tableID := env.seedTable(t, "people", `
		SELECT * FROM (VALUES
			(1, 'Ann'), (2, NULL), (3, 'Cat')
		) t(id, name)`)

	_, err := svc.Clean(ctx, tableID, domain.CleanRequest{
		Action: domain.CleanDropMissing, Fields: []string{"name"},
	})
	require.NoError(t, err)

	rows := env.activeRows(t, tableID, "id")
	require.Len(t, rows, 2)
	assert.EqualValues(t, 1, rows[0]["id"])
	assert.EqualValues(t, 3, rows[1]["id"])
}

func TestCleanDropMissingRejectsScope(t *testing.T) {
	env := newTestEnv(t)
	svc := newCleanService(env)

	tableID := env.seedTable(t, "people", `
		SELECT * FROM (VALUES (1, 'Ann')) t(id, name)`)

	_, err := svc.Clean(context.Background(), tableID, domain.CleanRequest{
		Action:  domain.CleanDropMissing,
		Fields:  []string{"name"},
		Filters: []domain.Filter{{Field: "id", Op: domain.OpEq, Value: 1}},
	})
	var ve *domain.ValidationError
	require.True(t, errors.As(err, &ve), "got %v", err)
}

func TestCleanFillMean(t *testing.T) {
	env := newTestEnv(t)
	svc := newCleanService(env)
	ctx := context.Background()

	tableID := env.seedTable(t, "scores", `
		SELECT * FROM (VALUES
			(1, CAST(1.0 AS DOUBLE)),
			(2, CAST(2.0 AS DOUBLE)),
			(3, CAST(NULL AS DOUBLE))
		) t(id, score)`)

	_, err := svc.Clean(ctx, tableID, domain.CleanRequest{
		Action: domain.CleanFillMean, Fields: []string{"score"},
	})
	require.NoError(t, err)

	rows := env.activeRows(t, tableID, "id")
	require.Len(t, rows, 3)
	assert.InDelta(t, 1.5, rows[2]["score"].(float64), 1e-9)
}

func TestCleanFillMeanRejectsTextColumn(t *testing.T) {
	env := newTestEnv(t)
	svc := newCleanService(env)

	tableID := env.seedTable(t, "people", `
		SELECT * FROM (VALUES (1, 'Ann')) t(id, name)`)

	_, err := svc.Clean(context.Background(), tableID, domain.CleanRequest{
		Action: domain.CleanFillMean, Fields: []string{"name"},
	})
	var ve *domain.ValidationError
	require.True(t, errors.As(err, &ve), "got %v", err)
}

func TestCleanStandardizeMissing(t *testing.T) {
	env := newTestEnv(t)
	svc := newCleanService(env)
	ctx := context.Background()

	tableID := env.seedTable(t, "survey", `
		SELECT * FROM (VALUES
			(1, 'NA'), (2, ' n/a '), (3, 'x'), (4, '-')
		) t(id, answer)`)

	_, err := svc.Clean(ctx, tableID, domain.CleanRequest{
		Action: domain.CleanStandardizeMissing, Fields: []string{"answer"},
	})
	require.NoError(t, err)

	rows := env.activeRows(t, tableID, "id")
	require.Len(t, rows, 4)
	assert.Nil(t, rows[0]["answer"])
	assert.Nil(t, rows[1]["answer"])
	assert.EqualValues(t, "x", rows[2]["answer"])
	assert.Nil(t, rows[3]["answer"])
}

func TestCleanScopedTrim(t *testing.T) {
	env := newTestEnv(t)
	svc := newCleanService(env)
	ctx := context.Background()

	tableID := env.seedTable(t, "people", `
		SELECT * FROM (VALUES
			(1, ' A ', ' B '),
			(2, ' C ', ' D ')
		) t(id, first, last)`)

	// scope restricts the rewrite to row 1; two target fields exercise the
	// per-column scope binding
	_, err := svc.Clean(ctx, tableID, domain.CleanRequest{
		Action:  domain.CleanTrim,
		Fields:  []string{"first", "last"},
		Filters: []domain.Filter{{Field: "id", Op: domain.OpEq, Value: 1}},
	})
	require.NoError(t, err)

	rows := env.activeRows(t, tableID, "id")
	require.Len(t, rows, 2)
	assert.EqualValues(t, "A", rows[0]["first"])
	assert.EqualValues(t, "B", rows[0]["last"])
	assert.EqualValues(t, " C ", rows[1]["first"])
	assert.EqualValues(t, " D ", rows[1]["last"])
}

func TestCleanValidation(t *testing.T) {
	env := newTestEnv(t)
	svc := newCleanService(env)
	ctx := context.Background()

	tableID := env.seedTable(t, "people", `
		SELECT * FROM (VALUES (1, 'Ann')) t(id, name)`)

	var ve *domain.ValidationError

	_, err := svc.Clean(ctx, tableID, domain.CleanRequest{Action: "polish", Fields: []string{"name"}})
	require.True(t, errors.As(err, &ve))

	_, err = svc.Clean(ctx, tableID, domain.CleanRequest{Action: domain.CleanTrim})
	require.True(t, errors.As(err, &ve))

	_, err = svc.Clean(ctx, tableID, domain.CleanRequest{Action: domain.CleanTrim, Fields: []string{"ghost"}})
	require.True(t, errors.As(err, &ve))
}

func TestUndoLastClean(t *testing.T) {
	env := newTestEnv(t)
	svc := newCleanService(env)
	ctx := context.Background()

	tableID := env.seedTable(t, "people", `
		SELECT * FROM (VALUES (1, ' Ann ')) t(id, name)`)

	result, err := svc.Clean(ctx, tableID, domain.CleanRequest{
		Action: domain.CleanTrim, Fields: []string{"name"},
	})
	require.NoError(t, err)

	before, err := env.store.Tables.GetByID(ctx, tableID)
	require.NoError(t, err)

	undo, err := svc.UndoLastClean(ctx)
	require.NoError(t, err)
	assert.Equal(t, result.OperationID, undo.UndoneOperationID)
	assert.Equal(t, tableID, undo.TableID)

	// re-activating an older version still counts as a table update
	after, err := env.store.Tables.GetByID(ctx, tableID)
	require.NoError(t, err)
	assert.True(t, after.UpdatedAt.After(before.UpdatedAt))

	// active version is back to v1 with the original data
	active, err := env.store.Versions.GetActive(ctx, tableID)
	require.NoError(t, err)
	assert.Equal(t, 1, active.Version)
	rows := env.activeRows(t, tableID, "id")
	assert.EqualValues(t, " Ann ", rows[0]["name"])

	// the log entry survives but is no longer undoable
	list, err := env.store.OpLog.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.False(t, list[0].Undoable)

	var nf *domain.NotFoundError
	_, err = svc.UndoLastClean(ctx)
	require.True(t, errors.As(err, &nf), "second undo has nothing left")
}

func TestCleanPreview(t *testing.T) {
	env := newTestEnv(t)
	svc := newCleanService(env)
	ctx := context.Background()

	tableID := env.seedTable(t, "people", `
		SELECT * FROM (VALUES
			(1, ' Ann '), (2, 'Bob'), (3, ' Cat ')
		) t(id, name)`)

	preview, err := svc.Preview(ctx, tableID, domain.CleanRequest{
		Action: domain.CleanTrim, Fields: []string{"name"},
	}, 10)
	require.NoError(t, err)

	assert.EqualValues(t, 2, preview.AffectedRows)
	assert.EqualValues(t, 2, preview.AffectedCells)
	require.Len(t, preview.PerField, 1)
	assert.EqualValues(t, 2, preview.PerField[0].AffectedCells)
	require.Len(t, preview.Samples, 2)

	sample := preview.Samples[0]["name"].(map[string]interface{})
	assert.EqualValues(t, " Ann ", sample["before"])
	assert.EqualValues(t, "Ann", sample["after"])

	// no snapshot was produced
	versions, err := env.store.Versions.ListForTable(ctx, tableID)
	require.NoError(t, err)
	assert.Len(t, versions, 1)
}

func TestCleanPreviewUnsupportedAction(t *testing.T) {
	env := newTestEnv(t)
	svc := newCleanService(env)

	tableID := env.seedTable(t, "people", `
		SELECT * FROM (VALUES (1, 'Ann')) t(id, name)`)

	_, err := svc.Preview(context.Background(), tableID, domain.CleanRequest{
		Action: domain.CleanDropMissing, Fields: []string{"name"},
	}, 10)
	var ve *domain.ValidationError
	require.True(t, errors.As(err, &ve))
}
