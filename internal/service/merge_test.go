package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Imd11/DataPrism/internal/domain"
)

func seedMergePair(t *testing.T, env *testEnv) (left, right string) {
	t.Helper()
	left = env.seedTable(t, "people", `
		SELECT * FROM (VALUES
			(1, 'Ann'), (2, 'Bob'), (3, 'Cat')
		) t(id, name)`)
	right = env.seedTable(t, "scores", `
		SELECT * FROM (VALUES
			(1, 10), (2, 20), (4, 40)
		) t(id, score)`)
	return left, right
}

func TestMergeFullOuter(t *testing.T) {
	env := newTestEnv(t)
	svc := NewMergeService(env.store, env.eng, env.log)
	ctx := context.Background()
	left, right := seedMergePair(t, env)

	resultID, report, lineage, err := svc.Merge(ctx, domain.MergeRequest{
		LeftTableID: left, RightTableID: right,
		LeftKeys: []string{"id"}, RightKeys: []string{"id"},
		JoinType: domain.CardinalityOneToOne, How: domain.JoinFull,
		ResultName: "people_scores",
	})
	require.NoError(t, err)

	assert.EqualValues(t, 4, report.RowsAfter)
	assert.EqualValues(t, 2, report.MatchedRows)
	assert.EqualValues(t, 1, report.UnmatchedLeft)
	assert.EqualValues(t, 1, report.UnmatchedRight)
	assert.EqualValues(t, 3, report.RowsBefore["left"])
	assert.EqualValues(t, 3, report.RowsBefore["right"])
	assert.Equal(t, []string{"id=id"}, report.KeyFields)

	// matched + unmatched on both sides accounts for every result row
	assert.Equal(t, report.RowsAfter, report.MatchedRows+report.UnmatchedLeft+report.UnmatchedRight)

	// the result is a registered derived table with colliding right columns
	// renamed and the provenance marker appended
	table, err := env.store.Tables.GetByID(ctx, resultID)
	require.NoError(t, err)
	assert.Equal(t, domain.SourceDerived, table.SourceType)
	assert.Equal(t, "people_scores", table.Name)

	v, err := env.store.Versions.GetActive(ctx, resultID)
	require.NoError(t, err)
	names, err := env.eng.ColumnNames(ctx, v.PhysicalName)
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name", "right_id", "score", "_merge"}, names)

	require.NotNil(t, lineage)
	assert.Equal(t, resultID, lineage.DerivedTableID)
	assert.Equal(t, []string{left, right}, lineage.SourceTableIDs)
	assert.Equal(t, domain.OpMerge, lineage.Operation)

	edges, err := env.store.Lineage.ListForDerived(ctx, resultID)
	require.NoError(t, err)
	assert.Len(t, edges, 1)

	// merges are logged but never undoable
	list, err := env.store.OpLog.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, domain.OpMerge, list[0].Type)
	assert.False(t, list[0].Undoable)
}

func TestMergeInner(t *testing.T) {
	env := newTestEnv(t)
	svc := NewMergeService(env.store, env.eng, env.log)
	left, right := seedMergePair(t, env)

	_, report, _, err := svc.Merge(context.Background(), domain.MergeRequest{
		LeftTableID: left, RightTableID: right,
		LeftKeys: []string{"id"}, RightKeys: []string{"id"},
		JoinType: domain.CardinalityOneToOne, How: domain.JoinInner,
	})
	require.NoError(t, err)
	assert.EqualValues(t, 2, report.RowsAfter)
	assert.EqualValues(t, 2, report.MatchedRows)
	assert.EqualValues(t, 0, report.UnmatchedLeft)
	assert.EqualValues(t, 0, report.UnmatchedRight)
}

func TestMergeLeft(t *testing.T) {
	env := newTestEnv(t)
	svc := NewMergeService(env.store, env.eng, env.log)
	left, right := seedMergePair(t, env)

	_, report, _, err := svc.Merge(context.Background(), domain.MergeRequest{
		LeftTableID: left, RightTableID: right,
		LeftKeys: []string{"id"}, RightKeys: []string{"id"},
		JoinType: domain.CardinalityOneToOne, How: domain.JoinLeft,
	})
	require.NoError(t, err)
	assert.EqualValues(t, 3, report.RowsAfter)
	assert.EqualValues(t, 1, report.UnmatchedLeft)
	assert.EqualValues(t, 0, report.UnmatchedRight)
}

func TestMergeDefaultResultName(t *testing.T) {
	env := newTestEnv(t)
	svc := NewMergeService(env.store, env.eng, env.log)
	ctx := context.Background()
	left, right := seedMergePair(t, env)

	resultID, _, _, err := svc.Merge(ctx, domain.MergeRequest{
		LeftTableID: left, RightTableID: right,
		LeftKeys: []string{"id"}, RightKeys: []string{"id"},
		JoinType: domain.CardinalityOneToOne, How: domain.JoinInner,
	})
	require.NoError(t, err)

	table, err := env.store.Tables.GetByID(ctx, resultID)
	require.NoError(t, err)
	assert.Contains(t, table.Name, "merge_")
}

func TestMergeValidation(t *testing.T) {
	env := newTestEnv(t)
	svc := NewMergeService(env.store, env.eng, env.log)
	ctx := context.Background()
	left, right := seedMergePair(t, env)

	var ve *domain.ValidationError

	_, _, _, err := svc.Merge(ctx, domain.MergeRequest{
		LeftTableID: left, RightTableID: right,
		LeftKeys: []string{"id"}, RightKeys: []string{"id", "score"},
		JoinType: domain.CardinalityOneToOne, How: domain.JoinInner,
	})
	require.True(t, errors.As(err, &ve), "unequal key lists")

	_, _, _, err = svc.Merge(ctx, domain.MergeRequest{
		LeftTableID: left, RightTableID: right,
		LeftKeys: []string{"id"}, RightKeys: []string{"id"},
		JoinType: domain.CardinalityOneToOne, How: "cross",
	})
	require.True(t, errors.As(err, &ve), "unknown join kind")

	_, _, _, err = svc.Merge(ctx, domain.MergeRequest{
		LeftTableID: left, RightTableID: right,
		LeftKeys: []string{"ghost"}, RightKeys: []string{"id"},
		JoinType: domain.CardinalityOneToOne, How: domain.JoinInner,
	})
	require.True(t, errors.As(err, &ve), "unknown key column")

	var nf *domain.NotFoundError
	_, _, _, err = svc.Merge(ctx, domain.MergeRequest{
		LeftTableID: "table-missing", RightTableID: right,
		LeftKeys: []string{"id"}, RightKeys: []string{"id"},
		JoinType: domain.CardinalityOneToOne, How: domain.JoinInner,
	})
	require.True(t, errors.As(err, &nf), "unknown left table")
}
