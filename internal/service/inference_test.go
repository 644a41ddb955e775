package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Imd11/DataPrism/internal/domain"
	"github.com/Imd11/DataPrism/internal/engine"
)

func TestRefreshProfiles(t *testing.T) {
	env := newTestEnv(t)
	svc := env.inference()
	ctx := context.Background()

	tableID := env.seedTable(t, "people", `
		SELECT * FROM (VALUES
			(1, 'Ann',  CAST(1.5 AS DOUBLE)),
			(2, '  ',   CAST(2.5 AS DOUBLE)),
			(3, 'Ann',  CAST(NULL AS DOUBLE))
		) t(id, name, score)`)

	require.NoError(t, svc.RefreshProfiles(ctx, tableID))

	profiles, err := env.store.Profiles.ListForTable(ctx, tableID)
	require.NoError(t, err)
	require.Len(t, profiles, 3)

	byCol := map[string]int{}
	for i, p := range profiles {
		byCol[p.ColumnName] = i
	}

	id := profiles[byCol["id"]]
	assert.EqualValues(t, 3, id.RowCount)
	assert.EqualValues(t, 0, id.MissingCount)
	assert.EqualValues(t, 3, id.DistinctCount)
	assert.True(t, id.IsUnique)
	assert.True(t, id.IsIdentity, "contiguous 1..3 integer column is an identity")
	assert.False(t, id.InferredNullable)

	// blank-after-trim counts as missing for text
	name := profiles[byCol["name"]]
	assert.EqualValues(t, 1, name.MissingCount)
	assert.EqualValues(t, 1, name.DistinctCount, "blank collapses to null, duplicates collapse to one")
	assert.False(t, name.IsUnique)
	assert.True(t, name.InferredNullable)

	score := profiles[byCol["score"]]
	assert.EqualValues(t, 1, score.MissingCount)
	assert.EqualValues(t, 2, score.DistinctCount)
	assert.False(t, score.IsIdentity)
}

func TestIdentityRequiresContiguousRange(t *testing.T) {
	env := newTestEnv(t)
	svc := env.inference()
	ctx := context.Background()

	tableID := env.seedTable(t, "codes", `
		SELECT * FROM (VALUES (10, 'a'), (20, 'b'), (30, 'c')) t(code, label)`)
	require.NoError(t, svc.RefreshProfiles(ctx, tableID))

	profiles, err := env.store.Profiles.ListForTable(ctx, tableID)
	require.NoError(t, err)
	for _, p := range profiles {
		if p.ColumnName == "code" {
			assert.True(t, p.IsUnique)
			assert.False(t, p.IsIdentity, "10,20,30 is unique but not contiguous")
		}
	}
}

func TestRefreshInferredPrimaryKeyRanking(t *testing.T) {
	env := newTestEnv(t)
	svc := env.inference()
	ctx := context.Background()

	// email, id and user_id are all unique non-null; "id" outranks both.
	tableID := env.seedTable(t, "users", `
		SELECT * FROM (VALUES
			(1, 100, 'a@x'),
			(2, 200, 'b@x'),
			(3, 300, 'c@x')
		) t(id, user_id, email)`)
	require.NoError(t, svc.RefreshProfiles(ctx, tableID))

	fields, err := svc.RefreshInferredPrimaryKey(ctx, tableID)
	require.NoError(t, err)
	assert.Equal(t, []string{"id"}, fields)

	pk, err := env.store.Keys.GetInferred(ctx, tableID)
	require.NoError(t, err)
	require.NotNil(t, pk)
	assert.Equal(t, []string{"id"}, pk.Fields)
}

func TestExplicitKeyDisablesInference(t *testing.T) {
	env := newTestEnv(t)
	svc := env.inference()
	ctx := context.Background()

	tableID := env.seedTable(t, "users", `
		SELECT * FROM (VALUES (1, 'a'), (2, 'b')) t(id, name)`)
	require.NoError(t, svc.RefreshProfiles(ctx, tableID))

	require.NoError(t, env.store.Keys.UpsertExplicit(ctx, &domain.PrimaryKey{
		TableID: tableID, Fields: []string{"name"}, CreatedAt: time.Now().UTC(),
	}))

	fields, err := svc.RefreshInferredPrimaryKey(ctx, tableID)
	require.NoError(t, err)
	assert.Nil(t, fields)

	pk, err := env.store.Keys.GetInferred(ctx, tableID)
	require.NoError(t, err)
	assert.Nil(t, pk, "no inferred row is written while an explicit key exists")
}

func TestNoCandidateClearsInferredKey(t *testing.T) {
	env := newTestEnv(t)
	svc := env.inference()
	ctx := context.Background()

	tableID := env.seedTable(t, "dups", `
		SELECT * FROM (VALUES (1, 'a'), (1, 'b')) t(id, name)`)
	require.NoError(t, svc.RefreshProfiles(ctx, tableID))

	// stale inferred key from a previous pass
	require.NoError(t, env.store.Keys.UpsertInferred(ctx, &domain.PrimaryKey{
		TableID: tableID, Fields: []string{"id"}, CreatedAt: time.Now().UTC(),
	}))

	fields, err := svc.RefreshInferredPrimaryKey(ctx, tableID)
	require.NoError(t, err)
	assert.Nil(t, fields)

	pk, err := env.store.Keys.GetInferred(ctx, tableID)
	require.NoError(t, err)
	assert.Nil(t, pk)
}

func TestRefreshInferredRelations(t *testing.T) {
	env := newTestEnv(t)
	svc := env.inference()
	ctx := context.Background()

	customers := env.seedTable(t, "customers", `
		SELECT * FROM (VALUES
			(1, 'Ann'), (2, 'Bob'), (3, 'Cat')
		) t(customer_id, name)`)
	orders := env.seedTable(t, "orders", `
		SELECT * FROM (VALUES
			(101, 1), (102, 1), (103, 2), (104, 3)
		) t(order_id, customer_id)`)

	require.NoError(t, svc.RefreshInferredRelations(ctx, 0))

	edges, err := env.store.Relations.ListInferred(ctx)
	require.NoError(t, err)
	require.Len(t, edges, 1)

	e := edges[0]
	assert.Equal(t, orders, e.FkTableID)
	assert.Equal(t, customers, e.PkTableID)
	assert.Equal(t, []string{"customer_id"}, e.FkFields)
	assert.Equal(t, []string{"customer_id"}, e.PkFields)
	assert.Equal(t, domain.CardinalityManyToOne, e.Cardinality)
	require.NotNil(t, e.Coverage)
	assert.InDelta(t, 1.0, *e.Coverage, 1e-9)

	// the id is stable across reruns
	require.NoError(t, svc.RefreshInferredRelations(ctx, 0))
	again, err := env.store.Relations.ListInferred(ctx)
	require.NoError(t, err)
	require.Len(t, again, 1)
	assert.Equal(t, e.ID, again[0].ID)
}

func TestRelationBelowCoverageThresholdSkipped(t *testing.T) {
	env := newTestEnv(t)
	svc := env.inference()
	ctx := context.Background()

	env.seedTable(t, "customers", `
		SELECT * FROM (VALUES (1, 'Ann'), (2, 'Bob')) t(customer_id, name)`)
	// 2 of 4 order rows resolve: coverage 0.5 < 0.9
	env.seedTable(t, "orders", `
		SELECT * FROM (VALUES
			(101, 1), (102, 2), (103, 7), (104, 7)
		) t(order_id, customer_id)`)

	require.NoError(t, svc.RefreshInferredRelations(ctx, 0))

	edges, err := env.store.Relations.ListInferred(ctx)
	require.NoError(t, err)
	assert.Empty(t, edges)
}

func TestRelationCoverageThresholdOverride(t *testing.T) {
	env := newTestEnv(t)
	svc := env.inference()
	ctx := context.Background()

	customers := env.seedTable(t, "customers", `
		SELECT * FROM (VALUES (1, 'Ann'), (2, 'Bob')) t(customer_id, name)`)
	// 2 of 3 non-missing fk values resolve: coverage 0.667
	orders := env.seedTable(t, "orders", `
		SELECT * FROM (VALUES
			(101, 1), (102, 2), (103, 3), (104, NULL)
		) t(order_id, customer_id)`)

	require.NoError(t, svc.RefreshInferredRelations(ctx, 0))
	edges, err := env.store.Relations.ListInferred(ctx)
	require.NoError(t, err)
	assert.Empty(t, edges, "0.667 below the 0.9 default")

	require.NoError(t, svc.RefreshInferredRelations(ctx, 0.6))
	edges, err = env.store.Relations.ListInferred(ctx)
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.Equal(t, orders, edges[0].FkTableID)
	assert.Equal(t, customers, edges[0].PkTableID)
	assert.Equal(t, domain.CardinalityManyToOne, edges[0].Cardinality)
	require.NotNil(t, edges[0].Coverage)
	assert.InDelta(t, 2.0/3.0, *edges[0].Coverage, 1e-9)
}

func TestDerivedTablesExcludedFromRelationInference(t *testing.T) {
	env := newTestEnv(t)
	svc := env.inference()
	ctx := context.Background()

	env.seedTable(t, "customers", `
		SELECT * FROM (VALUES (1, 'Ann'), (2, 'Bob')) t(customer_id, name)`)

	// a derived table whose columns would otherwise pair up
	derivedID := domain.NewID("table")
	physical := engine.PhysicalName(derivedID, 1)
	require.NoError(t, env.eng.CreateTableAs(ctx, physical, `
		SELECT * FROM (VALUES (101, 1), (102, 2)) t(order_id, customer_id)`))
	now := time.Now().UTC()
	require.NoError(t, env.store.Tables.Insert(ctx, &domain.Table{
		ID: derivedID, Name: "merged", SourceType: domain.SourceDerived,
		CreatedAt: now, UpdatedAt: now,
	}))
	require.NoError(t, env.store.Versions.Insert(ctx, &domain.TableVersion{
		ID: domain.NewID("ver"), TableID: derivedID, Version: 1,
		PhysicalName: physical, CreatedAt: now, IsActive: true,
	}))

	require.NoError(t, svc.RefreshInferredRelations(ctx, 0))
	edges, err := env.store.Relations.ListInferred(ctx)
	require.NoError(t, err)
	assert.Empty(t, edges)
}
