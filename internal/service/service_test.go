package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Imd11/DataPrism/internal/db"
	"github.com/Imd11/DataPrism/internal/domain"
	"github.com/Imd11/DataPrism/internal/engine"
	"github.com/Imd11/DataPrism/internal/repository"
)

type testEnv struct {
	store *repository.Store
	eng   *engine.Engine
	log   *slog.Logger
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return &testEnv{
		store: repository.New(db.OpenTestMetastore(t)),
		eng:   engine.OpenTest(t),
		log:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func (env *testEnv) inference() *InferenceService {
	return NewInferenceService(env.store, env.eng, env.log)
}

func (env *testEnv) catalog() *CatalogService {
	return NewCatalogService(env.store, env.eng, env.inference(), env.log)
}

// seedTable materializes selectSQL as version 1 of a new imported table
// and registers it in the metastore.
func (env *testEnv) seedTable(t *testing.T, name, selectSQL string) string {
	t.Helper()
	ctx := context.Background()

	tableID := domain.NewID("table")
	physical := engine.PhysicalName(tableID, 1)
	require.NoError(t, env.eng.CreateTableAs(ctx, physical, selectSQL))

	now := time.Now().UTC()
	require.NoError(t, env.store.Tables.Insert(ctx, &domain.Table{
		ID: tableID, Name: name, SourceType: domain.SourceImported,
		CreatedAt: now, UpdatedAt: now,
	}))
	require.NoError(t, env.store.Versions.Insert(ctx, &domain.TableVersion{
		ID: domain.NewID("ver"), TableID: tableID, Version: 1,
		PhysicalName: physical, CreatedAt: now, IsActive: true,
	}))
	return tableID
}

// activeRows reads every row of a table's active version ordered by the
// given column.
func (env *testEnv) activeRows(t *testing.T, tableID, orderBy string) []map[string]interface{} {
	t.Helper()
	ctx := context.Background()
	v, err := env.store.Versions.GetActive(ctx, tableID)
	require.NoError(t, err)
	rows, err := env.eng.QueryMaps(ctx,
		"SELECT * FROM "+engine.QuoteIdentifier(v.PhysicalName)+" ORDER BY "+engine.QuoteIdentifier(orderBy))
	require.NoError(t, err)
	return rows
}
