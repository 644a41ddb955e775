// Package app wires configuration, storage, services, and the HTTP
// handler into a runnable application.
package app

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/Imd11/DataPrism/internal/api"
	"github.com/Imd11/DataPrism/internal/config"
	"github.com/Imd11/DataPrism/internal/engine"
	"github.com/Imd11/DataPrism/internal/repository"
	"github.com/Imd11/DataPrism/internal/service"
)

// Deps are the externally-owned resources the application builds on.
// The caller opens and closes them. MetaDBRead is an optional read pool
// over the same metastore file; when nil the write pool serves reads too.
type Deps struct {
	Cfg        *config.Config
	MetaDB     *sql.DB
	MetaDBRead *sql.DB
	Engine     *engine.Engine
	Logger     *slog.Logger
}

// Services groups the constructed service layer.
type Services struct {
	Catalog   *service.CatalogService
	Inference *service.InferenceService
	Importer  *service.ImportService
	Clean     *service.CleanService
	Merge     *service.MergeService
	Reshape   *service.ReshapeService
	Query     *service.QueryService
	Report    *service.ReportService
}

// App is the fully wired application.
type App struct {
	Deps     Deps
	Store    *repository.Store
	Services Services
	Handler  http.Handler
}

// New wires the repositories, services, and HTTP handler from deps.
func New(deps Deps) *App {
	store := repository.New(deps.MetaDB)
	readStore := store
	if deps.MetaDBRead != nil {
		readStore = repository.New(deps.MetaDBRead)
	}
	log := deps.Logger

	// Query and report paths never mutate the metastore, so they go
	// through the read pool and stay clear of the single writer.
	inference := service.NewInferenceService(store, deps.Engine, log)
	svcs := Services{
		Inference: inference,
		Catalog:   service.NewCatalogService(store, deps.Engine, inference, log),
		Importer:  service.NewImportService(store, deps.Engine, deps.Cfg.FilesDir(), log),
		Clean:     service.NewCleanService(store, deps.Engine, log),
		Merge:     service.NewMergeService(store, deps.Engine, log),
		Reshape:   service.NewReshapeService(store, deps.Engine, log),
		Query:     service.NewQueryService(readStore, deps.Engine, deps.Cfg.ExportsDir(), log),
		Report:    service.NewReportService(readStore, deps.Engine, log),
	}

	handler := api.NewHandler(
		svcs.Catalog,
		svcs.Inference,
		svcs.Importer,
		svcs.Clean,
		svcs.Merge,
		svcs.Reshape,
		svcs.Query,
		svcs.Report,
		log,
	)

	return &App{
		Deps:     deps,
		Store:    store,
		Services: svcs,
		Handler:  handler.Router(deps.Cfg.CORSAllowedOrigins),
	}
}
