// Command server runs the data catalog HTTP API.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	_ "github.com/mattn/go-sqlite3"

	"github.com/Imd11/DataPrism/internal/app"
	"github.com/Imd11/DataPrism/internal/config"
	"github.com/Imd11/DataPrism/internal/db"
	"github.com/Imd11/DataPrism/internal/engine"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	if err := config.LoadDotEnv(".env"); err != nil {
		return err
	}
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return err
	}

	// JSON logs in production, human-readable text in development.
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	var handler slog.Handler = slog.NewTextHandler(os.Stdout, opts)
	if cfg.IsProduction() {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)

	for _, dir := range []string{cfg.DataDir, cfg.FilesDir(), cfg.ExportsDir(), filepath.Dir(cfg.MetaDBPath)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	metaDB, err := db.OpenMetastore(cfg.MetaDBPath)
	if err != nil {
		return err
	}
	defer metaDB.Close()
	if err := db.RunMigrations(metaDB); err != nil {
		return err
	}
	metaDBRead, err := db.OpenMetastoreRead(cfg.MetaDBPath, 0)
	if err != nil {
		return err
	}
	defer metaDBRead.Close()

	eng, err := engine.Open(cfg.DuckDBPath)
	if err != nil {
		return err
	}
	defer eng.Close()

	a := app.New(app.Deps{
		Cfg:        cfg,
		MetaDB:     metaDB,
		MetaDBRead: metaDBRead,
		Engine:     eng,
		Logger:     logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if n, err := a.Services.Catalog.ReconcileOrphans(ctx); err != nil {
		logger.Warn("orphan reconcile failed", "error", err)
	} else if n > 0 {
		logger.Info("dropped orphaned tables", "count", n)
	}

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           a.Handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.ListenAddr, "env", cfg.Env)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
