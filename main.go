package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/NandaniSingh69/PharmaTrack/alternatives"
	"github.com/NandaniSingh69/PharmaTrack/config"
	"github.com/NandaniSingh69/PharmaTrack/data"
	"github.com/NandaniSingh69/PharmaTrack/data/sqlitestore"
	"github.com/NandaniSingh69/PharmaTrack/handlers"
	"github.com/NandaniSingh69/PharmaTrack/health"
	"github.com/NandaniSingh69/PharmaTrack/interfaces"
	"github.com/NandaniSingh69/PharmaTrack/logging"
	"github.com/NandaniSingh69/PharmaTrack/medicineparser"
	"github.com/NandaniSingh69/PharmaTrack/metrics"
	"github.com/NandaniSingh69/PharmaTrack/scheduler"
	"github.com/NandaniSingh69/PharmaTrack/server"
	"github.com/NandaniSingh69/PharmaTrack/validation"
)

const shutdownTimeout = 30 * time.Second

func main() {
	if err := run(); err != nil {
		logging.Error("PharmaTrack stopped", "error", err)
		logging.Close()
		os.Exit(1)
	}
}

func run() error {
	loadEnvFile()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if err := logging.InitLogger(logging.Options{
		Dir:            cfg.LogDir,
		Env:            cfg.Env,
		Level:          cfg.LogLevel,
		RetentionWeeks: cfg.LogRetentionWeeks,
		MaxFileSize:    cfg.MaxLogFileSize,
	}); err != nil {
		logging.Warn("File logging unavailable, logging to console only", "error", err)
	}
	defer logging.Close()

	catalog, closeCatalog, err := openCatalog(cfg)
	if err != nil {
		return err
	}
	defer closeCatalog()

	policy, err := alternatives.ParseDedupPolicy(cfg.DedupPolicy)
	if err != nil {
		return err
	}

	engine, err := alternatives.NewEngine(catalog,
		alternatives.WithStoreTimeout(cfg.StoreTimeout),
		alternatives.WithWorkers(cfg.ScoringWorkers),
		alternatives.WithDedupPolicy(policy),
		alternatives.WithRecorder(metrics.Recorder{}),
		alternatives.WithLogger(logging.Logger()),
	)
	if err != nil {
		return fmt.Errorf("create alternatives engine: %w", err)
	}
	defer engine.Close()

	validator := validation.NewDataValidator()

	var refreshAt []string
	if cfg.CatalogSource != "" {
		parser := medicineparser.NewCSVParser(cfg.CatalogSource, validator)
		sched := scheduler.NewScheduler(catalog, parser, validator, cfg.CatalogRefreshAt)
		if err := sched.Start(); err != nil {
			return err
		}
		defer sched.Stop()
		refreshAt = cfg.CatalogRefreshAt
	} else {
		logging.Info("No catalog source configured, serving the stored catalog", "medicines", catalog.Count())
		metrics.RecordCatalogRefresh(catalog.Count(), catalog.GetLastUpdated())
	}

	healthChecker := health.NewHealthChecker(catalog, refreshAt)
	httpHandler := handlers.NewHTTPHandler(catalog, engine, validator, healthChecker)
	srv := server.NewServer(cfg, httpHandler)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}

// openCatalog opens the configured store backend
func openCatalog(cfg *config.Config) (interfaces.Catalog, func(), error) {
	switch cfg.StoreBackend {
	case config.BackendSQLite:
		store, err := sqlitestore.Open(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		logging.Info("Using SQLite catalog", "path", cfg.SQLitePath, "medicines", store.Count())
		return store, closeWithLog(store, "SQLite catalog"), nil

	case config.BackendMemory:
		return data.NewDataContainer(), func() {}, nil
	}
	return nil, nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
}

func closeWithLog(c io.Closer, name string) func() {
	return func() {
		if err := c.Close(); err != nil {
			logging.Error("Failed to close "+name, "error", err)
		}
	}
}

// loadEnvFile reads .env from the working directory, then from the executable's
// directory. A missing file is not an error: the environment may be set directly.
func loadEnvFile() {
	err := godotenv.Load()
	if err == nil {
		return
	}

	ex, exErr := os.Executable()
	if exErr != nil {
		return
	}
	if err := godotenv.Load(filepath.Join(filepath.Dir(ex), ".env")); err != nil && !errors.Is(err, os.ErrNotExist) {
		logging.Warn("Failed to read .env file", "error", err)
	}
}
