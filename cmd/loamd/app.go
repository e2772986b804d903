package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/loamdb/loam/internal/config"
	"github.com/loamdb/loam/internal/enrich"
	"github.com/loamdb/loam/internal/manager"
	"github.com/loamdb/loam/internal/platform/gemini"
	"github.com/loamdb/loam/internal/platform/postgres"
	"github.com/loamdb/loam/internal/queue"
)

// application bundles the composed service for the HTTP layer.
type application struct {
	config  *config.Config
	logger  *slog.Logger
	manager *manager.Manager

	// queueDB is the queue store's connection pool, nil in degraded mode.
	// The manager owns the backend pool; this one is closed by cleanup.
	queueDB *sql.DB
}

// buildManager connects and migrates the storage backend. When a durable
// queue endpoint is configured it also opens the queue store, builds the
// enrichment handlers on the Gemini client, and constructs the running
// Manager. Without a queue endpoint the manager comes up in degraded,
// storage-only mode.
func buildManager(ctx context.Context, cfg *config.Config, log *slog.Logger) (*manager.Manager, *sql.DB, error) {
	backendDB, err := postgres.Open(ctx, cfg.Backend.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open backend database: %w", err)
	}
	if err := runMigrations(backendDB, "backend"); err != nil {
		_ = backendDB.Close()
		return nil, nil, err
	}
	store := postgres.NewBackend(backendDB)

	deps := manager.Deps{
		Backend: store,
		Logger:  log,
	}

	var queueDB *sql.DB
	if cfg.QueueFS.URL != "" {
		queueDB, err = postgres.Open(ctx, cfg.QueueFS.URL)
		if err != nil {
			_ = backendDB.Close()
			return nil, nil, fmt.Errorf("failed to open queue database: %w", err)
		}
		if err := runMigrations(queueDB, "queue"); err != nil {
			_ = queueDB.Close()
			_ = backendDB.Close()
			return nil, nil, err
		}

		model, err := gemini.NewClient(ctx, cfg.LLM, log)
		if err != nil {
			_ = queueDB.Close()
			_ = backendDB.Close()
			return nil, nil, fmt.Errorf("failed to build model client: %w", err)
		}

		deps.QueueStore = postgres.NewQueueStore(queueDB, cfg.QueueFS.Timeout)
		deps.EmbeddingHandler = enrich.NewEmbeddingHandler(model, store, log)
		deps.SemanticHandler = enrich.NewSemanticProcessor(model, store, log)
		deps.QueueOptions = queue.Options{
			PollInterval:  cfg.Queue.PollInterval,
			HandleTimeout: cfg.Queue.HandleTimeout,
			MaxAttempts:   cfg.Queue.MaxAttempts,
			StopGrace:     cfg.Queue.StopGrace,
		}
	}

	m, err := manager.New(ctx, deps)
	if err != nil {
		if queueDB != nil {
			_ = queueDB.Close()
		}
		_ = backendDB.Close()
		return nil, nil, err
	}
	return m, queueDB, nil
}
