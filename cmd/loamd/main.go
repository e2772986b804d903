// Package main implements loamd, the background-enrichment daemon of the
// loam context store. It persists enrichment work items durably, drives them
// through the embedding and semantic handlers, and exposes a small
// operational HTTP surface for enqueueing and inspection.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/loamdb/loam/internal/bridge"
	"github.com/loamdb/loam/internal/config"
	"github.com/loamdb/loam/internal/platform/logger"
)

// shutdownTimeout bounds the HTTP server's graceful shutdown.
const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		log.Fatalf("loamd failed: %v", err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logg, err := logger.Setup(cfg.Server)
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}

	ctx := context.Background()
	m, queueDB, err := buildManager(ctx, cfg, logg)
	if err != nil {
		return err
	}

	app := &application{
		config:  cfg,
		logger:  logg,
		manager: m,
		queueDB: queueDB,
	}

	return app.serve(ctx)
}

// serve runs the HTTP server until SIGINT/SIGTERM, then shuts everything
// down in order: HTTP server, manager (queues, then backend), execution
// bridge.
func (app *application) serve(ctx context.Context) error {
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", app.config.Server.Port),
		Handler: app.setupRouter(),
	}

	serverErr := make(chan error, 1)
	go func() {
		app.logger.Info("starting server", "port", app.config.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-shutdownCh:
		app.logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-serverErr:
		app.logger.Error("server failed", "error", err)
		app.cleanup(ctx)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		app.logger.Error("server shutdown failed", "error", err)
	}

	app.cleanup(ctx)
	app.logger.Info("shutdown complete")
	return nil
}

// cleanup tears down the manager and the shared execution bridge. Both are
// best-effort and never abort the shutdown sequence.
func (app *application) cleanup(ctx context.Context) {
	app.manager.Close(ctx)
	if app.queueDB != nil {
		if err := app.queueDB.Close(); err != nil {
			app.logger.Error("failed to close queue database", "error", err)
		}
	}
	bridge.Shutdown()
}
