package main

import (
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/backend/*.sql migrations/queue/*.sql
var migrationsFS embed.FS

// runMigrations applies the embedded goose migrations under dir ("backend"
// or "queue") to db.
func runMigrations(db *sql.DB, dir string) error {
	sub, err := fs.Sub(migrationsFS, "migrations/"+dir)
	if err != nil {
		return fmt.Errorf("failed to open embedded migrations for %s: %w", dir, err)
	}

	goose.SetLogger(&slogGooseLogger{})
	goose.SetBaseFS(sub)
	defer goose.SetBaseFS(nil)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set migration dialect: %w", err)
	}
	goose.SetTableName("goose_db_version_" + dir)

	if err := goose.Up(db, "."); err != nil {
		return fmt.Errorf("failed to apply %s migrations: %w", dir, err)
	}
	return nil
}

// slogGooseLogger adapts goose's logger interface onto slog.
type slogGooseLogger struct{}

func (l *slogGooseLogger) Fatalf(format string, v ...interface{}) {
	slog.Error("migration fatal error", "message", fmt.Sprintf(format, v...))
}

func (l *slogGooseLogger) Printf(format string, v ...interface{}) {
	slog.Info("migration", "message", fmt.Sprintf(format, v...))
}
