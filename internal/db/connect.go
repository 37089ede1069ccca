package db

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"path/filepath"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
	"github.com/pressly/goose/v3"
)

// Connect opens the sqlite database under dataDir and applies any pending
// migrations.
func Connect(ctx context.Context, dataDir string) (*sql.DB, error) {
	db, err := Open(ctx, dataDir)
	if err != nil {
		return nil, err
	}
	if err := Migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// Open opens the sqlite database under dataDir without touching its
// schema.
func Open(ctx context.Context, dataDir string) (*sql.DB, error) {
	if dataDir == "" {
		return nil, fmt.Errorf("data.dir is not set")
	}
	dbPath := filepath.Join(dataDir, "juggy.db")

	// Pragmas go in the DSN so every pooled connection gets them. Immediate
	// transactions take the write lock up front, which keeps concurrent
	// read-modify-write turns from failing with a busy snapshot.
	dsn := "file:" + dbPath + "?_txlock=immediate" +
		"&_pragma=foreign_keys(1)" +
		"&_pragma=journal_mode(wal)" +
		"&_pragma=busy_timeout(5000)" +
		"&_pragma=synchronous(normal)"

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err = db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	pragmas := []string{
		"PRAGMA page_size = 4096;",
		"PRAGMA cache_size = -8000;",
	}

	for _, pragma := range pragmas {
		if _, err = db.ExecContext(ctx, pragma); err != nil {
			slog.Error("Failed to set pragma", "pragma", pragma, "error", err)
		} else {
			slog.Debug("Set pragma", "pragma", pragma)
		}
	}
	return db, nil
}

// Migrations is the directory of [FS] holding the goose migrations.
const Migrations = "migrations"

// SetupGoose points goose at the embedded migrations.
func SetupGoose() error {
	goose.SetBaseFS(FS)
	if err := goose.SetDialect("sqlite3"); err != nil {
		slog.Error("Failed to set dialect", "error", err)
		return fmt.Errorf("failed to set dialect: %w", err)
	}
	return nil
}

// Migrate applies every embedded migration that has not run yet.
func Migrate(db *sql.DB) error {
	if err := SetupGoose(); err != nil {
		return err
	}
	if err := goose.Up(db, Migrations); err != nil {
		slog.Error("Failed to apply migrations", "error", err)
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}
