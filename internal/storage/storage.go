package storage

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/IshaanNene/stockpulse/internal/config"
	"github.com/IshaanNene/stockpulse/internal/types"
)

// Repository is the interface for all durable comment stores.
// Inserts are append-only and accept duplicate rows.
type Repository interface {
	// AppendComments persists a batch of comments.
	AppendComments(ctx context.Context, comments []types.Comment) error

	// Comments returns every stored comment in insertion order.
	Comments(ctx context.Context) ([]types.Comment, error)

	// AppendSentiments persists model-annotated comments.
	AppendSentiments(ctx context.Context, scored []types.ScoredComment) error

	// Sentiments returns every annotated comment in insertion order.
	Sentiments(ctx context.Context) ([]types.ScoredComment, error)

	// Migrate brings the schema up to date and returns the schema version.
	Migrate(ctx context.Context) (uint, error)

	// Close releases the connection.
	Close() error

	// Name returns the backend identifier.
	Name() string
}

// Open connects to the repository selected by cfg.Driver.
func Open(ctx context.Context, cfg config.DatabaseConfig, logger *slog.Logger) (Repository, error) {
	switch cfg.Driver {
	case "postgres":
		return NewPostgresRepository(ctx, cfg.DSN(), cfg.MaxConns, logger)
	case "sqlite":
		return NewSQLiteRepository(cfg.Path, logger)
	case "mongodb":
		return NewMongoRepository(ctx, cfg.DSN(), cfg.Name, logger)
	default:
		return nil, fmt.Errorf("database.driver %q: %w", cfg.Driver, types.ErrUnknownDriver)
	}
}

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrationFS embed.FS

// runMigrations applies the embedded migrations under dir to the database at
// databaseURL and returns the resulting version.
func runMigrations(dir, databaseURL string) (uint, error) {
	sub, err := fs.Sub(migrationFS, "migrations")
	if err != nil {
		return 0, fmt.Errorf("migrations fs: %w", err)
	}
	source, err := iofs.New(sub, dir)
	if err != nil {
		return 0, fmt.Errorf("failed to create iofs source: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, databaseURL)
	if err != nil {
		return 0, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, fmt.Errorf("failed to run migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil {
		return 0, fmt.Errorf("failed to get migration version: %w", err)
	}
	if dirty {
		return version, fmt.Errorf("schema version %d is dirty", version)
	}
	return version, nil
}
