// Package database provides the PostgreSQL client used by all services:
// a pgx-backed connection pool wrapped in the Ent client, with versioned
// SQL migrations applied at startup.
package database

import (
	"context"
	stdsql "database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib" // register the pgx driver for database/sql

	"github.com/cyno-health/cyno/ent"
)

//go:embed migrations
var migrationsFS embed.FS

// Client bundles the Ent client with the raw pool it runs on. Handlers use
// the Ent surface; the health endpoint and migrations need the *sql.DB.
type Client struct {
	*ent.Client
	db *stdsql.DB
}

// DB exposes the underlying pool for health checks and raw queries.
func (c *Client) DB() *stdsql.DB {
	return c.db
}

// NewClientFromEnt wraps an already-open Ent client. Used by the test
// harness, which migrates schemas itself.
func NewClientFromEnt(entClient *ent.Client, db *stdsql.DB) *Client {
	return &Client{Client: entClient, db: db}
}

// DSN renders the pgx connection string for this configuration.
func (c Config) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// Connect opens the pool, verifies connectivity, applies pending schema
// migrations and returns a ready Client. The analysis and board tables are
// created here before the worker pool starts polling them.
func Connect(ctx context.Context, cfg Config) (*Client, error) {
	db, err := stdsql.Open("pgx", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	drv := entsql.OpenDB(dialect.Postgres, db)
	entClient := ent.NewClient(ent.Driver(drv))

	if err := applyMigrations(ctx, db, cfg.Database, drv); err != nil {
		_ = entClient.Close()
		return nil, fmt.Errorf("apply migrations: %w", err)
	}

	return &Client{Client: entClient, db: db}, nil
}

// applyMigrations runs the embedded versioned SQL migrations and then the
// GIN indexes Ent cannot express. Migration files live in
// pkg/database/migrations and are compiled into the binary, so deployments
// never depend on files next to the executable.
func applyMigrations(ctx context.Context, db *stdsql.DB, dbName string, drv *entsql.Driver) error {
	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read embedded migrations: %w", err)
	}
	hasSQL := false
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			hasSQL = true
			break
		}
	}
	if !hasSQL {
		return fmt.Errorf("no migration files embedded - binary built incorrectly")
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create postgres migrate driver: %w", err)
	}

	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, dbName, driver)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w", err)
	}

	// Close only the source. Closing the migrate instance would also close
	// the shared *sql.DB out from under the Ent client.
	if err := source.Close(); err != nil {
		return fmt.Errorf("close migration source: %w", err)
	}

	return CreateGINIndexes(ctx, drv)
}
