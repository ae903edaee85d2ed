// Package mpostgres is a thin connection hub around database/sql backed by
// pgx's stdlib driver, with primary/replica routing and migration support,
// mirroring the teacher's common/mpostgres/postgres.go.
package mpostgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/bxcodec/dbresolver/v2"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/poolcard/ledger-core/pkg/mlog"
)

// Connection is a hub which deals with Postgres primary/replica connections.
type Connection struct {
	PrimaryURL     string
	ReplicaURL     string
	PrimaryDBName  string
	MigrationsPath string
	Logger         mlog.Logger
	db             dbresolver.DB
	primary        *sql.DB
	connected      bool
}

// Connect opens primary and replica pools, runs migrations against the
// primary, and verifies connectivity. Safe to call once; idempotent via GetDB.
func (c *Connection) Connect() error {
	c.Logger.Info("connecting to postgres...")

	primary, err := sql.Open("pgx", c.PrimaryURL)
	if err != nil {
		return fmt.Errorf("open primary: %w", err)
	}

	replicaURL := c.ReplicaURL
	if replicaURL == "" {
		replicaURL = c.PrimaryURL
	}

	replica, err := sql.Open("pgx", replicaURL)
	if err != nil {
		return fmt.Errorf("open replica: %w", err)
	}

	resolved := dbresolver.New(
		dbresolver.WithPrimaryDBs(primary),
		dbresolver.WithReplicaDBs(replica),
		dbresolver.WithLoadBalancer(dbresolver.RoundRobinLB),
	)

	if c.MigrationsPath != "" {
		if err := c.migrate(primary); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	if err := resolved.Ping(); err != nil {
		return fmt.Errorf("ping: %w", err)
	}

	c.db = resolved
	c.primary = primary
	c.connected = true

	c.Logger.Info("connected to postgres")

	return nil
}

func (c *Connection) migrate(db *sql.DB) error {
	driver, err := postgres.WithInstance(db, &postgres.Config{
		MultiStatementEnabled: true,
		DatabaseName:          c.PrimaryDBName,
		SchemaName:            "public",
	})
	if err != nil {
		return err
	}

	m, err := migrate.NewWithDatabaseInstance("file://"+c.MigrationsPath, c.PrimaryDBName, driver)
	if err != nil {
		return err
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}

	return nil
}

// ReadDB returns the resolver-backed, read/write-routing handle, connecting
// lazily. The repositories in internal/storage/postgres, reconciliation
// reads included, use Primary rather than this handle.
func (c *Connection) ReadDB(ctx context.Context) (dbresolver.DB, error) {
	if !c.connected {
		if err := c.Connect(); err != nil {
			return nil, err
		}
	}

	return c.db, nil
}

// Primary returns the plain *sql.DB handle for the primary, connecting
// lazily. Repositories that need pkg/dbtx transaction support (the posting
// engine and every write path) use this handle.
func (c *Connection) Primary(ctx context.Context) (*sql.DB, error) {
	if !c.connected {
		if err := c.Connect(); err != nil {
			return nil, err
		}
	}

	return c.primary, nil
}

// WithDB wraps an already-open *sql.DB as a connected Connection, skipping
// Connect/migrate. Used by repository tests to inject a go-sqlmock DB.
func WithDB(db *sql.DB) *Connection {
	return &Connection{primary: db, connected: true}
}

// Close closes the primary pool. A no-op if Connect was never called.
func (c *Connection) Close() error {
	if !c.connected || c.primary == nil {
		return nil
	}

	return c.primary.Close()
}
