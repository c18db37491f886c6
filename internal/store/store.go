// Package store is the persistent relational store for DeploymentLog,
// OperationLog, and ComponentVersionLog (spec.md §6 Persistent store).
// Driver selection follows the DSN scheme: "sqlite://" for file-backed
// development use, "postgres://" for production.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	migrate "github.com/rubenv/sql-migrate"

	_ "github.com/mattn/go-sqlite3"
)

// Store is a thin wrapper over *sqlx.DB exposing the query layer of
// spec.md §4.G. The database handle is caller-supplied at construction
// (Open); callers own its lifetime and must Close it.
type Store struct {
	db      *sqlx.DB
	dialect string
}

// Open connects to dsn, retrying the initial ping with an exponential
// backoff (a transient DB-not-ready condition at process start shouldn't
// immediately fail the CLI), then applies schema migrations.
func Open(ctx context.Context, dsn string) (*Store, error) {
	driverName, dialect, driverDSN, err := resolveDriver(dsn)
	if err != nil {
		return nil, err
	}

	sqlDB, err := sql.Open(driverName, driverDSN)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", driverName, err)
	}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = 30 * time.Second
	pingErr := backoff.Retry(func() error {
		return sqlDB.PingContext(ctx)
	}, b)
	if pingErr != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("store: ping %s: %w", driverName, pingErr)
	}

	if _, err := migrate.Exec(sqlDB, dialect, migrationSource, migrate.Up); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("store: apply migrations: %w", err)
	}

	return &Store{db: sqlx.NewDb(sqlDB, driverName), dialect: dialect}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func resolveDriver(dsn string) (driverName, dialect, driverDSN string, err error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return "", "", "", fmt.Errorf("store: parse dsn: %w", err)
	}

	switch strings.ToLower(u.Scheme) {
	case "sqlite", "sqlite3":
		path := u.Opaque
		if path == "" {
			path = u.Path
		}
		if u.Host != "" {
			path = u.Host + path
		}
		return "sqlite3", "sqlite3", path, nil
	case "postgres", "postgresql":
		return "postgres", "postgres", dsn, nil
	default:
		return "", "", "", fmt.Errorf("store: unsupported dsn scheme %q", u.Scheme)
	}
}
