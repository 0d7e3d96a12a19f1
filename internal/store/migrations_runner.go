package store

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"

	"github.com/jw6ventures/lifecard/internal/migrations"
)

// PgxPool represents the subset of pgxpool.Pool used by migration and
// transaction helpers, so tests can supply a lightweight mock.
type PgxPool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

// ApplyMigrations applies every embedded migration that has not been recorded
// yet and returns the names it applied, in order.
//
// A database that already holds tables but has no schema_migrations table is
// assumed to contain the initial schema, so only later migrations run.
func ApplyMigrations(ctx context.Context, pool PgxPool) ([]string, error) {
	pending, err := PendingMigrations(ctx, pool)
	if err != nil {
		return nil, err
	}

	applied := make([]string, 0, len(pending))
	for _, name := range pending {
		if err := applyMigration(ctx, pool, name); err != nil {
			return applied, err
		}
		applied = append(applied, name)
	}
	return applied, nil
}

// PendingMigrations prepares migration tracking and lists the embedded
// migrations not yet applied.
func PendingMigrations(ctx context.Context, pool PgxPool) ([]string, error) {
	names, err := migrations.Names()
	if err != nil {
		return nil, errors.Wrap(err, "list migrations")
	}
	if len(names) == 0 {
		return nil, nil
	}

	if err := prepareTracking(ctx, pool, names[0]); err != nil {
		return nil, err
	}

	var pending []string
	for _, name := range names {
		done, err := migrationApplied(ctx, pool, name)
		if err != nil {
			return nil, err
		}
		if !done {
			pending = append(pending, name)
		}
	}
	return pending, nil
}

func prepareTracking(ctx context.Context, pool PgxPool, initial string) error {
	const tableExists = `SELECT EXISTS (
        SELECT 1 FROM information_schema.tables
        WHERE table_schema='public' AND table_name='schema_migrations'
)`
	var exists bool
	if err := pool.QueryRow(ctx, tableExists).Scan(&exists); err != nil {
		return errors.Wrap(err, "check migration table")
	}
	if exists {
		return nil
	}

	const countTables = `SELECT COUNT(*) FROM information_schema.tables
WHERE table_schema NOT IN ('pg_catalog', 'information_schema')`
	var count int
	if err := pool.QueryRow(ctx, countTables).Scan(&count); err != nil {
		return errors.Wrap(err, "count tables")
	}

	const createTable = `CREATE TABLE IF NOT EXISTS schema_migrations (
        version TEXT PRIMARY KEY,
        applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`
	if _, err := pool.Exec(ctx, createTable); err != nil {
		return errors.Wrap(err, "create schema_migrations")
	}

	if count > 0 {
		if _, err := pool.Exec(ctx, recordMigrationSQL, initial); err != nil {
			return errors.Wrapf(err, "record migration %s", initial)
		}
	}
	return nil
}

func migrationApplied(ctx context.Context, pool PgxPool, name string) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE version=$1)`
	var exists bool
	if err := pool.QueryRow(ctx, q, name).Scan(&exists); err != nil {
		return false, errors.Wrapf(err, "check migration %s", name)
	}
	return exists, nil
}

const recordMigrationSQL = `INSERT INTO schema_migrations (version) VALUES ($1) ON CONFLICT (version) DO NOTHING`

func applyMigration(ctx context.Context, pool PgxPool, name string) error {
	contents, err := migrations.Files.ReadFile(name)
	if err != nil {
		return errors.Wrapf(err, "read migration %s", name)
	}

	err = withTx(ctx, pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, string(contents)); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, recordMigrationSQL, name)
		return err
	})
	return errors.Wrapf(err, "apply migration %s", name)
}
