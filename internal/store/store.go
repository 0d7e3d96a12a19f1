package store

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// psql builds PostgreSQL statements with $n placeholders.
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// db is the subset of pgxpool.Pool the repositories use.
type db interface {
	PgxPool
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type pinger interface {
	Ping(ctx context.Context) error
}

// Store aggregates repositories backed by PostgreSQL.
type Store struct {
	pool pinger

	Users        UserRepository
	AddressBooks AddressBookRepository
	Contacts     ContactRepository
	Groups       GroupRepository
	Tombstones   TombstoneRepository
}

// New wires concrete repository implementations with shared connection pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{
		pool:         pool,
		Users:        &userRepo{pool: pool},
		AddressBooks: &addressBookRepo{pool: pool},
		Contacts:     &contactRepo{pool: pool},
		Groups:       &groupRepo{pool: pool},
		Tombstones:   &tombstoneRepo{pool: pool},
	}
}

// HealthCheck verifies that the underlying database is reachable.
func (s *Store) HealthCheck(ctx context.Context) error {
	defer observeDB(ctx, "db.healthcheck")()
	return s.pool.Ping(ctx)
}

// withTx runs fn in a transaction, rolling back when fn fails.
func withTx(ctx context.Context, pool PgxPool, fn func(pgx.Tx) error) error {
	tx, err := pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}
