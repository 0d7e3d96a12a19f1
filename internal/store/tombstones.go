package store

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
)

type tombstoneRepo struct {
	pool db
}

func (r *tombstoneRepo) ListSince(ctx context.Context, addressBookID, resourceType string, since time.Time) ([]Tombstone, error) {
	defer observeDB(ctx, "tombstones.list_since")()

	sql, args, err := tombstonesSinceQuery(addressBookID, resourceType, since).ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "failed to build tombstone query")
	}
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query tombstones")
	}
	tombstones, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Tombstone, error) {
		var t Tombstone
		err := row.Scan(&t.ID, &t.AddressBookID, &t.ResourceID, &t.ResourceType, &t.DeletedAt)
		return t, err
	})
	return tombstones, errors.Wrap(err, "failed to scan tombstones")
}

func tombstonesSinceQuery(addressBookID, resourceType string, since time.Time) sq.SelectBuilder {
	return psql.Select("id", "address_book_id", "resource_id", "resource_type", "deleted_at").
		From("contact_tombstones").
		Where(sq.Eq{"address_book_id": addressBookID, "resource_type": resourceType}).
		Where(sq.GtOrEq{"deleted_at": since}).
		OrderBy("deleted_at", "id")
}
