package store

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
)

var groupColumns = []string{
	"id", "address_book_id", "display_name", "description", "vcard_data", "etag", "created_at", "updated_at",
}

type groupRepo struct {
	pool db
}

func (r *groupRepo) Get(ctx context.Context, addressBookID, id string) (*ContactGroup, error) {
	defer observeDB(ctx, "groups.get")()

	groups, err := r.list(ctx, groupsQuery(addressBookID).Where(sq.Eq{"id": id}))
	if err != nil {
		return nil, err
	}
	if len(groups) == 0 {
		return nil, ErrNotFound
	}
	return &groups[0], nil
}

func (r *groupRepo) ListForBook(ctx context.Context, addressBookID string) ([]ContactGroup, error) {
	defer observeDB(ctx, "groups.list")()
	return r.list(ctx, groupsQuery(addressBookID))
}

func (r *groupRepo) ListByIDs(ctx context.Context, addressBookID string, ids []string) ([]ContactGroup, error) {
	defer observeDB(ctx, "groups.list_by_ids")()
	if len(ids) == 0 {
		return nil, nil
	}
	return r.list(ctx, groupsQuery(addressBookID).Where(sq.Eq{"id": ids}))
}

func (r *groupRepo) ListModifiedSince(ctx context.Context, addressBookID string, since time.Time) ([]ContactGroup, error) {
	defer observeDB(ctx, "groups.list_modified")()
	return r.list(ctx, groupsQuery(addressBookID).Where(sq.GtOrEq{"updated_at": since}))
}

func (r *groupRepo) Members(ctx context.Context, addressBookID, groupID string) ([]string, error) {
	defer observeDB(ctx, "groups.members")()

	rows, err := r.pool.Query(ctx, `SELECT contact_id FROM contact_group_members WHERE address_book_id=$1 AND group_id=$2 ORDER BY contact_id`, addressBookID, groupID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query group members")
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	return ids, errors.Wrap(err, "failed to scan group members")
}

// Upsert stores the group card and replaces its member set. A contact stored
// under the same resource name is removed first.
func (r *groupRepo) Upsert(ctx context.Context, group ContactGroup) (*ContactGroup, error) {
	defer observeDB(ctx, "groups.upsert")()

	if group.UpdatedAt.IsZero() {
		group.UpdatedAt = time.Now().UTC()
	}
	upsertSQL, upsertArgs, err := groupUpsertQuery(group).ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "failed to build group upsert")
	}
	insert, hasMembers := groupMembersInsert(group.AddressBookID, group.ID, group.MemberIDs)
	var membersSQL string
	var membersArgs []any
	if hasMembers {
		if membersSQL, membersArgs, err = insert.ToSql(); err != nil {
			return nil, errors.Wrap(err, "failed to build member insert")
		}
	}

	err = withTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM contacts WHERE address_book_id=$1 AND id=$2`, group.AddressBookID, group.ID); err != nil {
			return err
		}
		if err := tx.QueryRow(ctx, upsertSQL, upsertArgs...).Scan(&group.CreatedAt, &group.UpdatedAt); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM contact_group_members WHERE address_book_id=$1 AND group_id=$2`, group.AddressBookID, group.ID); err != nil {
			return err
		}
		if !hasMembers {
			return nil
		}
		_, err := tx.Exec(ctx, membersSQL, membersArgs...)
		return err
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to upsert group")
	}
	return &group, nil
}

func (r *groupRepo) Delete(ctx context.Context, addressBookID, id string, deletedAt time.Time) error {
	defer observeDB(ctx, "groups.delete")()
	return deleteWithTombstone(ctx, r.pool, "contact_groups", ResourceGroup, addressBookID, id, deletedAt)
}

func (r *groupRepo) list(ctx context.Context, q sq.SelectBuilder) ([]ContactGroup, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "failed to build group query")
	}
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query groups")
	}
	groups, err := pgx.CollectRows(rows, scanGroup)
	return groups, errors.Wrap(err, "failed to scan groups")
}

func groupsQuery(addressBookID string) sq.SelectBuilder {
	return psql.Select(groupColumns...).
		From("contact_groups").
		Where(sq.Eq{"address_book_id": addressBookID}).
		OrderBy("id")
}

func groupUpsertQuery(g ContactGroup) sq.InsertBuilder {
	return psql.Insert("contact_groups").
		Columns(groupColumns...).
		Values(g.ID, g.AddressBookID, g.Name, g.Description, g.VCardData, g.ETag, g.UpdatedAt, g.UpdatedAt).
		Suffix(`ON CONFLICT (address_book_id, id) DO UPDATE SET
    display_name = EXCLUDED.display_name,
    description = EXCLUDED.description,
    vcard_data = EXCLUDED.vcard_data,
    etag = EXCLUDED.etag,
    updated_at = EXCLUDED.updated_at
RETURNING created_at, updated_at`)
}

// groupMembersInsert builds one multi-row insert for the member set. Duplicate
// ids are skipped. The boolean is false when there is nothing to insert.
func groupMembersInsert(addressBookID, groupID string, memberIDs []string) (sq.InsertBuilder, bool) {
	q := psql.Insert("contact_group_members").Columns("address_book_id", "group_id", "contact_id")
	seen := make(map[string]struct{}, len(memberIDs))
	for _, id := range memberIDs {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		q = q.Values(addressBookID, groupID, id)
	}
	return q.Suffix("ON CONFLICT DO NOTHING"), len(seen) > 0
}

func scanGroup(row pgx.CollectableRow) (ContactGroup, error) {
	var g ContactGroup
	err := row.Scan(&g.ID, &g.AddressBookID, &g.Name, &g.Description, &g.VCardData, &g.ETag, &g.CreatedAt, &g.UpdatedAt)
	return g, err
}
