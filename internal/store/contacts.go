package store

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
)

var contactColumns = []string{
	"id", "address_book_id", "vcard_data", "etag",
	"display_name", "given_name", "family_name", "nickname", "organization", "job_title",
	"primary_email", "primary_phone", "birthday", "notes",
	"emails", "phones", "addresses", "urls",
	"photo_data", "photo_media_type", "created_at", "updated_at",
}

type contactRepo struct {
	pool db
}

func (r *contactRepo) Get(ctx context.Context, addressBookID, id string) (*Contact, error) {
	defer observeDB(ctx, "contacts.get")()

	contacts, err := r.list(ctx, contactsQuery(addressBookID).Where(sq.Eq{"id": id}))
	if err != nil {
		return nil, err
	}
	if len(contacts) == 0 {
		return nil, ErrNotFound
	}
	return &contacts[0], nil
}

func (r *contactRepo) ListForBook(ctx context.Context, addressBookID string) ([]Contact, error) {
	defer observeDB(ctx, "contacts.list")()
	return r.list(ctx, contactsQuery(addressBookID))
}

func (r *contactRepo) ListByIDs(ctx context.Context, addressBookID string, ids []string) ([]Contact, error) {
	defer observeDB(ctx, "contacts.list_by_ids")()
	if len(ids) == 0 {
		return nil, nil
	}
	return r.list(ctx, contactsQuery(addressBookID).Where(sq.Eq{"id": ids}))
}

func (r *contactRepo) ListModifiedSince(ctx context.Context, addressBookID string, since time.Time) ([]Contact, error) {
	defer observeDB(ctx, "contacts.list_modified")()
	return r.list(ctx, contactsQuery(addressBookID).Where(sq.GtOrEq{"updated_at": since}))
}

func (r *contactRepo) Upsert(ctx context.Context, contact Contact) (*Contact, error) {
	defer observeDB(ctx, "contacts.upsert")()

	if contact.UpdatedAt.IsZero() {
		contact.UpdatedAt = time.Now().UTC()
	}
	sql, args, err := contactUpsertQuery(contact).ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "failed to build contact upsert")
	}

	err = withTx(ctx, r.pool, func(tx pgx.Tx) error {
		// A contact replaces a group card stored under the same resource name.
		if _, err := tx.Exec(ctx, `DELETE FROM contact_groups WHERE address_book_id=$1 AND id=$2`, contact.AddressBookID, contact.ID); err != nil {
			return err
		}
		return tx.QueryRow(ctx, sql, args...).Scan(&contact.CreatedAt, &contact.UpdatedAt)
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to upsert contact")
	}
	return &contact, nil
}

func (r *contactRepo) Delete(ctx context.Context, addressBookID, id string, deletedAt time.Time) error {
	defer observeDB(ctx, "contacts.delete")()
	return deleteWithTombstone(ctx, r.pool, "contacts", ResourceContact, addressBookID, id, deletedAt)
}

func (r *contactRepo) list(ctx context.Context, q sq.SelectBuilder) ([]Contact, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "failed to build contact query")
	}
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query contacts")
	}
	contacts, err := pgx.CollectRows(rows, scanContact)
	return contacts, errors.Wrap(err, "failed to scan contacts")
}

func contactsQuery(addressBookID string) sq.SelectBuilder {
	return psql.Select(contactColumns...).
		From("contacts").
		Where(sq.Eq{"address_book_id": addressBookID}).
		OrderBy("id")
}

func contactUpsertQuery(c Contact) sq.InsertBuilder {
	return psql.Insert("contacts").
		Columns(contactColumns...).
		Values(
			c.ID, c.AddressBookID, c.VCardData, c.ETag,
			c.DisplayName, c.GivenName, c.FamilyName, c.Nickname, c.Organization, c.JobTitle,
			c.PrimaryEmail, c.PrimaryPhone, c.Birthday, c.Notes,
			jsonArray(c.Emails), jsonArray(c.Phones), jsonArray(c.Addresses), jsonArray(c.URLs),
			c.PhotoData, c.PhotoMediaType, c.UpdatedAt, c.UpdatedAt,
		).
		Suffix(`ON CONFLICT (address_book_id, id) DO UPDATE SET
    vcard_data = EXCLUDED.vcard_data,
    etag = EXCLUDED.etag,
    display_name = EXCLUDED.display_name,
    given_name = EXCLUDED.given_name,
    family_name = EXCLUDED.family_name,
    nickname = EXCLUDED.nickname,
    organization = EXCLUDED.organization,
    job_title = EXCLUDED.job_title,
    primary_email = EXCLUDED.primary_email,
    primary_phone = EXCLUDED.primary_phone,
    birthday = EXCLUDED.birthday,
    notes = EXCLUDED.notes,
    emails = EXCLUDED.emails,
    phones = EXCLUDED.phones,
    addresses = EXCLUDED.addresses,
    urls = EXCLUDED.urls,
    photo_data = EXCLUDED.photo_data,
    photo_media_type = EXCLUDED.photo_media_type,
    updated_at = EXCLUDED.updated_at
RETURNING created_at, updated_at`)
}

func scanContact(row pgx.CollectableRow) (Contact, error) {
	var c Contact
	err := row.Scan(
		&c.ID, &c.AddressBookID, &c.VCardData, &c.ETag,
		&c.DisplayName, &c.GivenName, &c.FamilyName, &c.Nickname, &c.Organization, &c.JobTitle,
		&c.PrimaryEmail, &c.PrimaryPhone, &c.Birthday, &c.Notes,
		&c.Emails, &c.Phones, &c.Addresses, &c.URLs,
		&c.PhotoData, &c.PhotoMediaType, &c.CreatedAt, &c.UpdatedAt,
	)
	return c, err
}

// deleteWithTombstone removes one row from table and records the deletion in
// the same transaction. A missing row yields ErrNotFound and no tombstone.
func deleteWithTombstone(ctx context.Context, pool PgxPool, table, resourceType, addressBookID, id string, deletedAt time.Time) error {
	err := withTx(ctx, pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM `+table+` WHERE address_book_id=$1 AND id=$2`, addressBookID, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		_, err = tx.Exec(ctx, `INSERT INTO contact_tombstones (address_book_id, resource_id, resource_type, deleted_at) VALUES ($1, $2, $3, $4)`,
			addressBookID, id, resourceType, deletedAt)
		return err
	})
	if errors.Is(err, ErrNotFound) {
		return ErrNotFound
	}
	return errors.Wrapf(err, "failed to delete %s", resourceType)
}

// jsonArray keeps JSONB array columns from being written as null.
func jsonArray[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
