package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
)

// Default address book provisioned for every user.
const (
	DefaultAddressBookName  = "Contacts"
	DefaultAddressBookColor = "#007AFF"
)

const addressBookColumns = `id, user_id, name, color, description, created_at, updated_at`

type addressBookRepo struct {
	pool db
}

func (r *addressBookRepo) GetByID(ctx context.Context, userID int64, id string) (*AddressBook, error) {
	defer observeDB(ctx, "address_books.get")()

	row := r.pool.QueryRow(ctx, `SELECT `+addressBookColumns+` FROM address_books WHERE id=$1 AND user_id=$2`, id, userID)
	book, err := scanAddressBook(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to load address book")
	}
	return &book, nil
}

func (r *addressBookRepo) ListByUser(ctx context.Context, userID int64) ([]AddressBook, error) {
	defer observeDB(ctx, "address_books.list")()

	rows, err := r.pool.Query(ctx, `SELECT `+addressBookColumns+` FROM address_books WHERE user_id=$1 ORDER BY created_at, id`, userID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list address books")
	}
	books, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (AddressBook, error) {
		return scanAddressBook(row)
	})
	return books, errors.Wrap(err, "failed to scan address books")
}

func (r *addressBookRepo) Create(ctx context.Context, book AddressBook) (*AddressBook, error) {
	defer observeDB(ctx, "address_books.create")()

	if book.ID == "" {
		book.ID = uuid.NewString()
	}
	row := r.pool.QueryRow(ctx, `INSERT INTO address_books (id, user_id, name, color, description)
VALUES ($1, $2, $3, $4, $5)
RETURNING `+addressBookColumns, book.ID, book.UserID, book.Name, book.Color, book.Description)
	created, err := scanAddressBook(row)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create address book")
	}
	return &created, nil
}

// EnsureDefault creates the default address book when the user has none.
// Concurrent callers for the same user are serialized by an advisory lock.
func (r *addressBookRepo) EnsureDefault(ctx context.Context, userID int64) error {
	defer observeDB(ctx, "address_books.ensure_default")()

	err := withTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, userID); err != nil {
			return err
		}
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM address_books WHERE user_id=$1)`, userID).Scan(&exists); err != nil {
			return err
		}
		if exists {
			return nil
		}
		_, err := tx.Exec(ctx, `INSERT INTO address_books (id, user_id, name, color) VALUES ($1, $2, $3, $4)`,
			uuid.NewString(), userID, DefaultAddressBookName, DefaultAddressBookColor)
		return err
	})
	return errors.Wrap(err, "failed to ensure default address book")
}

func scanAddressBook(row pgx.Row) (AddressBook, error) {
	var b AddressBook
	err := row.Scan(&b.ID, &b.UserID, &b.Name, &b.Color, &b.Description, &b.CreatedAt, &b.UpdatedAt)
	return b, err
}
