package store

import (
	"context"
	"time"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	Create(ctx context.Context, email, passwordHash string) (*User, error)
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
}

// AddressBookRepository manages address books. Lookups are scoped to the
// owning user; a book owned by someone else is reported as ErrNotFound.
type AddressBookRepository interface {
	GetByID(ctx context.Context, userID int64, id string) (*AddressBook, error)
	ListByUser(ctx context.Context, userID int64) ([]AddressBook, error)
	Create(ctx context.Context, book AddressBook) (*AddressBook, error)
	EnsureDefault(ctx context.Context, userID int64) error
}

// ContactRepository handles vCard storage for individual contacts.
//
// Upsert replaces a group stored under the same id in the same transaction.
// Delete removes the row and appends a tombstone atomically.
type ContactRepository interface {
	Get(ctx context.Context, addressBookID, id string) (*Contact, error)
	ListForBook(ctx context.Context, addressBookID string) ([]Contact, error)
	ListByIDs(ctx context.Context, addressBookID string, ids []string) ([]Contact, error)
	ListModifiedSince(ctx context.Context, addressBookID string, since time.Time) ([]Contact, error)
	Upsert(ctx context.Context, contact Contact) (*Contact, error)
	Delete(ctx context.Context, addressBookID, id string, deletedAt time.Time) error
}

// GroupRepository handles group cards and their membership relation.
//
// Upsert writes the group row and replaces the whole member set in one
// transaction.
type GroupRepository interface {
	Get(ctx context.Context, addressBookID, id string) (*ContactGroup, error)
	ListForBook(ctx context.Context, addressBookID string) ([]ContactGroup, error)
	ListByIDs(ctx context.Context, addressBookID string, ids []string) ([]ContactGroup, error)
	ListModifiedSince(ctx context.Context, addressBookID string, since time.Time) ([]ContactGroup, error)
	Members(ctx context.Context, addressBookID, groupID string) ([]string, error)
	Upsert(ctx context.Context, group ContactGroup) (*ContactGroup, error)
	Delete(ctx context.Context, addressBookID, id string, deletedAt time.Time) error
}

// TombstoneRepository reads deletion records for incremental sync.
type TombstoneRepository interface {
	ListSince(ctx context.Context, addressBookID, resourceType string, since time.Time) ([]Tombstone, error)
}
