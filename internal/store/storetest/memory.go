// Package storetest provides an in-memory implementation of the store
// repositories for tests.
package storetest

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jw6ventures/lifecard/internal/store"
)

// Memory is an in-memory stand-in for the PostgreSQL repositories with the
// same transactional effects: kind switches replace the other record, deletes
// append tombstones and group writes replace the member set.
type Memory struct {
	mu         sync.Mutex
	books      map[string]store.AddressBook
	contacts   map[string]store.Contact
	groups     map[string]store.ContactGroup
	members    map[string][]string
	tombstones []store.Tombstone
	nextUserID int64
	users      map[string]store.User

	// FailGet, when set, is returned by every contact lookup.
	FailGet error
	// Ensured counts EnsureDefault calls.
	Ensured int
}

func New() *Memory {
	return &Memory{
		users:    map[string]store.User{},
		books:    map[string]store.AddressBook{},
		contacts: map[string]store.Contact{},
		groups:   map[string]store.ContactGroup{},
		members:  map[string][]string{},
	}
}

func key(bookID, id string) string { return bookID + "/" + id }

// Store exposes the repositories. HealthCheck must not be called on it.
func (m *Memory) Store() *store.Store {
	return &store.Store{
		Users:        userRepo{m},
		AddressBooks: bookRepo{m},
		Contacts:     contactRepo{m},
		Groups:       groupRepo{m},
		Tombstones:   tombstoneRepo{m},
	}
}

// AddBook stores an address book directly.
func (m *Memory) AddBook(book store.AddressBook) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.books[book.ID] = book
}

// AddUser stores a user directly and returns it with its assigned id.
func (m *Memory) AddUser(email, passwordHash string) store.User {
	u, _ := userRepo{m}.Create(context.Background(), email, passwordHash)
	return *u
}

// Members returns the stored member set of a group.
func (m *Memory) Members(bookID, groupID string) []string {
	ids, _ := groupRepo{m}.Members(context.Background(), bookID, groupID)
	return ids
}

// Tombstones returns every recorded deletion in insertion order.
func (m *Memory) Tombstones() []store.Tombstone {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]store.Tombstone(nil), m.tombstones...)
}

// Counts reports how many contacts and groups are stored.
func (m *Memory) Counts() (contacts, groups int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.contacts), len(m.groups)
}

type userRepo struct{ m *Memory }

func (r userRepo) Create(ctx context.Context, email, passwordHash string) (*store.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.nextUserID++
	email = normalizeEmail(email)
	u := store.User{ID: r.m.nextUserID, Email: email, PasswordHash: passwordHash, CreatedAt: time.Now().UTC()}
	r.m.users[email] = u
	return &u, nil
}

func (r userRepo) GetByID(ctx context.Context, id int64) (*store.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, u := range r.m.users {
		if u.ID == id {
			return &u, nil
		}
	}
	return nil, store.ErrNotFound
}

func (r userRepo) GetByEmail(ctx context.Context, email string) (*store.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	u, ok := r.m.users[normalizeEmail(email)]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &u, nil
}

type bookRepo struct{ m *Memory }

func (r bookRepo) GetByID(ctx context.Context, userID int64, id string) (*store.AddressBook, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	b, ok := r.m.books[id]
	if !ok || b.UserID != userID {
		return nil, store.ErrNotFound
	}
	return &b, nil
}

func (r bookRepo) ListByUser(ctx context.Context, userID int64) ([]store.AddressBook, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []store.AddressBook
	for _, b := range r.m.books {
		if b.UserID == userID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r bookRepo) Create(ctx context.Context, book store.AddressBook) (*store.AddressBook, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.books[book.ID] = book
	return &book, nil
}

func (r bookRepo) EnsureDefault(ctx context.Context, userID int64) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.Ensured++
	for _, b := range r.m.books {
		if b.UserID == userID {
			return nil
		}
	}
	id := uuid.NewString()
	color := store.DefaultAddressBookColor
	r.m.books[id] = store.AddressBook{ID: id, UserID: userID, Name: store.DefaultAddressBookName, Color: &color}
	return nil
}

type contactRepo struct{ m *Memory }

func (r contactRepo) Get(ctx context.Context, bookID, id string) (*store.Contact, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.FailGet != nil {
		return nil, r.m.FailGet
	}
	c, ok := r.m.contacts[key(bookID, id)]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &c, nil
}

func (r contactRepo) ListForBook(ctx context.Context, bookID string) ([]store.Contact, error) {
	return r.filter(bookID, func(store.Contact) bool { return true }), nil
}

func (r contactRepo) ListByIDs(ctx context.Context, bookID string, ids []string) ([]store.Contact, error) {
	want := map[string]bool{}
	for _, id := range ids {
		want[id] = true
	}
	return r.filter(bookID, func(c store.Contact) bool { return want[c.ID] }), nil
}

func (r contactRepo) ListModifiedSince(ctx context.Context, bookID string, since time.Time) ([]store.Contact, error) {
	return r.filter(bookID, func(c store.Contact) bool { return !c.UpdatedAt.Before(since) }), nil
}

func (r contactRepo) filter(bookID string, keep func(store.Contact) bool) []store.Contact {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []store.Contact
	for _, c := range r.m.contacts {
		if c.AddressBookID == bookID && keep(c) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r contactRepo) Upsert(ctx context.Context, c store.Contact) (*store.Contact, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	k := key(c.AddressBookID, c.ID)
	delete(r.m.groups, k)
	delete(r.m.members, k)
	if prev, ok := r.m.contacts[k]; ok {
		c.CreatedAt = prev.CreatedAt
	} else {
		c.CreatedAt = c.UpdatedAt
	}
	r.m.contacts[k] = c
	return &c, nil
}

func (r contactRepo) Delete(ctx context.Context, bookID, id string, deletedAt time.Time) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	k := key(bookID, id)
	if _, ok := r.m.contacts[k]; !ok {
		return store.ErrNotFound
	}
	delete(r.m.contacts, k)
	r.m.tombstones = append(r.m.tombstones, store.Tombstone{
		ID: int64(len(r.m.tombstones) + 1), AddressBookID: bookID, ResourceID: id,
		ResourceType: store.ResourceContact, DeletedAt: deletedAt,
	})
	return nil
}

type groupRepo struct{ m *Memory }

func (r groupRepo) Get(ctx context.Context, bookID, id string) (*store.ContactGroup, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	g, ok := r.m.groups[key(bookID, id)]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &g, nil
}

func (r groupRepo) ListForBook(ctx context.Context, bookID string) ([]store.ContactGroup, error) {
	return r.filter(bookID, func(store.ContactGroup) bool { return true }), nil
}

func (r groupRepo) ListByIDs(ctx context.Context, bookID string, ids []string) ([]store.ContactGroup, error) {
	want := map[string]bool{}
	for _, id := range ids {
		want[id] = true
	}
	return r.filter(bookID, func(g store.ContactGroup) bool { return want[g.ID] }), nil
}

func (r groupRepo) ListModifiedSince(ctx context.Context, bookID string, since time.Time) ([]store.ContactGroup, error) {
	return r.filter(bookID, func(g store.ContactGroup) bool { return !g.UpdatedAt.Before(since) }), nil
}

func (r groupRepo) filter(bookID string, keep func(store.ContactGroup) bool) []store.ContactGroup {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []store.ContactGroup
	for _, g := range r.m.groups {
		if g.AddressBookID == bookID && keep(g) {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r groupRepo) Members(ctx context.Context, bookID, groupID string) ([]string, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	return append([]string(nil), r.m.members[key(bookID, groupID)]...), nil
}

func (r groupRepo) Upsert(ctx context.Context, g store.ContactGroup) (*store.ContactGroup, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	k := key(g.AddressBookID, g.ID)
	delete(r.m.contacts, k)
	if prev, ok := r.m.groups[k]; ok {
		g.CreatedAt = prev.CreatedAt
	} else {
		g.CreatedAt = g.UpdatedAt
	}
	r.m.groups[k] = g
	r.m.members[k] = append([]string(nil), g.MemberIDs...)
	return &g, nil
}

func (r groupRepo) Delete(ctx context.Context, bookID, id string, deletedAt time.Time) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	k := key(bookID, id)
	if _, ok := r.m.groups[k]; !ok {
		return store.ErrNotFound
	}
	delete(r.m.groups, k)
	delete(r.m.members, k)
	r.m.tombstones = append(r.m.tombstones, store.Tombstone{
		ID: int64(len(r.m.tombstones) + 1), AddressBookID: bookID, ResourceID: id,
		ResourceType: store.ResourceGroup, DeletedAt: deletedAt,
	})
	return nil
}

type tombstoneRepo struct{ m *Memory }

func (r tombstoneRepo) ListSince(ctx context.Context, bookID, resourceType string, since time.Time) ([]store.Tombstone, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []store.Tombstone
	for _, t := range r.m.tombstones {
		if t.AddressBookID == bookID && t.ResourceType == resourceType && !t.DeletedAt.Before(since) {
			out = append(out, t)
		}
	}
	return out, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
