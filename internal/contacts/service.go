// Package contacts implements CardDAV resource semantics over the store:
// conditional writes, deletion tracking and sync-token bounded change sets.
package contacts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/jw6ventures/lifecard/internal/logger"
	"github.com/jw6ventures/lifecard/internal/metrics"
	"github.com/jw6ventures/lifecard/internal/store"
	"github.com/jw6ventures/lifecard/internal/vcard"
)

var (
	ErrNotFound            = errors.New("resource not found")
	ErrAddressBookNotFound = errors.New("address book not found")
	ErrPreconditionFailed  = errors.New("precondition failed")
	ErrInvalidVCard        = errors.New("invalid vCard")
)

// Object is a stored card as the protocol sees it.
type Object struct {
	ID        string
	Kind      vcard.ResourceKind
	Data      string
	ETag      string
	UpdatedAt time.Time
}

// Conditions carries the If-Match and If-None-Match request headers.
type Conditions struct {
	IfMatch     string
	IfNoneMatch string
}

// PutResult reports the outcome of a successful write.
type PutResult struct {
	ETag    string
	Created bool
	Kind    vcard.ResourceKind
}

// Listing is the full content of an address book at one instant.
type Listing struct {
	Book      store.AddressBook
	Objects   []Object
	SyncToken string
	CTag      string
}

// ChangeSet is the answer to a sync-collection request.
type ChangeSet struct {
	Changed     []Object
	Deleted     []string
	SyncToken   string
	Incremental bool
}

type Service struct {
	log        zerolog.Logger
	books      store.AddressBookRepository
	contacts   store.ContactRepository
	groups     store.GroupRepository
	tombstones store.TombstoneRepository
	now        func() time.Time
}

func NewService(log logger.Logger, st *store.Store) *Service {
	return &Service{
		log:        log.With().Str("module", "contacts").Logger(),
		books:      st.AddressBooks,
		contacts:   st.Contacts,
		groups:     st.Groups,
		tombstones: st.Tombstones,
		now:        time.Now,
	}
}

// WithClock replaces the clock that stamps writes and sync tokens.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Books lists the user's address books, creating the default one first if the
// user has none.
func (s *Service) Books(ctx context.Context, userID int64) ([]store.AddressBook, error) {
	if err := s.books.EnsureDefault(ctx, userID); err != nil {
		return nil, err
	}
	return s.books.ListByUser(ctx, userID)
}

// Book loads one address book owned by userID.
func (s *Service) Book(ctx context.Context, userID int64, bookID string) (*store.AddressBook, error) {
	book, err := s.books.GetByID(ctx, userID, bookID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrAddressBookNotFound
	}
	return book, err
}

// Get returns the card stored under id, looking at contacts before groups.
func (s *Service) Get(ctx context.Context, userID int64, bookID, id string) (*Object, error) {
	if _, err := s.Book(ctx, userID, bookID); err != nil {
		return nil, err
	}
	obj, err := s.lookup(ctx, bookID, id)
	if err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, ErrNotFound
	}
	return obj, nil
}

// Put creates or replaces the card stored under id from body.
func (s *Service) Put(ctx context.Context, userID int64, bookID, id, body string, cond Conditions) (*PutResult, error) {
	if _, err := s.Book(ctx, userID, bookID); err != nil {
		return nil, err
	}

	res := vcard.ParseResource(body)
	if res.Kind == vcard.ResourceInvalid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidVCard, res.Err)
	}

	current, err := s.lookup(ctx, bookID, id)
	if err != nil {
		return nil, err
	}
	if err := checkPut(current, cond); err != nil {
		metrics.PreconditionFailed("PUT")
		return nil, err
	}

	etag := vcard.ETag(body)
	now := s.now().UTC()

	switch res.Kind {
	case vcard.ResourceGroup:
		group := groupRecord(bookID, id, body, etag, res.Group)
		group.UpdatedAt = now
		if _, err := s.groups.Upsert(ctx, group); err != nil {
			return nil, err
		}
	default:
		contact := contactRecord(bookID, id, body, etag, res.Contact)
		contact.UpdatedAt = now
		if _, err := s.contacts.Upsert(ctx, contact); err != nil {
			return nil, err
		}
	}

	if current != nil && current.Kind != res.Kind {
		s.log.Debug().Str("book", bookID).Str("id", id).
			Stringer("from", current.Kind).Stringer("to", res.Kind).
			Msg("resource kind changed")
	}
	return &PutResult{ETag: etag, Created: current == nil, Kind: res.Kind}, nil
}

// Delete removes the card stored under id and records a tombstone for it.
func (s *Service) Delete(ctx context.Context, userID int64, bookID, id, ifMatch string) error {
	if _, err := s.Book(ctx, userID, bookID); err != nil {
		return err
	}
	current, err := s.lookup(ctx, bookID, id)
	if err != nil {
		return err
	}
	if current == nil {
		return ErrNotFound
	}
	if ifMatch != "" && !etagMatches(ifMatch, current.ETag) {
		metrics.PreconditionFailed("DELETE")
		return ErrPreconditionFailed
	}

	now := s.now().UTC()
	if current.Kind == vcard.ResourceGroup {
		err = s.groups.Delete(ctx, bookID, id, now)
	} else {
		err = s.contacts.Delete(ctx, bookID, id, now)
	}
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	metrics.TombstoneWritten(current.Kind.String())
	return nil
}

// List returns every contact and group in the book together with the sync
// token and ctag describing this instant.
func (s *Service) List(ctx context.Context, userID int64, bookID string) (*Listing, error) {
	book, err := s.Book(ctx, userID, bookID)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	objects, err := s.all(ctx, bookID)
	if err != nil {
		return nil, err
	}
	return &Listing{Book: *book, Objects: objects, SyncToken: EncodeSyncToken(now), CTag: CTag(now)}, nil
}

// Multiget resolves the requested ids. Ids that name neither a contact nor a
// group are absent from the result.
func (s *Service) Multiget(ctx context.Context, userID int64, bookID string, ids []string) (map[string]Object, error) {
	if _, err := s.Book(ctx, userID, bookID); err != nil {
		return nil, err
	}

	var contacts []store.Contact
	var groups []store.ContactGroup
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		contacts, err = s.contacts.ListByIDs(gctx, bookID, ids)
		return err
	})
	g.Go(func() error {
		var err error
		groups, err = s.groups.ListByIDs(gctx, bookID, ids)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	found := make(map[string]Object, len(contacts)+len(groups))
	for _, gr := range groups {
		found[gr.ID] = groupObject(gr)
	}
	// contacts take precedence over a group with the same id
	for _, c := range contacts {
		found[c.ID] = contactObject(c)
	}
	return found, nil
}

// Changes computes what happened in the book since token. An empty or
// unreadable token yields the full listing and no deletions.
func (s *Service) Changes(ctx context.Context, userID int64, bookID, token string) (*ChangeSet, error) {
	if _, err := s.Book(ctx, userID, bookID); err != nil {
		return nil, err
	}
	now := s.now().UTC()

	since, ok := DecodeSyncToken(token)
	if !ok {
		objects, err := s.all(ctx, bookID)
		if err != nil {
			return nil, err
		}
		metrics.SyncReport(false)
		return &ChangeSet{Changed: objects, SyncToken: EncodeSyncToken(now)}, nil
	}

	var (
		contacts                 []store.Contact
		groups                   []store.ContactGroup
		deadContacts, deadGroups []store.Tombstone
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		contacts, err = s.contacts.ListModifiedSince(gctx, bookID, since)
		return err
	})
	g.Go(func() error {
		var err error
		groups, err = s.groups.ListModifiedSince(gctx, bookID, since)
		return err
	})
	g.Go(func() error {
		var err error
		deadContacts, err = s.tombstones.ListSince(gctx, bookID, store.ResourceContact, since)
		return err
	})
	g.Go(func() error {
		var err error
		deadGroups, err = s.tombstones.ListSince(gctx, bookID, store.ResourceGroup, since)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	changed := objectsOf(contacts, groups)
	live := make(map[string]struct{}, len(changed))
	for _, obj := range changed {
		live[obj.ID] = struct{}{}
	}
	// An id deleted and then written again is reported as live only.
	var deleted []string
	seen := make(map[string]struct{})
	for _, ts := range append(deadContacts, deadGroups...) {
		if _, ok := live[ts.ResourceID]; ok {
			continue
		}
		if _, ok := seen[ts.ResourceID]; ok {
			continue
		}
		seen[ts.ResourceID] = struct{}{}
		deleted = append(deleted, ts.ResourceID)
	}

	metrics.SyncReport(true)
	return &ChangeSet{Changed: changed, Deleted: deleted, SyncToken: EncodeSyncToken(now), Incremental: true}, nil
}

func (s *Service) all(ctx context.Context, bookID string) ([]Object, error) {
	var contacts []store.Contact
	var groups []store.ContactGroup
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		contacts, err = s.contacts.ListForBook(gctx, bookID)
		return err
	})
	g.Go(func() error {
		var err error
		groups, err = s.groups.ListForBook(gctx, bookID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return objectsOf(contacts, groups), nil
}

// lookup returns nil, nil when nothing is stored under id.
func (s *Service) lookup(ctx context.Context, bookID, id string) (*Object, error) {
	c, err := s.contacts.Get(ctx, bookID, id)
	if err == nil {
		obj := contactObject(*c)
		return &obj, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	gr, err := s.groups.Get(ctx, bookID, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	obj := groupObject(*gr)
	return &obj, nil
}

func checkPut(current *Object, cond Conditions) error {
	if current == nil {
		return nil
	}
	if strings.TrimSpace(cond.IfNoneMatch) == "*" {
		return ErrPreconditionFailed
	}
	if cond.IfMatch != "" && !etagMatches(cond.IfMatch, current.ETag) {
		return ErrPreconditionFailed
	}
	return nil
}

// etagMatches compares an If-Match header against a stored tag. Quotes and a
// weak prefix are ignored; "*" matches any tag. A header may list several tags.
func etagMatches(header, etag string) bool {
	want := normalizeETag(etag)
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" || normalizeETag(candidate) == want {
			return true
		}
	}
	return false
}

func normalizeETag(tag string) string {
	tag = strings.TrimSpace(tag)
	tag = strings.TrimPrefix(tag, "W/")
	return strings.ReplaceAll(tag, `"`, "")
}

func objectsOf(contacts []store.Contact, groups []store.ContactGroup) []Object {
	objects := make([]Object, 0, len(contacts)+len(groups))
	for _, c := range contacts {
		objects = append(objects, contactObject(c))
	}
	for _, g := range groups {
		objects = append(objects, groupObject(g))
	}
	return objects
}

func contactObject(c store.Contact) Object {
	return Object{ID: c.ID, Kind: vcard.ResourceContact, Data: c.VCardData, ETag: c.ETag, UpdatedAt: c.UpdatedAt}
}

func groupObject(g store.ContactGroup) Object {
	return Object{ID: g.ID, Kind: vcard.ResourceGroup, Data: g.VCardData, ETag: g.ETag, UpdatedAt: g.UpdatedAt}
}

func contactRecord(bookID, id, body, etag string, c *vcard.Contact) store.Contact {
	return store.Contact{
		ID:             id,
		AddressBookID:  bookID,
		VCardData:      body,
		ETag:           etag,
		DisplayName:    c.FormattedName(),
		GivenName:      c.GivenName,
		FamilyName:     c.FamilyName,
		Nickname:       c.Nickname,
		Organization:   c.Organization,
		JobTitle:       c.JobTitle,
		PrimaryEmail:   c.PrimaryEmail(),
		PrimaryPhone:   c.PrimaryPhone(),
		Birthday:       c.Birthday,
		Notes:          c.Notes,
		Emails:         c.Emails,
		Phones:         c.Phones,
		Addresses:      c.Addresses,
		URLs:           c.URLs,
		PhotoData:      c.PhotoData,
		PhotoMediaType: c.PhotoMediaType,
	}
}

func groupRecord(bookID, id, body, etag string, g *vcard.Group) store.ContactGroup {
	return store.ContactGroup{
		ID:            id,
		AddressBookID: bookID,
		Name:          g.Name,
		Description:   g.Description,
		VCardData:     body,
		ETag:          etag,
		MemberIDs:     g.MemberIDs,
	}
}
