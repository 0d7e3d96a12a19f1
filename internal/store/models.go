package store

import (
	"time"

	"github.com/jw6ventures/lifecard/internal/vcard"
)

// Resource types recorded on tombstones.
const (
	ResourceContact = "contact"
	ResourceGroup   = "group"
)

// User is a CardDAV account authenticated with Basic Auth.
type User struct {
	ID           int64
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// AddressBook belongs to a user.
type AddressBook struct {
	ID          string
	UserID      int64
	Name        string
	Color       *string
	Description *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Contact stores the uploaded vCard verbatim next to denormalized fields.
type Contact struct {
	ID             string
	AddressBookID  string
	VCardData      string
	ETag           string
	DisplayName    string
	GivenName      string
	FamilyName     string
	Nickname       string
	Organization   string
	JobTitle       string
	PrimaryEmail   string
	PrimaryPhone   string
	Birthday       string
	Notes          string
	Emails         []vcard.Email
	Phones         []vcard.Phone
	Addresses      []vcard.Address
	URLs           []vcard.URL
	PhotoData      string
	PhotoMediaType string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// ContactGroup stores a group card. MemberIDs is only populated on writes and
// by GroupRepository.Members.
type ContactGroup struct {
	ID            string
	AddressBookID string
	Name          string
	Description   string
	VCardData     string
	ETag          string
	MemberIDs     []string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Tombstone records a deleted contact or group.
type Tombstone struct {
	ID            int64
	AddressBookID string
	ResourceID    string
	ResourceType  string
	DeletedAt     time.Time
}
