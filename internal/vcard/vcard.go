// Package vcard converts contact and group records to and from vCard 3.0/4.0
// text and computes the ETags stored alongside every resource.
package vcard

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
	govcard "github.com/emersion/go-vcard"
)

const (
	Version3 = "3.0"
	Version4 = "4.0"

	// ProductID is written as PRODID on every generated card.
	ProductID = "-//LifeCard//CardDAV Server//EN"

	// ContentType is the media type of a stored card.
	ContentType = "text/vcard; charset=utf-8"
)

// Type vocabulary shared by emails, phones, addresses and urls.
const (
	TypeWork   = "work"
	TypeHome   = "home"
	TypeMobile = "mobile"
	TypeFax    = "fax"
	TypeOther  = "other"
)

// ErrInvalid is returned by Validate for text that is not a well formed vCard.
var ErrInvalid = errors.New("invalid vCard")

type Email struct {
	Value string `json:"value"`
	Type  string `json:"type"`
}

type Phone struct {
	Value string `json:"value"`
	Type  string `json:"type"`
}

type Address struct {
	Street     string `json:"street,omitempty"`
	City       string `json:"city,omitempty"`
	Region     string `json:"region,omitempty"`
	PostalCode string `json:"postalCode,omitempty"`
	Country    string `json:"country,omitempty"`
	Type       string `json:"type"`
}

type URL struct {
	Value string `json:"value"`
	Type  string `json:"type"`
}

// Contact is the structured form of an individual vCard.
type Contact struct {
	ID             string
	DisplayName    string
	GivenName      string
	FamilyName     string
	Nickname       string
	Organization   string
	JobTitle       string
	Emails         []Email
	Phones         []Phone
	Addresses      []Address
	URLs           []URL
	Birthday       string // YYYY-MM-DD, year 0000 when unknown
	Notes          string
	PhotoData      string // base64
	PhotoMediaType string
	Category       string
}

// FormattedName returns the FN value generate would emit.
func (c Contact) FormattedName() string {
	if c.DisplayName != "" {
		return c.DisplayName
	}
	if full := strings.TrimSpace(c.GivenName + " " + c.FamilyName); full != "" {
		return full
	}
	return "Unknown"
}

// PrimaryEmail returns the first email value, if any.
func (c Contact) PrimaryEmail() string {
	if len(c.Emails) == 0 {
		return ""
	}
	return c.Emails[0].Value
}

// PrimaryPhone returns the first phone value, if any.
func (c Contact) PrimaryPhone() string {
	if len(c.Phones) == 0 {
		return ""
	}
	return c.Phones[0].Value
}

// Group is the structured form of a KIND:group vCard.
type Group struct {
	ID          string
	Name        string
	Description string
	MemberIDs   []string
}

// ResourceKind tags a parsed resource.
type ResourceKind int

const (
	ResourceInvalid ResourceKind = iota
	ResourceContact
	ResourceGroup
)

func (k ResourceKind) String() string {
	switch k {
	case ResourceContact:
		return "contact"
	case ResourceGroup:
		return "group"
	default:
		return "invalid"
	}
}

// Resource is the result of decoding an uploaded card exactly once.
// Exactly one of Contact and Group is set unless Kind is ResourceInvalid.
type Resource struct {
	Kind    ResourceKind
	Contact *Contact
	Group   *Group
	Err     error
}

// ParseResource validates text and decodes it as a group when it is marked as
// one and carries a name, otherwise as a contact.
func ParseResource(text string) Resource {
	if err := Validate(text); err != nil {
		return Resource{Kind: ResourceInvalid, Err: err}
	}
	if IsGroup(text) {
		if g := ParseGroup(text); g != nil {
			return Resource{Kind: ResourceGroup, Group: g}
		}
	}
	c := Parse(text)
	return Resource{Kind: ResourceContact, Contact: &c}
}

// Validate checks that text holds exactly one structurally valid vCard.
func Validate(text string) error {
	lines := UnfoldLines(text)
	if len(lines) == 0 {
		return fmt.Errorf("%w: empty body", ErrInvalid)
	}
	dec := govcard.NewDecoder(bytes.NewBufferString(strings.Join(lines, "\r\n") + "\r\n"))
	if _, err := dec.Decode(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

// ETag computes the quoted entity tag of the exact card bytes.
func ETag(text string) string {
	return fmt.Sprintf("\"%x\"", xxhash.Sum64String(text))
}

// SplitCards separates a multi-card .vcf export into individual cards.
func SplitCards(content string) []string {
	var cards []string
	var current []string
	inCard := false
	for _, line := range UnfoldLines(content) {
		upper := strings.ToUpper(strings.TrimSpace(line))
		switch {
		case upper == "BEGIN:VCARD":
			inCard = true
			current = []string{line}
		case upper == "END:VCARD" && inCard:
			current = append(current, line)
			var b strings.Builder
			for i, l := range current {
				if i > 0 {
					b.WriteString("\r\n")
				}
				b.WriteString(FoldLine(l))
			}
			cards = append(cards, b.String())
			inCard = false
			current = nil
		case inCard:
			current = append(current, line)
		}
	}
	return cards
}
