package vcard

import (
	"reflect"
	"strings"
	"testing"
)

func TestIsGroup(t *testing.T) {
	tests := []struct {
		name string
		text string
		want bool
	}{
		{"apple kind", "BEGIN:VCARD\r\nX-ADDRESSBOOKSERVER-KIND:group\r\nEND:VCARD", true},
		{"rfc kind", "BEGIN:VCARD\r\nKIND:Group\r\nEND:VCARD", true},
		{"individual", "BEGIN:VCARD\r\nKIND:individual\r\nEND:VCARD", false},
		{"first kind wins", "BEGIN:VCARD\r\nKIND:individual\r\nX-ADDRESSBOOKSERVER-KIND:group\r\nEND:VCARD", false},
		{"no kind", "BEGIN:VCARD\r\nFN:group\r\nEND:VCARD", false},
	}
	for _, tt := range tests {
		if got := IsGroup(tt.text); got != tt.want {
			t.Errorf("%s: IsGroup = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestParseGroupMemberForms(t *testing.T) {
	text := strings.Join([]string{
		"BEGIN:VCARD",
		"VERSION:3.0",
		"X-ADDRESSBOOKSERVER-KIND:group",
		"FN:Family",
		"NOTE:Close relatives",
		"UID:urn:uuid:grp-1",
		"X-ADDRESSBOOKSERVER-MEMBER:urn:uuid:abc-123",
		"MEMBER:urn:uuid:def-456",
		"MEMBER:URN:UUID:abc-123",
		"X-ADDRESSBOOKSERVER-MEMBER:mailto:someone@example.com",
		"END:VCARD",
	}, "\r\n")

	g := ParseGroup(text)
	if g == nil {
		t.Fatalf("expected group to parse")
	}
	if g.ID != "grp-1" || g.Name != "Family" || g.Description != "Close relatives" {
		t.Fatalf("unexpected group: %+v", g)
	}
	if want := []string{"abc-123", "def-456"}; !reflect.DeepEqual(g.MemberIDs, want) {
		t.Fatalf("members = %v, want %v", g.MemberIDs, want)
	}
}

func TestParseGroupRequiresName(t *testing.T) {
	if g := ParseGroup("BEGIN:VCARD\r\nKIND:group\r\nMEMBER:urn:uuid:x\r\nEND:VCARD"); g != nil {
		t.Fatalf("expected nil group without FN, got %+v", g)
	}
}

func TestGenerateGroup(t *testing.T) {
	g := Group{ID: "grp-1", Name: "Family", Description: "Close relatives", MemberIDs: []string{"abc-123", "def-456"}}
	got := generateGroupAt(g, fixedNow)
	want := strings.Join([]string{
		"BEGIN:VCARD",
		"VERSION:3.0",
		"PRODID:-//LifeCard//CardDAV Server//EN",
		"X-ADDRESSBOOKSERVER-KIND:group",
		"FN:Family",
		"UID:urn:uuid:grp-1",
		"N:Family;;;;",
		"NOTE:Close relatives",
		"X-ADDRESSBOOKSERVER-MEMBER:urn:uuid:abc-123",
		"X-ADDRESSBOOKSERVER-MEMBER:urn:uuid:def-456",
		"REV:20240102T030405Z",
		"END:VCARD",
	}, "\r\n")
	if got != want {
		t.Fatalf("unexpected group vCard:\n%q\nwant:\n%q", got, want)
	}

	parsed := ParseGroup(got)
	if parsed == nil || !reflect.DeepEqual(*parsed, g) {
		t.Fatalf("group round trip mismatch: %+v", parsed)
	}
	if !IsGroup(got) {
		t.Fatalf("generated group must be detected as a group")
	}
}
