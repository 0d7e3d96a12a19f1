package dav

import "testing"

func TestParseDAVPath(t *testing.T) {
	cases := []struct {
		in   string
		want davPath
	}{
		{"/carddav/", davPath{kind: pathPrincipal}},
		{"/carddav", davPath{kind: pathPrincipal}},
		{"/carddav/addressbooks/", davPath{kind: pathHomeSet}},
		{"/carddav/addressbooks/book-1/", davPath{kind: pathAddressBook, bookID: "book-1"}},
		{"/carddav/addressbooks/book-1", davPath{kind: pathAddressBook, bookID: "book-1"}},
		{"/carddav/addressbooks/book-1/abc-123.vcf", davPath{kind: pathResource, bookID: "book-1", resourceID: "abc-123"}},
		{"https://dav.example.com/carddav/addressbooks/book-1/abc-123.vcf", davPath{kind: pathResource, bookID: "book-1", resourceID: "abc-123"}},
		{"/carddav/addressbooks/book-1/abc-123", davPath{}},
		{"/carddav/addressbooks/book-1/.vcf", davPath{}},
		{"/carddav/addressbooks/book-1/x/y.vcf", davPath{}},
		{"/dav/calendars/", davPath{}},
		{"relative.vcf", davPath{}},
		{"", davPath{}},
	}
	for _, tc := range cases {
		if got := parseDAVPath(tc.in); got != tc.want {
			t.Fatalf("parseDAVPath(%q) = %+v, want %+v", tc.in, got, tc.want)
		}
	}
}

func TestResolveHref(t *testing.T) {
	base := "/carddav/addressbooks/book-1/"
	cases := map[string]string{
		"abc.vcf":                                 "/carddav/addressbooks/book-1/abc.vcf",
		"/carddav/addressbooks/book-1/abc.vcf":    "/carddav/addressbooks/book-1/abc.vcf",
		"http://h/carddav/addressbooks/b/abc.vcf": "/carddav/addressbooks/b/abc.vcf",
		"":                                        "",
	}
	for in, want := range cases {
		if got := resolveHref(base, in); got != want {
			t.Fatalf("resolveHref(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestHrefBuilders(t *testing.T) {
	if got := resourceHref("book-1", "abc-123"); got != "/carddav/addressbooks/book-1/abc-123.vcf" {
		t.Fatalf("resourceHref = %q", got)
	}
	if got := bookHref("book-1"); got != "/carddav/addressbooks/book-1/" {
		t.Fatalf("bookHref = %q", got)
	}
}

func TestResourceHrefEscapesID(t *testing.T) {
	href := resourceHref("book-1", "jane doe ü")
	if href != "/carddav/addressbooks/book-1/jane%20doe%20%C3%BC.vcf" {
		t.Fatalf("resourceHref = %q", href)
	}
	p := parseDAVPath(href)
	if p.kind != pathResource || p.resourceID != "jane doe ü" {
		t.Fatalf("escaped href does not resolve back: %+v", p)
	}
}
