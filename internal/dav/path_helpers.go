package dav

import (
	"net/url"
	"path"
	"strings"
)

const (
	rootPath    = "/carddav/"
	homeSetPath = "/carddav/addressbooks/"
	vcfExt      = ".vcf"
)

type pathKind int

const (
	pathUnknown pathKind = iota
	pathPrincipal
	pathHomeSet
	pathAddressBook
	pathResource
)

// davPath is a request path split into the parts the handlers route on.
type davPath struct {
	kind       pathKind
	bookID     string
	resourceID string
}

// parseDAVPath classifies rawPath. Trailing slashes are optional and resource
// names must end in .vcf.
func parseDAVPath(rawPath string) davPath {
	clean := normalizeDAVHref(rawPath)
	if clean == "" {
		return davPath{}
	}
	if clean == "/carddav" {
		return davPath{kind: pathPrincipal}
	}
	rest, ok := strings.CutPrefix(clean, "/carddav/addressbooks")
	if !ok {
		return davPath{}
	}
	rest = strings.TrimPrefix(rest, "/")
	if rest == "" {
		return davPath{kind: pathHomeSet}
	}
	parts := strings.Split(rest, "/")
	switch len(parts) {
	case 1:
		return davPath{kind: pathAddressBook, bookID: parts[0]}
	case 2:
		id, ok := strings.CutSuffix(parts[1], vcfExt)
		if !ok || id == "" {
			return davPath{}
		}
		return davPath{kind: pathResource, bookID: parts[0], resourceID: id}
	default:
		return davPath{}
	}
}

// normalizeDAVHref reduces an absolute URL or path to a cleaned path without a
// trailing slash. It returns "" for input that cannot be parsed.
func normalizeDAVHref(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if u, err := url.Parse(raw); err == nil {
		if u.Path != "" || u.Scheme != "" {
			raw = u.Path
		}
	} else {
		return ""
	}
	if !strings.HasPrefix(raw, "/") {
		return ""
	}
	return path.Clean(raw)
}

// resolveHref turns a multiget href into a path, resolving relative hrefs
// against base.
func resolveHref(base, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	if u, err := url.Parse(href); err == nil && u.Scheme == "" && !strings.HasPrefix(u.Path, "/") {
		return path.Join(base, u.Path)
	}
	return normalizeDAVHref(href)
}

func bookHref(bookID string) string {
	return homeSetPath + url.PathEscape(bookID) + "/"
}

func resourceHref(bookID, id string) string {
	return bookHref(bookID) + url.PathEscape(id) + vcfExt
}
