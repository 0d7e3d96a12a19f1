package dav

import (
	"bytes"
	"encoding/xml"
	"net/http"
	"strconv"
	"strings"

	"github.com/jw6ventures/lifecard/internal/contacts"
	httperrors "github.com/jw6ventures/lifecard/internal/http/errors"
	"github.com/jw6ventures/lifecard/internal/store"
)

// writeMultiStatus encodes payload before writing anything so an encoding
// failure can still become a 500.
func writeMultiStatus(w http.ResponseWriter, r *http.Request, payload multistatus) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	if err := xml.NewEncoder(&buf).Encode(payload); err != nil {
		httperrors.InternalError(w, r, err, "failed to encode multistatus")
		return
	}
	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.WriteHeader(http.StatusMultiStatus)
	_, _ = w.Write(buf.Bytes())
}

const (
	httpStatusOK       = "HTTP/1.1 200 OK"
	httpStatusNotFound = "HTTP/1.1 404 Not Found"
)

func okPropstat(p prop) []propstat {
	return []propstat{{Prop: p, Status: httpStatusOK}}
}

func notFoundResponse(href string) response {
	return response{Href: href, Status: httpStatusNotFound}
}

// principalResponse describes /carddav/ for the signed-in user.
func principalResponse(user *store.User, books []store.AddressBook) response {
	homes := make([]string, 0, len(books))
	for _, b := range books {
		homes = append(homes, bookHref(b.ID))
	}
	return response{
		Href: rootPath,
		Propstat: okPropstat(prop{
			ResourceType:           principalType(),
			DisplayName:            localPart(user.Email) + "'s Contacts",
			AddressbookHomeSet:     &hrefListProp{Href: homes},
			CurrentUserPrincipal:   &hrefProp{Href: rootPath},
			PrincipalURL:           &hrefProp{Href: rootPath},
			PrincipalCollectionSet: &hrefProp{Href: rootPath},
			SupportedReportSet:     supportedReports(true),
		}),
	}
}

func homeSetResponse() response {
	return response{
		Href: homeSetPath,
		Propstat: okPropstat(prop{
			ResourceType:            collectionType(),
			DisplayName:             "Address Books",
			CurrentUserPrivilegeSet: privileges(true),
		}),
	}
}

// bookSummaryResponse is the short form used inside the home set.
func bookSummaryResponse(book store.AddressBook) response {
	return response{
		Href: bookHref(book.ID),
		Propstat: okPropstat(prop{
			ResourceType:            addressBookType(),
			DisplayName:             book.Name,
			AddressBookDescription:  deref(book.Description),
			CalendarColor:           deref(book.Color),
			CurrentUserPrivilegeSet: privileges(true),
		}),
	}
}

// bookResponse is the full collection entry returned for the book itself.
func bookResponse(listing *contacts.Listing) response {
	book := listing.Book
	return response{
		Href: bookHref(book.ID),
		Propstat: okPropstat(prop{
			ResourceType:            addressBookType(),
			DisplayName:             book.Name,
			AddressBookDescription:  deref(book.Description),
			CalendarColor:           deref(book.Color),
			CTag:                    listing.CTag,
			SyncToken:               "data:," + listing.SyncToken,
			SupportedAddressData:    addressDataTypes(),
			MaxResourceSize:         strconv.Itoa(maxDAVBodyBytes),
			SupportedReportSet:      supportedReports(false),
			CurrentUserPrivilegeSet: privileges(false),
		}),
	}
}

// objectResponse describes one card. member adds the properties a collection
// listing carries; withData adds the vCard text.
func objectResponse(bookID string, obj contacts.Object, member, withData bool) response {
	p := prop{
		GetETag:         obj.ETag,
		GetLastModified: obj.UpdatedAt.UTC().Format(http.TimeFormat),
	}
	if member {
		p.ResourceType = &resourceType{}
		p.GetContentType = vcardContentType
	}
	if withData {
		p.AddressData = obj.Data
	}
	return response{Href: resourceHref(bookID, obj.ID), Propstat: okPropstat(p)}
}

func localPart(email string) string {
	name, _, _ := strings.Cut(email, "@")
	return name
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
