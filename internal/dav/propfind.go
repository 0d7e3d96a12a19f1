package dav

import (
	"net/http"
	"strings"
)

func (h *Handler) Propfind(w http.ResponseWriter, r *http.Request) {
	depth := strings.TrimSpace(r.Header.Get("Depth"))
	if depth == "" {
		depth = "1"
	}

	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	body, err := readDAVBody(w, r, maxDAVBodyBytes)
	if err != nil {
		writeBodyError(w, err)
		return
	}
	// The full property set is always returned; address-data only when
	// asked for by name.
	withData := requested(ParseProps(body), "address-data")

	ctx := r.Context()
	p := parseDAVPath(r.URL.Path)
	var responses []response

	switch p.kind {
	case pathPrincipal:
		books, err := h.svc.Books(ctx, user.ID)
		if err != nil {
			writeServiceError(w, r, err, "failed to list address books")
			return
		}
		responses = append(responses, principalResponse(user, books))

	case pathHomeSet:
		responses = append(responses, homeSetResponse())
		if depth != "0" {
			books, err := h.svc.Books(ctx, user.ID)
			if err != nil {
				writeServiceError(w, r, err, "failed to list address books")
				return
			}
			for _, b := range books {
				responses = append(responses, bookSummaryResponse(b))
			}
		}

	case pathAddressBook:
		listing, err := h.svc.List(ctx, user.ID, p.bookID)
		if err != nil {
			writeServiceError(w, r, err, "failed to list address book")
			return
		}
		responses = append(responses, bookResponse(listing))
		if depth != "0" {
			for _, obj := range listing.Objects {
				responses = append(responses, objectResponse(p.bookID, obj, true, withData))
			}
		}

	case pathResource:
		obj, err := h.svc.Get(ctx, user.ID, p.bookID, p.resourceID)
		if err != nil {
			writeServiceError(w, r, err, "failed to load card")
			return
		}
		responses = append(responses, objectResponse(p.bookID, *obj, true, withData))

	default:
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}

	writeMultiStatus(w, r, newMultistatus(responses))
}
