package dav

import (
	"net/http"

	"github.com/jw6ventures/lifecard/internal/store"
)

func (h *Handler) Report(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	p := parseDAVPath(r.URL.Path)
	if p.kind != pathAddressBook {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}

	body, err := readDAVBody(w, r, maxDAVBodyBytes)
	if err != nil {
		writeBodyError(w, err)
		return
	}

	if _, err := h.svc.Book(r.Context(), user.ID, p.bookID); err != nil {
		writeServiceError(w, r, err, "failed to load address book")
		return
	}

	report := ParseReport(body)
	switch report.Kind {
	case ReportMultiget:
		h.multiget(w, r, user, p.bookID, report)
	case ReportSyncCollection:
		h.syncCollection(w, r, user, p.bookID, report)
	case ReportQuery:
		h.query(w, r, user, p.bookID, report)
	default:
		http.Error(w, "Unknown report type", http.StatusBadRequest)
	}
}

func (h *Handler) multiget(w http.ResponseWriter, r *http.Request, user *store.User, bookID string, report Report) {
	ids := make([]string, len(report.Hrefs))
	for i, href := range report.Hrefs {
		target := parseDAVPath(resolveHref(r.URL.Path, href))
		if target.kind == pathResource && target.bookID == bookID {
			ids[i] = target.resourceID
		}
	}

	found, err := h.svc.Multiget(r.Context(), user.ID, bookID, nonEmpty(ids))
	if err != nil {
		writeServiceError(w, r, err, "failed to load cards")
		return
	}

	responses := make([]response, 0, len(report.Hrefs))
	for i, href := range report.Hrefs {
		obj, ok := found[ids[i]]
		if ids[i] == "" || !ok {
			responses = append(responses, notFoundResponse(href))
			continue
		}
		responses = append(responses, objectResponse(bookID, obj, false, true))
	}
	writeMultiStatus(w, r, newMultistatus(responses))
}

// query returns every card in the book; filters are not applied.
func (h *Handler) query(w http.ResponseWriter, r *http.Request, user *store.User, bookID string, report Report) {
	if len(report.Filters) > 0 {
		h.log.Debug().Int("filters", len(report.Filters)).Str("book", bookID).Msg("addressbook-query filters ignored")
	}

	listing, err := h.svc.List(r.Context(), user.ID, bookID)
	if err != nil {
		writeServiceError(w, r, err, "failed to list address book")
		return
	}

	responses := make([]response, 0, len(listing.Objects))
	for _, obj := range listing.Objects {
		responses = append(responses, objectResponse(bookID, obj, false, true))
	}
	writeMultiStatus(w, r, newMultistatus(responses))
}

func (h *Handler) syncCollection(w http.ResponseWriter, r *http.Request, user *store.User, bookID string, report Report) {
	changes, err := h.svc.Changes(r.Context(), user.ID, bookID, report.SyncToken)
	if err != nil {
		writeServiceError(w, r, err, "failed to compute changes")
		return
	}

	withData := wants(report.Props, "address-data")
	responses := make([]response, 0, len(changes.Changed)+len(changes.Deleted))
	for _, obj := range changes.Changed {
		responses = append(responses, objectResponse(bookID, obj, false, withData))
	}
	for _, id := range changes.Deleted {
		responses = append(responses, notFoundResponse(resourceHref(bookID, id)))
	}

	payload := newMultistatus(responses)
	payload.SyncToken = "data:," + changes.SyncToken
	writeMultiStatus(w, r, payload)
}

func nonEmpty(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != "" {
			out = append(out, id)
		}
	}
	return out
}
