package dav

import "net/http"

// Options advertises capabilities; it runs before authentication.
func (h *Handler) Options(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("DAV", "1, 2, 3, addressbook, access-control")
	w.Header().Set("Allow", "OPTIONS, GET, HEAD, PUT, DELETE, PROPFIND, REPORT")
	w.WriteHeader(http.StatusOK)
}
