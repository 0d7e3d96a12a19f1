package dav

import (
	"net/http"
	"strconv"
)

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	h.serveCard(w, r, true)
}

// Head answers like Get without a body.
func (h *Handler) Head(w http.ResponseWriter, r *http.Request) {
	h.serveCard(w, r, false)
}

func (h *Handler) serveCard(w http.ResponseWriter, r *http.Request, withBody bool) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	p, ok := resourcePath(w, r)
	if !ok {
		return
	}

	obj, err := h.svc.Get(r.Context(), user.ID, p.bookID, p.resourceID)
	if err != nil {
		writeServiceError(w, r, err, "failed to load card")
		return
	}

	w.Header().Set("Content-Type", vcardContentType)
	w.Header().Set("ETag", obj.ETag)
	w.Header().Set("Last-Modified", obj.UpdatedAt.UTC().Format(http.TimeFormat))
	w.Header().Set("Content-Length", strconv.Itoa(len(obj.Data)))
	w.WriteHeader(http.StatusOK)
	if withBody {
		_, _ = w.Write([]byte(obj.Data))
	}
}
