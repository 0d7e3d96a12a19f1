package dav

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/jw6ventures/lifecard/internal/auth"
	"github.com/jw6ventures/lifecard/internal/contacts"
	httperrors "github.com/jw6ventures/lifecard/internal/http/errors"
	"github.com/jw6ventures/lifecard/internal/logger"
	"github.com/jw6ventures/lifecard/internal/store"
)

// maxDAVBodyBytes caps request bodies and is advertised as max-resource-size.
const maxDAVBodyBytes = 1 << 20

const vcardContentType = "text/vcard; charset=utf-8"

var errRequestTooLarge = errors.New("request body too large")

// Handler serves the CardDAV tree under /carddav/.
type Handler struct {
	log zerolog.Logger
	svc *contacts.Service
}

func NewHandler(log logger.Logger, svc *contacts.Service) *Handler {
	return &Handler{
		log: log.With().Str("module", "dav").Logger(),
		svc: svc,
	}
}

// readDAVBody reads at most limit bytes and reports errRequestTooLarge past
// that.
func readDAVBody(w http.ResponseWriter, r *http.Request, limit int64) ([]byte, error) {
	if r.ContentLength > limit {
		return nil, errRequestTooLarge
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, limit))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, errRequestTooLarge
		}
		return nil, err
	}
	return body, nil
}

func writeBodyError(w http.ResponseWriter, err error) {
	if errors.Is(err, errRequestTooLarge) {
		http.Error(w, "request too large", http.StatusRequestEntityTooLarge)
		return
	}
	http.Error(w, "failed to read body", http.StatusBadRequest)
}

// writeServiceError maps engine errors onto status codes. Anything unexpected
// is logged and answered with a generic 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error, message string) {
	switch {
	case errors.Is(err, contacts.ErrInvalidVCard):
		httperrors.BadRequestError(w, r, err, "invalid vCard")
	case errors.Is(err, contacts.ErrPreconditionFailed):
		http.Error(w, "precondition failed", http.StatusPreconditionFailed)
	case errors.Is(err, contacts.ErrNotFound), errors.Is(err, contacts.ErrAddressBookNotFound):
		http.Error(w, "Not Found", http.StatusNotFound)
	default:
		httperrors.InternalError(w, r, err, message)
	}
}

func currentUser(w http.ResponseWriter, r *http.Request) (*store.User, bool) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		http.Error(w, "missing user", http.StatusUnauthorized)
		return nil, false
	}
	return user, true
}

// resourcePath resolves the request to a .vcf resource or answers 404.
func resourcePath(w http.ResponseWriter, r *http.Request) (davPath, bool) {
	p := parseDAVPath(r.URL.Path)
	if p.kind != pathResource {
		http.Error(w, "Not Found", http.StatusNotFound)
		return davPath{}, false
	}
	return p, true
}

func (h *Handler) Put(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	p, ok := resourcePath(w, r)
	if !ok {
		return
	}

	body, err := readDAVBody(w, r, maxDAVBodyBytes)
	if err != nil {
		writeBodyError(w, err)
		return
	}

	cond := contacts.Conditions{
		IfMatch:     strings.TrimSpace(r.Header.Get("If-Match")),
		IfNoneMatch: strings.TrimSpace(r.Header.Get("If-None-Match")),
	}
	res, err := h.svc.Put(r.Context(), user.ID, p.bookID, p.resourceID, string(body), cond)
	if err != nil {
		writeServiceError(w, r, err, "failed to store vCard")
		return
	}

	h.log.Debug().
		Str("book", p.bookID).
		Str("id", p.resourceID).
		Stringer("kind", res.Kind).
		Bool("created", res.Created).
		Msg("stored card")

	w.Header().Set("ETag", res.ETag)
	if res.Created {
		w.WriteHeader(http.StatusCreated)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	p, ok := resourcePath(w, r)
	if !ok {
		return
	}

	ifMatch := strings.TrimSpace(r.Header.Get("If-Match"))
	if err := h.svc.Delete(r.Context(), user.ID, p.bookID, p.resourceID, ifMatch); err != nil {
		writeServiceError(w, r, err, "failed to delete card")
		return
	}

	h.log.Debug().Str("book", p.bookID).Str("id", p.resourceID).Msg("deleted card")
	w.WriteHeader(http.StatusNoContent)
}
