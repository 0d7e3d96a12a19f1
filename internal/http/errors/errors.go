package errors

import (
	"net/http"

	"github.com/rs/zerolog"
)

// requestLogger returns the logger the router attached to the request. The
// router has already tagged it with the request ID.
func requestLogger(r *http.Request) *zerolog.Logger {
	return zerolog.Ctx(r.Context())
}

func InternalError(w http.ResponseWriter, r *http.Request, err error, message string) {
	requestLogger(r).Error().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg(message)

	// Generic body; the cause stays in the log.
	http.Error(w, "internal server error", http.StatusInternalServerError)
}

func BadRequestError(w http.ResponseWriter, r *http.Request, err error, clientMessage string) {
	requestLogger(r).Warn().Err(err).Str("path", r.URL.Path).Msg("bad request")

	http.Error(w, clientMessage, http.StatusBadRequest)
}
