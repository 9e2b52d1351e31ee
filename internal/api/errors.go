package api

import (
	"errors"
	"net/http"

	"github.com/signalsfoundry/hawki-etc/core"
	"github.com/signalsfoundry/hawki-etc/photometry"
)

// ErrInvalidRequest is a package-level sentinel for client-side validation
// failures (malformed JSON, missing fields, bad ranges).
var ErrInvalidRequest = errors.New("invalid request")

// StatusForError maps calculator errors onto HTTP status codes for the API
// surface.
//
// The specific photometry sentinels are matched before the generic
// ErrService: an unknown filter is the client's mistake, an unreachable
// lookup backend is an upstream failure.
func StatusForError(err error) int {
	switch {
	case err == nil:
		return http.StatusOK

	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, core.ErrInvalidConfig):
		return http.StatusBadRequest

	case errors.Is(err, photometry.ErrUnknownFilter),
		errors.Is(err, photometry.ErrUnsupported):
		return http.StatusNotFound

	case errors.Is(err, core.ErrDomain),
		errors.Is(err, core.ErrDegenerateNoise):
		return http.StatusUnprocessableEntity

	case errors.Is(err, photometry.ErrService):
		return http.StatusBadGateway

	default:
		return http.StatusInternalServerError
	}
}

// errorBody is the JSON error envelope returned on every non-2xx response.
type errorBody struct {
	Error string `json:"error"`
}
