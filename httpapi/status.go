package httpapi

import (
	"errors"
	"net/http"

	"github.com/MrEthical07/sessionkit"
)

// StatusFor maps an Engine error to an HTTP status.
func StatusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, sessionkit.ErrUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, sessionkit.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, sessionkit.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, sessionkit.ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, sessionkit.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, sessionkit.ErrInvalidToken), errors.Is(err, sessionkit.ErrExpired):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// messageFor returns the client-safe text for err. Internal faults never
// expose their cause.
func messageFor(err error, status int) string {
	if status >= http.StatusInternalServerError {
		return http.StatusText(status)
	}
	return err.Error()
}
