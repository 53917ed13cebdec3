package relay

import (
	"errors"
	"net/http"
)

// StatusError is an error that carries the HTTP status it should be
// reported with. Middleware return it to end a chain with a specific status.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return e.Message
}

// Abort returns a *StatusError. If message is empty, the standard status
// text is used.
//
// Example:
//
//	return ex, relay.Abort(http.StatusForbidden, "admins only")
func Abort(code int, message string) error {
	if message == "" {
		message = http.StatusText(code)
	}
	return &StatusError{Code: code, Message: message}
}

// StatusCode returns the status carried by err, or 500 when err does not
// wrap a *StatusError.
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code
	}
	return http.StatusInternalServerError
}
