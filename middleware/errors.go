package middleware

import (
	"net/http"

	"github.com/Jack4Code/relay"
)

var (
	// ErrTimeout is returned when the rest of the chain misses its deadline.
	ErrTimeout = &relay.StatusError{Code: http.StatusGatewayTimeout, Message: "request timed out"}

	// ErrRateLimited is returned when a request exceeds the configured rate.
	ErrRateLimited = &relay.StatusError{Code: http.StatusTooManyRequests, Message: "rate limit exceeded"}

	// ErrCircuitOpen is returned while a circuit breaker rejects requests.
	ErrCircuitOpen = &relay.StatusError{Code: http.StatusServiceUnavailable, Message: "service unavailable: circuit breaker open"}

	// ErrPanic wraps a recovered panic.
	ErrPanic = &relay.StatusError{Code: http.StatusInternalServerError, Message: "internal server error"}
)
