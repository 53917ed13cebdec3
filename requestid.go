package relay

import (
	"context"

	"github.com/google/uuid"
)

// RequestIDHeader is the header name for request ID.
const RequestIDHeader = "X-Request-ID"

const requestIDKey contextKey = "requestID"

// RequestID returns middleware that reuses the incoming X-Request-ID or
// generates a new one, echoes it on the response and stores it in the
// context (see GetRequestID).
func RequestID() Middleware[*Exchange] {
	return RequestIDWithGenerator(func() string { return uuid.New().String() })
}

// RequestIDWithGenerator is RequestID with a custom ID generator.
func RequestIDWithGenerator(generate func() string) Middleware[*Exchange] {
	return MiddlewareFunc[*Exchange](func(ctx context.Context, ex *Exchange, next Next[*Exchange]) (*Exchange, error) {
		id := ex.Request().Header.Get(RequestIDHeader)
		if id == "" {
			id = generate()
		}

		ex.Header().Set(RequestIDHeader, id)
		ctx = context.WithValue(ctx, requestIDKey, id)
		ex.SetRequest(ex.Request().WithContext(context.WithValue(ex.Request().Context(), requestIDKey, id)))

		return next(ctx, ex)
	})
}

// GetRequestID returns the ID stored by RequestID.
func GetRequestID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(requestIDKey).(string)
	return id, ok
}
