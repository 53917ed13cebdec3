package middleware

import (
	"context"
	"fmt"
	"runtime/debug"

	"go.uber.org/zap"

	"github.com/Jack4Code/relay"
)

// Recover returns middleware that turns a panic in the rest of the chain
// into an error wrapping ErrPanic. Register it first so it wraps everything.
func Recover[C any](logger *zap.Logger) relay.Middleware[C] {
	if logger == nil {
		logger = zap.NewNop()
	}

	return relay.MiddlewareFunc[C](func(ctx context.Context, c C, next relay.Next[C]) (out C, err error) {
		defer func() {
			if rec := recover(); rec != nil {
				logger.Error("panic recovered",
					zap.Any("panic", rec),
					zap.ByteString("stack", debug.Stack()),
				)
				out, err = c, fmt.Errorf("%w: %v", ErrPanic, rec)
			}
		}()

		return next(ctx, c)
	})
}
