package middleware

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Jack4Code/relay"
)

// Logger returns middleware that logs one line per request after the rest of
// the chain has finished. describe may add fields taken from the incoming
// context; it may be nil.
func Logger[C any](logger *zap.Logger, describe func(C) []zap.Field) relay.Middleware[C] {
	if logger == nil {
		logger = zap.NewNop()
	}

	return relay.MiddlewareFunc[C](func(ctx context.Context, c C, next relay.Next[C]) (C, error) {
		var fields []zap.Field
		if describe != nil {
			fields = describe(c)
		}

		start := time.Now()
		out, err := next(ctx, c)
		fields = append(fields, zap.Duration("duration", time.Since(start)))

		if err != nil {
			fields = append(fields, zap.Error(err))
			logger.Warn("request failed", fields...)
			return out, err
		}

		logger.Info("request completed", fields...)
		return out, nil
	})
}

// ExchangeFields describes an HTTP exchange for Logger.
func ExchangeFields(ex *relay.Exchange) []zap.Field {
	fields := []zap.Field{
		zap.String("method", ex.Request().Method),
		zap.String("path", ex.Path()),
		zap.String("remote_addr", ex.Request().RemoteAddr),
	}
	if id, ok := relay.GetRequestID(ex.Request().Context()); ok {
		fields = append(fields, zap.String("request_id", id))
	}
	return fields
}
