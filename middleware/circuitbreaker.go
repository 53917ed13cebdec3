package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/Jack4Code/relay"
)

// CircuitBreaker returns middleware that stops calling the rest of the chain
// once it keeps failing. The breaker trips after at least threshold requests
// in an interval with a failure ratio of 50% or more, stays open for
// timeout, then lets threshold trial requests through.
//
// Errors carrying a 4xx status (see relay.StatusCode) are client errors and
// do not count as failures. While open, the chain ends with ErrCircuitOpen.
func CircuitBreaker[C any](name string, threshold int, timeout time.Duration, logger *zap.Logger) relay.Middleware[C] {
	if logger == nil {
		logger = zap.NewNop()
	}

	thresholdU32 := safeIntToUint32(threshold)

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: thresholdU32,
		Interval:    timeout,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= thresholdU32 && failureRatio >= 0.5
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Info("circuit breaker state change",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			code := relay.StatusCode(err)
			return code >= http.StatusBadRequest && code < http.StatusInternalServerError
		},
	})

	return relay.MiddlewareFunc[C](func(ctx context.Context, c C, next relay.Next[C]) (C, error) {
		res, err := cb.Execute(func() (interface{}, error) {
			return next(ctx, c)
		})
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return c, ErrCircuitOpen
		}

		out, ok := res.(C)
		if !ok {
			out = c
		}
		return out, err
	})
}

// safeIntToUint32 safely converts int to uint32.
func safeIntToUint32(n int) uint32 {
	if n < 0 {
		return 0
	}
	if n > int(^uint32(0)) {
		return ^uint32(0)
	}
	return uint32(n) //nolint:gosec // bounds checked above
}
