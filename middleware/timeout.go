package middleware

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Jack4Code/relay"
)

// Timeout returns middleware that gives the rest of the chain d to finish.
//
// When the deadline passes, Timeout returns ErrTimeout along with the context
// it received. The inner steps are not interrupted: they see ctx canceled and
// are expected to stop on their own. Their eventual result is discarded, and
// the caller must not expect the returned context to reflect their changes.
//
// If C implements relay.Forker, the inner steps run on a fork that is
// released at the deadline. For *relay.Exchange this means a late write from
// an abandoned step is dropped instead of reaching the client.
func Timeout[C any](d time.Duration) relay.Middleware[C] {
	type result struct {
		c   C
		err error
	}

	return relay.MiddlewareFunc[C](func(ctx context.Context, c C, next relay.Next[C]) (C, error) {
		ctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()

		inner, release := c, func() {}
		if f, ok := any(c).(relay.Forker[C]); ok {
			inner, release = f.Fork()
		}

		// Buffered so the inner goroutine never blocks after a timeout.
		done := make(chan result, 1)

		go func() {
			var r result
			defer func() {
				if rec := recover(); rec != nil {
					r.c, r.err = inner, fmt.Errorf("%w: %v", ErrPanic, rec)
				}
				done <- r
			}()
			r.c, r.err = next(ctx, inner)
		}()

		select {
		case r := <-done:
			return r.c, r.err
		case <-ctx.Done():
			release()
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return c, ErrTimeout
			}
			return c, ctx.Err()
		}
	})
}
