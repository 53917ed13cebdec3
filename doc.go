// Package relay is a middleware router built on continuation passing.
//
// Middleware are registered per HTTP method and path pattern. For each
// request, Resolve selects the middleware whose pattern matches, in the order
// they were registered, and runs them as a single chain. Every step receives
// the request context and a Next continuation for the rest of the chain:
//
//	r := relay.New[*relay.Exchange]()
//	r.Use("/*", relay.RequestID())
//	r.Use("/api/*", relay.RequireAuth(secret))
//	r.Get("/api/users/:id", getUser)
//
//	out, err := r.Resolve(ctx, ex, relay.MethodGet, "/api/users/42")
//
// A step may continue with next, end the chain by returning without calling
// next, or call next and post-process its result. The first error returned
// by any step ends the chain and is returned from Resolve unchanged. A
// request that matches nothing resolves to its own context with no error.
//
// The router is generic over the context type. Exchange is the context used
// by NewHandler and Run to serve HTTP; any other type works with Resolve
// directly.
//
// # Patterns
//
// See IsMatch for pattern syntax: literals, ":name" or "{name}" parameters,
// and "*" wildcards. Wrap a step with WithParams to read its captures
// through ex.Param; Run does this for every App route.
//
// # Concurrency
//
// Each call to Resolve is independent and runs on the caller's goroutine.
// Registration and lookups may happen concurrently. A request's context is
// owned by its chain and is never shared with other requests. Middleware
// that leave work running in the background, such as a timeout, hand that
// work a fork of the context (see Forker).
package relay
