// Package middleware provides relay middleware that work with any context
// type: deadlines, panic recovery, access logging, rate limiting and
// circuit breaking.
//
// Each constructor returns a relay.Middleware[C], so the same middleware can
// be registered on a router over *relay.Exchange or over a custom context:
//
//	r := relay.New[*relay.Exchange]()
//	r.Use("/*", middleware.Recover[*relay.Exchange](logger))
//	r.Use("/api/*", middleware.Timeout[*relay.Exchange](2*time.Second))
//
// Failures are reported with the sentinel errors in this package, which are
// *relay.StatusError values so an HTTP adapter can map them to a status.
package middleware
