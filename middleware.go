package relay

import "context"

// Next continues the chain with the remaining middleware. It is bound to one
// position of one request's chain and must be called at most once.
type Next[C any] func(ctx context.Context, c C) (C, error)

// Middleware is a single step of a request chain.
//
// An implementation does exactly one of the following per invocation:
//   - inspect or modify c, then return next(ctx, c) to continue;
//   - return a result without calling next, which ends the chain early
//     (an auth rejection, or a response that has already been written);
//   - call next, then post-process what it returned (timing, logging,
//     cleanup after a failed inner step).
//
// Calling next more than once, or never returning, is a contract violation.
// The router does not detect either.
type Middleware[C any] interface {
	Run(ctx context.Context, c C, next Next[C]) (C, error)
}

// MiddlewareFunc adapts an ordinary function to Middleware.
type MiddlewareFunc[C any] func(ctx context.Context, c C, next Next[C]) (C, error)

// Run calls f(ctx, c, next).
func (f MiddlewareFunc[C]) Run(ctx context.Context, c C, next Next[C]) (C, error) {
	return f(ctx, c, next)
}

// Compose builds a single continuation that runs middlewares in the order
// provided. The last step's next returns its context unchanged.
//
// Example:
//
//	run := Compose(logging, auth, handler)
//	out, err := run(ctx, c)
//	Execution order: logging -> auth -> handler
func Compose[C any](middlewares ...Middleware[C]) Next[C] {
	return chain(middlewares, 0)
}

// chain returns the continuation for position i. Each level captures only its
// own index and the shared, read-only slice; the continuation for i+1 is not
// built until step i actually runs.
func chain[C any](nodes []Middleware[C], i int) Next[C] {
	return func(ctx context.Context, c C) (C, error) {
		if i >= len(nodes) {
			return c, nil
		}
		return nodes[i].Run(ctx, c, chain(nodes, i+1))
	}
}

// Forker is implemented by contexts that must not be shared with work that
// may be abandoned. Fork returns a copy for that work and a release func;
// once release is called the copy no longer affects the original.
// Middleware that leave work running past their return, such as a timeout,
// fork the context first when it implements Forker.
type Forker[C any] interface {
	Fork() (C, func())
}
