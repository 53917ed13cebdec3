package relay

import "context"

// WithParams wraps mw so that, while it runs, ex.Param and ex.Params return
// the parameters captured from pattern. Run wraps every App route this way.
//
// Example:
//
//	r.Get("/users/:id", relay.WithParams("/users/:id", getUser))
//	// inside getUser: ex.Param("id")
func WithParams(pattern string, mw Middleware[*Exchange]) Middleware[*Exchange] {
	return MiddlewareFunc[*Exchange](func(ctx context.Context, ex *Exchange, next Next[*Exchange]) (*Exchange, error) {
		params, _ := MatchParams(pattern, ex.Path())
		ex.setParams(params)
		return mw.Run(ctx, ex, next)
	})
}
