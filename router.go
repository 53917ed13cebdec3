package relay

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const tracerName = "github.com/Jack4Code/relay"

// Router registers middleware per method and path pattern and runs the
// matching middleware for each request as one chain.
//
// The zero value is not usable; create one with New.
type Router[C any] struct {
	table   *RouteTable[C]
	logger  *zap.Logger
	metrics *resolveMetrics
	tracer  trace.Tracer
}

// Option configures a Router.
type Option[C any] func(*Router[C])

// WithLogger sets the logger. The default, also used for nil, discards
// everything.
func WithLogger[C any](logger *zap.Logger) Option[C] {
	return func(r *Router[C]) {
		r.logger = logger
	}
}

// WithMetrics registers resolve metrics with reg.
func WithMetrics[C any](reg prometheus.Registerer) Option[C] {
	return func(r *Router[C]) {
		if reg == nil {
			return
		}
		r.metrics = newResolveMetrics(reg)
	}
}

// WithTracer sets the tracer used for resolve spans. The default, also used
// for nil, comes from the global otel tracer provider.
func WithTracer[C any](tracer trace.Tracer) Option[C] {
	return func(r *Router[C]) {
		r.tracer = tracer
	}
}

// WithMatcher replaces IsMatch as the path matcher. fn must be pure and
// must not panic.
func WithMatcher[C any](fn func(pattern, path string) bool) Option[C] {
	return func(r *Router[C]) {
		r.table.isMatch = fn
	}
}

// New returns an empty Router.
func New[C any](opts ...Option[C]) *Router[C] {
	r := &Router[C]{
		table:  NewRouteTable[C](),
		logger: zap.NewNop(),
		tracer: otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = zap.NewNop()
	}
	if r.tracer == nil {
		r.tracer = otel.Tracer(tracerName)
	}
	if r.table.isMatch == nil {
		r.table.isMatch = IsMatch
	}
	return r
}

// Table returns the underlying route table.
func (r *Router[C]) Table() *RouteTable[C] {
	return r.table
}

// Handle registers mw for method and pattern. MethodUse registers it under
// every method.
func (r *Router[C]) Handle(method Method, pattern string, mw Middleware[C]) {
	r.table.Register(method, pattern, mw)
}

// Use registers mw under every method. Typically used for cross-cutting
// middleware such as logging.
func (r *Router[C]) Use(pattern string, mw Middleware[C]) {
	r.table.RegisterAll(pattern, mw)
}

func (r *Router[C]) Get(pattern string, mw Middleware[C])     { r.Handle(MethodGet, pattern, mw) }
func (r *Router[C]) Post(pattern string, mw Middleware[C])    { r.Handle(MethodPost, pattern, mw) }
func (r *Router[C]) Put(pattern string, mw Middleware[C])     { r.Handle(MethodPut, pattern, mw) }
func (r *Router[C]) Delete(pattern string, mw Middleware[C])  { r.Handle(MethodDelete, pattern, mw) }
func (r *Router[C]) Head(pattern string, mw Middleware[C])    { r.Handle(MethodHead, pattern, mw) }
func (r *Router[C]) Options(pattern string, mw Middleware[C]) { r.Handle(MethodOptions, pattern, mw) }
func (r *Router[C]) Connect(pattern string, mw Middleware[C]) { r.Handle(MethodConnect, pattern, mw) }
func (r *Router[C]) Patch(pattern string, mw Middleware[C])   { r.Handle(MethodPatch, pattern, mw) }
func (r *Router[C]) Trace(pattern string, mw Middleware[C])   { r.Handle(MethodTrace, pattern, mw) }

// Resolve runs every middleware registered under method whose pattern
// matches path, in registration order, threading c through the chain.
//
// With no matches, c is returned unchanged. Otherwise the result is whatever
// the chain produces: the final context, or the first error returned by a
// middleware. No middleware runs after an error.
//
// Resolve never adds a timeout of its own; ctx is handed to each step for
// cooperative cancellation.
func (r *Router[C]) Resolve(ctx context.Context, c C, method Method, path string) (C, error) {
	matches := r.table.Lookup(method, path)

	ctx, span := r.tracer.Start(ctx, "relay.resolve",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("relay.method", method.String()),
			attribute.String("relay.path", path),
			attribute.Int("relay.matched", len(matches)),
		),
	)
	defer span.End()

	if r.metrics != nil {
		r.metrics.matched.Observe(float64(len(matches)))
	}

	if len(matches) == 0 {
		r.observe(method, outcomeNoMatch, 0)
		r.logger.Debug("no middleware matched",
			zap.String("method", method.String()),
			zap.String("path", path),
		)
		return c, nil
	}

	start := time.Now()
	out, err := Compose(matches...)(ctx, c)
	elapsed := time.Since(start)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		r.observe(method, outcomeError, elapsed)
		r.logger.Debug("chain failed",
			zap.String("method", method.String()),
			zap.String("path", path),
			zap.Int("matched", len(matches)),
			zap.Duration("duration", elapsed),
			zap.Error(err),
		)
		return out, err
	}

	r.observe(method, outcomeOK, elapsed)
	r.logger.Debug("chain completed",
		zap.String("method", method.String()),
		zap.String("path", path),
		zap.Int("matched", len(matches)),
		zap.Duration("duration", elapsed),
	)
	return out, nil
}

func (r *Router[C]) observe(method Method, outcome string, elapsed time.Duration) {
	if r.metrics == nil {
		return
	}
	r.metrics.resolves.WithLabelValues(method.String(), outcome).Inc()
	if outcome != outcomeNoMatch {
		r.metrics.duration.WithLabelValues(method.String()).Observe(elapsed.Seconds())
	}
}
