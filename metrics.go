package relay

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Resolve outcomes used as the "outcome" label.
const (
	outcomeOK      = "ok"
	outcomeError   = "error"
	outcomeNoMatch = "no_match"
)

// resolveMetrics contains Prometheus metrics for Router.Resolve.
type resolveMetrics struct {
	resolves *prometheus.CounterVec
	duration *prometheus.HistogramVec
	matched  prometheus.Histogram
}

// newResolveMetrics creates the resolve metrics and registers them with reg.
// Collectors that are already registered are reused, so several routers may
// share one registry.
func newResolveMetrics(reg prometheus.Registerer) *resolveMetrics {
	m := &resolveMetrics{
		resolves: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "relay",
				Name:      "resolves_total",
				Help:      "Total number of resolved requests by method and outcome",
			},
			[]string{"method", "outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "relay",
				Name:      "resolve_duration_seconds",
				Help:      "Time spent running the middleware chain",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method"},
		),
		matched: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "relay",
				Name:      "matched_middleware",
				Help:      "Number of middleware matched per request",
				Buckets:   []float64{0, 1, 2, 4, 8, 16, 32},
			},
		),
	}

	m.resolves = register(reg, m.resolves)
	m.duration = register(reg, m.duration)
	m.matched = register(reg, m.matched)
	return m
}

// register panics on any error other than an identical collector being
// registered already, as MustRegister does.
func register[T prometheus.Collector](reg prometheus.Registerer, c T) T {
	err := reg.Register(c)
	if err == nil {
		return c
	}
	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		if existing, ok := are.ExistingCollector.(T); ok {
			return existing
		}
	}
	panic(fmt.Errorf("relay: registering resolve metrics: %w", err))
}
