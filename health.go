package relay

import (
	"encoding/json"
	"net/http"
	"strconv"
	"sync"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Jack4Code/relay/config"
)

// HealthStatus tracks application health
type HealthStatus struct {
	mu      sync.RWMutex
	healthy bool
	ready   bool
}

func newHealthStatus() *HealthStatus {
	return &HealthStatus{
		healthy: false, // Not healthy until OnStart succeeds
		ready:   false, // Not ready until the main server is up
	}
}

func (h *HealthStatus) SetHealthy(healthy bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.healthy = healthy
}

func (h *HealthStatus) SetReady(ready bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ready = ready
}

func (h *HealthStatus) IsHealthy() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.healthy
}

func (h *HealthStatus) IsReady() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.ready
}

// healthRoutes adds /health and /ready to r.
func healthRoutes(r *mux.Router, status *HealthStatus) {
	// Health check - is the app alive?
	r.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		if status.IsHealthy() {
			writeStatus(w, http.StatusOK, "healthy")
		} else {
			writeStatus(w, http.StatusServiceUnavailable, "unhealthy")
		}
	}).Methods(http.MethodGet)

	// Ready check - is the app ready to serve traffic?
	r.HandleFunc("/ready", func(w http.ResponseWriter, _ *http.Request) {
		if status.IsReady() {
			writeStatus(w, http.StatusOK, "ready")
		} else {
			writeStatus(w, http.StatusServiceUnavailable, "not ready")
		}
	}).Methods(http.MethodGet)
}

// metricsRoutes adds /metrics for gatherer to r.
func metricsRoutes(r *mux.Router, gatherer prometheus.Gatherer) {
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
}

func writeStatus(w http.ResponseWriter, code int, status string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"status": status}) //nolint:errcheck
}

// newOpsRouter serves health and, when metrics share the health port,
// metrics too.
func newOpsRouter(status *HealthStatus, gatherer prometheus.Gatherer, withMetrics bool) *mux.Router {
	r := mux.NewRouter()
	healthRoutes(r, status)
	if withMetrics {
		metricsRoutes(r, gatherer)
	}
	return r
}

// startOpsServers starts the health server and, on its own port when
// configured, the metrics server.
func startOpsServers(cfg config.BaseConfig, status *HealthStatus, gatherer prometheus.Gatherer, logger *zap.Logger) []*http.Server {
	healthPort := cfg.GetHealthPort()
	metricsPort := cfg.GetMetricsPort()
	separateMetrics := metricsPort > 0 && metricsPort != healthPort

	servers := []*http.Server{
		serveOps(healthPort, newOpsRouter(status, gatherer, !separateMetrics), logger),
	}

	if separateMetrics {
		r := mux.NewRouter()
		metricsRoutes(r, gatherer)
		servers = append(servers, serveOps(metricsPort, r, logger))
	}

	return servers
}

func serveOps(port int, handler http.Handler, logger *zap.Logger) *http.Server {
	server := &http.Server{
		Addr:    ":" + strconv.Itoa(port),
		Handler: handler,
	}

	go func() {
		logger.Info("starting ops server", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("ops server error", zap.String("addr", server.Addr), zap.Error(err))
		}
	}()

	return server
}
