package relay

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/Jack4Code/relay/config"
)

// App interface
type App interface {
	OnStart(ctx context.Context) error
	OnStop(ctx context.Context) error
	Routes() []AppRoute
}

// AppRoute builds a Route for an App. Method may be MethodUse to register
// the middleware under every method. Run wraps Middleware with WithParams,
// so it can read its captures with ex.Param.
type AppRoute struct {
	Method     Method
	Pattern    string
	Middleware Middleware[*Exchange]
}

// CORSConfig holds CORS configuration
type CORSConfig struct {
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	ExposedHeaders   []string
	AllowCredentials bool
	MaxAge           int
}

// DefaultCORSConfig returns a permissive CORS config for development
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token", RequestIDHeader},
		ExposedHeaders:   []string{"Link", RequestIDHeader},
		AllowCredentials: false,
		MaxAge:           300,
	}
}

func Run(app App, cfg config.BaseConfig) error {
	return RunWithCORS(app, cfg, DefaultCORSConfig())
}

func RunWithCORS(app App, cfg config.BaseConfig, corsConfig CORSConfig) error {
	return run(app, cfg, corsConfig, waitForSignal)
}

// run serves app until wait returns.
func run(app App, cfg config.BaseConfig, corsConfig CORSConfig, wait func()) error {
	ctx := context.Background()
	cfg.ApplyDefaults()

	logger, err := NewLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	// Start the health server BEFORE calling OnStart so orchestrators can
	// see the process is alive.
	healthStatus := newHealthStatus()
	registry := prometheus.NewRegistry()
	opsServers := startOpsServers(cfg, healthStatus, registry, logger)

	if err := app.OnStart(ctx); err != nil {
		shutdownServers(opsServers, cfg.ShutdownTimeout, logger)
		return fmt.Errorf("failed to start app: %w", err)
	}
	healthStatus.SetHealthy(true)

	routes := app.Routes()
	if len(routes) == 0 {
		// Only the ops servers run; the app does its work in OnStart.
		logger.Info("no routes, running in background mode")
		healthStatus.SetReady(true)

		wait()
		logger.Info("shutting down")

		healthStatus.SetReady(false)
		shutdownServers(opsServers, cfg.ShutdownTimeout, logger)
		if err := app.OnStop(ctx); err != nil {
			logger.Error("error during OnStop", zap.Error(err))
		}
		return nil
	}

	router := New(
		WithLogger[*Exchange](logger),
		WithMetrics[*Exchange](registry),
	)
	router.Use("/*", CORS(corsConfig))
	for _, route := range routes {
		router.Table().Register(route.Method, route.Pattern, WithParams(route.Pattern, route.Middleware))
	}
	logRoutes(router, logger)

	server := &http.Server{
		Addr:    ":" + strconv.Itoa(cfg.GetHTTPPort()),
		Handler: NewHandler(router, logger),
	}

	go func() {
		logger.Info("starting server", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", zap.Error(err))
		}
	}()

	healthStatus.SetReady(true)

	wait()
	logger.Info("shutting down servers")

	// Stop accepting new traffic first.
	healthStatus.SetReady(false)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout(cfg.ShutdownTimeout))
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("main server forced to shutdown", zap.Error(err))
	}
	shutdownServers(opsServers, cfg.ShutdownTimeout, logger)

	if err := app.OnStop(ctx); err != nil {
		logger.Error("error during OnStop", zap.Error(err))
	}

	logger.Info("servers stopped")
	return nil
}

// logRoutes prints the route table at startup, one line per registration.
func logRoutes(router *Router[*Exchange], logger *zap.Logger) {
	for _, m := range Methods() {
		for _, r := range router.Table().Routes(m) {
			logger.Info("route",
				zap.String("method", m.String()),
				zap.String("pattern", r.Pattern),
			)
		}
	}
}

func waitForSignal() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)
	<-quit
}

func shutdownTimeout(d time.Duration) time.Duration {
	if d <= 0 {
		return 30 * time.Second
	}
	return d
}

func shutdownServers(servers []*http.Server, timeout time.Duration, logger *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout(timeout))
	defer cancel()
	for _, s := range servers {
		if err := s.Shutdown(ctx); err != nil {
			logger.Error("ops server forced to shutdown", zap.String("addr", s.Addr), zap.Error(err))
		}
	}
}
