// Package server composes HTTP API and MCP transports into one process handler.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hylla/shopfloor/internal/adapters/server/common"
	"github.com/hylla/shopfloor/internal/adapters/server/httpapi"
	"github.com/hylla/shopfloor/internal/adapters/server/mcpapi"
	"github.com/hylla/shopfloor/internal/domain"
	"github.com/hylla/shopfloor/internal/metrics"
)

// defaultBindAddress defines the localhost-first serve default.
const defaultBindAddress = "127.0.0.1:8080"

// defaultShutdownTimeout bounds graceful shutdown time once context cancellation starts.
const defaultShutdownTimeout = 5 * time.Second

// readyTimeout bounds one readiness probe.
const readyTimeout = 2 * time.Second

// Config defines serve-mode endpoint configuration.
type Config struct {
	HTTPBind        string
	APIEndpoint     string
	MCPEndpoint     string
	MetricsEndpoint string
	ServerName      string
	ServerVersion   string
	SecureCookies   bool
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

// Pinger reports whether backing storage is reachable.
type Pinger interface {
	Ping(context.Context) error
}

// Dependencies defines app-facing adapters required by server transports.
type Dependencies struct {
	Production common.ProductionService
	Auth       common.AuthService
	Storage    Pinger
	Metrics    *metrics.PrometheusRecorder
	Logger     *log.Logger
}

// NewHandler composes one root router containing health, metrics, REST API, and MCP endpoints.
func NewHandler(cfg Config, deps Dependencies) (http.Handler, Config, error) {
	normalizedCfg, err := normalizeConfig(cfg)
	if err != nil {
		return nil, Config{}, err
	}
	if deps.Production == nil {
		return nil, Config{}, fmt.Errorf("production dependency is required")
	}
	if deps.Auth == nil {
		return nil, Config{}, fmt.Errorf("auth dependency is required")
	}

	mcpHandler, err := mcpapi.NewHandler(
		mcpapi.Config{
			ServerName:    normalizedCfg.ServerName,
			ServerVersion: normalizedCfg.ServerVersion,
			EndpointPath:  normalizedCfg.MCPEndpoint,
		},
		deps.Production,
	)
	if err != nil {
		return nil, Config{}, fmt.Errorf("configure mcp handler: %w", err)
	}
	apiHandler := httpapi.NewHandler(httpapi.Config{
		SecureCookies:  normalizedCfg.SecureCookies,
		RequestTimeout: normalizedCfg.RequestTimeout,
	}, deps.Production, deps.Auth)

	r := chi.NewRouter()
	if deps.Logger != nil {
		r.Use(accessLog(deps.Logger))
	}
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Middleware)
	}
	r.Get("/healthz", writeHealthStatus)
	r.Get("/readyz", readinessHandler(deps.Storage))
	if deps.Metrics != nil {
		r.Handle(normalizedCfg.MetricsEndpoint, metrics.HTTPHandler(deps.Metrics.Registry()))
	}
	r.With(httpapi.RequireAuth(deps.Auth, domain.PermKanban)).Handle(normalizedCfg.MCPEndpoint, mcpHandler)
	r.Mount(normalizedCfg.APIEndpoint, apiHandler)
	return r, normalizedCfg, nil
}

// Run starts the composed HTTP server and blocks until shutdown or startup failure.
func Run(ctx context.Context, cfg Config, deps Dependencies) error {
	if ctx == nil {
		ctx = context.Background()
	}
	handler, normalizedCfg, err := NewHandler(cfg, deps)
	if err != nil {
		return fmt.Errorf("build server handler: %w", err)
	}
	listener, err := net.Listen("tcp", normalizedCfg.HTTPBind)
	if err != nil {
		return fmt.Errorf("listen %s: %w", normalizedCfg.HTTPBind, err)
	}
	if deps.Logger != nil {
		deps.Logger.Info("server listening", "addr", listener.Addr().String(), "api", normalizedCfg.APIEndpoint, "mcp", normalizedCfg.MCPEndpoint)
	}
	return serve(ctx, listener, handler, normalizedCfg.ShutdownTimeout)
}

// serve runs handler on listener until ctx ends, then shuts down gracefully.
func serve(ctx context.Context, listener net.Listener, handler http.Handler, shutdownTimeout time.Duration) error {
	httpServer := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErrCh := make(chan error, 1)
	go func() {
		serveErrCh <- httpServer.Serve(listener)
	}()

	select {
	case err := <-serveErrCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		shutdownErr := httpServer.Shutdown(shutdownCtx)
		serveErr := <-serveErrCh
		if shutdownErr != nil && !errors.Is(shutdownErr, context.Canceled) {
			return fmt.Errorf("shutdown server: %w", shutdownErr)
		}
		if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			return fmt.Errorf("serve after shutdown: %w", serveErr)
		}
		return nil
	}
}

// normalizeConfig applies defaults and validates endpoint collisions.
func normalizeConfig(cfg Config) (Config, error) {
	cfg.HTTPBind = strings.TrimSpace(cfg.HTTPBind)
	if cfg.HTTPBind == "" {
		cfg.HTTPBind = defaultBindAddress
	}

	cfg.APIEndpoint = normalizeEndpoint(cfg.APIEndpoint, "/api/v1")
	cfg.MCPEndpoint = normalizeEndpoint(cfg.MCPEndpoint, "/mcp")
	cfg.MetricsEndpoint = normalizeEndpoint(cfg.MetricsEndpoint, "/metrics")
	endpoints := map[string]string{}
	for _, ep := range []struct{ name, path string }{
		{"api", cfg.APIEndpoint},
		{"mcp", cfg.MCPEndpoint},
		{"metrics", cfg.MetricsEndpoint},
		{"health", "/healthz"},
		{"ready", "/readyz"},
	} {
		if other, ok := endpoints[ep.path]; ok {
			return Config{}, fmt.Errorf("%s and %s endpoints must differ", other, ep.name)
		}
		endpoints[ep.path] = ep.name
	}

	cfg.ServerName = strings.TrimSpace(cfg.ServerName)
	if cfg.ServerName == "" {
		cfg.ServerName = "shopfloor"
	}
	cfg.ServerVersion = strings.TrimSpace(cfg.ServerVersion)
	if cfg.ServerVersion == "" {
		cfg.ServerVersion = "dev"
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}
	return cfg, nil
}

// normalizeEndpoint normalizes one endpoint path and applies fallback defaults.
func normalizeEndpoint(path string, fallback string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		path = fallback
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	path = "/" + strings.Trim(path, "/")
	if path == "/" {
		return fallback
	}
	return path
}

// writeHealthStatus responds with a deterministic liveness payload.
func writeHealthStatus(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}` + "\n"))
}

// readinessHandler reports 503 while storage cannot be reached.
func readinessHandler(storage Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if storage != nil {
			ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
			defer cancel()
			if err := storage.Ping(ctx); err != nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(`{"status":"unavailable"}` + "\n"))
				return
			}
		}
		writeHealthStatus(w, r)
	}
}

// accessLog logs one line per request with status and latency.
func accessLog(logger *log.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			fields := []any{
				"method", r.Method,
				"path", r.URL.Path,
				"status", status,
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start).Round(time.Microsecond),
			}
			switch {
			case status >= http.StatusInternalServerError:
				logger.Error("http request", fields...)
			case status >= http.StatusBadRequest:
				logger.Warn("http request", fields...)
			default:
				logger.Debug("http request", fields...)
			}
		})
	}
}
