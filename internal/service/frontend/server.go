// Package frontend serves the scheduler status API.
package frontend

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/churnlab/retrainer/internal/cmn/config"
	"github.com/churnlab/retrainer/internal/cmn/logger"
	"github.com/churnlab/retrainer/internal/cmn/logger/tag"
	"github.com/churnlab/retrainer/internal/core"
	"github.com/churnlab/retrainer/internal/service/scheduler"
)

// Reporter exposes the read-only view of the scheduler.
type Reporter interface {
	Status() scheduler.StatusSnapshot
	Health() scheduler.HealthSnapshot
}

// Controller is a Reporter that can also be reconfigured at runtime.
type Controller interface {
	Reporter
	SetIntervalHours(hours float64) error
	SetEnabled(enabled bool) error
}

// ModelLister lists published model versions, newest first.
type ModelLister interface {
	List(ctx context.Context) ([]core.ModelVersion, error)
}

// Server is the HTTP server of the status API.
type Server struct {
	config     *config.Config
	scheduler  Controller
	models     ModelLister
	registry   *prometheus.Registry
	listener   net.Listener
	httpServer *http.Server
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithModels enables the /models endpoint.
func WithModels(models ModelLister) ServerOption {
	return func(srv *Server) {
		srv.models = models
	}
}

// WithMetricsRegistry enables the /metrics endpoint.
func WithMetricsRegistry(registry *prometheus.Registry) ServerOption {
	return func(srv *Server) {
		srv.registry = registry
	}
}

// WithListener makes Serve use a pre-bound listener.
func WithListener(l net.Listener) ServerOption {
	return func(srv *Server) {
		srv.listener = l
	}
}

// NewServer creates a server for the given scheduler.
func NewServer(cfg *config.Config, sched Controller, opts ...ServerOption) *Server {
	srv := &Server{config: cfg, scheduler: sched}
	for _, opt := range opts {
		opt(srv)
	}
	return srv
}

// Handler builds the router.
func (srv *Server) Handler() http.Handler {
	requestLogger := httplog.NewLogger("http", httplog.Options{
		LogLevel:         slog.LevelDebug,
		JSON:             srv.config.Core.LogFormat == "json",
		Concise:          true,
		RequestHeaders:   false,
		MessageFieldName: "msg",
	})

	r := chi.NewMux()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(httplog.RequestLogger(requestLogger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "PATCH", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Accept"},
		MaxAge:         300,
	}))

	h := &handlers{scheduler: srv.scheduler, models: srv.models}

	r.Route("/scheduler", func(r chi.Router) {
		r.Get("/health", h.health)
		r.Get("/status", h.status)
		r.Patch("/config", h.updateConfig)
	})
	if srv.models != nil {
		r.Get("/models", h.listModels)
	}
	if srv.registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(srv.registry, promhttp.HandlerOpts{}))
	}

	return r
}

// Serve starts the server and blocks until ctx is canceled, then shuts it
// down gracefully.
func (srv *Server) Serve(ctx context.Context) error {
	addr := net.JoinHostPort(srv.config.Server.Host, strconv.Itoa(srv.config.Server.Port))
	srv.httpServer = &http.Server{
		Handler:           srv.Handler(),
		Addr:              addr,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
		WriteTimeout:      60 * time.Second,
	}

	listener := srv.listener
	if listener == nil {
		var err error
		if listener, err = net.Listen("tcp", addr); err != nil {
			return err
		}
	}

	logger.Info(ctx, "Server is starting", tag.Addr(listener.Addr().String()))

	errCh := make(chan error, 1)
	go func() {
		if err := srv.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error(ctx, "Server failed unexpectedly", tag.Error(err))
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info(ctx, "Server is shutting down", tag.Addr(addr))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	srv.httpServer.SetKeepAlivesEnabled(false)
	if err := srv.httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "Failed to shutdown server gracefully", tag.Error(err))
		return err
	}
	return nil
}
