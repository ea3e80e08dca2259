// Package core provides the API chassis for the RainCast service. It builds
// a chi router, enforces cross-cutting concerns (panic recovery, request
// correlation, logging, CORS, metrics) before requests reach domain
// handlers, and standardizes JSON responses and error envelopes.
package core

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"raincast/internal/config"
	"raincast/internal/observability"
)

// Server encapsulates the chassis dependencies, allowing injection during
// testing and distinct configuration per environment.
type Server struct {
	Config    *config.Config
	Logger    *slog.Logger
	Validator *Validator
	Metrics   *observability.Metrics

	// V1RouteRegistrars are invoked while mounting the /v1 group. The
	// application entry point populates them; the indirection keeps core
	// free of imports on handler packages.
	V1RouteRegistrars []func(chi.Router)

	// HealthProbes are checked by GET /health. Registered at startup.
	HealthProbes []HealthProbe

	router *chi.Mux
}

// NewServer initializes the chassis. The caller mounts routes afterwards via
// MountRoutes; the separation lets tests customize route registration.
func NewServer(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}

	return &Server{
		Config:    cfg,
		Logger:    logger,
		Validator: NewValidator(),
		Metrics:   metrics,
		router:    chi.NewRouter(),
	}, nil
}

// Handler returns the http.Handler interface for the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Router returns the underlying chi.Mux for route registration in tests.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Shutdown performs a graceful termination of server resources.
func (s *Server) Shutdown(ctx context.Context) error {
	s.Logger.Info("server shutdown complete")
	return nil
}
