// Package core provides the HTTP chassis of the space purchase API. It
// builds the chi router and enforces the cross-cutting concerns (recovery,
// request ids, logging, metrics, bearer token passthrough) before requests
// reach the billing and purchase handlers.
package core

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"spacepurchase/internal/config"
)

// MetricsCollector records API telemetry. Implementations record request
// latency and count metrics to CloudWatch.
type MetricsCollector interface {
	// RecordAPIRequest records one request under its route pattern.
	RecordAPIRequest(ctx context.Context, method, endpoint string, status int, duration time.Duration)
}

// Server holds the dependencies of the HTTP layer.
type Server struct {
	Config       *config.Config
	Logger       *slog.Logger
	Validator    *Validator
	Metrics      MetricsCollector
	HealthProbes []HealthProbe

	// V1RouteRegistrars mount the domain handlers under /v1. They are
	// populated by main.go so that core never imports the handler packages.
	V1RouteRegistrars []func(chi.Router)

	router *chi.Mux
}

// NewServer creates a Server with an empty router. The caller mounts routes
// with MountRoutes after filling in the optional dependencies.
func NewServer(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}

	return &Server{
		Config:    cfg,
		Logger:    logger,
		Validator: NewValidator(logger),
		router:    chi.NewRouter(),
	}, nil
}

// Handler returns the router as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Router returns the underlying chi.Mux.
func (s *Server) Router() *chi.Mux {
	return s.router
}
