// Package core provides the HTTP chassis of the SkySense local bridge. It
// creates a chi router, enforces cross-cutting concerns (request IDs,
// logging, throttling, error handling) and leaves the domain routes to
// registrars supplied by the entry point.
package core

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"golang.org/x/time/rate"

	"skysense/internal/config"
)

// RouteRegistrar mounts a group of handlers onto the /v1 router.
type RouteRegistrar func(r chi.Router)

// Server encapsulates the bridge's dependencies, allowing for easy injection
// during testing.
type Server struct {
	Config    *config.Config
	Logger    *slog.Logger
	Validator *Validator

	// HealthProbes are run by GET /health.
	HealthProbes []HealthProbe
	// V1RouteRegistrars are populated by main.go. This indirection avoids
	// import cycles between core and the handler packages.
	V1RouteRegistrars []RouteRegistrar

	limiter *rate.Limiter
	router  *chi.Mux
}

// NewServer initializes the server and performs a fail-fast check on its
// required dependencies. The caller mounts routes with MountRoutes after
// setting registrars and probes.
func NewServer(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}

	s := &Server{
		Config:    cfg,
		Logger:    logger,
		Validator: NewValidator(logger),
		router:    chi.NewRouter(),
	}
	if cfg.Server.RateLimit > 0 {
		burst := cfg.Server.RateBurst
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(cfg.Server.RateLimit), burst)
	}

	return s, nil
}

// Handler returns the http.Handler for the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Router returns the underlying chi.Mux for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}
