// Package api provides the HTTP API for LakbaySafe.
package api

import (
	"context"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/lakbaysafe/lakbaysafe/internal/api/handler"
	"github.com/lakbaysafe/lakbaysafe/internal/api/middleware"
	"github.com/lakbaysafe/lakbaysafe/internal/auth"
	"github.com/lakbaysafe/lakbaysafe/internal/floodzone"
	"github.com/lakbaysafe/lakbaysafe/internal/provider/resilience"
	"github.com/lakbaysafe/lakbaysafe/internal/routing"
	"github.com/lakbaysafe/lakbaysafe/internal/triphistory"
	"github.com/lakbaysafe/lakbaysafe/internal/weather"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version     string
	BuildTime   string
	Logger      zerolog.Logger
	ServiceName string
	Metrics     *middleware.Metrics

	AuthService        *auth.Service
	RoutingService     *routing.Service
	WeatherService     *weather.Service
	FloodZones         *floodzone.Registry
	TripHistoryService *triphistory.Service
	Providers          *resilience.Registry

	// ReadyCheck reports whether backing stores are reachable.
	ReadyCheck func(ctx context.Context) error
}

// NewRouter creates a new chi router with all API routes configured.
// The returned NavigationHandler must be closed on shutdown so active
// navigation sessions stop cleanly.
func NewRouter(cfg RouterConfig) (*chi.Mux, *handler.NavigationHandler) {
	r := chi.NewRouter()

	// Set default service name if not provided
	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "lakbaysafe-api"
	}

	// Global middleware - order matters
	r.Use(middleware.RequestID)            // Generate/propagate request ID first
	r.Use(middleware.Tracing(serviceName)) // Distributed tracing
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware()) // HTTP metrics
	}
	r.Use(middleware.Logger(cfg.Logger))   // Structured logging
	r.Use(middleware.Recovery(cfg.Logger)) // Panic recovery
	r.Use(chimiddleware.RealIP)            // Real IP extraction
	r.Use(middleware.SecurityHeaders)      // Security headers (HSTS, CSP, etc.)
	r.Use(middleware.RequireTLS)           // TLS enforcement (enabled via REQUIRE_TLS=true)
	r.Use(middleware.ContentTypeJSON)      // JSON content type

	// Initialize handlers
	opsHandler := handler.NewOpsHandler(handler.OpsHandlerConfig{
		Version:    cfg.Version,
		BuildTime:  cfg.BuildTime,
		Providers:  cfg.Providers,
		ReadyCheck: cfg.ReadyCheck,
	})
	routeCache := handler.NewRouteCache()
	routeHandler := handler.NewRouteHandler(cfg.RoutingService, routeCache)
	navigationHandler := handler.NewNavigationHandler(cfg.TripHistoryService, routeCache, cfg.Logger)
	tripHandler := handler.NewTripHandler(cfg.TripHistoryService)
	conditionsHandler := handler.NewConditionsHandler(cfg.FloodZones, cfg.WeatherService)

	// Create auth middleware
	authMiddleware := middleware.Auth(cfg.AuthService)

	// Create rate limit middleware for different endpoint categories
	expensiveRateLimit := middleware.RateLimitByIP(middleware.ExpensiveRateLimit) // 30 req/min
	standardRateLimit := middleware.RateLimitByIP(middleware.StandardRateLimit)   // 100 req/min

	// API v1 routes
	r.Route("/v1", func(r chi.Router) {
		// Ops endpoints (public)
		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
			// Status endpoint requires authentication
			r.With(authMiddleware).Get("/status", opsHandler.SystemStatus)
		})

		// Conditions endpoints (public) - standard rate limiting
		r.With(standardRateLimit).Get("/flood-zones", conditionsHandler.ListFloodZones)
		r.With(standardRateLimit).Get("/weather:trip", conditionsHandler.TripWeather)

		// Routes endpoint - expensive compute, strict rate limiting
		r.With(authMiddleware, expensiveRateLimit).Post("/routes:compute", routeHandler.ComputeRoutes)

		// Navigation endpoints (authenticated) - user-based rate limiting
		r.Route("/navigation", func(r chi.Router) {
			r.Use(authMiddleware)
			r.Use(middleware.RateLimitByUser(middleware.StandardRateLimit)) // 100 req/min per user
			r.Get("/", navigationHandler.GetState)
			r.Post("/start", navigationHandler.Start)
			r.Post("/position", navigationHandler.Position)
			r.Post("/pause", navigationHandler.Pause)
			r.Post("/resume", navigationHandler.Resume)
			r.Post("/speed", navigationHandler.Speed)
			r.Post("/stop", navigationHandler.Stop)
		})

		// Trip history endpoints (authenticated) - user-based rate limiting
		r.Route("/trips", func(r chi.Router) {
			r.Use(authMiddleware)
			r.Use(middleware.RateLimitByUser(middleware.StandardRateLimit)) // 100 req/min per user
			r.Get("/", tripHandler.ListTrips)
			r.Delete("/", tripHandler.DeleteAllTrips)
			r.Route("/{tripId}", func(r chi.Router) {
				r.Get("/", tripHandler.GetTrip)
				r.Delete("/", tripHandler.DeleteTrip)
			})
		})
	})

	return r, navigationHandler
}
