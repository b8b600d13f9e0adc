// Package main provides the entrypoint for the LakbaySafe API server.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/lakbaysafe/lakbaysafe/internal/api"
	"github.com/lakbaysafe/lakbaysafe/internal/api/middleware"
	"github.com/lakbaysafe/lakbaysafe/internal/auth"
	"github.com/lakbaysafe/lakbaysafe/internal/database"
	"github.com/lakbaysafe/lakbaysafe/internal/floodzone"
	"github.com/lakbaysafe/lakbaysafe/internal/hazard"
	"github.com/lakbaysafe/lakbaysafe/internal/provider/resilience"
	"github.com/lakbaysafe/lakbaysafe/internal/routing"
	"github.com/lakbaysafe/lakbaysafe/internal/routing/osrm"
	"github.com/lakbaysafe/lakbaysafe/internal/telemetry"
	"github.com/lakbaysafe/lakbaysafe/internal/triphistory"
	"github.com/lakbaysafe/lakbaysafe/internal/weather"
	"github.com/lakbaysafe/lakbaysafe/internal/weather/openweathermap"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "lakbaysafe-api"

	// Setup structured logging
	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting LakbaySafe API")

	// Get configuration from environment
	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	otlpEndpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if otlpEndpoint == "" {
		otlpEndpoint = "localhost:4317"
	}

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}

	// Initialize OpenTelemetry
	ctx := context.Background()
	telemetryEnabled := os.Getenv("OTEL_ENABLED") == "true"

	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    env,
		OTLPEndpoint:   otlpEndpoint,
		Enabled:        telemetryEnabled,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	if telemetryEnabled {
		log.Info().
			Str("otlp_endpoint", otlpEndpoint).
			Msg("OpenTelemetry initialized")
	}

	// Initialize metrics
	metrics, err := middleware.NewMetrics()
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize metrics")
		os.Exit(1) //nolint:gocritic // intentional exit, telemetry cleanup is best-effort
	}

	// Connect to database
	dbConfig := database.ConfigFromEnv()
	pool, err := database.Connect(ctx, dbConfig)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	log.Info().
		Str("host", dbConfig.Host).
		Int("port", dbConfig.Port).
		Str("database", dbConfig.Database).
		Msg("database connected")

	// Initialize JWT service (get signing key from environment)
	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		jwtSigningKey = "local-dev-signing-key-change-in-production"
		log.Warn().Msg("using default JWT signing key - not secure for production")
	}

	jwtService := auth.NewJWTService(auth.JWTConfig{
		SigningKey: jwtSigningKey,
		Issuer:     "https://api.lakbaysafe.ph",
		Audience:   "lakbaysafe-api",
	})
	authService := auth.NewService(jwtService)
	log.Info().Msg("auth service initialized")

	// Provider health registry shared by all external clients
	registry := resilience.NewRegistry()

	// Initialize weather provider and service
	owmAPIKey := os.Getenv("OPENWEATHERMAP_API_KEY")
	if owmAPIKey == "" {
		log.Warn().Msg("OPENWEATHERMAP_API_KEY not set - weather requests will fail")
	}

	owmClientCfg := resilience.DefaultClientConfig(openweathermap.ProviderName)
	owmClientCfg.Registry = registry
	owmClient := openweathermap.NewClient(openweathermap.ClientConfig{
		APIKey:     owmAPIKey,
		HTTPClient: resilience.NewClient(owmClientCfg),
		Logger:     log,
	})
	weatherService := weather.NewService(weather.ServiceConfig{
		Provider: owmClient,
		Logger:   log,
	})
	log.Info().Msg("weather service initialized")

	// Initialize flood zones and hazard scorer
	floodZones := floodzone.NewRegistry()
	scorer := hazard.NewScorer(hazard.ScorerConfig{
		Zones:  floodZones,
		Logger: log,
	})

	// Initialize routing provider and service
	osrmClient := osrm.NewClient(osrm.ClientConfig{
		BaseURL:  os.Getenv("OSRM_BASE_URL"),
		Registry: registry,
		Logger:   log,
	})
	routingService := routing.NewService(routing.ServiceConfig{
		Provider:   osrmClient,
		Scorer:     scorer,
		Conditions: weatherService,
		Logger:     log,
	})
	log.Info().Msg("routing service initialized")

	// Initialize trip history
	tripRepo := triphistory.NewPostgresRepository(pool)
	tripService := triphistory.NewService(tripRepo, log)
	log.Info().Msg("trip history service initialized")

	// Create router with configuration
	router, navHandler := api.NewRouter(api.RouterConfig{
		Version:            Version,
		BuildTime:          BuildTime,
		Logger:             log,
		ServiceName:        serviceName,
		Metrics:            metrics,
		AuthService:        authService,
		RoutingService:     routingService,
		WeatherService:     weatherService,
		FloodZones:         floodZones,
		TripHistoryService: tripService,
		Providers:          registry,
		ReadyCheck:         pool.Ping,
	})
	defer navHandler.Close()

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Str("addr", server.Addr).
			Msg("server listening")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		os.Exit(1)
	}

	log.Info().Msg("server stopped")
}
