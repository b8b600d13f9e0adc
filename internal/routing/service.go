package routing

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/lakbaysafe/lakbaysafe/internal/weather"
	"github.com/lakbaysafe/lakbaysafe/pkg/polyline"
)

// HazardScorer augments a route with a weather-safety score, hazards and a
// weather-adjusted duration. Implementations must never fail a route: on
// internal errors they degrade to a neutral score instead.
type HazardScorer interface {
	Score(route Route, conditions *weather.TripConditions) Route
}

// ConditionsProvider supplies the one shared weather summary used to score a
// whole batch of candidates.
type ConditionsProvider interface {
	GetTripConditions(ctx context.Context, origin, destination polyline.Coordinate) (*weather.TripConditions, error)
}

// ServiceConfig holds configuration for the routing service.
type ServiceConfig struct {
	// Provider is the routing data provider.
	Provider Provider

	// Scorer attaches weather-safety data to each candidate.
	Scorer HazardScorer

	// Conditions supplies per-trip weather summaries. Optional; when nil,
	// candidates are scored with no weather data (fail-open).
	Conditions ConditionsProvider

	// Logger for service operations.
	Logger zerolog.Logger

	// CacheTTL is how long to cache raw directions (default: 5 minutes).
	CacheTTL time.Duration

	// CacheGridSize is the size of cache grid cells in degrees (default: 0.01 ~ 1.1km).
	CacheGridSize float64

	// StaleIfErrorTTL allows serving stale directions on provider errors (default: 15 minutes).
	StaleIfErrorTTL time.Duration
}

// Service selects among scored route alternatives, caching raw directions.
type Service struct {
	provider        Provider
	scorer          HazardScorer
	conditions      ConditionsProvider
	logger          zerolog.Logger
	cacheTTL        time.Duration
	cacheGridSize   float64
	staleIfErrorTTL time.Duration

	mu          sync.RWMutex
	cache       map[string]*cachedDirections
	lastCleanup time.Time
}

type cachedDirections struct {
	response  *DirectionsResponse
	fetchedAt time.Time
	expiresAt time.Time
}

// NewService creates a new routing service.
func NewService(cfg ServiceConfig) *Service {
	cacheTTL := cfg.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = 5 * time.Minute
	}

	cacheGridSize := cfg.CacheGridSize
	if cacheGridSize == 0 {
		cacheGridSize = 0.01 // ~1.1km at city latitudes
	}

	staleIfErrorTTL := cfg.StaleIfErrorTTL
	if staleIfErrorTTL == 0 {
		staleIfErrorTTL = 15 * time.Minute
	}

	return &Service{
		provider:        cfg.Provider,
		scorer:          cfg.Scorer,
		conditions:      cfg.Conditions,
		logger:          cfg.Logger,
		cacheTTL:        cacheTTL,
		cacheGridSize:   cacheGridSize,
		staleIfErrorTTL: staleIfErrorTTL,
		cache:           make(map[string]*cachedDirections),
	}
}

// Selection is the result of ranking a batch of candidates.
type Selection struct {
	// Routes are the scored candidates, best first.
	Routes []Route

	// Recommended is the first ranked route.
	Recommended Route

	// Conditions is the weather summary all candidates were scored
	// against. Nil when weather was unavailable.
	Conditions *weather.TripConditions
}

// SelectRoutes fetches up to MaxAlternatives candidates, scores every valid
// one against a single shared weather summary, and returns them ranked by
// safety score (descending) with duration as the tie-break.
//
// Candidates with fewer than two coordinates are dropped before scoring; if
// none survive, ErrNoRouteFound is returned.
func (s *Service) SelectRoutes(ctx context.Context, req DirectionsRequest) (*Selection, error) {
	if err := validateCoordinates(req.Origin); err != nil {
		return nil, &Error{
			Provider: s.provider.Name(),
			Code:     "INVALID_ORIGIN",
			Message:  "invalid origin coordinates",
			Err:      ErrInvalidCoordinates,
		}
	}
	if err := validateCoordinates(req.Destination); err != nil {
		return nil, &Error{
			Provider: s.provider.Name(),
			Code:     "INVALID_DESTINATION",
			Message:  "invalid destination coordinates",
			Err:      ErrInvalidCoordinates,
		}
	}

	if req.MaxAlternatives <= 0 {
		req.MaxAlternatives = 3
	}
	if req.TravelMode == "" {
		req.TravelMode = ModeDriving
	}

	resp, err := s.getDirections(ctx, req)
	if err != nil {
		return nil, err
	}

	candidates := make([]Route, 0, len(resp.Routes))
	for _, r := range resp.Routes {
		if len(r.Coordinates) < 2 {
			s.logger.Debug().
				Str("route_id", r.ID).
				Int("coordinates", len(r.Coordinates)).
				Msg("dropping malformed route candidate")
			continue
		}
		candidates = append(candidates, r)
	}

	if len(candidates) == 0 {
		return nil, &Error{
			Provider: s.provider.Name(),
			Code:     "NO_VALID_ROUTE",
			Message:  "no valid route between the given points",
			Err:      ErrNoRouteFound,
		}
	}

	// One shared weather summary per batch so every candidate is scored
	// against the same conditions.
	var conditions *weather.TripConditions
	if s.conditions != nil {
		conditions, err = s.conditions.GetTripConditions(ctx, req.Origin, req.Destination)
		if err != nil {
			s.logger.Warn().Err(err).Msg("trip conditions unavailable, scoring without weather")
			conditions = nil
		}
	}

	scored := make([]Route, 0, len(candidates))
	for _, r := range candidates {
		scored = append(scored, s.scorer.Score(r, conditions))
	}

	// Deterministic ranking: safety descending, duration ascending.
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].WeatherSafetyScore != scored[j].WeatherSafetyScore {
			return scored[i].WeatherSafetyScore > scored[j].WeatherSafetyScore
		}
		return scored[i].DurationMinutes < scored[j].DurationMinutes
	})

	s.logger.Info().
		Int("candidates", len(scored)).
		Str("recommended_id", scored[0].ID).
		Int("recommended_score", scored[0].WeatherSafetyScore).
		Msg("route alternatives selected")

	return &Selection{
		Routes:      scored,
		Recommended: scored[0],
		Conditions:  conditions,
	}, nil
}

// getDirections returns raw candidates, from cache when fresh.
func (s *Service) getDirections(ctx context.Context, req DirectionsRequest) (*DirectionsResponse, error) {
	cacheKey := s.cacheKey(req)

	s.mu.RLock()
	if cached, ok := s.cache[cacheKey]; ok && time.Now().Before(cached.expiresAt) {
		s.mu.RUnlock()
		s.logger.Debug().
			Str("cache_key", cacheKey).
			Msg("cache hit for directions")
		return cached.response, nil
	}
	s.mu.RUnlock()

	return s.fetchDirections(ctx, req, cacheKey)
}

// fetchDirections fetches directions from the provider and updates the cache.
func (s *Service) fetchDirections(ctx context.Context, req DirectionsRequest, cacheKey string) (*DirectionsResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Double-check cache (prevents thundering herd)
	if cached, ok := s.cache[cacheKey]; ok && time.Now().Before(cached.expiresAt) {
		return cached.response, nil
	}

	s.logger.Debug().
		Float64("origin_lat", req.Origin.Lat).
		Float64("origin_lon", req.Origin.Lon).
		Float64("dest_lat", req.Destination.Lat).
		Float64("dest_lon", req.Destination.Lon).
		Str("travel_mode", string(req.TravelMode)).
		Str("provider", s.provider.Name()).
		Msg("fetching directions from provider")

	resp, err := s.provider.GetDirections(ctx, req)
	if err != nil {
		s.logger.Error().Err(err).
			Float64("origin_lat", req.Origin.Lat).
			Float64("origin_lon", req.Origin.Lon).
			Float64("dest_lat", req.Destination.Lat).
			Float64("dest_lon", req.Destination.Lon).
			Msg("failed to fetch directions")

		// Stale-if-error
		if cached, ok := s.cache[cacheKey]; ok {
			if time.Now().Before(cached.fetchedAt.Add(s.staleIfErrorTTL)) {
				s.logger.Warn().
					Time("fetched_at", cached.fetchedAt).
					Str("cache_key", cacheKey).
					Msg("serving stale directions due to provider error")
				return cached.response, nil
			}
		}

		return nil, err
	}

	now := time.Now()
	s.cache[cacheKey] = &cachedDirections{
		response:  resp,
		fetchedAt: now,
		expiresAt: now.Add(s.cacheTTL),
	}

	s.cleanupIfNeeded()

	return resp, nil
}

// cacheKey generates a cache key for a directions request.
// Uses grid-based quantization for both origin and destination.
func (s *Service) cacheKey(req DirectionsRequest) string {
	gridOriginLat := math.Floor(req.Origin.Lat/s.cacheGridSize) * s.cacheGridSize
	gridOriginLon := math.Floor(req.Origin.Lon/s.cacheGridSize) * s.cacheGridSize
	gridDestLat := math.Floor(req.Destination.Lat/s.cacheGridSize) * s.cacheGridSize
	gridDestLon := math.Floor(req.Destination.Lon/s.cacheGridSize) * s.cacheGridSize

	return fmt.Sprintf("%s:%t:%d:%.2f,%.2f:%.2f,%.2f",
		req.TravelMode, req.AvoidTolls, req.MaxAlternatives,
		gridOriginLat, gridOriginLon,
		gridDestLat, gridDestLon,
	)
}

// cleanupIfNeeded removes entries past the stale-if-error window.
func (s *Service) cleanupIfNeeded() {
	now := time.Now()
	if now.Sub(s.lastCleanup) < s.cacheTTL {
		return
	}

	s.lastCleanup = now
	expired := 0

	for key, cached := range s.cache {
		if now.After(cached.fetchedAt.Add(s.staleIfErrorTTL)) {
			delete(s.cache, key)
			expired++
		}
	}

	if expired > 0 {
		s.logger.Debug().
			Int("expired_entries", expired).
			Msg("cleaned up expired directions cache entries")
	}
}

// InvalidateCache clears all cached directions.
func (s *Service) InvalidateCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache = make(map[string]*cachedDirections)
}

// CacheStats returns cache statistics.
func (s *Service) CacheStats() CacheStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := time.Now()
	fresh := 0
	for _, c := range s.cache {
		if now.Before(c.expiresAt) {
			fresh++
		}
	}

	return CacheStats{
		TotalEntries: len(s.cache),
		FreshEntries: fresh,
		Provider:     s.provider.Name(),
	}
}

// CacheStats contains cache statistics.
type CacheStats struct {
	TotalEntries int
	FreshEntries int
	Provider     string
}

// validateCoordinates checks if coordinates are within valid ranges.
func validateCoordinates(c polyline.Coordinate) error {
	if c.Lat < -90 || c.Lat > 90 {
		return fmt.Errorf("latitude %f out of range [-90, 90]", c.Lat)
	}
	if c.Lon < -180 || c.Lon > 180 {
		return fmt.Errorf("longitude %f out of range [-180, 180]", c.Lon)
	}
	return nil
}
