package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/lakbaysafe/lakbaysafe/internal/api/models"
	"github.com/lakbaysafe/lakbaysafe/internal/api/response"
	"github.com/lakbaysafe/lakbaysafe/internal/routing"
	"github.com/lakbaysafe/lakbaysafe/internal/weather"
	"github.com/lakbaysafe/lakbaysafe/pkg/polyline"
)

// routeCacheSize bounds how many recently computed routes are kept for
// navigation starts.
const routeCacheSize = 256

// RouteCache holds recently computed routes so a navigation session can be
// started from a route ID without refetching.
type RouteCache struct {
	mu     sync.Mutex
	routes map[string]routing.Route
	order  []string
}

// NewRouteCache creates an empty route cache.
func NewRouteCache() *RouteCache {
	return &RouteCache{routes: make(map[string]routing.Route)}
}

// Put stores a route, evicting the oldest entry when full.
func (c *RouteCache) Put(route routing.Route) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.routes[route.ID]; !ok {
		c.order = append(c.order, route.ID)
		if len(c.order) > routeCacheSize {
			delete(c.routes, c.order[0])
			c.order = c.order[1:]
		}
	}
	c.routes[route.ID] = route
}

// Get returns a route by ID.
func (c *RouteCache) Get(id string) (routing.Route, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	route, ok := c.routes[id]
	return route, ok
}

// RouteHandler handles route computation endpoints.
type RouteHandler struct {
	selector *routing.Service
	cache    *RouteCache
}

// NewRouteHandler creates a new RouteHandler.
func NewRouteHandler(selector *routing.Service, cache *RouteCache) *RouteHandler {
	return &RouteHandler{selector: selector, cache: cache}
}

// ComputeRoutes handles POST /v1/routes:compute - fetch, score and rank
// route alternatives.
func (h *RouteHandler) ComputeRoutes(w http.ResponseWriter, r *http.Request) {
	var input models.RouteComputeRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	if input.Origin == nil || input.Destination == nil {
		response.BadRequest(w, r, "origin and destination are required", []models.FieldError{
			{Field: "origin", Message: "is required"},
			{Field: "destination", Message: "is required"},
		})
		return
	}

	req := routing.DirectionsRequest{
		Origin:      polyline.Coordinate{Lat: input.Origin.Lat, Lon: input.Origin.Lon},
		Destination: polyline.Coordinate{Lat: input.Destination.Lat, Lon: input.Destination.Lon},
		AvoidTolls:  input.AvoidTolls,
	}
	if input.TravelMode != nil {
		req.TravelMode = toTravelMode(*input.TravelMode)
	}
	if input.MaxAlternatives != nil {
		req.MaxAlternatives = *input.MaxAlternatives
	}

	selection, err := h.selector.SelectRoutes(r.Context(), req)
	if err != nil {
		writeRoutingError(w, r, err)
		return
	}

	routes := make([]models.Route, 0, len(selection.Routes))
	for _, route := range selection.Routes {
		h.cache.Put(route)
		routes = append(routes, toAPIRoute(route))
	}

	resp := models.RouteComputeResponse{
		GeneratedAt: models.Timestamp(time.Now()),
		Routes:      routes,
		Recommended: selection.Recommended.ID,
		Conditions:  toAPIConditions(selection.Conditions),
	}

	w.Header().Set("Cache-Control", "private, max-age=60")
	response.JSON(w, r, http.StatusOK, resp)
}

// writeRoutingError maps provider errors onto problem responses.
func writeRoutingError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, routing.ErrInvalidCoordinates):
		response.BadRequest(w, r, "coordinates out of range", nil)
	case errors.Is(err, routing.ErrNoRouteFound):
		response.NotFound(w, r, "no route found between the given points")
	case errors.Is(err, routing.ErrRateLimitExceeded):
		response.TooManyRequests(w, r, "routing provider rate limit exceeded")
	case errors.Is(err, routing.ErrProviderUnavailable):
		response.ServiceUnavailable(w, r, "routing provider unavailable")
	default:
		response.InternalError(w, r, "failed to compute routes")
	}
}

func toTravelMode(mode models.TravelMode) routing.TravelMode {
	switch mode {
	case models.TravelModeWalking:
		return routing.ModeWalking
	case models.TravelModeCycling:
		return routing.ModeCycling
	default:
		return routing.ModeDriving
	}
}

func toAPIRoute(route routing.Route) models.Route {
	steps := make([]models.Step, 0, len(route.Steps))
	for _, s := range route.Steps {
		steps = append(steps, toAPIStep(s))
	}

	hazards := make([]models.Hazard, 0, len(route.WeatherHazards))
	for _, hz := range route.WeatherHazards {
		locations := make([]models.Point, 0, len(hz.Locations))
		for _, p := range hz.Locations {
			locations = append(locations, models.Point{Lat: p.Lat, Lon: p.Lon})
		}
		hazards = append(hazards, models.Hazard{
			Type:      string(hz.Type),
			Severity:  string(hz.Severity),
			Message:   hz.Message,
			Locations: locations,
		})
	}

	var bounds models.GeoBox
	if route.Bounds != nil {
		bounds = models.GeoBox{
			MinLat: route.Bounds.Southwest.Lat,
			MinLon: route.Bounds.Southwest.Lon,
			MaxLat: route.Bounds.Northeast.Lat,
			MaxLon: route.Bounds.Northeast.Lon,
		}
	}

	return models.Route{
		ID:                      route.ID,
		GeometryPolyline:        polyline.Encode(route.Coordinates),
		Steps:                   steps,
		DistanceKm:              route.DistanceKm,
		DurationMinutes:         route.DurationMinutes,
		AdjustedDurationMinutes: route.WeatherAdjustedDurationMinutes,
		Bounds:                  bounds,
		SafetyScore:             route.WeatherSafetyScore,
		Safe:                    route.WeatherSafe,
		Hazards:                 hazards,
	}
}

func toAPIStep(s routing.Step) models.Step {
	return models.Step{
		Instruction:       s.Instruction,
		StreetName:        s.StreetName,
		DistanceMeters:    s.DistanceMeters,
		TravelTimeSeconds: s.TravelTimeSeconds,
		Maneuver:          string(s.Maneuver),
	}
}

func toAPIConditions(c *weather.TripConditions) *models.TripConditions {
	if c == nil {
		return nil
	}
	return &models.TripConditions{
		Condition:   c.Condition,
		Temperature: c.Temperature,
		Humidity:    c.Humidity,
		HasRain:     c.HasRain,
		HasFog:      c.HasFog,
	}
}
