// Package routing provides candidate route retrieval, weather-aware scoring
// and ranked alternative selection.
package routing

import (
	"context"
	"errors"
	"time"

	"github.com/lakbaysafe/lakbaysafe/pkg/polyline"
)

// Sentinel errors for routing operations.
var (
	// ErrProviderUnavailable indicates the routing provider is down or the circuit breaker is open.
	ErrProviderUnavailable = errors.New("routing provider unavailable")
	// ErrNoRouteFound indicates no valid route exists between the given points.
	ErrNoRouteFound = errors.New("no route found between the given points")
	// ErrRateLimitExceeded indicates the API quota has been exceeded.
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
	// ErrInvalidCoordinates indicates the provided coordinates are invalid or out of range.
	ErrInvalidCoordinates = errors.New("invalid coordinates")
)

// Provider defines the interface for routing providers.
type Provider interface {
	// GetDirections retrieves route candidates between two points.
	// Returns multiple alternatives when available.
	GetDirections(ctx context.Context, req DirectionsRequest) (*DirectionsResponse, error)
	// Name returns the provider identifier for logging and metrics.
	Name() string
}

// TravelMode represents a mode of transport.
type TravelMode string

const (
	// ModeDriving is car routing.
	ModeDriving TravelMode = "driving"
	// ModeWalking is pedestrian routing.
	ModeWalking TravelMode = "walking"
	// ModeCycling is bike routing.
	ModeCycling TravelMode = "cycling"
)

// DirectionsRequest is the request for computing route candidates.
type DirectionsRequest struct {
	Origin          polyline.Coordinate
	Destination     polyline.Coordinate
	TravelMode      TravelMode
	AvoidTolls      bool
	MaxAlternatives int // Maximum number of candidates to return (default: 3)
}

// DirectionsResponse is the response containing route candidates.
type DirectionsResponse struct {
	Routes    []Route
	Provider  string
	FetchedAt time.Time
}

// ManeuverType classifies a turn instruction.
type ManeuverType string

const (
	ManeuverDepart     ManeuverType = "depart"
	ManeuverTurn       ManeuverType = "turn"
	ManeuverMerge      ManeuverType = "merge"
	ManeuverRoundabout ManeuverType = "roundabout"
	ManeuverContinue   ManeuverType = "continue"
	ManeuverArrive     ManeuverType = "arrive"
)

// Step is one turn-by-turn instruction of a route.
type Step struct {
	Instruction       string
	StreetName        string
	DistanceMeters    float64
	TravelTimeSeconds float64
	Maneuver          ManeuverType
}

// BoundingBox represents a geographic bounding box.
type BoundingBox struct {
	Southwest polyline.Coordinate
	Northeast polyline.Coordinate
}

// Route represents a single route candidate. Coordinates and the fields
// supplied by the provider are immutable once received; the Weather* fields
// are attached once by hazard scoring.
type Route struct {
	// ID is opaque and unique within one response batch.
	ID string

	// Coordinates is the route polyline in travel order.
	Coordinates []polyline.Coordinate

	// Steps are the turn-by-turn instructions.
	Steps []Step

	DistanceKm      float64
	DurationMinutes float64
	Bounds          *BoundingBox

	// Derived by hazard scoring.
	WeatherSafetyScore             int
	WeatherSafe                    bool
	WeatherHazards                 []Hazard
	WeatherAdjustedDurationMinutes float64
}

// HazardType classifies a weather-derived route hazard.
type HazardType string

const (
	HazardFloodRisk    HazardType = "flood_risk"
	HazardRain         HazardType = "rain"
	HazardFog          HazardType = "fog"
	HazardHighHumidity HazardType = "high_humidity"
)

// Severity grades a hazard.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Hazard is a descriptive risk annotation attached to a route by scoring.
// Hazards are created fresh on each scoring pass and never mutated.
type Hazard struct {
	Type      HazardType
	Severity  Severity
	Message   string
	Locations []polyline.Coordinate
}

// Error provides detailed error information from the routing provider.
type Error struct {
	Provider string // Provider that generated the error
	Code     string // Error code from the provider
	Message  string // Human-readable error message
	Err      error  // Underlying error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsRetryable returns true if the error is transient and the request can be retried.
func (e *Error) IsRetryable() bool {
	return errors.Is(e.Err, ErrProviderUnavailable) || errors.Is(e.Err, ErrRateLimitExceeded)
}
