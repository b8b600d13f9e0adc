// Package hazard scores route candidates against current weather and the
// flood-zone registry.
package hazard

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/lakbaysafe/lakbaysafe/internal/floodzone"
	"github.com/lakbaysafe/lakbaysafe/internal/routing"
	"github.com/lakbaysafe/lakbaysafe/internal/weather"
	"github.com/lakbaysafe/lakbaysafe/pkg/polyline"
)

// Score deductions and thresholds.
const (
	maxScore          = 100
	floodPenalty      = 30
	rainPenalty       = 15
	fogPenalty        = 10
	safeThreshold     = 70
	neutralScore      = 50
	highHumidityLevel = 85

	rainDurationFactor = 1.30
	fogDurationFactor  = 1.15
)

// defaultSampleCount is the number of polyline points tested against the
// flood-zone table, independent of polyline length.
const defaultSampleCount = 20

// ScorerConfig holds configuration for the scorer.
type ScorerConfig struct {
	// Zones is the flood-zone registry (required).
	Zones *floodzone.Registry

	// Logger for scoring operations.
	Logger zerolog.Logger

	// SampleCount overrides the number of polyline samples tested against
	// flood zones (default: 20).
	SampleCount int
}

// Scorer computes weather-safety scores for route candidates.
type Scorer struct {
	zones       *floodzone.Registry
	logger      zerolog.Logger
	sampleCount int
}

// NewScorer creates a new scorer.
func NewScorer(cfg ScorerConfig) *Scorer {
	sampleCount := cfg.SampleCount
	if sampleCount <= 0 {
		sampleCount = defaultSampleCount
	}

	return &Scorer{
		zones:       cfg.Zones,
		logger:      cfg.Logger,
		sampleCount: sampleCount,
	}
}

// Score returns a copy of the route with WeatherSafetyScore, WeatherHazards,
// WeatherSafe and WeatherAdjustedDurationMinutes attached. The input route's
// provider-supplied fields are never mutated.
//
// Scoring never fails a route: a nil conditions summary yields a full score
// (weather data is best-effort), and a panic during scoring degrades to a
// neutral score of 50 with the route marked safe. Never blocking trip
// planning on a scoring defect is a product decision, not an oversight.
func (s *Scorer) Score(route routing.Route, conditions *weather.TripConditions) (scored routing.Route) {
	scored = route

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().
				Str("route_id", route.ID).
				Interface("panic", r).
				Msg("route scoring failed, degrading to neutral score")

			scored = route
			scored.WeatherSafetyScore = neutralScore
			scored.WeatherHazards = nil
			scored.WeatherAdjustedDurationMinutes = route.DurationMinutes
			scored.WeatherSafe = true
		}
	}()

	if conditions == nil {
		scored.WeatherSafetyScore = maxScore
		scored.WeatherHazards = nil
		scored.WeatherAdjustedDurationMinutes = route.DurationMinutes
		scored.WeatherSafe = true
		return scored
	}

	score := maxScore
	var hazards []routing.Hazard

	if conditions.HasRain {
		floodHazards := s.floodHazards(route.Coordinates)
		if len(floodHazards) > 0 {
			hazards = append(hazards, floodHazards...)
			// A single deduction regardless of how many zones are hit.
			score -= floodPenalty
		}

		hazards = append(hazards, routing.Hazard{
			Type:     routing.HazardRain,
			Severity: routing.SeverityMedium,
			Message:  "Rain along the route. Expect reduced visibility and slower traffic.",
		})
		score -= rainPenalty
	}

	if conditions.HasFog {
		hazards = append(hazards, routing.Hazard{
			Type:     routing.HazardFog,
			Severity: routing.SeverityMedium,
			Message:  "Fog along the route. Keep headlights on and reduce speed.",
		})
		score -= fogPenalty
	}

	if conditions.Humidity > highHumidityLevel {
		hazards = append(hazards, routing.Hazard{
			Type:     routing.HazardHighHumidity,
			Severity: routing.SeverityLow,
			Message:  "Very humid conditions. Watch for sudden downpours.",
		})
	}

	if score < 0 {
		score = 0
	}
	if score > maxScore {
		score = maxScore
	}

	scored.WeatherSafetyScore = score
	scored.WeatherHazards = hazards
	scored.WeatherSafe = score >= safeThreshold

	// Rain wins over fog; the factors are not stacked.
	switch {
	case conditions.HasRain:
		scored.WeatherAdjustedDurationMinutes = route.DurationMinutes * rainDurationFactor
	case conditions.HasFog:
		scored.WeatherAdjustedDurationMinutes = route.DurationMinutes * fogDurationFactor
	default:
		scored.WeatherAdjustedDurationMinutes = route.DurationMinutes
	}

	return scored
}

// floodHazards samples the polyline at even index intervals and reports one
// hazard per distinct flood zone the samples fall into.
func (s *Scorer) floodHazards(coords []polyline.Coordinate) []routing.Hazard {
	samples := polyline.SampleIndices(coords, s.sampleCount)

	// Zone name -> sample points inside that zone, in first-hit order.
	hitOrder := make([]string, 0, 2)
	hits := make(map[string][]polyline.Coordinate)

	for _, p := range samples {
		for _, zone := range s.zones.ZonesNear(p, 0) {
			if _, seen := hits[zone.Name]; !seen {
				hitOrder = append(hitOrder, zone.Name)
			}
			hits[zone.Name] = append(hits[zone.Name], p)
		}
	}

	hazards := make([]routing.Hazard, 0, len(hitOrder))
	for _, name := range hitOrder {
		hazards = append(hazards, routing.Hazard{
			Type:      routing.HazardFloodRisk,
			Severity:  routing.SeverityHigh,
			Message:   fmt.Sprintf("Route passes through the %s flood-prone area while it is raining.", name),
			Locations: hits[name],
		})
	}

	return hazards
}
