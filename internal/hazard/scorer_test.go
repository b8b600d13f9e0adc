package hazard_test

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lakbaysafe/lakbaysafe/internal/floodzone"
	"github.com/lakbaysafe/lakbaysafe/internal/hazard"
	"github.com/lakbaysafe/lakbaysafe/internal/routing"
	"github.com/lakbaysafe/lakbaysafe/internal/weather"
	"github.com/lakbaysafe/lakbaysafe/pkg/polyline"
)

// testRoute builds a straight polyline through the given points with a
// 30-minute base duration.
func testRoute(coords ...polyline.Coordinate) routing.Route {
	return routing.Route{
		ID:              "rt_test",
		Coordinates:     coords,
		DistanceKm:      5.0,
		DurationMinutes: 30.0,
	}
}

// caaRoadRoute runs straight through the CAA Road flood zone.
func caaRoadRoute() routing.Route {
	return testRoute(
		polyline.Coordinate{Lat: 14.4504, Lon: 121.0170},
		polyline.Coordinate{Lat: 14.4460, Lon: 121.0200},
		polyline.Coordinate{Lat: 14.4420, Lon: 121.0230},
		polyline.Coordinate{Lat: 14.4380, Lon: 121.0250},
	)
}

// openWaterRoute stays far away from every flood zone.
func openWaterRoute() routing.Route {
	return testRoute(
		polyline.Coordinate{Lat: 14.60, Lon: 120.80},
		polyline.Coordinate{Lat: 14.61, Lon: 120.81},
	)
}

func newScorer(t *testing.T) *hazard.Scorer {
	t.Helper()
	return hazard.NewScorer(hazard.ScorerConfig{
		Zones:  floodzone.NewRegistry(),
		Logger: zerolog.Nop(),
	})
}

func TestScorer_NilConditions_FullScore(t *testing.T) {
	scorer := newScorer(t)

	scored := scorer.Score(caaRoadRoute(), nil)

	assert.Equal(t, 100, scored.WeatherSafetyScore)
	assert.Empty(t, scored.WeatherHazards)
	assert.True(t, scored.WeatherSafe)
	assert.Equal(t, 30.0, scored.WeatherAdjustedDurationMinutes)
}

func TestScorer_RainThroughFloodZone(t *testing.T) {
	scorer := newScorer(t)
	conditions := &weather.TripConditions{Condition: "Rain", HasRain: true}

	scored := scorer.Score(caaRoadRoute(), conditions)

	// 100 - 30 (flood) - 15 (rain) = 55
	assert.Equal(t, 55, scored.WeatherSafetyScore)
	assert.False(t, scored.WeatherSafe)
	assert.InDelta(t, 30.0*1.30, scored.WeatherAdjustedDurationMinutes, 0.0001)

	var floodHazards []routing.Hazard
	for _, h := range scored.WeatherHazards {
		if h.Type == routing.HazardFloodRisk {
			floodHazards = append(floodHazards, h)
		}
	}
	require.NotEmpty(t, floodHazards)
	assert.NotEmpty(t, floodHazards[0].Locations)
}

func TestScorer_FloodZoneDeduplicated(t *testing.T) {
	// Every sample point sits inside the same single zone.
	zones := floodzone.NewRegistryWithZones([]floodzone.Zone{
		{Name: "Test Basin", Center: polyline.Coordinate{Lat: 14.45, Lon: 121.01}, RadiusKm: 5},
	})
	scorer := hazard.NewScorer(hazard.ScorerConfig{Zones: zones, Logger: zerolog.Nop()})

	route := testRoute(
		polyline.Coordinate{Lat: 14.449, Lon: 121.009},
		polyline.Coordinate{Lat: 14.450, Lon: 121.010},
		polyline.Coordinate{Lat: 14.451, Lon: 121.011},
		polyline.Coordinate{Lat: 14.452, Lon: 121.012},
		polyline.Coordinate{Lat: 14.453, Lon: 121.013},
	)

	scored := scorer.Score(route, &weather.TripConditions{HasRain: true})

	floodCount := 0
	for _, h := range scored.WeatherHazards {
		if h.Type == routing.HazardFloodRisk {
			floodCount++
		}
	}
	assert.Equal(t, 1, floodCount, "same zone hit by many samples must be reported once")
	// Single 30-point deduction plus rain: 100 - 30 - 15
	assert.Equal(t, 55, scored.WeatherSafetyScore)
}

func TestScorer_RainWithoutFloodZone(t *testing.T) {
	scorer := newScorer(t)

	scored := scorer.Score(openWaterRoute(), &weather.TripConditions{HasRain: true})

	assert.Equal(t, 85, scored.WeatherSafetyScore)
	assert.True(t, scored.WeatherSafe)
	require.Len(t, scored.WeatherHazards, 1)
	assert.Equal(t, routing.HazardRain, scored.WeatherHazards[0].Type)
	assert.Equal(t, routing.SeverityMedium, scored.WeatherHazards[0].Severity)
}

func TestScorer_FogOnly(t *testing.T) {
	scorer := newScorer(t)

	scored := scorer.Score(openWaterRoute(), &weather.TripConditions{HasFog: true})

	assert.Equal(t, 90, scored.WeatherSafetyScore)
	assert.InDelta(t, 30.0*1.15, scored.WeatherAdjustedDurationMinutes, 0.0001)
	require.Len(t, scored.WeatherHazards, 1)
	assert.Equal(t, routing.HazardFog, scored.WeatherHazards[0].Type)
}

func TestScorer_RainAndFog_RainFactorWins(t *testing.T) {
	scorer := newScorer(t)

	scored := scorer.Score(openWaterRoute(), &weather.TripConditions{HasRain: true, HasFog: true})

	// Both deductions apply but only the rain duration factor does.
	assert.Equal(t, 75, scored.WeatherSafetyScore)
	assert.InDelta(t, 30.0*1.30, scored.WeatherAdjustedDurationMinutes, 0.0001)
}

func TestScorer_HighHumidityHazardNoDeduction(t *testing.T) {
	scorer := newScorer(t)

	scored := scorer.Score(openWaterRoute(), &weather.TripConditions{Humidity: 92})

	assert.Equal(t, 100, scored.WeatherSafetyScore)
	require.Len(t, scored.WeatherHazards, 1)
	assert.Equal(t, routing.HazardHighHumidity, scored.WeatherHazards[0].Type)
	assert.Equal(t, routing.SeverityLow, scored.WeatherHazards[0].Severity)
}

func TestScorer_Deterministic(t *testing.T) {
	scorer := newScorer(t)
	conditions := &weather.TripConditions{Condition: "Rain", HasRain: true, HasFog: true, Humidity: 88}
	route := caaRoadRoute()

	first := scorer.Score(route, conditions)
	second := scorer.Score(route, conditions)

	assert.Equal(t, first.WeatherSafetyScore, second.WeatherSafetyScore)
	assert.Equal(t, first.WeatherAdjustedDurationMinutes, second.WeatherAdjustedDurationMinutes)
	assert.Equal(t, len(first.WeatherHazards), len(second.WeatherHazards))
}

func TestScorer_PanicDegradesToNeutralScore(t *testing.T) {
	// A nil registry makes the flood check panic; scoring must degrade
	// instead of failing the route.
	scorer := hazard.NewScorer(hazard.ScorerConfig{Zones: nil, Logger: zerolog.Nop()})

	scored := scorer.Score(caaRoadRoute(), &weather.TripConditions{HasRain: true})

	assert.Equal(t, 50, scored.WeatherSafetyScore)
	assert.Empty(t, scored.WeatherHazards)
	assert.True(t, scored.WeatherSafe)
	assert.Equal(t, 30.0, scored.WeatherAdjustedDurationMinutes)
}

func TestScorer_DoesNotMutateInput(t *testing.T) {
	scorer := newScorer(t)
	route := caaRoadRoute()

	_ = scorer.Score(route, &weather.TripConditions{HasRain: true})

	assert.Equal(t, 0, route.WeatherSafetyScore)
	assert.Nil(t, route.WeatherHazards)
	assert.Equal(t, 30.0, route.DurationMinutes)
}
