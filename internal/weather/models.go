package weather

import (
	"errors"
	"strings"
	"time"
)

// Weather errors.
var (
	ErrProviderUnavailable = errors.New("weather provider unavailable")
	ErrInvalidCoordinates  = errors.New("invalid coordinates")
)

// Observation represents point weather at a specific location and time.
type Observation struct {
	// Location coordinates
	Lat float64
	Lon float64

	// Temperature in Celsius
	Temperature float64

	// Humidity percentage (0-100)
	Humidity float64

	// Condition is the provider's condition text, e.g. "light rain".
	Condition string

	// FetchedAt is when the observation was retrieved.
	FetchedAt time.Time
}

// rainTokens and fogTokens classify provider condition text.
var (
	rainTokens = []string{"rain", "storm", "drizzle"}
	fogTokens  = []string{"fog", "mist"}
)

// IsRainy reports whether the condition text describes rain.
func (o *Observation) IsRainy() bool {
	return containsAny(o.Condition, rainTokens)
}

// IsFoggy reports whether the condition text describes fog.
func (o *Observation) IsFoggy() bool {
	return containsAny(o.Condition, fogTokens)
}

func containsAny(text string, tokens []string) bool {
	lower := strings.ToLower(text)
	for _, tok := range tokens {
		if strings.Contains(lower, tok) {
			return true
		}
	}
	return false
}

// TripConditions summarizes weather along a prospective trip, aggregated
// from point samples at the origin, midpoint and destination.
type TripConditions struct {
	// Condition is the summary label. "Rain" wins over "Fog", which wins
	// over the first available sample's raw condition text.
	Condition string

	// Temperature and Humidity are arithmetic means over the samples that
	// were available.
	Temperature float64
	Humidity    float64

	// HasRain is true if any sample's condition describes rain.
	HasRain bool

	// HasFog is true if any sample's condition describes fog.
	HasFog bool
}
