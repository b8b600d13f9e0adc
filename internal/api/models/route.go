package models

// RouteComputeRequest is the request body for computing route alternatives.
type RouteComputeRequest struct {
	Origin          *Point      `json:"origin"`
	Destination     *Point      `json:"destination"`
	TravelMode      *TravelMode `json:"travelMode,omitempty"`
	AvoidTolls      bool        `json:"avoidTolls,omitempty"`
	MaxAlternatives *int        `json:"maxAlternatives,omitempty" validate:"omitempty,gte=1,lte=5"`
}

// RouteComputeResponse is the response for route computation.
type RouteComputeResponse struct {
	GeneratedAt Timestamp       `json:"generatedAt"`
	Routes      []Route         `json:"routes"`
	Recommended string          `json:"recommendedRouteId"`
	Conditions  *TripConditions `json:"conditions,omitempty"`
}

// Route represents a single scored route alternative.
type Route struct {
	ID                      string   `json:"id"`
	GeometryPolyline        string   `json:"geometryPolyline"`
	Steps                   []Step   `json:"steps"`
	DistanceKm              float64  `json:"distanceKm"`
	DurationMinutes         float64  `json:"durationMinutes"`
	AdjustedDurationMinutes float64  `json:"adjustedDurationMinutes"`
	Bounds                  GeoBox   `json:"bounds"`
	SafetyScore             int      `json:"safetyScore"`
	Safe                    bool     `json:"safe"`
	Hazards                 []Hazard `json:"hazards"`
}

// Step is a turn-by-turn instruction.
type Step struct {
	Instruction       string  `json:"instruction"`
	StreetName        string  `json:"streetName,omitempty"`
	DistanceMeters    float64 `json:"distanceMeters"`
	TravelTimeSeconds float64 `json:"travelTimeSeconds"`
	Maneuver          string  `json:"maneuver"`
}

// Hazard is a weather or flood hazard attached to a route.
type Hazard struct {
	Type      string  `json:"type"`
	Severity  string  `json:"severity"`
	Message   string  `json:"message"`
	Locations []Point `json:"locations,omitempty"`
}

// TripConditions is the weather summary a batch of routes was scored against.
type TripConditions struct {
	Condition   string  `json:"condition"`
	Temperature float64 `json:"temperatureCelsius"`
	Humidity    float64 `json:"humidityPercent"`
	HasRain     bool    `json:"hasRain"`
	HasFog      bool    `json:"hasFog"`
}
