package models

// NavigationStartRequest starts GPS navigation or a simulation on a computed
// route.
type NavigationStartRequest struct {
	RouteID string `json:"routeId" validate:"required"`

	// Mode is "gps" or "simulated".
	Mode string `json:"mode" validate:"required,oneof=gps simulated"`

	// SpeedMultiplier applies to simulated mode only (1, 2, 5 or 10).
	SpeedMultiplier *float64 `json:"speedMultiplier,omitempty"`
}

// NavigationPositionRequest reports a live position fix.
type NavigationPositionRequest struct {
	Lat            float64  `json:"lat" validate:"required,gte=-90,lte=90"`
	Lon            float64  `json:"lon" validate:"required,gte=-180,lte=180"`
	AccuracyMeters float64  `json:"accuracyMeters,omitempty"`
	HeadingDegrees *float64 `json:"headingDegrees,omitempty"`
}

// NavigationSpeedRequest changes the simulation playback speed.
type NavigationSpeedRequest struct {
	SpeedMultiplier float64 `json:"speedMultiplier" validate:"required"`
}

// NavigationState is the current trip view model.
type NavigationState struct {
	Mode                     string     `json:"mode"`
	RouteID                  string     `json:"routeId,omitempty"`
	CurrentStepIndex         int        `json:"currentStepIndex"`
	CurrentStep              *Step      `json:"currentStep,omitempty"`
	LastKnownPosition        *Point     `json:"lastKnownPosition,omitempty"`
	DistanceToNextTurnMeters float64    `json:"distanceToNextTurnMeters"`
	ProgressPercent          float64    `json:"progressPercent"`
	SimulationSpeed          *float64   `json:"simulationSpeed,omitempty"`
	SimulationPaused         *bool      `json:"simulationPaused,omitempty"`
	StartedAt                *Timestamp `json:"startedAt,omitempty"`
}
