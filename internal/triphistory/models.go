// Package triphistory stores completed trips.
package triphistory

import (
	"errors"
	"time"

	"github.com/lakbaysafe/lakbaysafe/pkg/polyline"
)

// Repository errors.
var (
	ErrTripNotFound = errors.New("trip not found")
)

// Trip is a persisted record of a completed navigation or simulation run.
type Trip struct {
	ID              string
	UserID          string
	RouteID         string
	Origin          polyline.Coordinate
	Destination     polyline.Coordinate
	DistanceKm      float64
	DurationMinutes float64
	Simulated       bool
	StartedAt       time.Time
	EndedAt         time.Time
	CreatedAt       time.Time
}
