// Package navigation tracks progress along an active route, fed by either
// live position updates or a deterministic trip simulator. A single Tracker
// owns all trip state; position sources never mutate it directly.
package navigation

import (
	"context"
	"errors"
	"time"

	"github.com/lakbaysafe/lakbaysafe/internal/routing"
	"github.com/lakbaysafe/lakbaysafe/pkg/polyline"
)

// Common navigation errors.
var (
	// ErrInvalidMode is returned when starting navigation with a mode other
	// than gps or simulated.
	ErrInvalidMode = errors.New("invalid navigation mode")

	// ErrInvalidRoute is returned when the route has fewer than two coordinates.
	ErrInvalidRoute = errors.New("route has too few coordinates")

	// ErrGPSUnavailable is returned when no position fix arrives within the
	// first-fix timeout. Callers are expected to offer simulated mode as a
	// fallback rather than silently switching.
	ErrGPSUnavailable = errors.New("gps unavailable")

	// ErrInvalidSpeed is returned for speed multipliers outside the supported set.
	ErrInvalidSpeed = errors.New("invalid speed multiplier")

	// ErrSimulationNotRunning is returned by simulator controls when no
	// simulation is active.
	ErrSimulationNotRunning = errors.New("simulation not running")

	// ErrTrackerClosed is returned once the tracker's event loop has shut down.
	ErrTrackerClosed = errors.New("tracker closed")
)

// Mode identifies the active position source.
type Mode string

const (
	// ModeIdle means no trip is in progress.
	ModeIdle Mode = "idle"

	// ModeGPS means progress is driven by live position updates.
	ModeGPS Mode = "gps"

	// ModeSimulated means progress is driven by the trip simulator.
	ModeSimulated Mode = "simulated"
)

// PositionUpdate is a single fix from a position source. Simulated fixes use
// the same shape so the tracker never branches on where a fix came from.
type PositionUpdate struct {
	Lat            float64
	Lon            float64
	AccuracyMeters float64
	HeadingDegrees *float64
	Timestamp      time.Time
}

// Coordinate returns the fix as a polyline coordinate.
func (p PositionUpdate) Coordinate() polyline.Coordinate {
	return polyline.Coordinate{Lat: p.Lat, Lon: p.Lon}
}

// PositionSource provides a stream of live position fixes. Watch blocks only
// to register; fixes arrive on the returned channel until ctx is canceled.
type PositionSource interface {
	Watch(ctx context.Context) (<-chan PositionUpdate, error)
	Name() string
}

// ProgressUpdate is the view model emitted on every accepted position event.
type ProgressUpdate struct {
	Mode                     Mode
	RouteID                  string
	StepIndex                int
	Step                     *routing.Step
	DistanceToNextTurnMeters float64
	ProgressPercent          float64
	Position                 polyline.Coordinate
	Completed                bool
	Timestamp                time.Time
}

// Snapshot is a point-in-time copy of the tracker's state.
type Snapshot struct {
	Mode                     Mode
	RouteID                  string
	CurrentStepIndex         int
	LastKnownPosition        polyline.Coordinate
	SimulationIndex          int
	ProgressPercent          float64
	DistanceToNextTurnMeters float64
	StartedAt                time.Time
}

// TripRecord is emitted once when a trip completes.
type TripRecord struct {
	ID              string
	RouteID         string
	Origin          polyline.Coordinate
	Destination     polyline.Coordinate
	DistanceKm      float64
	DurationMinutes float64
	StartTime       time.Time
	EndTime         time.Time
}

// RecordSink persists completed trips. Persistence is best-effort: a sink
// error never affects the completed state of the trip.
type RecordSink interface {
	RecordTrip(ctx context.Context, record TripRecord) error
}
