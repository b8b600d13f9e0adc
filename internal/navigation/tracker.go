package navigation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/lakbaysafe/lakbaysafe/internal/routing"
	"github.com/lakbaysafe/lakbaysafe/pkg/polyline"
)

// TrackerConfig holds configuration for the progress tracker.
type TrackerConfig struct {
	// Source provides live position fixes. Optional; when nil, StartGPS
	// always returns ErrGPSUnavailable.
	Source PositionSource

	// Sink receives completed-trip records. Optional.
	Sink RecordSink

	// Logger for tracker operations.
	Logger zerolog.Logger

	// FirstFixTimeout bounds how long StartGPS waits for the first position
	// fix before giving up (default: 10 seconds).
	FirstFixTimeout time.Duration

	// SubscriberBuffer is the per-subscriber channel capacity (default: 16).
	// Slow subscribers miss updates rather than blocking the tracker.
	SubscriberBuffer int
}

// Tracker is the single owner of an in-progress trip's state. All mutation
// happens on the tracker's event loop goroutine; position sources, the
// simulator and callers only enqueue events, so a mode switch can never race
// a stale position source into the state.
type Tracker struct {
	source          PositionSource
	sink            RecordSink
	logger          zerolog.Logger
	firstFixTimeout time.Duration
	subBuffer       int

	events chan func()
	closed chan struct{}

	// Everything below is owned by the event loop goroutine.
	state  tripState
	subs   map[int]chan ProgressUpdate
	nextID int
}

// tripState is the mutable record of the current trip. Zero value is idle.
type tripState struct {
	mode        Mode
	route       routing.Route
	cumDistance []float64 // cumulative meters at each route coordinate
	stepEnds    []float64 // cumulative meters at the end of each step
	totalMeters float64

	stepIndex   int
	simIndex    int // -1 until the first simulation tick
	position    polyline.Coordinate
	progressPct float64
	toNextTurn  float64
	startedAt   time.Time
	cancelWatch context.CancelFunc
}

// NewTracker creates a tracker and starts its event loop. Call Close to stop it.
func NewTracker(cfg TrackerConfig) *Tracker {
	firstFixTimeout := cfg.FirstFixTimeout
	if firstFixTimeout == 0 {
		firstFixTimeout = 10 * time.Second
	}

	subBuffer := cfg.SubscriberBuffer
	if subBuffer == 0 {
		subBuffer = 16
	}

	t := &Tracker{
		source:          cfg.Source,
		sink:            cfg.Sink,
		logger:          cfg.Logger,
		firstFixTimeout: firstFixTimeout,
		subBuffer:       subBuffer,
		events:          make(chan func()),
		closed:          make(chan struct{}),
		state:           tripState{mode: ModeIdle},
		subs:            make(map[int]chan ProgressUpdate),
	}
	go t.run()
	return t
}

func (t *Tracker) run() {
	for {
		select {
		case fn := <-t.events:
			fn()
		case <-t.closed:
			t.clearTrip()
			for id, ch := range t.subs {
				delete(t.subs, id)
				close(ch)
			}
			return
		}
	}
}

// do runs fn on the event loop and waits for it to finish.
func (t *Tracker) do(fn func()) error {
	done := make(chan struct{})
	select {
	case t.events <- func() {
		fn()
		close(done)
	}:
		<-done
		return nil
	case <-t.closed:
		return ErrTrackerClosed
	}
}

// Close shuts down the event loop. The tracker cannot be reused afterwards.
func (t *Tracker) Close() {
	select {
	case <-t.closed:
	default:
		close(t.closed)
	}
}

// Start begins a trip in the given mode. Any previously active position
// source is canceled first, so sources can never overlap. The initial state
// has step index 0 and the route's first coordinate as last known position.
func (t *Tracker) Start(route routing.Route, mode Mode) error {
	return t.startWith(route, mode, nil)
}

func (t *Tracker) startWith(route routing.Route, mode Mode, cancelWatch context.CancelFunc) error {
	var startErr error
	err := t.do(func() {
		startErr = t.start(route, mode, cancelWatch)
	})
	if err != nil {
		return err
	}
	return startErr
}

func (t *Tracker) start(route routing.Route, mode Mode, cancelWatch context.CancelFunc) error {
	if mode != ModeGPS && mode != ModeSimulated {
		return fmt.Errorf("%w: %q", ErrInvalidMode, mode)
	}
	if len(route.Coordinates) < 2 {
		return ErrInvalidRoute
	}

	t.clearTrip()

	cum := polyline.CumulativeDistances(route.Coordinates)
	total := cum[len(cum)-1]

	t.state = tripState{
		mode:        mode,
		route:       route,
		cumDistance: cum,
		stepEnds:    stepBoundaries(route.Steps, total),
		totalMeters: total,
		stepIndex:   0,
		simIndex:    -1,
		position:    route.Coordinates[0],
		toNextTurn:  firstBoundary(route.Steps, total),
		startedAt:   time.Now(),
		cancelWatch: cancelWatch,
	}

	t.logger.Info().
		Str("route_id", route.ID).
		Str("mode", string(mode)).
		Int("coordinates", len(route.Coordinates)).
		Int("steps", len(route.Steps)).
		Msg("navigation started")

	return nil
}

// StartGPS begins a GPS-driven trip. It waits up to the first-fix timeout for
// an initial position; if none arrives it returns ErrGPSUnavailable so the
// caller can explicitly offer simulated mode instead.
func (t *Tracker) StartGPS(ctx context.Context, route routing.Route) error {
	if t.source == nil {
		return ErrGPSUnavailable
	}

	watchCtx, cancel := context.WithCancel(context.Background())
	updates, err := t.source.Watch(watchCtx)
	if err != nil {
		cancel()
		t.logger.Warn().Err(err).Str("source", t.source.Name()).Msg("position watch failed")
		return fmt.Errorf("%w: %v", ErrGPSUnavailable, err)
	}

	var first PositionUpdate
	select {
	case p, ok := <-updates:
		if !ok {
			cancel()
			return ErrGPSUnavailable
		}
		first = p
	case <-time.After(t.firstFixTimeout):
		cancel()
		t.logger.Warn().
			Dur("timeout", t.firstFixTimeout).
			Msg("no position fix before timeout")
		return ErrGPSUnavailable
	case <-ctx.Done():
		cancel()
		return ctx.Err()
	}

	if err := t.startWith(route, ModeGPS, cancel); err != nil {
		cancel()
		return err
	}
	t.OnPosition(first)

	go func() {
		for {
			select {
			case p, ok := <-updates:
				if !ok {
					return
				}
				t.OnPosition(p)
			case <-watchCtx.Done():
				return
			}
		}
	}()

	return nil
}

// OnPosition applies a live fix. Fixes are accepted regardless of reported
// accuracy. Outside GPS mode the fix is ignored, so a canceled watch that
// still delivers a late fix cannot corrupt a newer trip.
func (t *Tracker) OnPosition(p PositionUpdate) {
	_ = t.do(func() {
		if t.state.mode != ModeGPS {
			return
		}

		point := p.Coordinate()
		traveled := polyline.ProjectDistance(t.state.route.Coordinates, t.state.cumDistance, point)

		// Step progression is monotonic: a noisy fix behind the previous
		// boundary never moves the instruction backwards.
		idx := t.state.stepIndex
		for idx < len(t.state.stepEnds)-1 && traveled >= t.state.stepEnds[idx] {
			idx++
		}

		t.state.position = point
		t.state.stepIndex = idx
		t.state.toNextTurn = remainingToBoundary(t.state.stepEnds, idx, traveled, t.state.totalMeters)
		if t.state.totalMeters > 0 {
			t.state.progressPct = clampPercent(traveled / t.state.totalMeters * 100)
		}

		t.publish(false)
	})
}

// OnSimulationTick advances the simulated position by one route coordinate.
// It reports true when the trip is no longer in simulated mode, which tells
// the simulator to stop ticking. Reaching the final coordinate completes the
// trip: a completion update and a one-time trip record are emitted, then the
// tracker returns to idle.
func (t *Tracker) OnSimulationTick() bool {
	done := true
	_ = t.do(func() {
		if t.state.mode != ModeSimulated {
			return
		}

		t.state.simIndex++
		coords := t.state.route.Coordinates
		if t.state.simIndex >= len(coords) {
			t.state.simIndex = len(coords) - 1
		}

		t.state.position = coords[t.state.simIndex]
		t.state.progressPct = clampPercent(float64(t.state.simIndex) / float64(len(coords)) * 100)

		if steps := len(t.state.route.Steps); steps > 0 {
			idx := t.state.simIndex * steps / len(coords)
			if idx > t.state.stepIndex {
				t.state.stepIndex = idx
			}
		}

		traveled := t.state.cumDistance[t.state.simIndex]
		t.state.toNextTurn = remainingToBoundary(t.state.stepEnds, t.state.stepIndex, traveled, t.state.totalMeters)

		if t.state.simIndex == len(coords)-1 {
			t.complete()
			return
		}

		t.publish(false)
		done = false
	})
	return done
}

// complete emits the final progress update and the trip record, then resets
// to idle. Runs on the event loop.
func (t *Tracker) complete() {
	t.state.progressPct = 100
	t.state.toNextTurn = 0
	if steps := len(t.state.route.Steps); steps > 0 {
		t.state.stepIndex = steps - 1
	}
	t.publish(true)

	coords := t.state.route.Coordinates
	record := TripRecord{
		ID:              "trip_" + uuid.New().String()[:8],
		RouteID:         t.state.route.ID,
		Origin:          coords[0],
		Destination:     coords[len(coords)-1],
		DistanceKm:      t.state.route.DistanceKm,
		DurationMinutes: t.state.route.DurationMinutes,
		StartTime:       t.state.startedAt,
		EndTime:         time.Now(),
	}

	t.logger.Info().
		Str("trip_id", record.ID).
		Str("route_id", record.RouteID).
		Float64("distance_km", record.DistanceKm).
		Msg("trip completed")

	if t.sink != nil {
		// Best-effort: a failed write never rolls back completion.
		go func(rec TripRecord, sink RecordSink, logger zerolog.Logger) {
			if err := sink.RecordTrip(context.Background(), rec); err != nil {
				logger.Error().Err(err).
					Str("trip_id", rec.ID).
					Msg("failed to persist trip record")
			}
		}(record, t.sink, t.logger)
	}

	t.clearTrip()
}

// Stop ends the current trip, canceling any active position source or
// simulation. Safe to call from any state, including idle, any number of times.
func (t *Tracker) Stop() {
	_ = t.do(func() {
		if t.state.mode == ModeIdle {
			return
		}
		t.logger.Info().
			Str("route_id", t.state.route.ID).
			Str("mode", string(t.state.mode)).
			Msg("navigation stopped")
		t.clearTrip()
	})
}

// clearTrip resets to idle, canceling the position watch. Runs on the event loop.
func (t *Tracker) clearTrip() {
	if t.state.cancelWatch != nil {
		t.state.cancelWatch()
	}
	t.state = tripState{mode: ModeIdle}
}

// Snapshot returns a copy of the current trip state.
func (t *Tracker) Snapshot() Snapshot {
	var snap Snapshot
	err := t.do(func() {
		simIndex := t.state.simIndex
		if simIndex < 0 {
			simIndex = 0
		}
		snap = Snapshot{
			Mode:                     t.state.mode,
			RouteID:                  t.state.route.ID,
			CurrentStepIndex:         t.state.stepIndex,
			LastKnownPosition:        t.state.position,
			SimulationIndex:          simIndex,
			ProgressPercent:          t.state.progressPct,
			DistanceToNextTurnMeters: t.state.toNextTurn,
			StartedAt:                t.state.startedAt,
		}
	})
	if err != nil {
		return Snapshot{Mode: ModeIdle}
	}
	return snap
}

// Subscribe registers a progress listener. The returned cancel function
// removes the subscription and closes the channel. Updates to a full channel
// are dropped.
func (t *Tracker) Subscribe() (<-chan ProgressUpdate, func()) {
	var (
		ch <-chan ProgressUpdate
		id int
	)
	err := t.do(func() {
		c := make(chan ProgressUpdate, t.subBuffer)
		id = t.nextID
		t.nextID++
		t.subs[id] = c
		ch = c
	})
	if err != nil {
		c := make(chan ProgressUpdate)
		close(c)
		return c, func() {}
	}

	cancel := func() {
		_ = t.do(func() {
			if c, ok := t.subs[id]; ok {
				delete(t.subs, id)
				close(c)
			}
		})
	}
	return ch, cancel
}

// publish fans the current state out to subscribers. Runs on the event loop.
func (t *Tracker) publish(completed bool) {
	update := ProgressUpdate{
		Mode:                     t.state.mode,
		RouteID:                  t.state.route.ID,
		StepIndex:                t.state.stepIndex,
		Step:                     stepAt(t.state.route.Steps, t.state.stepIndex),
		DistanceToNextTurnMeters: t.state.toNextTurn,
		ProgressPercent:          t.state.progressPct,
		Position:                 t.state.position,
		Completed:                completed,
		Timestamp:                time.Now(),
	}

	for _, ch := range t.subs {
		select {
		case ch <- update:
		default:
		}
	}
}

// stepBoundaries returns the cumulative distance at which each step ends.
// The last boundary is pinned to the route's total length so rounding in
// per-step distances cannot leave the final turn unreachable.
func stepBoundaries(steps []routing.Step, totalMeters float64) []float64 {
	if len(steps) == 0 {
		return nil
	}
	ends := make([]float64, len(steps))
	sum := 0.0
	for i, s := range steps {
		sum += s.DistanceMeters
		ends[i] = sum
	}
	ends[len(ends)-1] = totalMeters
	return ends
}

func firstBoundary(steps []routing.Step, totalMeters float64) float64 {
	if len(steps) == 0 {
		return totalMeters
	}
	return steps[0].DistanceMeters
}

// remainingToBoundary is the along-route distance left before the current
// step's end. With no steps it is the distance to the route's end.
func remainingToBoundary(stepEnds []float64, stepIndex int, traveled, totalMeters float64) float64 {
	boundary := totalMeters
	if stepIndex < len(stepEnds) {
		boundary = stepEnds[stepIndex]
	}
	remaining := boundary - traveled
	if remaining < 0 {
		return 0
	}
	return remaining
}

func stepAt(steps []routing.Step, idx int) *routing.Step {
	if idx < 0 || idx >= len(steps) {
		return nil
	}
	s := steps[idx]
	return &s
}

func clampPercent(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
