package navigation_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lakbaysafe/lakbaysafe/internal/navigation"
	"github.com/lakbaysafe/lakbaysafe/internal/routing"
	"github.com/lakbaysafe/lakbaysafe/pkg/polyline"
)

// testRoute is a straight ~540m run east along Quirino Avenue with six
// coordinates and three steps. Each segment is roughly 108m.
func testRoute() routing.Route {
	coords := make([]polyline.Coordinate, 6)
	for i := range coords {
		coords[i] = polyline.Coordinate{Lat: 14.4500, Lon: 121.0000 + float64(i)*0.001}
	}

	return routing.Route{
		ID:          "rt_test01",
		Coordinates: coords,
		Steps: []routing.Step{
			{Instruction: "Head out onto Quirino Avenue", StreetName: "Quirino Avenue", DistanceMeters: 200, Maneuver: routing.ManeuverDepart},
			{Instruction: "Turn left onto CAA Road", StreetName: "CAA Road", DistanceMeters: 200, Maneuver: routing.ManeuverTurn},
			{Instruction: "Arrive at your destination", DistanceMeters: 140, Maneuver: routing.ManeuverArrive},
		},
		DistanceKm:      0.54,
		DurationMinutes: 2,
	}
}

func fixAt(c polyline.Coordinate) navigation.PositionUpdate {
	return navigation.PositionUpdate{
		Lat:            c.Lat,
		Lon:            c.Lon,
		AccuracyMeters: 5,
		Timestamp:      time.Now(),
	}
}

type mockSource struct {
	mu       sync.Mutex
	ch       chan navigation.PositionUpdate
	watchCtx context.Context
	err      error
}

func newMockSource(buffer int) *mockSource {
	return &mockSource{ch: make(chan navigation.PositionUpdate, buffer)}
}

func (m *mockSource) Watch(ctx context.Context) (<-chan navigation.PositionUpdate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	m.watchCtx = ctx
	return m.ch, nil
}

func (m *mockSource) Name() string { return "mock-gps" }

func (m *mockSource) watchCanceled() bool {
	m.mu.Lock()
	ctx := m.watchCtx
	m.mu.Unlock()
	if ctx == nil {
		return false
	}
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

type mockSink struct {
	mu      sync.Mutex
	records []navigation.TripRecord
	err     error
}

func (m *mockSink) RecordTrip(_ context.Context, record navigation.TripRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, record)
	return m.err
}

func (m *mockSink) recordCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

func (m *mockSink) lastRecord() navigation.TripRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.records[len(m.records)-1]
}

func newTestTracker(t *testing.T, cfg navigation.TrackerConfig) *navigation.Tracker {
	t.Helper()
	cfg.Logger = zerolog.Nop()
	tracker := navigation.NewTracker(cfg)
	t.Cleanup(tracker.Close)
	return tracker
}

func TestTracker_Start_Validation(t *testing.T) {
	tracker := newTestTracker(t, navigation.TrackerConfig{})

	t.Run("invalid mode", func(t *testing.T) {
		err := tracker.Start(testRoute(), navigation.ModeIdle)
		assert.ErrorIs(t, err, navigation.ErrInvalidMode)
	})

	t.Run("too few coordinates", func(t *testing.T) {
		route := testRoute()
		route.Coordinates = route.Coordinates[:1]
		err := tracker.Start(route, navigation.ModeSimulated)
		assert.ErrorIs(t, err, navigation.ErrInvalidRoute)
	})
}

func TestTracker_Start_InitialState(t *testing.T) {
	tracker := newTestTracker(t, navigation.TrackerConfig{})
	route := testRoute()

	require.NoError(t, tracker.Start(route, navigation.ModeSimulated))

	snap := tracker.Snapshot()
	assert.Equal(t, navigation.ModeSimulated, snap.Mode)
	assert.Equal(t, "rt_test01", snap.RouteID)
	assert.Equal(t, 0, snap.CurrentStepIndex)
	assert.Equal(t, route.Coordinates[0], snap.LastKnownPosition)
	assert.InDelta(t, 0, snap.ProgressPercent, 0.001)
	assert.False(t, snap.StartedAt.IsZero())
}

func TestTracker_OnPosition_AdvancesSteps(t *testing.T) {
	source := newMockSource(4)
	route := testRoute()
	source.ch <- fixAt(route.Coordinates[0])

	tracker := newTestTracker(t, navigation.TrackerConfig{Source: source})
	require.NoError(t, tracker.StartGPS(context.Background(), route))

	// ~216m traveled is past the first step's 200m boundary.
	tracker.OnPosition(fixAt(route.Coordinates[2]))

	snap := tracker.Snapshot()
	assert.Equal(t, 1, snap.CurrentStepIndex)
	assert.Equal(t, route.Coordinates[2], snap.LastKnownPosition)
	assert.InDelta(t, 40, snap.ProgressPercent, 2)

	// Remaining distance is measured along the route to the step boundary,
	// about 400m - 216m.
	assert.InDelta(t, 184, snap.DistanceToNextTurnMeters, 6)
}

func TestTracker_OnPosition_NeverRegressesStep(t *testing.T) {
	source := newMockSource(4)
	route := testRoute()
	source.ch <- fixAt(route.Coordinates[0])

	tracker := newTestTracker(t, navigation.TrackerConfig{Source: source})
	require.NoError(t, tracker.StartGPS(context.Background(), route))

	tracker.OnPosition(fixAt(route.Coordinates[3]))
	require.Equal(t, 1, tracker.Snapshot().CurrentStepIndex)

	// A noisy fix behind the boundary keeps the current instruction.
	tracker.OnPosition(fixAt(route.Coordinates[1]))

	snap := tracker.Snapshot()
	assert.Equal(t, 1, snap.CurrentStepIndex)
	assert.Equal(t, route.Coordinates[1], snap.LastKnownPosition)
}

func TestTracker_StartGPS_FirstFixTimeout(t *testing.T) {
	source := newMockSource(0)

	tracker := newTestTracker(t, navigation.TrackerConfig{
		Source:          source,
		FirstFixTimeout: 20 * time.Millisecond,
	})

	err := tracker.StartGPS(context.Background(), testRoute())
	require.Error(t, err)
	assert.ErrorIs(t, err, navigation.ErrGPSUnavailable)
	assert.Equal(t, navigation.ModeIdle, tracker.Snapshot().Mode)
	assert.True(t, source.watchCanceled())
}

func TestTracker_StartGPS_NoSource(t *testing.T) {
	tracker := newTestTracker(t, navigation.TrackerConfig{})

	err := tracker.StartGPS(context.Background(), testRoute())
	assert.ErrorIs(t, err, navigation.ErrGPSUnavailable)
}

func TestTracker_StartGPS_WatchError(t *testing.T) {
	source := newMockSource(0)
	source.err = errors.New("location permission denied")

	tracker := newTestTracker(t, navigation.TrackerConfig{Source: source})

	err := tracker.StartGPS(context.Background(), testRoute())
	assert.ErrorIs(t, err, navigation.ErrGPSUnavailable)
}

func TestTracker_ModeSwitchCancelsWatch(t *testing.T) {
	source := newMockSource(4)
	route := testRoute()
	source.ch <- fixAt(route.Coordinates[0])

	tracker := newTestTracker(t, navigation.TrackerConfig{Source: source})
	require.NoError(t, tracker.StartGPS(context.Background(), route))
	require.Equal(t, navigation.ModeGPS, tracker.Snapshot().Mode)

	// Starting simulated mode while GPS is active tears down the watch first.
	require.NoError(t, tracker.Start(route, navigation.ModeSimulated))

	assert.True(t, source.watchCanceled())
	assert.Equal(t, navigation.ModeSimulated, tracker.Snapshot().Mode)

	// A late fix from the dead watch must not touch the new trip.
	tracker.OnPosition(fixAt(route.Coordinates[4]))
	assert.Equal(t, route.Coordinates[0], tracker.Snapshot().LastKnownPosition)
}

func TestTracker_CloseCancelsActiveWatch(t *testing.T) {
	source := newMockSource(4)
	route := testRoute()
	source.ch <- fixAt(route.Coordinates[0])

	tracker := newTestTracker(t, navigation.TrackerConfig{Source: source})
	require.NoError(t, tracker.StartGPS(context.Background(), route))

	// Shutting down mid-trip must not leak the position watch.
	tracker.Close()

	require.Eventually(t, source.watchCanceled, time.Second, 5*time.Millisecond)
}

func TestTracker_Stop_Idempotent(t *testing.T) {
	source := newMockSource(4)
	route := testRoute()
	source.ch <- fixAt(route.Coordinates[0])

	tracker := newTestTracker(t, navigation.TrackerConfig{Source: source})

	tracker.Stop() // idle no-op

	require.NoError(t, tracker.StartGPS(context.Background(), route))
	tracker.Stop()
	tracker.Stop()

	snap := tracker.Snapshot()
	assert.Equal(t, navigation.ModeIdle, snap.Mode)
	assert.Equal(t, "", snap.RouteID)
	assert.True(t, source.watchCanceled())
}

func TestTracker_SimulationTicks_CompleteTrip(t *testing.T) {
	sink := &mockSink{}
	tracker := newTestTracker(t, navigation.TrackerConfig{Sink: sink})
	route := testRoute()

	updates, unsubscribe := tracker.Subscribe()
	defer unsubscribe()

	require.NoError(t, tracker.Start(route, navigation.ModeSimulated))

	ticks := 0
	for !tracker.OnSimulationTick() {
		ticks++
	}
	ticks++ // the final tick reports done

	// One update per coordinate, no skipped or duplicated final point.
	assert.Equal(t, len(route.Coordinates), ticks)

	var received []navigation.ProgressUpdate
	for i := 0; i < len(route.Coordinates); i++ {
		select {
		case u := <-updates:
			received = append(received, u)
		case <-time.After(time.Second):
			t.Fatalf("missing progress update %d", i)
		}
	}

	assert.Equal(t, route.Coordinates[0], received[0].Position)
	for i := 1; i < len(received); i++ {
		assert.GreaterOrEqual(t, received[i].StepIndex, received[i-1].StepIndex)
	}

	last := received[len(received)-1]
	assert.True(t, last.Completed)
	assert.InDelta(t, 100, last.ProgressPercent, 0.001)
	assert.Equal(t, route.Coordinates[len(route.Coordinates)-1], last.Position)

	assert.Equal(t, navigation.ModeIdle, tracker.Snapshot().Mode)

	require.Eventually(t, func() bool { return sink.recordCount() == 1 }, time.Second, 5*time.Millisecond)
	record := sink.lastRecord()
	assert.Contains(t, record.ID, "trip_")
	assert.Equal(t, "rt_test01", record.RouteID)
	assert.Equal(t, route.Coordinates[0], record.Origin)
	assert.Equal(t, route.Coordinates[len(route.Coordinates)-1], record.Destination)
	assert.InDelta(t, 0.54, record.DistanceKm, 0.001)
	assert.False(t, record.EndTime.Before(record.StartTime))
}

func TestTracker_SinkFailureDoesNotAffectCompletion(t *testing.T) {
	sink := &mockSink{err: errors.New("history store down")}
	tracker := newTestTracker(t, navigation.TrackerConfig{Sink: sink})

	require.NoError(t, tracker.Start(testRoute(), navigation.ModeSimulated))
	for !tracker.OnSimulationTick() {
	}

	assert.Equal(t, navigation.ModeIdle, tracker.Snapshot().Mode)
	require.Eventually(t, func() bool { return sink.recordCount() == 1 }, time.Second, 5*time.Millisecond)
}

func TestTracker_TickIgnoredWhenNotSimulating(t *testing.T) {
	tracker := newTestTracker(t, navigation.TrackerConfig{})

	// An orphaned ticker firing after stop must be told to shut down.
	assert.True(t, tracker.OnSimulationTick())
}

func TestTracker_RouteWithoutSteps(t *testing.T) {
	source := newMockSource(4)
	route := testRoute()
	route.Steps = nil
	source.ch <- fixAt(route.Coordinates[0])

	tracker := newTestTracker(t, navigation.TrackerConfig{Source: source})
	require.NoError(t, tracker.StartGPS(context.Background(), route))

	tracker.OnPosition(fixAt(route.Coordinates[3]))

	snap := tracker.Snapshot()
	assert.Equal(t, 0, snap.CurrentStepIndex)
	assert.InDelta(t, 60, snap.ProgressPercent, 2)
	// With no steps the next "turn" is the end of the route.
	assert.InDelta(t, 216, snap.DistanceToNextTurnMeters, 8)
}

func TestTracker_SlowSubscriberDoesNotBlock(t *testing.T) {
	tracker := newTestTracker(t, navigation.TrackerConfig{SubscriberBuffer: 1})
	route := testRoute()

	_, unsubscribe := tracker.Subscribe()
	defer unsubscribe()

	require.NoError(t, tracker.Start(route, navigation.ModeSimulated))

	done := make(chan struct{})
	go func() {
		for !tracker.OnSimulationTick() {
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("tracker blocked on a slow subscriber")
	}
}
