package navigation_test

import (
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lakbaysafe/lakbaysafe/internal/navigation"
	"github.com/lakbaysafe/lakbaysafe/internal/routing"
)

// fakeDriver counts ticks and reports done after maxTicks.
type fakeDriver struct {
	mu       sync.Mutex
	ticks    int
	maxTicks int
	started  int
	stopped  int
}

func (d *fakeDriver) Start(_ routing.Route, _ navigation.Mode) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.started++
	d.ticks = 0
	return nil
}

func (d *fakeDriver) OnSimulationTick() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ticks++
	return d.maxTicks > 0 && d.ticks >= d.maxTicks
}

func (d *fakeDriver) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped++
}

func (d *fakeDriver) tickCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.ticks
}

func newTestSimulator(driver navigation.ProgressDriver) *navigation.Simulator {
	return navigation.NewSimulator(navigation.SimulatorConfig{
		Driver:       driver,
		Logger:       zerolog.Nop(),
		BaseInterval: time.Millisecond,
	})
}

func TestSimulator_InvalidSpeed(t *testing.T) {
	sim := newTestSimulator(&fakeDriver{})

	for _, speed := range []float64{0, -1, 3, 100} {
		err := sim.Run(testRoute(), speed)
		assert.ErrorIs(t, err, navigation.ErrInvalidSpeed, "speed %g", speed)
	}
	assert.False(t, sim.Running())
}

func TestSimulator_RunTicksUntilDone(t *testing.T) {
	driver := &fakeDriver{maxTicks: 10}
	sim := newTestSimulator(driver)

	require.NoError(t, sim.Run(testRoute(), 10))

	require.Eventually(t, func() bool { return !sim.Running() }, time.Second, time.Millisecond)
	assert.Equal(t, 10, driver.tickCount())
}

func TestSimulator_PauseFreezesProgress(t *testing.T) {
	driver := &fakeDriver{}
	sim := newTestSimulator(driver)

	require.NoError(t, sim.Run(testRoute(), 1))
	require.Eventually(t, func() bool { return driver.tickCount() > 2 }, time.Second, time.Millisecond)

	require.NoError(t, sim.Pause())
	assert.True(t, sim.Paused())

	frozen := driver.tickCount()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, frozen, driver.tickCount())

	require.NoError(t, sim.Resume())
	assert.False(t, sim.Paused())
	require.Eventually(t, func() bool { return driver.tickCount() > frozen }, time.Second, time.Millisecond)

	sim.Stop()
}

func TestSimulator_SetSpeedKeepsProgress(t *testing.T) {
	driver := &fakeDriver{}
	sim := newTestSimulator(driver)

	require.NoError(t, sim.Run(testRoute(), 1))
	require.Eventually(t, func() bool { return driver.tickCount() > 2 }, time.Second, time.Millisecond)

	before := driver.tickCount()
	require.NoError(t, sim.SetSpeed(10))
	assert.Equal(t, 10.0, sim.Speed())

	// The tick counter keeps climbing from where it was.
	require.Eventually(t, func() bool { return driver.tickCount() > before }, time.Second, time.Millisecond)

	sim.Stop()
}

func TestSimulator_ControlsRequireRunning(t *testing.T) {
	sim := newTestSimulator(&fakeDriver{})

	assert.ErrorIs(t, sim.Pause(), navigation.ErrSimulationNotRunning)
	assert.ErrorIs(t, sim.Resume(), navigation.ErrSimulationNotRunning)
	assert.ErrorIs(t, sim.SetSpeed(2), navigation.ErrSimulationNotRunning)
	sim.Stop() // no-op
}

func TestSimulator_StopTearsDownTrip(t *testing.T) {
	driver := &fakeDriver{}
	sim := newTestSimulator(driver)

	require.NoError(t, sim.Run(testRoute(), 2))
	sim.Stop()

	assert.False(t, sim.Running())
	driver.mu.Lock()
	assert.Equal(t, 1, driver.stopped)
	driver.mu.Unlock()
}

func TestSimulator_RunReplacesActiveRun(t *testing.T) {
	driver := &fakeDriver{}
	sim := newTestSimulator(driver)

	require.NoError(t, sim.Run(testRoute(), 1))
	require.NoError(t, sim.Run(testRoute(), 2))

	driver.mu.Lock()
	started, stopped := driver.started, driver.stopped
	driver.mu.Unlock()
	assert.Equal(t, 2, started)
	assert.Equal(t, 1, stopped)

	sim.Stop()
}

func TestSimulator_EndToEndWithTracker(t *testing.T) {
	sink := &mockSink{}
	tracker := newTestTracker(t, navigation.TrackerConfig{Sink: sink})
	sim := newTestSimulator(tracker)
	route := testRoute()

	updates, unsubscribe := tracker.Subscribe()
	defer unsubscribe()

	require.NoError(t, sim.Run(route, 10))

	var last navigation.ProgressUpdate
	count := 0
	for count < len(route.Coordinates) {
		select {
		case u := <-updates:
			last = u
			count++
		case <-time.After(time.Second):
			t.Fatalf("stalled after %d updates", count)
		}
	}

	assert.True(t, last.Completed)
	assert.InDelta(t, 100, last.ProgressPercent, 0.001)

	require.Eventually(t, func() bool { return !sim.Running() }, time.Second, time.Millisecond)
	require.Eventually(t, func() bool { return sink.recordCount() == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, navigation.ModeIdle, tracker.Snapshot().Mode)
}
