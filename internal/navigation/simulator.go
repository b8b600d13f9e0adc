package navigation

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/lakbaysafe/lakbaysafe/internal/routing"
)

// DefaultBaseInterval is the tick interval at speed multiplier 1.
const DefaultBaseInterval = 100 * time.Millisecond

// speedMultipliers are the supported playback speeds.
var speedMultipliers = []float64{1, 2, 5, 10}

// ProgressDriver is the state machine a simulation drives. Implemented by
// *Tracker.
type ProgressDriver interface {
	Start(route routing.Route, mode Mode) error
	OnSimulationTick() bool
	Stop()
}

// SimulatorConfig holds configuration for the trip simulator.
type SimulatorConfig struct {
	// Driver receives the simulation ticks.
	Driver ProgressDriver

	// Logger for simulator operations.
	Logger zerolog.Logger

	// BaseInterval is the tick interval at speed 1 (default: 100ms).
	// Tests shorten it.
	BaseInterval time.Duration
}

// Simulator replays a route's coordinates on a timer, one coordinate per
// tick, at baseInterval / speedMultiplier.
type Simulator struct {
	driver       ProgressDriver
	logger       zerolog.Logger
	baseInterval time.Duration

	mu      sync.Mutex
	running bool
	paused  bool
	speed   float64
	ctrl    chan simCommand
	done    chan struct{}
}

type simCmdKind int

const (
	cmdPause simCmdKind = iota
	cmdResume
	cmdSpeed
	cmdStop
)

type simCommand struct {
	kind     simCmdKind
	interval time.Duration
	ack      chan struct{}
}

// NewSimulator creates a new trip simulator.
func NewSimulator(cfg SimulatorConfig) *Simulator {
	baseInterval := cfg.BaseInterval
	if baseInterval == 0 {
		baseInterval = DefaultBaseInterval
	}

	return &Simulator{
		driver:       cfg.Driver,
		logger:       cfg.Logger,
		baseInterval: baseInterval,
		speed:        1,
	}
}

// Run starts replaying the route at the given speed multiplier. A simulation
// already in progress is stopped first. Run returns once the simulation is
// ticking; it does not wait for completion.
func (s *Simulator) Run(route routing.Route, speedMultiplier float64) error {
	interval, err := s.intervalFor(speedMultiplier)
	if err != nil {
		return err
	}

	s.Stop()

	if err := s.driver.Start(route, ModeSimulated); err != nil {
		return err
	}

	s.mu.Lock()
	s.running = true
	s.paused = false
	s.speed = speedMultiplier
	s.ctrl = make(chan simCommand)
	s.done = make(chan struct{})
	go s.loop(interval, s.ctrl, s.done)
	s.mu.Unlock()

	s.logger.Info().
		Str("route_id", route.ID).
		Float64("speed", speedMultiplier).
		Dur("tick_interval", interval).
		Msg("simulation started")

	return nil
}

func (s *Simulator) loop(interval time.Duration, ctrl chan simCommand, done chan struct{}) {
	defer func() {
		s.mu.Lock()
		s.running = false
		s.paused = false
		s.mu.Unlock()
		close(done)
	}()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	paused := false

	for {
		select {
		case <-ticker.C:
			if paused {
				continue
			}
			if s.driver.OnSimulationTick() {
				s.logger.Debug().Msg("simulation finished")
				return
			}
		case cmd := <-ctrl:
			switch cmd.kind {
			case cmdPause:
				paused = true
				ticker.Stop()
			case cmdResume:
				if paused {
					paused = false
					ticker.Reset(interval)
				}
			case cmdSpeed:
				// Restart the ticker only; replay position is untouched.
				interval = cmd.interval
				ticker.Reset(interval)
			case cmdStop:
				close(cmd.ack)
				return
			}
			close(cmd.ack)
		}
	}
}

// Pause suspends ticking without losing the current replay position.
func (s *Simulator) Pause() error {
	err := s.send(simCommand{kind: cmdPause, ack: make(chan struct{})})
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.paused = true
	s.mu.Unlock()
	return nil
}

// Resume continues ticking from where Pause left off.
func (s *Simulator) Resume() error {
	err := s.send(simCommand{kind: cmdResume, ack: make(chan struct{})})
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.paused = false
	s.mu.Unlock()
	return nil
}

// SetSpeed changes the playback speed mid-run without resetting progress.
func (s *Simulator) SetSpeed(speedMultiplier float64) error {
	interval, err := s.intervalFor(speedMultiplier)
	if err != nil {
		return err
	}

	if err := s.send(simCommand{kind: cmdSpeed, interval: interval, ack: make(chan struct{})}); err != nil {
		return err
	}

	s.mu.Lock()
	s.speed = speedMultiplier
	s.mu.Unlock()

	s.logger.Info().
		Float64("speed", speedMultiplier).
		Dur("tick_interval", interval).
		Msg("simulation speed changed")

	return nil
}

// Stop tears down the simulation and the underlying trip. Safe to call when
// nothing is running.
func (s *Simulator) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	ctrl, done := s.ctrl, s.done
	s.mu.Unlock()

	select {
	case ctrl <- simCommand{kind: cmdStop, ack: make(chan struct{})}:
	case <-done:
	}
	<-done

	s.driver.Stop()
}

// Running reports whether a simulation is ticking or paused.
func (s *Simulator) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Paused reports whether the simulation is currently paused.
func (s *Simulator) Paused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running && s.paused
}

// Speed returns the current speed multiplier.
func (s *Simulator) Speed() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.speed
}

func (s *Simulator) send(cmd simCommand) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return ErrSimulationNotRunning
	}
	ctrl, done := s.ctrl, s.done
	s.mu.Unlock()

	select {
	case ctrl <- cmd:
		<-cmd.ack
		return nil
	case <-done:
		return ErrSimulationNotRunning
	}
}

func (s *Simulator) intervalFor(speedMultiplier float64) (time.Duration, error) {
	for _, v := range speedMultipliers {
		if speedMultiplier == v {
			return time.Duration(float64(s.baseInterval) / speedMultiplier), nil
		}
	}
	return 0, fmt.Errorf("%w: %g (want one of 1, 2, 5, 10)", ErrInvalidSpeed, speedMultiplier)
}
