package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/lakbaysafe/lakbaysafe/internal/api/models"
	"github.com/lakbaysafe/lakbaysafe/internal/api/response"
	"github.com/lakbaysafe/lakbaysafe/internal/navigation"
	"github.com/lakbaysafe/lakbaysafe/internal/routing"
	"github.com/lakbaysafe/lakbaysafe/internal/triphistory"
)

// NavigationHandler manages per-user navigation sessions over computed routes.
type NavigationHandler struct {
	trips  *triphistory.Service
	routes *RouteCache
	logger zerolog.Logger

	mu       sync.Mutex
	sessions map[string]*navSession
}

// navSession is one user's tracker, simulator and trip sink. Sessions are
// created lazily on first use and live for the lifetime of the server.
type navSession struct {
	tracker *navigation.Tracker
	sim     *navigation.Simulator
	sink    *sessionSink
}

// sessionSink forwards completed-trip records to whichever user-scoped sink
// was active when the trip started.
type sessionSink struct {
	mu     sync.Mutex
	target navigation.RecordSink
}

func (s *sessionSink) set(target navigation.RecordSink) {
	s.mu.Lock()
	s.target = target
	s.mu.Unlock()
}

func (s *sessionSink) RecordTrip(ctx context.Context, record navigation.TripRecord) error {
	s.mu.Lock()
	target := s.target
	s.mu.Unlock()
	if target == nil {
		return nil
	}
	return target.RecordTrip(ctx, record)
}

// NewNavigationHandler creates a new NavigationHandler.
func NewNavigationHandler(trips *triphistory.Service, routes *RouteCache, logger zerolog.Logger) *NavigationHandler {
	return &NavigationHandler{
		trips:    trips,
		routes:   routes,
		logger:   logger,
		sessions: make(map[string]*navSession),
	}
}

// session returns the caller's navigation session, creating it on first use.
func (h *NavigationHandler) session(userID string) *navSession {
	h.mu.Lock()
	defer h.mu.Unlock()

	sess, ok := h.sessions[userID]
	if !ok {
		sink := &sessionSink{}
		tracker := navigation.NewTracker(navigation.TrackerConfig{
			Sink:   sink,
			Logger: h.logger.With().Str("user_id", userID).Logger(),
		})
		sess = &navSession{
			tracker: tracker,
			sim:     navigation.NewSimulator(navigation.SimulatorConfig{Driver: tracker, Logger: h.logger}),
			sink:    sink,
		}
		h.sessions[userID] = sess
	}
	return sess
}

// Close stops all active sessions. Called on server shutdown.
func (h *NavigationHandler) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, sess := range h.sessions {
		sess.sim.Stop()
		sess.tracker.Close()
	}
	h.sessions = make(map[string]*navSession)
}

// Start handles POST /v1/navigation/start - begin GPS tracking or route
// playback on a previously computed route.
func (h *NavigationHandler) Start(w http.ResponseWriter, r *http.Request) {
	userID := GetUserID(r.Context())

	var input models.NavigationStartRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}
	if input.RouteID == "" {
		response.BadRequest(w, r, "routeId is required", []models.FieldError{
			{Field: "routeId", Message: "is required"},
		})
		return
	}

	route, ok := h.routes.Get(input.RouteID)
	if !ok {
		response.NotFound(w, r, "route not found; compute routes again before starting navigation")
		return
	}

	sess := h.session(userID)

	var err error
	switch input.Mode {
	case "gps":
		// A paused playback would otherwise keep ticking against stale state.
		sess.sim.Stop()
		sess.sink.set(h.trips.SinkFor(userID, false))
		err = sess.tracker.Start(route, navigation.ModeGPS)
	case "simulated":
		sess.sink.set(h.trips.SinkFor(userID, true))
		speed := 1.0
		if input.SpeedMultiplier != nil {
			speed = *input.SpeedMultiplier
		}
		err = sess.sim.Run(route, speed)
	default:
		response.BadRequest(w, r, "mode must be gps or simulated", []models.FieldError{
			{Field: "mode", Message: "must be gps or simulated"},
		})
		return
	}
	if err != nil {
		writeNavigationError(w, r, err)
		return
	}

	response.JSON(w, r, http.StatusOK, h.stateFor(sess))
}

// Position handles POST /v1/navigation/position - report a live GPS fix.
func (h *NavigationHandler) Position(w http.ResponseWriter, r *http.Request) {
	sess := h.session(GetUserID(r.Context()))

	var input models.NavigationPositionRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}
	if input.Lat < -90 || input.Lat > 90 || input.Lon < -180 || input.Lon > 180 {
		response.BadRequest(w, r, "coordinates out of range", nil)
		return
	}

	sess.tracker.OnPosition(navigation.PositionUpdate{
		Lat:            input.Lat,
		Lon:            input.Lon,
		AccuracyMeters: input.AccuracyMeters,
		HeadingDegrees: input.HeadingDegrees,
		Timestamp:      time.Now(),
	})

	response.JSON(w, r, http.StatusOK, h.stateFor(sess))
}

// Pause handles POST /v1/navigation/pause - freeze simulated playback.
func (h *NavigationHandler) Pause(w http.ResponseWriter, r *http.Request) {
	sess := h.session(GetUserID(r.Context()))
	if err := sess.sim.Pause(); err != nil {
		writeNavigationError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, h.stateFor(sess))
}

// Resume handles POST /v1/navigation/resume - resume simulated playback.
func (h *NavigationHandler) Resume(w http.ResponseWriter, r *http.Request) {
	sess := h.session(GetUserID(r.Context()))
	if err := sess.sim.Resume(); err != nil {
		writeNavigationError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, h.stateFor(sess))
}

// Speed handles POST /v1/navigation/speed - change simulated playback speed.
func (h *NavigationHandler) Speed(w http.ResponseWriter, r *http.Request) {
	sess := h.session(GetUserID(r.Context()))

	var input models.NavigationSpeedRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	if err := sess.sim.SetSpeed(input.SpeedMultiplier); err != nil {
		writeNavigationError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, h.stateFor(sess))
}

// Stop handles POST /v1/navigation/stop - abandon the current trip without
// recording it.
func (h *NavigationHandler) Stop(w http.ResponseWriter, r *http.Request) {
	sess := h.session(GetUserID(r.Context()))
	sess.sim.Stop()
	sess.tracker.Stop()
	response.NoContent(w, r)
}

// GetState handles GET /v1/navigation - return the current trip state.
func (h *NavigationHandler) GetState(w http.ResponseWriter, r *http.Request) {
	sess := h.session(GetUserID(r.Context()))
	response.JSON(w, r, http.StatusOK, h.stateFor(sess))
}

// stateFor builds the trip view model from a session snapshot.
func (h *NavigationHandler) stateFor(sess *navSession) models.NavigationState {
	snap := sess.tracker.Snapshot()

	state := models.NavigationState{
		Mode:                     string(snap.Mode),
		RouteID:                  snap.RouteID,
		CurrentStepIndex:         snap.CurrentStepIndex,
		DistanceToNextTurnMeters: snap.DistanceToNextTurnMeters,
		ProgressPercent:          snap.ProgressPercent,
	}

	if snap.Mode != navigation.ModeIdle {
		state.LastKnownPosition = &models.Point{
			Lat: snap.LastKnownPosition.Lat,
			Lon: snap.LastKnownPosition.Lon,
		}
		started := models.Timestamp(snap.StartedAt)
		state.StartedAt = &started

		if route, ok := h.routes.Get(snap.RouteID); ok {
			if step := currentStep(route, snap.CurrentStepIndex); step != nil {
				stepModel := toAPIStep(*step)
				state.CurrentStep = &stepModel
			}
		}
	}

	if snap.Mode == navigation.ModeSimulated && sess.sim.Running() {
		speed := sess.sim.Speed()
		paused := sess.sim.Paused()
		state.SimulationSpeed = &speed
		state.SimulationPaused = &paused
	}

	return state
}

func currentStep(route routing.Route, idx int) *routing.Step {
	if idx < 0 || idx >= len(route.Steps) {
		return nil
	}
	return &route.Steps[idx]
}

// writeNavigationError maps navigation errors onto problem responses.
func writeNavigationError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, navigation.ErrInvalidRoute):
		response.BadRequest(w, r, "route has too few coordinates for navigation", nil)
	case errors.Is(err, navigation.ErrInvalidSpeed):
		response.BadRequest(w, r, "speed multiplier must be one of 1, 2, 5 or 10", nil)
	case errors.Is(err, navigation.ErrSimulationNotRunning):
		response.Conflict(w, r, "no simulation is currently running")
	case errors.Is(err, navigation.ErrGPSUnavailable):
		response.ServiceUnavailable(w, r, "no GPS fix available")
	case errors.Is(err, navigation.ErrTrackerClosed):
		response.ServiceUnavailable(w, r, "navigation session is shutting down")
	default:
		response.InternalError(w, r, "navigation request failed")
	}
}
