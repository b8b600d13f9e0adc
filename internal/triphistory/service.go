package triphistory

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/lakbaysafe/lakbaysafe/internal/navigation"
)

// Service provides trip-history operations.
type Service struct {
	repo   Repository
	logger zerolog.Logger
}

// NewService creates a new trip-history service.
func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Record stores a completed-trip record for a user. The record's ID is kept
// when present so retried writes stay idempotent per trip.
func (s *Service) Record(ctx context.Context, userID string, record navigation.TripRecord, simulated bool) (*Trip, error) {
	id := record.ID
	if id == "" {
		id = "trip_" + uuid.New().String()[:8]
	}

	trip := &Trip{
		ID:              id,
		UserID:          userID,
		RouteID:         record.RouteID,
		Origin:          record.Origin,
		Destination:     record.Destination,
		DistanceKm:      record.DistanceKm,
		DurationMinutes: record.DurationMinutes,
		Simulated:       simulated,
		StartedAt:       record.StartTime,
		EndedAt:         record.EndTime,
		CreatedAt:       time.Now(),
	}

	if err := s.repo.Create(ctx, trip); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("trip_id", trip.ID).
		Str("user_id", userID).
		Float64("distance_km", trip.DistanceKm).
		Bool("simulated", simulated).
		Msg("trip recorded")

	return trip, nil
}

// List retrieves trips for a user, newest first.
func (s *Service) List(ctx context.Context, userID string, limit int, cursor string) (*ListResult, error) {
	return s.repo.List(ctx, userID, ListOptions{Limit: limit, Cursor: cursor})
}

// Get retrieves a trip by ID for a user.
func (s *Service) Get(ctx context.Context, userID, tripID string) (*Trip, error) {
	return s.repo.GetByUserAndID(ctx, userID, tripID)
}

// Delete deletes a trip for a user.
func (s *Service) Delete(ctx context.Context, userID, tripID string) error {
	// Verify ownership
	if _, err := s.repo.GetByUserAndID(ctx, userID, tripID); err != nil {
		if errors.Is(err, ErrTripNotFound) {
			return ErrTripNotFound
		}
		return err
	}

	return s.repo.Delete(ctx, tripID)
}

// DeleteAll removes every trip belonging to a user.
func (s *Service) DeleteAll(ctx context.Context, userID string) error {
	return s.repo.DeleteAllForUser(ctx, userID)
}

// SinkFor returns a navigation record sink that files completed trips under
// the given user.
func (s *Service) SinkFor(userID string, simulated bool) navigation.RecordSink {
	return &userSink{service: s, userID: userID, simulated: simulated}
}

type userSink struct {
	service   *Service
	userID    string
	simulated bool
}

func (u *userSink) RecordTrip(ctx context.Context, record navigation.TripRecord) error {
	_, err := u.service.Record(ctx, u.userID, record, u.simulated)
	return err
}
