package triphistory

import "context"

// ListOptions contains options for listing trips.
type ListOptions struct {
	Limit  int
	Cursor string
}

// ListResult contains the results of listing trips.
type ListResult struct {
	Items      []*Trip
	NextCursor string
}

// Repository defines the interface for trip persistence.
type Repository interface {
	// GetByUserAndID retrieves a trip by user ID and trip ID.
	// Returns ErrTripNotFound if the trip doesn't exist or doesn't belong to the user.
	GetByUserAndID(ctx context.Context, userID, tripID string) (*Trip, error)

	// List retrieves trips for a user, newest first, with pagination.
	List(ctx context.Context, userID string, opts ListOptions) (*ListResult, error)

	// Create persists a new trip.
	Create(ctx context.Context, trip *Trip) error

	// Delete deletes a trip by ID.
	Delete(ctx context.Context, id string) error

	// DeleteAllForUser removes every trip belonging to a user.
	DeleteAllForUser(ctx context.Context, userID string) error
}
