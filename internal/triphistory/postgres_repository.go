package triphistory

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository is a PostgreSQL implementation of Repository.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL trip repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const tripColumns = `
	id, user_id, route_id,
	origin_lat, origin_lon,
	destination_lat, destination_lon,
	distance_km, duration_minutes, simulated,
	started_at, ended_at, created_at
`

// GetByUserAndID retrieves a trip by user ID and trip ID.
func (r *PostgresRepository) GetByUserAndID(ctx context.Context, userID, tripID string) (*Trip, error) {
	query := `
		SELECT ` + tripColumns + `
		FROM trips
		WHERE id = $1 AND user_id = $2
	`

	var trip Trip
	err := r.pool.QueryRow(ctx, query, tripID, userID).Scan(
		&trip.ID,
		&trip.UserID,
		&trip.RouteID,
		&trip.Origin.Lat,
		&trip.Origin.Lon,
		&trip.Destination.Lat,
		&trip.Destination.Lon,
		&trip.DistanceKm,
		&trip.DurationMinutes,
		&trip.Simulated,
		&trip.StartedAt,
		&trip.EndedAt,
		&trip.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTripNotFound
		}
		return nil, err
	}

	return &trip, nil
}

// List retrieves trips for a user, newest first, with pagination.
func (r *PostgresRepository) List(ctx context.Context, userID string, opts ListOptions) (*ListResult, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}
	// Fetch one extra to determine if there are more results
	fetchLimit := limit + 1

	query := `
		SELECT ` + tripColumns + `
		FROM trips
		WHERE user_id = $1
		ORDER BY started_at DESC, id DESC
		LIMIT $2
	`
	args := []any{userID, fetchLimit}

	if opts.Cursor != "" {
		// Keyset pagination: resume strictly after the cursor row. The id
		// tiebreak keeps trips with identical start times from repeating
		// or being skipped across pages.
		query = `
			SELECT ` + tripColumns + `
			FROM trips
			WHERE user_id = $1
			  AND (started_at, id) < (
				SELECT started_at, id FROM trips WHERE id = $3 AND user_id = $1
			  )
			ORDER BY started_at DESC, id DESC
			LIMIT $2
		`
		args = append(args, opts.Cursor)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trips []*Trip
	for rows.Next() {
		var trip Trip
		err := rows.Scan(
			&trip.ID,
			&trip.UserID,
			&trip.RouteID,
			&trip.Origin.Lat,
			&trip.Origin.Lon,
			&trip.Destination.Lat,
			&trip.Destination.Lon,
			&trip.DistanceKm,
			&trip.DurationMinutes,
			&trip.Simulated,
			&trip.StartedAt,
			&trip.EndedAt,
			&trip.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		trips = append(trips, &trip)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	result := &ListResult{
		Items: trips,
	}

	// If we got more results than the limit, there are more pages
	if len(trips) > limit {
		result.Items = trips[:limit]
		result.NextCursor = trips[limit-1].ID
	}

	return result, nil
}

// Create persists a new trip.
func (r *PostgresRepository) Create(ctx context.Context, trip *Trip) error {
	query := `
		INSERT INTO trips (
			id, user_id, route_id,
			origin_lat, origin_lon,
			destination_lat, destination_lon,
			distance_km, duration_minutes, simulated,
			started_at, ended_at, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := r.pool.Exec(ctx, query,
		trip.ID,
		trip.UserID,
		trip.RouteID,
		trip.Origin.Lat,
		trip.Origin.Lon,
		trip.Destination.Lat,
		trip.Destination.Lon,
		trip.DistanceKm,
		trip.DurationMinutes,
		trip.Simulated,
		trip.StartedAt,
		trip.EndedAt,
		trip.CreatedAt,
	)
	return err
}

// Delete deletes a trip by ID.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM trips WHERE id = $1`
	_, err := r.pool.Exec(ctx, query, id)
	return err
}

// DeleteAllForUser removes every trip belonging to a user.
func (r *PostgresRepository) DeleteAllForUser(ctx context.Context, userID string) error {
	query := `DELETE FROM trips WHERE user_id = $1`
	_, err := r.pool.Exec(ctx, query, userID)
	return err
}

// Ensure PostgresRepository implements Repository interface.
var _ Repository = (*PostgresRepository)(nil)
