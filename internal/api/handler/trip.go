package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/lakbaysafe/lakbaysafe/internal/api/models"
	"github.com/lakbaysafe/lakbaysafe/internal/api/response"
	"github.com/lakbaysafe/lakbaysafe/internal/triphistory"
)

const (
	defaultTripPageSize = 20
	maxTripPageSize     = 100
)

// TripHandler handles trip-history endpoints.
type TripHandler struct {
	trips *triphistory.Service
}

// NewTripHandler creates a new TripHandler.
func NewTripHandler(trips *triphistory.Service) *TripHandler {
	return &TripHandler{trips: trips}
}

// ListTrips handles GET /v1/trips - list the caller's trips, newest first.
func (h *TripHandler) ListTrips(w http.ResponseWriter, r *http.Request) {
	userID := GetUserID(r.Context())

	limit := defaultTripPageSize
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			response.BadRequest(w, r, "limit must be a positive integer", []models.FieldError{
				{Field: "limit", Message: "must be a positive integer"},
			})
			return
		}
		limit = parsed
	}
	if limit > maxTripPageSize {
		limit = maxTripPageSize
	}

	result, err := h.trips.List(r.Context(), userID, limit, r.URL.Query().Get("cursor"))
	if err != nil {
		response.InternalError(w, r, "failed to list trips")
		return
	}

	items := make([]models.Trip, 0, len(result.Items))
	for _, trip := range result.Items {
		items = append(items, toAPITrip(trip))
	}

	page := models.PagedTrips{
		Items: items,
		Meta:  models.PagedResponseMeta{Limit: limit},
	}
	if result.NextCursor != "" {
		cursor := result.NextCursor
		page.Meta.NextCursor = &cursor
	}

	response.JSON(w, r, http.StatusOK, page)
}

// GetTrip handles GET /v1/trips/{tripId} - fetch one trip.
func (h *TripHandler) GetTrip(w http.ResponseWriter, r *http.Request) {
	userID := GetUserID(r.Context())
	tripID := chi.URLParam(r, "tripId")

	trip, err := h.trips.Get(r.Context(), userID, tripID)
	if err != nil {
		if errors.Is(err, triphistory.ErrTripNotFound) {
			response.NotFound(w, r, "trip not found")
			return
		}
		response.InternalError(w, r, "failed to fetch trip")
		return
	}

	response.JSON(w, r, http.StatusOK, toAPITrip(trip))
}

// DeleteTrip handles DELETE /v1/trips/{tripId} - delete one trip.
func (h *TripHandler) DeleteTrip(w http.ResponseWriter, r *http.Request) {
	userID := GetUserID(r.Context())
	tripID := chi.URLParam(r, "tripId")

	if err := h.trips.Delete(r.Context(), userID, tripID); err != nil {
		if errors.Is(err, triphistory.ErrTripNotFound) {
			response.NotFound(w, r, "trip not found")
			return
		}
		response.InternalError(w, r, "failed to delete trip")
		return
	}

	response.NoContent(w, r)
}

// DeleteAllTrips handles DELETE /v1/trips - clear the caller's trip history.
func (h *TripHandler) DeleteAllTrips(w http.ResponseWriter, r *http.Request) {
	userID := GetUserID(r.Context())

	if err := h.trips.DeleteAll(r.Context(), userID); err != nil {
		response.InternalError(w, r, "failed to delete trips")
		return
	}

	response.NoContent(w, r)
}

func toAPITrip(trip *triphistory.Trip) models.Trip {
	return models.Trip{
		ID:              trip.ID,
		RouteID:         trip.RouteID,
		Origin:          models.Point{Lat: trip.Origin.Lat, Lon: trip.Origin.Lon},
		Destination:     models.Point{Lat: trip.Destination.Lat, Lon: trip.Destination.Lon},
		DistanceKm:      trip.DistanceKm,
		DurationMinutes: trip.DurationMinutes,
		Simulated:       trip.Simulated,
		StartedAt:       models.Timestamp(trip.StartedAt),
		EndedAt:         models.Timestamp(trip.EndedAt),
	}
}
