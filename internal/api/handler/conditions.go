package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/lakbaysafe/lakbaysafe/internal/api/models"
	"github.com/lakbaysafe/lakbaysafe/internal/api/response"
	"github.com/lakbaysafe/lakbaysafe/internal/floodzone"
	"github.com/lakbaysafe/lakbaysafe/internal/weather"
	"github.com/lakbaysafe/lakbaysafe/pkg/polyline"
)

// ConditionsHandler exposes the flood-zone registry and trip weather
// summaries.
type ConditionsHandler struct {
	zones   *floodzone.Registry
	weather *weather.Service
}

// NewConditionsHandler creates a new ConditionsHandler.
func NewConditionsHandler(zones *floodzone.Registry, weatherSvc *weather.Service) *ConditionsHandler {
	return &ConditionsHandler{zones: zones, weather: weatherSvc}
}

// ListFloodZones handles GET /v1/flood-zones - return the known flood-prone
// areas.
func (h *ConditionsHandler) ListFloodZones(w http.ResponseWriter, r *http.Request) {
	zones := h.zones.Zones()

	out := make([]models.FloodZone, 0, len(zones))
	for _, z := range zones {
		out = append(out, models.FloodZone{
			Name:     z.Name,
			Center:   models.Point{Lat: z.Center.Lat, Lon: z.Center.Lon},
			RadiusKm: z.RadiusKm,
		})
	}

	w.Header().Set("Cache-Control", "public, max-age=3600")
	response.JSON(w, r, http.StatusOK, models.FloodZoneList{Zones: out})
}

// TripWeather handles GET /v1/weather:trip - aggregate weather between an
// origin and a destination.
func (h *ConditionsHandler) TripWeather(w http.ResponseWriter, r *http.Request) {
	origin, ok := pointParam(w, r, "originLat", "originLon")
	if !ok {
		return
	}
	destination, ok := pointParam(w, r, "destLat", "destLon")
	if !ok {
		return
	}

	conditions, err := h.weather.GetTripConditions(r.Context(), origin, destination)
	if err != nil {
		switch {
		case errors.Is(err, weather.ErrInvalidCoordinates):
			response.BadRequest(w, r, "coordinates out of range", nil)
		case errors.Is(err, weather.ErrProviderUnavailable):
			response.ServiceUnavailable(w, r, "weather provider unavailable")
		default:
			response.InternalError(w, r, "failed to fetch trip weather")
		}
		return
	}

	w.Header().Set("Cache-Control", "private, max-age=300")
	response.JSON(w, r, http.StatusOK, toAPIConditions(conditions))
}

// pointParam parses a coordinate pair from query parameters, writing a
// problem response when either value is missing or malformed.
func pointParam(w http.ResponseWriter, r *http.Request, latKey, lonKey string) (polyline.Coordinate, bool) {
	lat, err1 := strconv.ParseFloat(r.URL.Query().Get(latKey), 64)
	lon, err2 := strconv.ParseFloat(r.URL.Query().Get(lonKey), 64)
	if err1 != nil || err2 != nil {
		response.BadRequest(w, r, "query parameters "+latKey+" and "+lonKey+" are required", []models.FieldError{
			{Field: latKey, Message: "must be a number"},
			{Field: lonKey, Message: "must be a number"},
		})
		return polyline.Coordinate{}, false
	}
	return polyline.Coordinate{Lat: lat, Lon: lon}, true
}
