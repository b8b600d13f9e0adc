package models

// Trip is a completed trip in the history.
type Trip struct {
	ID              string    `json:"id"`
	RouteID         string    `json:"routeId"`
	Origin          Point     `json:"origin"`
	Destination     Point     `json:"destination"`
	DistanceKm      float64   `json:"distanceKm"`
	DurationMinutes float64   `json:"durationMinutes"`
	Simulated       bool      `json:"simulated"`
	StartedAt       Timestamp `json:"startedAt"`
	EndedAt         Timestamp `json:"endedAt"`
}

// PagedTrips is a page of trip history.
type PagedTrips struct {
	Items []Trip            `json:"items"`
	Meta  PagedResponseMeta `json:"meta"`
}

// FloodZone is a known flood-prone area.
type FloodZone struct {
	Name     string  `json:"name"`
	Center   Point   `json:"center"`
	RadiusKm float64 `json:"radiusKm"`
}

// FloodZoneList is the flood-zone registry response.
type FloodZoneList struct {
	Zones []FloodZone `json:"zones"`
}
