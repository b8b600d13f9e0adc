// Package floodzone provides a static registry of known flood-prone zones
// used for route hazard checks.
package floodzone

import "github.com/lakbaysafe/lakbaysafe/pkg/polyline"

// Zone represents a named flood-prone area as a center point and radius.
type Zone struct {
	// Name is the human-readable zone name.
	Name string

	// Center is the zone's center point.
	Center polyline.Coordinate

	// RadiusKm is the zone radius in kilometers.
	RadiusKm float64
}

// Contains reports whether the point falls within the zone plus an extra
// tolerance in kilometers.
func (z Zone) Contains(p polyline.Coordinate, toleranceKm float64) bool {
	distKm := polyline.Distance(z.Center, p) / 1000
	return distKm <= z.RadiusKm+toleranceKm
}
