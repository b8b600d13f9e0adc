package floodzone

import "github.com/lakbaysafe/lakbaysafe/pkg/polyline"

// defaultZones lists the flood-prone areas of Parañaque City reported by the
// city DRRM office. Coordinates are zone centroids.
var defaultZones = []Zone{
	{Name: "CAA Road", Center: polyline.Coordinate{Lat: 14.4380, Lon: 121.0250}, RadiusKm: 0.5},
	{Name: "Quirino Avenue", Center: polyline.Coordinate{Lat: 14.5021, Lon: 120.9937}, RadiusKm: 0.6},
	{Name: "San Dionisio", Center: polyline.Coordinate{Lat: 14.4897, Lon: 120.9985}, RadiusKm: 0.7},
	{Name: "Don Galo", Center: polyline.Coordinate{Lat: 14.5048, Lon: 120.9892}, RadiusKm: 0.5},
	{Name: "La Huerta", Center: polyline.Coordinate{Lat: 14.5002, Lon: 120.9951}, RadiusKm: 0.4},
	{Name: "Sucat Road", Center: polyline.Coordinate{Lat: 14.4663, Lon: 121.0364}, RadiusKm: 0.8},
	{Name: "BF Homes Aguirre", Center: polyline.Coordinate{Lat: 14.4449, Lon: 121.0302}, RadiusKm: 0.6},
	{Name: "Multinational Village", Center: polyline.Coordinate{Lat: 14.4786, Lon: 121.0061}, RadiusKm: 0.5},
}

// Registry is a read-only lookup over a set of flood zones.
// Loaded once at construction and never mutated, so it is safe for
// concurrent readers.
type Registry struct {
	zones []Zone
}

// NewRegistry creates a registry over the default Parañaque zone table.
func NewRegistry() *Registry {
	return &Registry{zones: defaultZones}
}

// NewRegistryWithZones creates a registry over a caller-supplied zone table.
func NewRegistryWithZones(zones []Zone) *Registry {
	return &Registry{zones: zones}
}

// Zones returns all registered zones.
func (r *Registry) Zones() []Zone {
	return r.zones
}

// ZonesNear returns the zones whose radius, widened by toleranceKm, covers
// the given point.
func (r *Registry) ZonesNear(p polyline.Coordinate, toleranceKm float64) []Zone {
	var near []Zone
	for _, z := range r.zones {
		if z.Contains(p, toleranceKm) {
			near = append(near, z)
		}
	}
	return near
}
