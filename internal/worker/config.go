// Package worker provides background job processing for LakbaySafe.
package worker

import (
	"time"

	"github.com/lakbaysafe/lakbaysafe/internal/floodzone"
)

// PrewarmTarget represents a geographic region whose weather caches are kept
// warm.
type PrewarmTarget struct {
	// Name is the human-readable name of the target.
	Name string

	// Points are the lat/lon coordinates to pre-warm.
	// Typically flood-zone centers and major commuter hubs.
	Points []Point

	// Priority determines pre-warm order (lower = higher priority).
	Priority int
}

// Point represents a geographic coordinate.
type Point struct {
	Lat float64
	Lon float64
}

// PrewarmConfig holds configuration for the weather pre-warm job.
type PrewarmConfig struct {
	// Targets are the geographic regions to pre-warm.
	// If empty, uses DefaultPrewarmTargets.
	Targets []PrewarmTarget

	// Concurrency is the number of concurrent pre-warm operations.
	// Default: 3
	Concurrency int

	// Timeout is the timeout for each pre-warm operation.
	// Default: 30 seconds
	Timeout time.Duration
}

// DefaultPrewarmConfig returns the default pre-warm configuration.
func DefaultPrewarmConfig() PrewarmConfig {
	return PrewarmConfig{
		Targets:     DefaultPrewarmTargets(),
		Concurrency: 3,
		Timeout:     30 * time.Second,
	}
}

// DefaultPrewarmTargets returns the default pre-warm targets for Metro
// Manila. Flood-zone centers come first so hazard scoring always sees fresh
// weather for the areas that matter most.
func DefaultPrewarmTargets() []PrewarmTarget {
	return []PrewarmTarget{
		{
			Name:     "flood-zones",
			Priority: 1,
			Points:   floodZonePoints(),
		},
		{
			Name:     "Parañaque",
			Priority: 2,
			Points: []Point{
				{Lat: 14.4793, Lon: 121.0198}, // Baclaran
				{Lat: 14.4699, Lon: 121.0170}, // Parañaque City Hall
				{Lat: 14.4889, Lon: 121.0414}, // Bicutan interchange
			},
		},
		{
			Name:     "Makati",
			Priority: 2,
			Points: []Point{
				{Lat: 14.5547, Lon: 121.0244}, // Ayala Triangle
				{Lat: 14.5654, Lon: 121.0285}, // Guadalupe
			},
		},
		{
			Name:     "Pasay",
			Priority: 2,
			Points: []Point{
				{Lat: 14.5378, Lon: 121.0014}, // EDSA-Taft
				{Lat: 14.5086, Lon: 120.9822}, // NAIA Terminal 1
			},
		},
		{
			Name:     "Las Piñas",
			Priority: 3,
			Points: []Point{
				{Lat: 14.4445, Lon: 120.9939}, // Zapote
			},
		},
		{
			Name:     "Muntinlupa",
			Priority: 3,
			Points: []Point{
				{Lat: 14.4081, Lon: 121.0415}, // Alabang
			},
		},
	}
}

// floodZonePoints extracts the default flood-zone centers.
func floodZonePoints() []Point {
	zones := floodzone.NewRegistry().Zones()
	points := make([]Point, 0, len(zones))
	for _, z := range zones {
		points = append(points, Point{Lat: z.Center.Lat, Lon: z.Center.Lon})
	}
	return points
}

// AllPoints returns all points from all targets, ordered by priority.
func (c PrewarmConfig) AllPoints() []Point {
	var points []Point
	for _, target := range c.Targets {
		points = append(points, target.Points...)
	}
	return points
}

// TotalPoints returns the total number of points to pre-warm.
func (c PrewarmConfig) TotalPoints() int {
	total := 0
	for _, target := range c.Targets {
		total += len(target.Points)
	}
	return total
}
