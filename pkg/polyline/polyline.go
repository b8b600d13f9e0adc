// Package polyline provides encoding, decoding and measurement utilities for
// Google's polyline algorithm and for working with decoded route geometry.
// The polyline algorithm is documented at: https://developers.google.com/maps/documentation/utilities/polylinealgorithm
package polyline

import (
	"math"
)

// Coordinate represents a geographic point with latitude and longitude.
type Coordinate struct {
	Lat float64
	Lon float64
}

// Decode decodes a polyline-encoded string into a slice of coordinates.
// The polyline format uses precision of 5 decimal places (standard Google/OSRM format).
func Decode(encoded string) []Coordinate {
	if encoded == "" {
		return nil
	}

	var coords []Coordinate
	index := 0
	lat := 0
	lon := 0

	for index < len(encoded) {
		latDelta, newIndex := decodeValue(encoded, index)
		index = newIndex
		lat += latDelta

		lonDelta, newIndex := decodeValue(encoded, index)
		index = newIndex
		lon += lonDelta

		coords = append(coords, Coordinate{
			Lat: float64(lat) / 1e5,
			Lon: float64(lon) / 1e5,
		})
	}

	return coords
}

// decodeValue decodes a single value from the polyline at the given index.
// Returns the decoded delta value and the new index position.
func decodeValue(encoded string, index int) (int, int) {
	shift := 0
	result := 0

	for index < len(encoded) {
		b := int(encoded[index]) - 63
		index++
		result |= (b & 0x1f) << shift
		shift += 5
		if b < 0x20 {
			break
		}
	}

	// Apply two's complement for negative values
	if result&1 != 0 {
		return ^(result >> 1), index
	}
	return result >> 1, index
}

// Encode encodes a slice of coordinates into a polyline-encoded string.
func Encode(coords []Coordinate) string {
	if len(coords) == 0 {
		return ""
	}

	encoded := make([]byte, 0, len(coords)*4)
	prevLat := 0
	prevLon := 0

	for _, coord := range coords {
		lat := int(math.Round(coord.Lat * 1e5))
		lon := int(math.Round(coord.Lon * 1e5))

		encoded = encodeValue(encoded, lat-prevLat)
		encoded = encodeValue(encoded, lon-prevLon)

		prevLat = lat
		prevLon = lon
	}

	return string(encoded)
}

// encodeValue encodes a single integer value using the polyline algorithm.
func encodeValue(buf []byte, value int) []byte {
	if value < 0 {
		value = ^(value << 1)
	} else {
		value <<= 1
	}

	for value >= 0x20 {
		buf = append(buf, byte((value&0x1f)|0x20)+63)
		value >>= 5
	}
	buf = append(buf, byte(value)+63)

	return buf
}

const earthRadiusMeters = 6371000

// Distance calculates the haversine distance between two coordinates in meters.
func Distance(a, b Coordinate) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	sinDLat := math.Sin(dLat / 2)
	sinDLon := math.Sin(dLon / 2)

	h := sinDLat*sinDLat + math.Cos(lat1)*math.Cos(lat2)*sinDLon*sinDLon
	return 2 * earthRadiusMeters * math.Asin(math.Sqrt(h))
}

// Length calculates the total length of a polyline in meters.
func Length(coords []Coordinate) float64 {
	if len(coords) < 2 {
		return 0
	}

	var total float64
	for i := 1; i < len(coords); i++ {
		total += Distance(coords[i-1], coords[i])
	}
	return total
}

// Midpoint returns the arithmetic midpoint between two coordinates.
// Adequate at city scale; not an antimeridian-safe great-circle midpoint.
func Midpoint(a, b Coordinate) Coordinate {
	return Coordinate{
		Lat: (a.Lat + b.Lat) / 2,
		Lon: (a.Lon + b.Lon) / 2,
	}
}

// SampleIndices returns up to roughly maxSamples coordinates taken at even
// index intervals along the polyline. The first coordinate is always
// included, and the stride is derived from the vertex count so short and long
// polylines yield a comparable number of samples.
func SampleIndices(coords []Coordinate, maxSamples int) []Coordinate {
	if len(coords) == 0 || maxSamples <= 0 {
		return nil
	}

	step := len(coords) / maxSamples
	if step < 1 {
		step = 1
	}

	sampled := make([]Coordinate, 0, maxSamples+1)
	for i := 0; i < len(coords); i += step {
		sampled = append(sampled, coords[i])
	}
	return sampled
}

// CumulativeDistances returns, for each vertex of the polyline, the distance
// in meters traveled from the first vertex. The result has the same length
// as coords; the first entry is 0.
func CumulativeDistances(coords []Coordinate) []float64 {
	if len(coords) == 0 {
		return nil
	}

	cum := make([]float64, len(coords))
	for i := 1; i < len(coords); i++ {
		cum[i] = cum[i-1] + Distance(coords[i-1], coords[i])
	}
	return cum
}

// ProjectDistance returns the distance in meters traveled along the polyline
// to the point on it nearest to p. cum must be the result of
// CumulativeDistances for the same coords slice.
func ProjectDistance(coords []Coordinate, cum []float64, p Coordinate) float64 {
	if len(coords) < 2 {
		return 0
	}

	best := math.MaxFloat64
	bestDist := 0.0

	for i := 1; i < len(coords); i++ {
		frac, sepMeters := projectOntoSegment(coords[i-1], coords[i], p)
		if sepMeters < best {
			best = sepMeters
			segLen := cum[i] - cum[i-1]
			bestDist = cum[i-1] + frac*segLen
		}
	}

	return bestDist
}

// projectOntoSegment projects p onto the segment a-b using an equirectangular
// approximation (fine at segment scale). Returns the clamped fraction along
// the segment and the separation from p to the projected point in meters.
func projectOntoSegment(a, b, p Coordinate) (float64, float64) {
	// Scale longitude by cos(lat) so degrees are locally comparable.
	cosLat := math.Cos(a.Lat * math.Pi / 180)

	ax, ay := a.Lon*cosLat, a.Lat
	bx, by := b.Lon*cosLat, b.Lat
	px, py := p.Lon*cosLat, p.Lat

	dx, dy := bx-ax, by-ay
	lenSq := dx*dx + dy*dy

	frac := 0.0
	if lenSq > 0 {
		frac = ((px-ax)*dx + (py-ay)*dy) / lenSq
		frac = math.Max(0, math.Min(1, frac))
	}

	proj := Coordinate{
		Lat: a.Lat + frac*(b.Lat-a.Lat),
		Lon: a.Lon + frac*(b.Lon-a.Lon),
	}
	return frac, Distance(p, proj)
}
