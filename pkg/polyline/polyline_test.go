package polyline

import (
	"math"
	"testing"
)

func TestDecode_ValidPolyline(t *testing.T) {
	tests := []struct {
		name     string
		encoded  string
		expected []Coordinate
	}{
		{
			name:    "single point",
			encoded: "_p~iF~ps|U",
			expected: []Coordinate{
				{Lat: 38.5, Lon: -120.2},
			},
		},
		{
			name:    "two points",
			encoded: "_p~iF~ps|U_ulLnnqC",
			expected: []Coordinate{
				{Lat: 38.5, Lon: -120.2},
				{Lat: 40.7, Lon: -120.95},
			},
		},
		{
			name:    "three points - Google example",
			encoded: "_p~iF~ps|U_ulLnnqC_mqNvxq`@",
			expected: []Coordinate{
				{Lat: 38.5, Lon: -120.2},
				{Lat: 40.7, Lon: -120.95},
				{Lat: 43.252, Lon: -126.453},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Decode(tt.encoded)
			if len(result) != len(tt.expected) {
				t.Fatalf("expected %d coordinates, got %d", len(tt.expected), len(result))
			}

			for i, coord := range result {
				if !coordsEqual(coord, tt.expected[i], 0.001) {
					t.Errorf("coordinate %d: expected %+v, got %+v", i, tt.expected[i], coord)
				}
			}
		})
	}
}

func TestDecode_EmptyString(t *testing.T) {
	result := Decode("")
	if result != nil {
		t.Errorf("expected nil for empty string, got %v", result)
	}
}

func TestEncode_RoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		coords []Coordinate
	}{
		{
			name: "single point",
			coords: []Coordinate{
				{Lat: 38.5, Lon: -120.2},
			},
		},
		{
			name: "three points",
			coords: []Coordinate{
				{Lat: 38.5, Lon: -120.2},
				{Lat: 40.7, Lon: -120.95},
				{Lat: 43.252, Lon: -126.453},
			},
		},
		{
			name: "Sucat to Baclaran",
			coords: []Coordinate{
				{Lat: 14.4504, Lon: 121.0170},
				{Lat: 14.5176, Lon: 120.9934},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded := Encode(tt.coords)
			if encoded == "" {
				t.Fatal("expected non-empty encoded string")
			}

			decoded := Decode(encoded)
			if len(decoded) != len(tt.coords) {
				t.Fatalf("round-trip: expected %d coordinates, got %d", len(tt.coords), len(decoded))
			}

			for i, coord := range decoded {
				if !coordsEqual(coord, tt.coords[i], 0.00001) {
					t.Errorf("round-trip coordinate %d: expected %+v, got %+v", i, tt.coords[i], coord)
				}
			}
		})
	}
}

func TestEncode_EmptyCoordinates(t *testing.T) {
	if result := Encode(nil); result != "" {
		t.Errorf("expected empty string for nil coordinates, got %q", result)
	}
}

func TestDistance(t *testing.T) {
	tests := []struct {
		name           string
		a, b           Coordinate
		expectedMeters float64
		tolerance      float64
	}{
		{
			name:           "same point",
			a:              Coordinate{Lat: 14.45, Lon: 121.01},
			b:              Coordinate{Lat: 14.45, Lon: 121.01},
			expectedMeters: 0,
			tolerance:      0.001,
		},
		{
			name:           "1 degree latitude - roughly 111km",
			a:              Coordinate{Lat: 0, Lon: 0},
			b:              Coordinate{Lat: 1, Lon: 0},
			expectedMeters: 111000,
			tolerance:      1000,
		},
		{
			name:           "Sucat to Baclaran - roughly 8km",
			a:              Coordinate{Lat: 14.4504, Lon: 121.0170},
			b:              Coordinate{Lat: 14.5176, Lon: 120.9934},
			expectedMeters: 7900,
			tolerance:      500,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Distance(tt.a, tt.b)
			if math.Abs(result-tt.expectedMeters) > tt.tolerance {
				t.Errorf("expected ~%.0fm (±%.0f), got %.0fm", tt.expectedMeters, tt.tolerance, result)
			}
		})
	}
}

func TestLength_ValidRoute(t *testing.T) {
	if got := Length(nil); got != 0 {
		t.Errorf("expected 0 for nil coords, got %f", got)
	}
	if got := Length([]Coordinate{{Lat: 14.45, Lon: 121.01}}); got != 0 {
		t.Errorf("expected 0 for single point, got %f", got)
	}

	coords := []Coordinate{
		{Lat: 14.45, Lon: 121.01},
		{Lat: 14.46, Lon: 121.01}, // ~1.1km north
		{Lat: 14.47, Lon: 121.01},
	}
	got := Length(coords)
	if math.Abs(got-2220) > 50 {
		t.Errorf("expected ~2220m, got %.0fm", got)
	}
}

func TestMidpoint(t *testing.T) {
	mid := Midpoint(Coordinate{Lat: 14.44, Lon: 121.00}, Coordinate{Lat: 14.46, Lon: 121.02})
	if !coordsEqual(mid, Coordinate{Lat: 14.45, Lon: 121.01}, 0.000001) {
		t.Errorf("unexpected midpoint %+v", mid)
	}
}

func TestSampleIndices(t *testing.T) {
	t.Run("long polyline capped near maxSamples", func(t *testing.T) {
		coords := make([]Coordinate, 200)
		for i := range coords {
			coords[i] = Coordinate{Lat: 14.40 + float64(i)*0.001, Lon: 121.01}
		}

		sampled := SampleIndices(coords, 20)
		if len(sampled) < 20 || len(sampled) > 21 {
			t.Errorf("expected ~20 samples, got %d", len(sampled))
		}
		if !coordsEqual(sampled[0], coords[0], 0.000001) {
			t.Errorf("first sample should be the first coordinate")
		}
	})

	t.Run("short polyline returns every vertex", func(t *testing.T) {
		coords := []Coordinate{
			{Lat: 14.44, Lon: 121.00},
			{Lat: 14.45, Lon: 121.01},
			{Lat: 14.46, Lon: 121.02},
		}
		sampled := SampleIndices(coords, 20)
		if len(sampled) != len(coords) {
			t.Errorf("expected all %d vertices, got %d", len(coords), len(sampled))
		}
	})

	t.Run("empty input", func(t *testing.T) {
		if got := SampleIndices(nil, 20); got != nil {
			t.Errorf("expected nil for empty coords")
		}
	})
}

func TestCumulativeDistances(t *testing.T) {
	coords := []Coordinate{
		{Lat: 14.45, Lon: 121.01},
		{Lat: 14.46, Lon: 121.01},
		{Lat: 14.47, Lon: 121.01},
	}

	cum := CumulativeDistances(coords)
	if len(cum) != len(coords) {
		t.Fatalf("expected %d entries, got %d", len(coords), len(cum))
	}
	if cum[0] != 0 {
		t.Errorf("first entry should be 0, got %f", cum[0])
	}
	if cum[1] >= cum[2] {
		t.Errorf("cumulative distances should be strictly increasing: %v", cum)
	}
	if math.Abs(cum[2]-Length(coords)) > 0.001 {
		t.Errorf("last entry %.2f should equal polyline length %.2f", cum[2], Length(coords))
	}
}

func TestProjectDistance(t *testing.T) {
	// A straight north-south polyline, ~1.1km per segment.
	coords := []Coordinate{
		{Lat: 14.45, Lon: 121.01},
		{Lat: 14.46, Lon: 121.01},
		{Lat: 14.47, Lon: 121.01},
	}
	cum := CumulativeDistances(coords)

	t.Run("point at start", func(t *testing.T) {
		got := ProjectDistance(coords, cum, coords[0])
		if got > 1 {
			t.Errorf("expected ~0m, got %.2fm", got)
		}
	})

	t.Run("point at end", func(t *testing.T) {
		got := ProjectDistance(coords, cum, coords[2])
		if math.Abs(got-cum[2]) > 1 {
			t.Errorf("expected ~%.0fm, got %.2fm", cum[2], got)
		}
	})

	t.Run("point midway along first segment", func(t *testing.T) {
		got := ProjectDistance(coords, cum, Coordinate{Lat: 14.455, Lon: 121.0101})
		if math.Abs(got-cum[1]/2) > 20 {
			t.Errorf("expected ~%.0fm, got %.2fm", cum[1]/2, got)
		}
	})

	t.Run("point off to the side projects onto nearest segment", func(t *testing.T) {
		got := ProjectDistance(coords, cum, Coordinate{Lat: 14.465, Lon: 121.02})
		if got < cum[1] || got > cum[2] {
			t.Errorf("expected projection within second segment [%.0f, %.0f], got %.2f", cum[1], cum[2], got)
		}
	})
}

// coordsEqual checks if two coordinates are equal within a tolerance.
func coordsEqual(a, b Coordinate, tolerance float64) bool {
	return math.Abs(a.Lat-b.Lat) <= tolerance && math.Abs(a.Lon-b.Lon) <= tolerance
}

func BenchmarkDecode(b *testing.B) {
	encoded := "_p~iF~ps|U_ulLnnqC_mqNvxq`@"
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = Decode(encoded)
	}
}
