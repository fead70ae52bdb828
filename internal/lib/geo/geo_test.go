package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDistanceKm(t *testing.T) {
	// Highway 4: Angels Camp to Murphys
	angelsCamp := Point{Latitude: 38.0675, Longitude: -120.5436}
	murphys := Point{Latitude: 38.1391, Longitude: -120.4561}

	assert.InDelta(t, 11.046, DistanceKm(angelsCamp, murphys), 0.1)
	assert.Equal(t, DistanceKm(angelsCamp, murphys), DistanceKm(murphys, angelsCamp))
	assert.Zero(t, DistanceKm(angelsCamp, angelsCamp))
}

func TestDistanceKm_TriangleInequality(t *testing.T) {
	a := Point{Latitude: 34.05, Longitude: -118.24}
	b := Point{Latitude: 36.17, Longitude: -115.14}
	c := Point{Latitude: 37.77, Longitude: -122.42}

	assert.LessOrEqual(t, DistanceKm(a, c), DistanceKm(a, b)+DistanceKm(b, c)+1e-9)
	assert.LessOrEqual(t, DistanceKm(a, b), DistanceKm(a, c)+DistanceKm(c, b)+1e-9)
}

func TestDistanceKm_OneDegreeOfLatitude(t *testing.T) {
	d := DistanceKm(Point{Latitude: 0, Longitude: 0}, Point{Latitude: 1, Longitude: 0})
	assert.InDelta(t, EarthRadiusKm*math.Pi/180, d, 1e-6)
}

func TestKmToDegrees(t *testing.T) {
	dLat, dLng := KmToDegrees(111, 0)
	assert.InDelta(t, 1.0, dLat, 1e-9)
	assert.InDelta(t, 1.0, dLng, 1e-9)

	dLat, dLng = KmToDegrees(111, 60)
	assert.InDelta(t, 1.0, dLat, 1e-9)
	assert.InDelta(t, 2.0, dLng, 1e-9, "longitude degrees shrink with cos(latitude)")
}

func TestNewPoint(t *testing.T) {
	p, err := NewPoint(38.1, -120.5)
	require.NoError(t, err)
	assert.Equal(t, Point{Latitude: 38.1, Longitude: -120.5}, p)

	_, err = NewPoint(91, 0)
	assert.Error(t, err)
	_, err = NewPoint(0, -181)
	assert.Error(t, err)
}

func TestBoundingBoxAround(t *testing.T) {
	center := Point{Latitude: 0, Longitude: 10}
	box := BoundingBoxAround(center, 111)

	assert.InDelta(t, -1.0, box.MinLat, 1e-9)
	assert.InDelta(t, 1.0, box.MaxLat, 1e-9)
	assert.InDelta(t, 9.0, box.MinLng, 1e-9)
	assert.InDelta(t, 11.0, box.MaxLng, 1e-9)
	assert.True(t, box.Contains(center))
	assert.False(t, box.Contains(Point{Latitude: 2, Longitude: 10}))
}

func TestCirclePolygon(t *testing.T) {
	center := Point{Latitude: 38.2, Longitude: -120.3}
	ring := CirclePolygon(center, 3, 16)

	require.Len(t, ring, 17)
	assert.Equal(t, ring[0], ring[16], "ring must be closed")

	dLat, dLng := KmToDegrees(3, center.Latitude)
	// angle 0 lies due east, angle pi/2 due north
	assert.InDelta(t, center.Longitude+dLng, ring[0].Longitude, 1e-9)
	assert.InDelta(t, center.Latitude, ring[0].Latitude, 1e-9)
	assert.InDelta(t, center.Latitude+dLat, ring[4].Latitude, 1e-9)

	for _, p := range ring {
		assert.InDelta(t, 3.0, DistanceKm(center, p), 0.1)
	}
}

func TestCirclePolygon_DefaultsSmallN(t *testing.T) {
	ring := CirclePolygon(Point{Latitude: 10, Longitude: 10}, 1, 0)
	assert.Len(t, ring, DefaultPolygonPoints+1)
}

func TestDecodePath(t *testing.T) {
	points, err := DecodePath("_p~iF~ps|U_ulLnnqC_mqNvxq`@", DefaultPrecision)
	require.NoError(t, err)
	require.Len(t, points, 3)

	assert.InDelta(t, 38.5, points[0].Latitude, 1e-6)
	assert.InDelta(t, -120.2, points[0].Longitude, 1e-6)
	assert.InDelta(t, 40.7, points[1].Latitude, 1e-6)
	assert.InDelta(t, -120.95, points[1].Longitude, 1e-6)
	assert.InDelta(t, 43.252, points[2].Latitude, 1e-6)
	assert.InDelta(t, -126.453, points[2].Longitude, 1e-6)
}

func TestDecodePath_Empty(t *testing.T) {
	points, err := DecodePath("", DefaultPrecision)
	require.NoError(t, err)
	assert.Empty(t, points)
}

func TestEncodeDecodePath_RoundTrip(t *testing.T) {
	original := []Point{
		{Latitude: 38.0675, Longitude: -120.5436},
		{Latitude: 38.1, Longitude: -120.5},
		{Latitude: 38.1391, Longitude: -120.4561},
		{Latitude: -33.8688, Longitude: 151.2093},
	}

	for _, precision := range []int{5, 6} {
		encoded := EncodePath(original, precision)
		decoded, err := DecodePath(encoded, precision)
		require.NoError(t, err)
		require.Len(t, decoded, len(original))

		tolerance := math.Pow10(-precision)
		for i := range original {
			assert.InDelta(t, original[i].Latitude, decoded[i].Latitude, tolerance)
			assert.InDelta(t, original[i].Longitude, decoded[i].Longitude, tolerance)
		}
	}
}

func TestMultiPolygon_GeoJSON(t *testing.T) {
	ring := []Point{{Latitude: 1, Longitude: 2}, {Latitude: 3, Longitude: 4}, {Latitude: 1, Longitude: 2}}
	mp := MultiPolygon{Polygons: [][]Point{ring}}

	coords := mp.GeoJSON()
	require.Len(t, coords, 1)
	require.Len(t, coords[0], 1)
	assert.Equal(t, [2]float64{2, 1}, coords[0][0][0], "GeoJSON order is [lng, lat]")
	assert.False(t, mp.Empty())
	assert.True(t, MultiPolygon{}.Empty())
}

func TestRound(t *testing.T) {
	assert.Equal(t, 12.35, Round(12.3456, 2))
	assert.Equal(t, 12.3, Round(12.3456, 1))
	assert.Equal(t, 12.0, Round(12.3456, 0))
}
