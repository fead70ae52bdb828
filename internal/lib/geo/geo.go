package geo

import (
	"errors"
	"fmt"
	"math"

	"github.com/golang/geo/s2"
	"github.com/twpayne/go-polyline"
)

const (
	// EarthRadiusKm is the sphere radius used for great-circle distances.
	EarthRadiusKm = 6371.0

	// KmPerDegreeLat is the flat conversion used for degree offsets.
	KmPerDegreeLat = 111.0

	// DefaultPolygonPoints is the number of vertices used to approximate a circle.
	DefaultPolygonPoints = 16

	// DefaultPrecision is the polyline precision used by most routing providers.
	DefaultPrecision = 5
)

// ErrInvalidCoordinates is returned for points outside the valid latitude/longitude range.
var ErrInvalidCoordinates = errors.New("invalid coordinates: latitude must be [-90, 90], longitude must be [-180, 180]")

// NewPoint creates a Point from latitude and longitude values with validation
func NewPoint(latitude, longitude float64) (Point, error) {
	point := Point{Latitude: latitude, Longitude: longitude}
	if !point.Valid() {
		return Point{}, ErrInvalidCoordinates
	}
	return point, nil
}

// DistanceKm returns the haversine great-circle distance between a and b in kilometers.
func DistanceKm(a, b Point) float64 {
	if a == b {
		return 0
	}
	// s2 computes the central angle with the haversine formula.
	angle := s2.LatLngFromDegrees(a.Latitude, a.Longitude).Distance(s2.LatLngFromDegrees(b.Latitude, b.Longitude))
	return angle.Radians() * EarthRadiusKm
}

// KmToDegrees converts a distance to latitude and longitude offsets at the given latitude.
// The longitude offset grows without bound towards the poles.
func KmToDegrees(km, latitude float64) (dLat, dLng float64) {
	dLat = km / KmPerDegreeLat
	dLng = km / (KmPerDegreeLat * math.Cos(latitude*math.Pi/180))
	return dLat, dLng
}

// BoundingBoxAround returns the box spanning radiusKm in each direction from center.
func BoundingBoxAround(center Point, radiusKm float64) BoundingBox {
	dLat, dLng := KmToDegrees(radiusKm, center.Latitude)
	return BoundingBox{
		MinLat: center.Latitude - dLat,
		MinLng: center.Longitude - dLng,
		MaxLat: center.Latitude + dLat,
		MaxLng: center.Longitude + dLng,
	}
}

// CirclePolygon samples n points evenly around a circle and closes the ring by repeating the
// first point, so the result has n+1 points. n below 3 falls back to DefaultPolygonPoints.
func CirclePolygon(center Point, radiusKm float64, n int) []Point {
	if n < 3 {
		n = DefaultPolygonPoints
	}
	dLat, dLng := KmToDegrees(radiusKm, center.Latitude)

	ring := make([]Point, 0, n+1)
	for i := 0; i < n; i++ {
		angle := 2 * math.Pi * float64(i) / float64(n)
		ring = append(ring, Point{
			Latitude:  center.Latitude + dLat*math.Sin(angle),
			Longitude: center.Longitude + dLng*math.Cos(angle),
		})
	}
	return append(ring, ring[0])
}

func codec(precision int) polyline.Codec {
	if precision <= 0 {
		precision = DefaultPrecision
	}
	return polyline.Codec{Dim: 2, Scale: math.Pow10(precision)}
}

// DecodePath decodes an encoded polyline into points. An empty string decodes to no points.
func DecodePath(encoded string, precision int) ([]Point, error) {
	if encoded == "" {
		return nil, nil
	}

	coords, _, err := codec(precision).DecodeCoords([]byte(encoded))
	if err != nil {
		return nil, fmt.Errorf("failed to decode polyline: %w", err)
	}

	points := make([]Point, len(coords))
	for i, coord := range coords {
		points[i] = Point{Latitude: coord[0], Longitude: coord[1]}
		if !points[i].Valid() {
			return nil, errors.New("decoded polyline contains invalid coordinates")
		}
	}
	return points, nil
}

// EncodePath encodes points as a polyline at the given precision.
func EncodePath(points []Point, precision int) string {
	coords := make([][]float64, len(points))
	for i, p := range points {
		coords[i] = []float64{p.Latitude, p.Longitude}
	}
	return string(codec(precision).EncodeCoords(nil, coords))
}

// Round rounds v to the given number of decimal places.
func Round(v float64, places int) float64 {
	scale := math.Pow10(places)
	return math.Round(v*scale) / scale
}
