package geo

// Point represents a geographic coordinate
type Point struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lng"`
}

// Valid reports whether the point lies within latitude [-90, 90] and longitude [-180, 180].
func (p Point) Valid() bool {
	return p.Latitude >= -90 && p.Latitude <= 90 &&
		p.Longitude >= -180 && p.Longitude <= 180
}

// LngLat returns the point in GeoJSON axis order.
func (p Point) LngLat() [2]float64 {
	return [2]float64{p.Longitude, p.Latitude}
}

// BoundingBox is an axis-aligned box in degrees
type BoundingBox struct {
	MinLat float64 `json:"min_lat"`
	MinLng float64 `json:"min_lng"`
	MaxLat float64 `json:"max_lat"`
	MaxLng float64 `json:"max_lng"`
}

// Contains reports whether p is inside the box, edges included.
func (b BoundingBox) Contains(p Point) bool {
	return p.Latitude >= b.MinLat && p.Latitude <= b.MaxLat &&
		p.Longitude >= b.MinLng && p.Longitude <= b.MaxLng
}

// MultiPolygon is a set of closed rings. A point is excluded if it falls inside any ring.
type MultiPolygon struct {
	Polygons [][]Point `json:"polygons"`
}

// Empty reports whether the multipolygon has no rings.
func (m MultiPolygon) Empty() bool {
	return len(m.Polygons) == 0
}

// GeoJSON returns the coordinates member of a GeoJSON MultiPolygon: polygons of rings of [lng, lat].
func (m MultiPolygon) GeoJSON() [][][][2]float64 {
	out := make([][][][2]float64, 0, len(m.Polygons))
	for _, ring := range m.Polygons {
		coords := make([][2]float64, len(ring))
		for i, p := range ring {
			coords[i] = p.LngLat()
		}
		out = append(out, [][][2]float64{coords})
	}
	return out
}
