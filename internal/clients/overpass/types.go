package overpass

import "github.com/dpup/fireproof/server/internal/lib/geo"

// Category is a kind of place that can serve as a refuge
type Category string

const (
	CategoryHospital        Category = "hospital"
	CategoryFireStation     Category = "fire_station"
	CategoryPolice          Category = "police"
	CategoryShelter         Category = "shelter"
	CategorySchool          Category = "school"
	CategoryCommunityCenter Category = "community_center"
	CategoryStadium         Category = "stadium"
)

// AllCategories lists every category in query order
var AllCategories = []Category{
	CategoryHospital,
	CategoryFireStation,
	CategoryPolice,
	CategoryShelter,
	CategorySchool,
	CategoryCommunityCenter,
	CategoryStadium,
}

// categoryTags maps each category to its OSM tag key and value
var categoryTags = map[Category][2]string{
	CategoryHospital:        {"amenity", "hospital"},
	CategoryFireStation:     {"amenity", "fire_station"},
	CategoryPolice:          {"amenity", "police"},
	CategoryShelter:         {"amenity", "shelter"},
	CategorySchool:          {"amenity", "school"},
	CategoryCommunityCenter: {"amenity", "community_centre"},
	CategoryStadium:         {"leisure", "stadium"},
}

// Place is a point of interest returned by Overpass
type Place struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Category Category  `json:"place_type"`
	Location geo.Point `json:"location"`
	Address  string    `json:"address,omitempty"`
	Phone    string    `json:"phone,omitempty"`
}

// Response is the JSON body returned by the interpreter endpoint
type Response struct {
	Elements []Element `json:"elements"`
}

// Element is a node, way or relation. Ways and relations carry a center when queried with
// "out center".
type Element struct {
	Type   string            `json:"type"`
	ID     int64             `json:"id"`
	Lat    *float64          `json:"lat"`
	Lon    *float64          `json:"lon"`
	Center *Center           `json:"center"`
	Tags   map[string]string `json:"tags"`
}

// Center is the centroid of a way or relation
type Center struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}
