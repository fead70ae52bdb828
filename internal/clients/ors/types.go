package ors

// directionsRequest is the JSON body of a directions call
type directionsRequest struct {
	Coordinates  [][2]float64 `json:"coordinates"`
	Instructions bool         `json:"instructions"`
	Geometry     bool         `json:"geometry"`
	Options      *options     `json:"options,omitempty"`
}

type options struct {
	AvoidPolygons *avoidPolygons `json:"avoid_polygons,omitempty"`
}

type avoidPolygons struct {
	Type        string           `json:"type"`
	Coordinates [][][][2]float64 `json:"coordinates"`
}

// DirectionsResponse is the JSON body returned by ORS directions
type DirectionsResponse struct {
	Routes []Route `json:"routes"`
}

// Route is one route alternative
type Route struct {
	Summary  Summary   `json:"summary"`
	Geometry string    `json:"geometry"`
	Segments []Segment `json:"segments"`
}

// Summary holds route totals in meters and seconds
type Summary struct {
	Distance float64 `json:"distance"`
	Duration float64 `json:"duration"`
}

// Segment is the leg between two waypoints
type Segment struct {
	Distance float64 `json:"distance"`
	Duration float64 `json:"duration"`
	Steps    []Step  `json:"steps"`
}

// Step is one instruction
type Step struct {
	Distance    float64 `json:"distance"`
	Duration    float64 `json:"duration"`
	Type        int     `json:"type"`
	Instruction string  `json:"instruction"`
	Name        string  `json:"name"`
	WayPoints   []int   `json:"way_points"`
}

// ErrorResponse is the JSON body of a failed call
type ErrorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}
