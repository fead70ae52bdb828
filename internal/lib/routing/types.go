package routing

import (
	"context"
	"errors"

	"github.com/dpup/fireproof/server/internal/lib/danger"
	"github.com/dpup/fireproof/server/internal/lib/geo"
)

// Profile is a travel mode understood by the routing provider
type Profile string

const (
	ProfileDriving Profile = "driving-car"
	ProfileWalking Profile = "foot-walking"
	ProfileCycling Profile = "cycling-regular"
)

// Valid reports whether p is a supported profile.
func (p Profile) Valid() bool {
	switch p {
	case ProfileDriving, ProfileWalking, ProfileCycling:
		return true
	}
	return false
}

var (
	// ErrTimeout is returned when the routing provider did not answer in time.
	ErrTimeout = errors.New("routing service timeout")

	// ErrFailed is returned for any other routing provider failure, including malformed payloads.
	ErrFailed = errors.New("routing service failed")
)

// DirectionsRequest is a single path request to a routing provider
type DirectionsRequest struct {
	Origin      geo.Point
	Destination geo.Point
	Profile     Profile
	Avoid       *geo.MultiPolygon
}

// ProviderStep is one turn-by-turn step as returned by a provider. WayPoints index into the
// decoded geometry.
type ProviderStep struct {
	Instruction string
	DistanceM   float64
	DurationS   float64
	WayPoints   []int
}

// Directions is a provider's answer to a DirectionsRequest
type Directions struct {
	DistanceM float64
	DurationS float64
	Geometry  string
	Precision int
	Steps     []ProviderStep
}

// Provider computes paths between two points. A nil result with a nil error means no route exists.
// Failures should wrap ErrTimeout or ErrFailed.
type Provider interface {
	Directions(ctx context.Context, req DirectionsRequest) (*Directions, error)
}

// Step is a display-ready route step
type Step struct {
	Instruction string    `json:"instruction"`
	DistanceM   float64   `json:"distance_m"`
	DurationS   float64   `json:"duration_s"`
	Location    geo.Point `json:"location"`
}

// Route is a planned path and the risk flags computed against it
type Route struct {
	Origin                    geo.Point     `json:"origin"`
	Destination               geo.Point     `json:"destination"`
	DestinationName           string        `json:"destination_name,omitempty"`
	DistanceKm                float64       `json:"distance_km"`
	DurationMinutes           float64       `json:"duration_minutes"`
	Geometry                  string        `json:"geometry"`
	Steps                     []Step        `json:"steps"`
	AvoidsFireZones           bool          `json:"avoids_fire_zones"`
	DangerZonesNearby         []danger.Zone `json:"danger_zones_nearby"`
	Warnings                  []string      `json:"warnings"`
	HasCellCoverageThroughout *bool         `json:"has_cell_coverage_throughout,omitempty"`

	// Path is the decoded geometry
	Path []geo.Point `json:"-"`
}

// PlanRequest describes a route to plan. Zones are always checked for proximity; they are only
// sent to the provider as avoidance regions when Avoid is set.
type PlanRequest struct {
	Origin      geo.Point
	Destination geo.Point
	Profile     Profile
	Zones       []danger.Zone
	Avoid       bool
}

// Planner plans a single route
type Planner interface {
	// Plan returns the route, or nil with a nil error when no route exists.
	Plan(ctx context.Context, req PlanRequest) (*Route, error)
}

// Candidate is a possible destination
type Candidate struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Location geo.Point `json:"location"`
}

// Selection is the destination chosen by the Selector and the route to it
type Selection struct {
	Route       *Route    `json:"route"`
	Destination Candidate `json:"destination"`

	// Fallback is set when no route satisfied the avoidance constraint.
	Fallback bool `json:"fallback"`
}
