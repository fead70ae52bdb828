package routing

import (
	"context"
	"errors"
	"fmt"

	"github.com/dpup/fireproof/server/internal/lib/danger"
	"github.com/dpup/fireproof/server/internal/lib/geo"
)

// proximityFactor widens each zone's radius when scanning a returned path. The avoidance
// polygon itself uses the exact radius.
const proximityFactor = 2.0

// routePlanner implements the Planner interface
type routePlanner struct {
	provider      Provider
	polygonPoints int
}

// NewPlanner creates a Planner backed by provider
func NewPlanner(provider Provider) Planner {
	return &routePlanner{
		provider:      provider,
		polygonPoints: geo.DefaultPolygonPoints,
	}
}

// AvoidPolygons converts zones into a multipolygon avoidance region, one ring per zone.
func AvoidPolygons(zones []danger.Zone, n int) *geo.MultiPolygon {
	if len(zones) == 0 {
		return nil
	}
	mp := &geo.MultiPolygon{Polygons: make([][]geo.Point, 0, len(zones))}
	for _, z := range zones {
		mp.Polygons = append(mp.Polygons, z.Polygon(n))
	}
	return mp
}

// Plan requests a path from the provider and flags residual proximity to danger zones
func (p *routePlanner) Plan(ctx context.Context, req PlanRequest) (*Route, error) {
	if !req.Origin.Valid() || !req.Destination.Valid() {
		return nil, geo.ErrInvalidCoordinates
	}
	profile := req.Profile
	if profile == "" {
		profile = ProfileDriving
	}

	dreq := DirectionsRequest{
		Origin:      req.Origin,
		Destination: req.Destination,
		Profile:     profile,
	}
	if req.Avoid {
		dreq.Avoid = AvoidPolygons(req.Zones, p.polygonPoints)
	}

	dirs, err := p.provider.Directions(ctx, dreq)
	if err != nil {
		if errors.Is(err, ErrTimeout) || errors.Is(err, ErrFailed) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrFailed, err)
	}
	if dirs == nil {
		return nil, nil
	}

	path, err := geo.DecodePath(dirs.Geometry, dirs.Precision)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFailed, err)
	}

	route := &Route{
		Origin:            req.Origin,
		Destination:       req.Destination,
		DistanceKm:        geo.Round(dirs.DistanceM/1000, 2),
		DurationMinutes:   geo.Round(dirs.DurationS/60, 1),
		Geometry:          dirs.Geometry,
		Steps:             buildSteps(dirs.Steps, path, req.Origin),
		DangerZonesNearby: []danger.Zone{},
		Warnings:          []string{},
		Path:              path,
	}

	for _, zone := range req.Zones {
		if dist, near := pathNear(path, zone); near {
			route.DangerZonesNearby = append(route.DangerZonesNearby, zone)
			route.Warnings = append(route.Warnings,
				fmt.Sprintf("Route passes within %.1fkm of active fire", dist))
		}
	}
	route.AvoidsFireZones = len(route.DangerZonesNearby) == 0

	return route, nil
}

// buildSteps places each step at the path point its first waypoint refers to. Out of range
// indexes clamp to the last point; an empty path puts every step at the origin.
func buildSteps(steps []ProviderStep, path []geo.Point, origin geo.Point) []Step {
	out := make([]Step, 0, len(steps))
	for _, s := range steps {
		loc := origin
		if len(path) > 0 {
			idx := 0
			if len(s.WayPoints) > 0 {
				idx = s.WayPoints[0]
			}
			if idx >= len(path) {
				idx = len(path) - 1
			}
			if idx < 0 {
				idx = 0
			}
			loc = path[idx]
		}
		out = append(out, Step{
			Instruction: s.Instruction,
			DistanceM:   s.DistanceM,
			DurationS:   s.DurationS,
			Location:    loc,
		})
	}
	return out
}

// pathNear reports the distance of the first path point closer to the zone than twice its
// radius.
func pathNear(path []geo.Point, zone danger.Zone) (float64, bool) {
	limit := zone.RadiusKm * proximityFactor
	for _, pt := range path {
		if d := geo.DistanceKm(pt, zone.Center); d < limit {
			return d, true
		}
	}
	return 0, false
}
