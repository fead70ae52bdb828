package services

import (
	"context"
	"fmt"

	"github.com/dpup/prefab/logging"

	"github.com/dpup/fireproof/server/internal/config"
	"github.com/dpup/fireproof/server/internal/lib/coverage"
	"github.com/dpup/fireproof/server/internal/lib/danger"
	"github.com/dpup/fireproof/server/internal/lib/geo"
	"github.com/dpup/fireproof/server/internal/lib/routing"
	"github.com/dpup/fireproof/server/internal/metrics"
)

const (
	// routeFireRadiusKm is the fire search radius around the midpoint of a point-to-point route.
	routeFireRadiusKm = 100

	// checkMarginKm widens the fire search beyond the alert threshold so the closest fire
	// is reported even when it is just outside.
	checkMarginKm = 10

	// coverageStatusNormal is reported when no fires were found and coverage was not estimated.
	coverageStatusNormal = "normal"

	warnDegradedCoverage = "Cell coverage may be degraded in your area"
	warnNoDestination    = "No reachable safe destination found"
)

// TowerSource lists cell towers in an area. *opencellid.Client satisfies it.
type TowerSource interface {
	TowersInArea(ctx context.Context, box geo.BoundingBox) ([]coverage.Tower, error)
}

// NavigateRequest describes an evacuation navigation query
type NavigateRequest struct {
	Origin            geo.Point
	Profile           routing.Profile
	FireRadiusKm      float64
	SafePlaceRadiusKm float64
	IncludeRoute      bool
}

// NavigationResponse is the full situational picture for one location
type NavigationResponse struct {
	UserLocation           geo.Point          `json:"user_location"`
	AlertLevel             danger.AlertLevel  `json:"alert_level"`
	FiresDetected          int                `json:"fires_detected"`
	ClosestFireKm          *float64           `json:"closest_fire_km"`
	DangerZones            []danger.Zone      `json:"danger_zones"`
	SafePlaces             []SafePlace        `json:"safe_places"`
	RecommendedDestination *SafePlace         `json:"recommended_destination"`
	Route                  *routing.Route     `json:"route"`
	CellCoverageStatus     string             `json:"cell_coverage_status"`
	Coverage               *coverage.Estimate `json:"coverage,omitempty"`
	Warnings               []string           `json:"warnings"`
	EvacuationRecommended  bool               `json:"evacuation_recommended"`
}

// FireAlert summarizes fire activity around a single point
type FireAlert struct {
	Location             geo.Point         `json:"location"`
	IsAlert              bool              `json:"is_alert"`
	AlertLevel           danger.AlertLevel `json:"alert_level"`
	FiresWithinThreshold int               `json:"fires_within_threshold"`
	ClosestFireKm        *float64          `json:"closest_fire_km"`
	ThresholdKm          float64           `json:"threshold_km"`
}

// RouteRequest describes a point-to-point route query
type RouteRequest struct {
	Origin      geo.Point
	Destination geo.Point
	Profile     routing.Profile
	AvoidFires  bool
}

// NavigationService combines fires, safe places, coverage and routing into navigation answers
type NavigationService struct {
	fires    *FireService
	places   *SafePlaceService
	towers   TowerSource
	planner  routing.Planner
	selector *routing.Selector
	config   *config.Config
}

// NewNavigationService creates a new NavigationService. towers may be nil, in which case
// coverage is always estimated from danger zones alone.
func NewNavigationService(fires *FireService, places *SafePlaceService, towers TowerSource, planner routing.Planner, config *config.Config) *NavigationService {
	return &NavigationService{
		fires:    fires,
		places:   places,
		towers:   towers,
		planner:  planner,
		selector: routing.NewSelector(planner).WithCandidateTimeout(config.Routing.Timeout),
		config:   config,
	}
}

// Navigate assesses fire danger around the origin and, when fires are present, recommends the
// fastest reachable safe place. Provider failures become warnings; only cancellation of ctx is
// returned as an error.
func (s *NavigationService) Navigate(ctx context.Context, req NavigateRequest) (*NavigationResponse, error) {
	ctx = logging.EnsureLogger(ctx)
	if !req.Origin.Valid() {
		return nil, geo.ErrInvalidCoordinates
	}
	if req.FireRadiusKm <= 0 {
		req.FireRadiusKm = s.config.Fires.SearchRadiusKm
	}
	if req.SafePlaceRadiusKm <= 0 {
		req.SafePlaceRadiusKm = s.config.Places.SearchRadiusKm
	}
	if req.Profile == "" {
		req.Profile = s.config.Routing.Profile
	}

	resp := &NavigationResponse{
		UserLocation:       req.Origin,
		AlertLevel:         danger.AlertNone,
		DangerZones:        []danger.Zone{},
		SafePlaces:         []SafePlace{},
		CellCoverageStatus: coverageStatusNormal,
		Warnings:           []string{},
	}

	fires, err := s.fires.FetchFires(ctx, req.Origin, req.FireRadiusKm)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		logging.Warnw(ctx, "navigate: fire data unavailable", "error", err)
		resp.Warnings = append(resp.Warnings, fmt.Sprintf("Could not fetch fire data: %v", err))
		return resp, nil
	}
	if len(fires) == 0 {
		return resp, nil
	}

	zones := danger.CreateZones(fires, s.fires.BufferMultiplier())
	closest := danger.ClosestDistance(fires)
	resp.FiresDetected = len(fires)
	resp.ClosestFireKm = closest
	resp.DangerZones = zones
	resp.AlertLevel = danger.DetermineAlertLevel(closest, len(fires))
	resp.EvacuationRecommended = danger.EvacuationRecommended(resp.AlertLevel)

	places, err := s.places.FindSafePlaces(ctx, req.Origin, req.SafePlaceRadiusKm, zones)
	if err != nil {
		logging.Warnw(ctx, "navigate: safe places unavailable", "error", err)
		resp.Warnings = append(resp.Warnings, fmt.Sprintf("Could not fetch safe places: %v", err))
	}
	for _, p := range places {
		if !p.InDangerZone {
			resp.SafePlaces = append(resp.SafePlaces, p)
		}
	}

	towers := coverage.MarkTowersInZones(s.fetchTowers(ctx, req.Origin), zones)
	estimate := coverage.EstimateAt(req.Origin, zones, towers)
	resp.Coverage = &estimate
	resp.CellCoverageStatus = estimate.Quality.String()
	if !estimate.HasCoverage {
		resp.Warnings = append(resp.Warnings, warnDegradedCoverage)
	}

	if !req.IncludeRoute || len(resp.SafePlaces) == 0 {
		return resp, nil
	}

	n := min(s.config.Places.CandidateCount, len(resp.SafePlaces))
	candidates := make([]routing.Candidate, 0, n)
	for _, p := range resp.SafePlaces[:n] {
		candidates = append(candidates, p.Candidate())
	}

	selection, err := s.selector.Select(ctx, req.Origin, candidates, zones, req.Profile)
	if err != nil {
		return nil, err
	}
	if selection == nil {
		metrics.ObserveNavigation(metrics.ResultNone)
		resp.Warnings = append(resp.Warnings, warnNoDestination)
		return resp, nil
	}
	if selection.Fallback {
		metrics.ObserveNavigation(metrics.ResultFallback)
	} else {
		metrics.ObserveNavigation(metrics.ResultConstrained)
	}

	route := selection.Route
	if len(towers) > 0 {
		rc := coverage.CheckRoute(route.Path, towers, coverage.DefaultSampleInterval)
		route.HasCellCoverageThroughout = &rc.HasCoverageThroughout
	}
	resp.Route = route

	for i := range resp.SafePlaces {
		if resp.SafePlaces[i].ID != selection.Destination.ID {
			continue
		}
		recommended := resp.SafePlaces[i]
		recommended.RouteDistanceKm = &route.DistanceKm
		recommended.RouteDurationMinutes = &route.DurationMinutes
		recommended.RoutePassesDangerZone = !route.AvoidsFireZones
		resp.RecommendedDestination = &recommended
		break
	}
	return resp, nil
}

// CheckFires reports whether any fire lies within thresholdKm of p.
func (s *NavigationService) CheckFires(ctx context.Context, p geo.Point, thresholdKm float64) (*FireAlert, error) {
	fires, err := s.fires.FetchFires(ctx, p, thresholdKm+checkMarginKm)
	if err != nil {
		return nil, err
	}

	nearby := 0
	for _, f := range fires {
		if f.DistanceKm != nil && *f.DistanceKm <= thresholdKm {
			nearby++
		}
	}
	closest := danger.ClosestDistance(fires)

	return &FireAlert{
		Location:             p,
		IsAlert:              nearby > 0,
		AlertLevel:           danger.DetermineAlertLevel(closest, nearby),
		FiresWithinThreshold: nearby,
		ClosestFireKm:        closest,
		ThresholdKm:          thresholdKm,
	}, nil
}

// PlanRoute plans a single route. With AvoidFires, fires around the midpoint become avoidance
// zones; failing to fetch them plans without zones. A nil route with a nil error means no
// route exists.
func (s *NavigationService) PlanRoute(ctx context.Context, req RouteRequest) (*routing.Route, error) {
	ctx = logging.EnsureLogger(ctx)
	if req.Profile == "" {
		req.Profile = s.config.Routing.Profile
	}

	var zones []danger.Zone
	if req.AvoidFires {
		mid := geo.Point{
			Latitude:  (req.Origin.Latitude + req.Destination.Latitude) / 2,
			Longitude: (req.Origin.Longitude + req.Destination.Longitude) / 2,
		}
		fires, err := s.fires.FetchFires(ctx, mid, routeFireRadiusKm)
		if err != nil {
			logging.Warnw(ctx, "route: planning without fire zones", "error", err)
		} else {
			zones = danger.CreateZones(fires, s.fires.BufferMultiplier())
		}
	}

	return s.planner.Plan(ctx, routing.PlanRequest{
		Origin:      req.Origin,
		Destination: req.Destination,
		Profile:     req.Profile,
		Zones:       zones,
		Avoid:       req.AvoidFires,
	})
}

// DangerZones returns the zones around center, for map export.
func (s *NavigationService) DangerZones(ctx context.Context, center geo.Point, radiusKm float64) ([]danger.Zone, []danger.Observation, error) {
	fires, err := s.fires.FetchFires(ctx, center, radiusKm)
	if err != nil {
		return nil, nil, err
	}
	return danger.CreateZones(fires, s.fires.BufferMultiplier()), fires, nil
}

// RegionFires scans a named region. See FireService.FetchRegion.
func (s *NavigationService) RegionFires(ctx context.Context, region string, limit int, ref *geo.Point) ([]danger.Observation, error) {
	return s.fires.FetchRegion(ctx, region, limit, ref)
}

func (s *NavigationService) fetchTowers(ctx context.Context, p geo.Point) []coverage.Tower {
	if s.towers == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, s.config.Towers.Timeout)
	defer cancel()

	towers, err := s.towers.TowersInArea(ctx, geo.BoundingBoxAround(p, s.config.Towers.SearchRadiusKm))
	if err != nil {
		logging.Warnw(ctx, "navigate: tower registry unavailable, using simple coverage", "error", err)
		return nil
	}
	return towers
}
