package services

import (
	"context"
	"fmt"
	"sort"

	"github.com/dpup/fireproof/server/internal/clients/overpass"
	"github.com/dpup/fireproof/server/internal/config"
	"github.com/dpup/fireproof/server/internal/lib/coverage"
	"github.com/dpup/fireproof/server/internal/lib/danger"
	"github.com/dpup/fireproof/server/internal/lib/geo"
	"github.com/dpup/fireproof/server/internal/lib/routing"
)

// PlaceSource finds points of interest around a location. *overpass.Client satisfies it.
type PlaceSource interface {
	FetchPlaces(ctx context.Context, center geo.Point, radiusM int, categories []overpass.Category) ([]overpass.Place, error)
}

// SafePlace is a potential refuge annotated against the current danger zones
type SafePlace struct {
	overpass.Place
	DistanceKm      float64 `json:"distance_km"`
	InDangerZone    bool    `json:"is_in_danger_zone"`
	HasCellCoverage bool    `json:"has_cell_coverage"`

	// Set only on the recommended destination
	RouteDistanceKm       *float64 `json:"route_distance_km,omitempty"`
	RouteDurationMinutes  *float64 `json:"route_duration_minutes,omitempty"`
	RoutePassesDangerZone bool     `json:"route_passes_danger_zone"`
}

// Candidate converts the place into a routing candidate.
func (p SafePlace) Candidate() routing.Candidate {
	return routing.Candidate{ID: p.ID, Name: p.Name, Location: p.Location}
}

// SafePlaceService finds refuges around a location
type SafePlaceService struct {
	source PlaceSource
	config *config.PlacesConfig
}

// NewSafePlaceService creates a new SafePlaceService
func NewSafePlaceService(source PlaceSource, config *config.PlacesConfig) *SafePlaceService {
	return &SafePlaceService{source: source, config: config}
}

// FindSafePlaces returns up to the configured limit of places within radiusKm of center, places
// outside every zone first and nearest first within each group.
func (s *SafePlaceService) FindSafePlaces(ctx context.Context, center geo.Point, radiusKm float64, zones []danger.Zone) ([]SafePlace, error) {
	ctx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	places, err := s.source.FetchPlaces(ctx, center, int(radiusKm*1000), overpass.AllCategories)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch safe places: %w", err)
	}

	out := make([]SafePlace, 0, len(places))
	for _, p := range places {
		out = append(out, SafePlace{
			Place:           p,
			DistanceKm:      geo.Round(geo.DistanceKm(center, p.Location), 2),
			InDangerZone:    danger.IsInAnyZone(p.Location, zones),
			HasCellCoverage: coverage.EstimateSimple(p.Location, zones).HasCoverage,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].InDangerZone != out[j].InDangerZone {
			return !out[i].InDangerZone
		}
		return out[i].DistanceKm < out[j].DistanceKm
	})

	if s.config.Limit > 0 && len(out) > s.config.Limit {
		out = out[:s.config.Limit]
	}
	return out, nil
}
