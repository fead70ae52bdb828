package coverage

import (
	"math"
	"sort"

	"github.com/dpup/fireproof/server/internal/lib/danger"
	"github.com/dpup/fireproof/server/internal/lib/geo"
)

const (
	// nearbyTowerM is the radius within which towers count toward quality.
	nearbyTowerM = 5000

	// DefaultSampleInterval is the stride used when sampling a route.
	DefaultSampleInterval = 5

	// throughoutPercent is the sampled coverage needed to call a route covered.
	throughoutPercent = 95
)

// EstimateSimple classifies coverage by danger-zone membership alone.
func EstimateSimple(p geo.Point, zones []danger.Zone) Estimate {
	if danger.IsInAnyZone(p, zones) {
		return Estimate{
			HasCoverage: false,
			Quality:     QualityLikelyDegraded,
			Mode:        ModeSimple,
			Reason:      "Location is in fire danger zone",
		}
	}
	return Estimate{
		HasCoverage: true,
		Quality:     QualityAssumedAvailable,
		Mode:        ModeSimple,
		Reason:      "Location is outside fire zones",
	}
}

// MarkTowersInZones returns a copy of towers with those inside any zone marked non-operational.
func MarkTowersInZones(towers []Tower, zones []danger.Zone) []Tower {
	marked := make([]Tower, len(towers))
	for i, t := range towers {
		if danger.IsInAnyZone(t.Location, zones) {
			t.Operational = false
		}
		marked[i] = t
	}
	return marked
}

// EstimateWithTowers classifies coverage at p from distances to operational towers.
func EstimateWithTowers(p geo.Point, towers []Tower) Estimate {
	if len(towers) == 0 {
		zero := 0
		return Estimate{Quality: QualityUnknown, Mode: ModeTower, Reason: "No tower data for this area", TowerCount: &zero}
	}

	var distances []float64
	for _, t := range towers {
		if t.Operational {
			distances = append(distances, geo.DistanceKm(p, t.Location)*1000)
		}
	}
	if len(distances) == 0 {
		zero := 0
		return Estimate{Quality: QualityNoService, Mode: ModeTower, Reason: "No operational towers nearby", TowerCount: &zero}
	}
	sort.Float64s(distances)

	closest := distances[0]
	inRange := 0
	for _, d := range distances {
		if d < nearbyTowerM {
			inRange++
		}
	}

	var q Quality
	switch {
	case closest < 500 && inRange >= 3:
		q = QualityExcellent
	case closest < 1000 && inRange >= 2:
		q = QualityGood
	case closest < 2000:
		q = QualityFair
	case closest < nearbyTowerM:
		q = QualityPoor
	default:
		q = QualityNoService
	}

	closestM := int(math.Round(closest))
	return Estimate{
		HasCoverage:   q != QualityNoService && q != QualityUnknown,
		Quality:       q,
		Mode:          ModeTower,
		Reason:        "Estimated from nearby tower distances",
		TowerCount:    &inRange,
		ClosestTowerM: &closestM,
	}
}

// CheckRoute samples every interval-th point of path and reports the share with coverage,
// along with contiguous dead zones. An interval below 1 uses DefaultSampleInterval.
func CheckRoute(path []geo.Point, towers []Tower, interval int) RouteCoverage {
	if len(path) == 0 {
		return RouteCoverage{DeadZones: []DeadZone{}}
	}
	if interval < 1 {
		interval = DefaultSampleInterval
	}

	var sampled []geo.Point
	for i := 0; i < len(path); i += interval {
		sampled = append(sampled, path[i])
	}

	covered := 0
	deadZones := []DeadZone{}
	var start *geo.Point
	for i := range sampled {
		p := sampled[i]
		if EstimateWithTowers(p, towers).HasCoverage {
			covered++
			if start != nil {
				deadZones = append(deadZones, DeadZone{Start: *start, End: p})
				start = nil
			}
		} else if start == nil {
			start = &sampled[i]
		}
	}
	if start != nil {
		deadZones = append(deadZones, DeadZone{Start: *start, End: sampled[len(sampled)-1]})
	}

	pct := float64(covered) / float64(len(sampled)) * 100
	return RouteCoverage{
		CoveragePercentage:    geo.Round(pct, 1),
		HasCoverageThroughout: pct >= throughoutPercent,
		DeadZones:             deadZones,
	}
}

// EstimateAt picks the estimation mode by data availability: tower mode when towers are known,
// simple mode otherwise. Towers inside zones are treated as down.
func EstimateAt(p geo.Point, zones []danger.Zone, towers []Tower) Estimate {
	if len(towers) == 0 {
		return EstimateSimple(p, zones)
	}
	return EstimateWithTowers(p, MarkTowersInZones(towers, zones))
}
