package danger

import (
	"fmt"
	"sort"

	"github.com/dpup/fireproof/server/internal/lib/geo"
)

// DefaultBufferMultiplier widens a fire's intrinsic danger radius into a zone radius.
const DefaultBufferMultiplier = 1.5

// DangerRadius returns the intrinsic danger radius of a fire in km, bucketed by fire
// radiative power and scaled by confidence.
func DangerRadius(obs Observation) float64 {
	frp := 0.0
	if obs.FRP != nil {
		frp = *obs.FRP
	}

	var radius float64
	switch {
	case frp > 500:
		radius = 5.0
	case frp > 100:
		radius = 3.0
	case frp > 50:
		radius = 2.0
	case frp > 10:
		radius = 1.5
	default:
		radius = 1.0
	}

	switch {
	case obs.Confidence.High():
		radius *= 1.2
	case obs.Confidence.Low():
		radius *= 0.8
	}
	return radius
}

// ClassifyZoneRisk maps a fire's distance from the reference point to a zone risk level.
// Zones never classify as AlertNone.
func ClassifyZoneRisk(distanceKm float64) AlertLevel {
	switch {
	case distanceKm <= 5:
		return AlertCritical
	case distanceKm <= 10:
		return AlertHigh
	case distanceKm <= 25:
		return AlertMedium
	default:
		return AlertLow
	}
}

// DetermineAlertLevel returns the alert level for a location given the distance to the
// closest fire. A nil distance or zero fires yields AlertNone.
func DetermineAlertLevel(closestKm *float64, fireCount int) AlertLevel {
	if closestKm == nil || fireCount == 0 {
		return AlertNone
	}
	switch d := *closestKm; {
	case d <= 5:
		return AlertCritical
	case d <= 10:
		return AlertHigh
	case d <= 25:
		return AlertMedium
	case d <= 50:
		return AlertLow
	default:
		return AlertNone
	}
}

// EvacuationRecommended reports whether the alert level warrants leaving.
func EvacuationRecommended(level AlertLevel) bool {
	return level >= AlertHigh
}

// CreateZones builds one zone per fire. Fires are expected in their final order since the
// zone id is derived from the index.
func CreateZones(fires []Observation, bufferMultiplier float64) []Zone {
	if bufferMultiplier <= 0 {
		bufferMultiplier = DefaultBufferMultiplier
	}

	zones := make([]Zone, 0, len(fires))
	for i, fire := range fires {
		radius := fire.DangerRadiusKm
		if radius <= 0 {
			radius = 1.0
		}
		risk := AlertLow
		if fire.DistanceKm != nil {
			risk = ClassifyZoneRisk(*fire.DistanceKm)
		}
		zones = append(zones, Zone{
			Center:    fire.Location,
			RadiusKm:  radius * bufferMultiplier,
			FireID:    fmt.Sprintf("fire_%d", i),
			RiskLevel: risk,
		})
	}
	return zones
}

// IsInAnyZone reports whether p falls inside at least one zone.
func IsInAnyZone(p geo.Point, zones []Zone) bool {
	for _, z := range zones {
		if z.Contains(p) {
			return true
		}
	}
	return false
}

// ClosestDistance returns the smallest computed fire distance, or nil when none is known.
func ClosestDistance(fires []Observation) *float64 {
	var closest *float64
	for i := range fires {
		d := fires[i].DistanceKm
		if d != nil && (closest == nil || *d < *closest) {
			v := *d
			closest = &v
		}
	}
	return closest
}

// Key identifies a fire across sensors: location to 4 decimal places plus acquisition date.
func Key(obs Observation) string {
	return fmt.Sprintf("%.4f,%.4f,%s", obs.Location.Latitude, obs.Location.Longitude, obs.AcqDate)
}

// LocationKey identifies a fire location regardless of date.
func LocationKey(obs Observation) string {
	return fmt.Sprintf("%.4f,%.4f", obs.Location.Latitude, obs.Location.Longitude)
}

// Merge flattens per-sensor batches, keeping the first observation for each key in batch
// order, and sorts by distance then key. Observations without a distance sort last. The
// result depends only on batch order, never on when each batch arrived.
func Merge(batches [][]Observation, key func(Observation) string) []Observation {
	if key == nil {
		key = Key
	}

	seen := make(map[string]struct{})
	var merged []Observation
	for _, batch := range batches {
		for _, obs := range batch {
			k := key(obs)
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			merged = append(merged, obs)
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		di, dj := merged[i].DistanceKm, merged[j].DistanceKm
		switch {
		case di == nil && dj == nil:
		case di == nil:
			return false
		case dj == nil:
			return true
		case *di != *dj:
			return *di < *dj
		}
		return key(merged[i]) < key(merged[j])
	})
	return merged
}
