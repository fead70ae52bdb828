package coverage

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dpup/fireproof/server/internal/lib/danger"
	"github.com/dpup/fireproof/server/internal/lib/geo"
)

var origin = geo.Point{Latitude: 38.0, Longitude: -120.0}

// offsetNorth returns a point km north of p.
func offsetNorth(p geo.Point, km float64) geo.Point {
	dLat, _ := geo.KmToDegrees(km, p.Latitude)
	return geo.Point{Latitude: p.Latitude + dLat, Longitude: p.Longitude}
}

func tower(p geo.Point) Tower {
	return Tower{Location: p, Radio: "LTE", Operational: true}
}

func TestEstimateSimple(t *testing.T) {
	zones := []danger.Zone{{Center: origin, RadiusKm: 2}}

	inside := EstimateSimple(offsetNorth(origin, 1.5), zones)
	assert.False(t, inside.HasCoverage)
	assert.Equal(t, QualityLikelyDegraded, inside.Quality)
	assert.Equal(t, ModeSimple, inside.Mode)

	outside := EstimateSimple(offsetNorth(origin, 5), zones)
	assert.True(t, outside.HasCoverage)
	assert.Equal(t, QualityAssumedAvailable, outside.Quality)
}

func TestEstimateWithTowers_Bands(t *testing.T) {
	tests := []struct {
		name     string
		towersKm []float64
		expected Quality
	}{
		{"excellent", []float64{0.2, 0.3, 0.4}, QualityExcellent},
		{"close but sparse is good", []float64{0.2, 0.8}, QualityGood},
		{"single close tower is fair", []float64{0.2}, QualityFair},
		{"fair", []float64{1.5}, QualityFair},
		{"poor", []float64{3}, QualityPoor},
		{"out of range", []float64{8}, QualityNoService},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var towers []Tower
			for _, km := range tt.towersKm {
				towers = append(towers, tower(offsetNorth(origin, km)))
			}
			est := EstimateWithTowers(origin, towers)
			assert.Equal(t, tt.expected, est.Quality)
			assert.Equal(t, tt.expected.Usable(), est.HasCoverage)
			assert.Equal(t, ModeTower, est.Mode)
		})
	}
}

func TestEstimateWithTowers_Details(t *testing.T) {
	towers := []Tower{tower(offsetNorth(origin, 0.3)), tower(offsetNorth(origin, 4)), tower(offsetNorth(origin, 9))}
	est := EstimateWithTowers(origin, towers)

	require.NotNil(t, est.TowerCount)
	assert.Equal(t, 2, *est.TowerCount)
	require.NotNil(t, est.ClosestTowerM)
	assert.InDelta(t, 300, *est.ClosestTowerM, 2)
}

func TestEstimateWithTowers_NoData(t *testing.T) {
	est := EstimateWithTowers(origin, nil)
	assert.Equal(t, QualityUnknown, est.Quality)
	assert.False(t, est.HasCoverage)

	down := tower(offsetNorth(origin, 0.1))
	down.Operational = false
	est = EstimateWithTowers(origin, []Tower{down})
	assert.Equal(t, QualityNoService, est.Quality)
	assert.False(t, est.HasCoverage)
	assert.Nil(t, est.ClosestTowerM)
}

func TestMarkTowersInZones(t *testing.T) {
	fire := offsetNorth(origin, 10)
	zones := []danger.Zone{{Center: fire, RadiusKm: 1}}
	towers := []Tower{tower(fire), tower(origin)}

	marked := MarkTowersInZones(towers, zones)
	assert.False(t, marked[0].Operational)
	assert.True(t, marked[1].Operational)
	assert.True(t, towers[0].Operational, "input is not modified")
}

func TestEstimateAt(t *testing.T) {
	zones := []danger.Zone{{Center: origin, RadiusKm: 2}}

	est := EstimateAt(origin, zones, nil)
	assert.Equal(t, ModeSimple, est.Mode)

	// the only nearby tower burns with the zone
	est = EstimateAt(offsetNorth(origin, 2.5), zones, []Tower{tower(offsetNorth(origin, 1))})
	assert.Equal(t, ModeTower, est.Mode)
	assert.Equal(t, QualityNoService, est.Quality)
}

func TestCheckRoute(t *testing.T) {
	var path []geo.Point
	for i := 0; i < 50; i++ {
		path = append(path, offsetNorth(origin, float64(i)*0.2))
	}
	// towers near the start and the end, a gap in the middle
	towers := []Tower{tower(offsetNorth(origin, 0)), tower(offsetNorth(origin, 9.8))}

	result := CheckRoute(path, towers, DefaultSampleInterval)

	// samples every 1km: 0..9km, covered within 5km of a tower: 0-4 and 5-9
	assert.Equal(t, 100.0, result.CoveragePercentage)
	assert.True(t, result.HasCoverageThroughout)
	assert.Empty(t, result.DeadZones)
}

func TestCheckRoute_DeadZones(t *testing.T) {
	var path []geo.Point
	for i := 0; i < 50; i++ {
		path = append(path, offsetNorth(origin, float64(i)*0.2))
	}
	towers := []Tower{tower(origin)}

	result := CheckRoute(path, towers, 5)

	// samples at 0..9km; 0..4km covered, 5..9km not
	assert.Equal(t, 50.0, result.CoveragePercentage)
	assert.False(t, result.HasCoverageThroughout)
	require.Len(t, result.DeadZones, 1)
	assert.Equal(t, path[25], result.DeadZones[0].Start)
	assert.Equal(t, path[45], result.DeadZones[0].End)
}

func TestCheckRoute_ClosedDeadZone(t *testing.T) {
	path := []geo.Point{origin, offsetNorth(origin, 20), offsetNorth(origin, 40), offsetNorth(origin, 60)}
	towers := []Tower{tower(origin), tower(offsetNorth(origin, 60))}

	result := CheckRoute(path, towers, 1)
	assert.Equal(t, 50.0, result.CoveragePercentage)
	require.Len(t, result.DeadZones, 1)
	assert.Equal(t, path[1], result.DeadZones[0].Start)
	assert.Equal(t, path[3], result.DeadZones[0].End, "dead zone ends at the first covered sample")
}

func TestCheckRoute_Empty(t *testing.T) {
	result := CheckRoute(nil, nil, 5)
	assert.Zero(t, result.CoveragePercentage)
	assert.False(t, result.HasCoverageThroughout)
	assert.Empty(t, result.DeadZones)
}

func TestQuality_JSON(t *testing.T) {
	b, err := json.Marshal(EstimateSimple(origin, nil))
	require.NoError(t, err)
	assert.Contains(t, string(b), `"quality":"assumed_available"`)

	_, err = Quality(99).MarshalText()
	assert.Error(t, err)
}
