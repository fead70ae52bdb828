package coverage

import (
	"fmt"

	"github.com/dpup/fireproof/server/internal/lib/geo"
)

// Quality is an estimated cellular service category
type Quality int

// Coverage qualities. Tower-based estimates produce Excellent through NoService and Unknown;
// zone-based estimates produce LikelyDegraded or AssumedAvailable.
const (
	QualityUnknown Quality = iota
	QualityExcellent
	QualityGood
	QualityFair
	QualityPoor
	QualityNoService
	QualityLikelyDegraded
	QualityAssumedAvailable
)

var qualityNames = map[Quality]string{
	QualityUnknown:          "unknown",
	QualityExcellent:        "excellent",
	QualityGood:             "good",
	QualityFair:             "fair",
	QualityPoor:             "poor",
	QualityNoService:        "no_service",
	QualityLikelyDegraded:   "likely_degraded",
	QualityAssumedAvailable: "assumed_available",
}

func (q Quality) String() string {
	if name, ok := qualityNames[q]; ok {
		return name
	}
	return fmt.Sprintf("Quality(%d)", int(q))
}

// MarshalText encodes the quality as its snake_case name.
func (q Quality) MarshalText() ([]byte, error) {
	name, ok := qualityNames[q]
	if !ok {
		return nil, fmt.Errorf("invalid coverage quality %d", int(q))
	}
	return []byte(name), nil
}

// Usable reports whether the quality implies a working connection.
func (q Quality) Usable() bool {
	switch q {
	case QualityExcellent, QualityGood, QualityFair, QualityPoor, QualityAssumedAvailable:
		return true
	case QualityUnknown, QualityNoService, QualityLikelyDegraded:
		return false
	}
	return false
}

// Mode identifies how an estimate was produced
type Mode string

// Estimation modes
const (
	ModeSimple Mode = "simple"
	ModeTower  Mode = "tower"
)

// Tower is a cell tower as reported by a tower registry
type Tower struct {
	Location    geo.Point `json:"location"`
	MCC         int       `json:"mcc"`
	MNC         int       `json:"mnc"`
	LAC         int64     `json:"lac"`
	CellID      int64     `json:"cell_id"`
	Radio       string    `json:"radio"`
	RangeM      *float64  `json:"range_m,omitempty"`
	Operational bool      `json:"is_operational"`
}

// Estimate is the coverage at a single point
type Estimate struct {
	HasCoverage   bool    `json:"has_coverage"`
	Quality       Quality `json:"quality"`
	Mode          Mode    `json:"mode"`
	Reason        string  `json:"reason,omitempty"`
	TowerCount    *int    `json:"tower_count,omitempty"`
	ClosestTowerM *int    `json:"closest_tower_m,omitempty"`
}

// DeadZone is a contiguous run of sampled route points without coverage
type DeadZone struct {
	Start geo.Point `json:"start"`
	End   geo.Point `json:"end"`
}

// RouteCoverage summarises coverage along a path
type RouteCoverage struct {
	CoveragePercentage    float64    `json:"coverage_percentage"`
	HasCoverageThroughout bool       `json:"has_coverage_throughout"`
	DeadZones             []DeadZone `json:"dead_zones"`
}
