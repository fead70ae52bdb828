package danger

import (
	"fmt"
	"strings"

	"github.com/dpup/fireproof/server/internal/lib/geo"
)

// AlertLevel is an ordered severity classification
type AlertLevel int

// Alert levels, lowest first
const (
	AlertNone AlertLevel = iota
	AlertLow
	AlertMedium
	AlertHigh
	AlertCritical
)

var alertLevelNames = [...]string{"none", "low", "medium", "high", "critical"}

func (l AlertLevel) String() string {
	if l < AlertNone || l > AlertCritical {
		return fmt.Sprintf("AlertLevel(%d)", int(l))
	}
	return alertLevelNames[l]
}

// MarshalText encodes the level as its lowercase name.
func (l AlertLevel) MarshalText() ([]byte, error) {
	if l < AlertNone || l > AlertCritical {
		return nil, fmt.Errorf("invalid alert level %d", int(l))
	}
	return []byte(l.String()), nil
}

// UnmarshalText parses a level name, case-insensitive.
func (l *AlertLevel) UnmarshalText(text []byte) error {
	name := strings.ToLower(string(text))
	for i, n := range alertLevelNames {
		if n == name {
			*l = AlertLevel(i)
			return nil
		}
	}
	return fmt.Errorf("unknown alert level %q", string(text))
}

// ConfidenceKind tells which member of Confidence is meaningful
type ConfidenceKind int

// Confidence kinds
const (
	ConfidenceUnknown ConfidenceKind = iota
	ConfidenceCategorical
	ConfidenceNumeric
)

// Confidence is a detection confidence as reported by the sensor: categorical for VIIRS
// (low/nominal/high), a 0-100 percentage for MODIS.
type Confidence struct {
	Kind     ConfidenceKind
	Category string
	Percent  float64
	Raw      string
}

// High reports whether the confidence is "high" or numerically above 80.
func (c Confidence) High() bool {
	switch c.Kind {
	case ConfidenceCategorical:
		return c.Category == "high"
	case ConfidenceNumeric:
		return c.Percent > 80
	}
	return false
}

// Low reports whether the confidence is "low" or numerically below 30.
func (c Confidence) Low() bool {
	switch c.Kind {
	case ConfidenceCategorical:
		return c.Category == "low"
	case ConfidenceNumeric:
		return c.Percent < 30
	}
	return false
}

// MarshalText encodes the confidence as the sensor reported it.
func (c Confidence) MarshalText() ([]byte, error) {
	return []byte(c.Raw), nil
}

// Observation is a single detected thermal anomaly
type Observation struct {
	Location       geo.Point  `json:"location"`
	Brightness     *float64   `json:"brightness,omitempty"`
	AcqDate        string     `json:"acq_date,omitempty"`
	AcqTime        string     `json:"acq_time,omitempty"`
	Satellite      string     `json:"satellite,omitempty"`
	Confidence     Confidence `json:"confidence"`
	FRP            *float64   `json:"frp,omitempty"`
	DistanceKm     *float64   `json:"distance_km,omitempty"`
	DangerRadiusKm float64    `json:"danger_radius_km"`
}

// Zone is a circular risk region around a fire
type Zone struct {
	Center    geo.Point  `json:"center"`
	RadiusKm  float64    `json:"radius_km"`
	FireID    string     `json:"fire_id,omitempty"`
	RiskLevel AlertLevel `json:"risk_level"`
}

// Contains reports whether p is within the zone's radius, boundary included.
func (z Zone) Contains(p geo.Point) bool {
	return geo.DistanceKm(p, z.Center) <= z.RadiusKm
}

// Polygon approximates the zone with an n-point closed ring.
func (z Zone) Polygon(n int) []geo.Point {
	return geo.CirclePolygon(z.Center, z.RadiusKm, n)
}
