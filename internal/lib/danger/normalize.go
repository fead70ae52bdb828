package danger

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dpup/fireproof/server/internal/lib/geo"
)

// Record is a raw telemetry row keyed by provider column name.
type Record map[string]string

// ErrMissingLocation is returned for records without a usable latitude or longitude.
var ErrMissingLocation = errors.New("record has no valid latitude/longitude")

// brightness columns in order of preference: MODIS, VIIRS
var brightnessColumns = []string{"brightness", "bright_ti4"}

// ParseConfidence classifies a raw confidence value.
func ParseConfidence(raw string) Confidence {
	raw = strings.TrimSpace(raw)
	c := Confidence{Raw: raw}
	switch strings.ToLower(raw) {
	case "":
		return c
	case "h", "high":
		c.Kind, c.Category = ConfidenceCategorical, "high"
		return c
	case "n", "nominal":
		c.Kind, c.Category = ConfidenceCategorical, "nominal"
		return c
	case "l", "low":
		c.Kind, c.Category = ConfidenceCategorical, "low"
		return c
	}
	if pct, err := strconv.ParseFloat(raw, 64); err == nil {
		c.Kind, c.Percent = ConfidenceNumeric, pct
		return c
	}
	c.Kind, c.Category = ConfidenceCategorical, strings.ToLower(raw)
	return c
}

// Normalize converts a raw record into an Observation. Distance and danger radius are left for
// the caller, which knows the reference point.
func Normalize(rec Record) (Observation, error) {
	lat, latErr := parseFloat(rec["latitude"])
	lng, lngErr := parseFloat(rec["longitude"])
	if latErr != nil || lngErr != nil {
		return Observation{}, ErrMissingLocation
	}
	location, err := geo.NewPoint(lat, lng)
	if err != nil {
		return Observation{}, fmt.Errorf("%w: %v", ErrMissingLocation, err)
	}

	obs := Observation{
		Location:   location,
		AcqDate:    strings.TrimSpace(rec["acq_date"]),
		AcqTime:    strings.TrimSpace(rec["acq_time"]),
		Satellite:  strings.TrimSpace(rec["satellite"]),
		Confidence: ParseConfidence(rec["confidence"]),
	}
	for _, col := range brightnessColumns {
		if v, err := parseFloat(rec[col]); err == nil {
			obs.Brightness = &v
			break
		}
	}
	if v, err := parseFloat(rec["frp"]); err == nil {
		obs.FRP = &v
	}
	return obs, nil
}

func parseFloat(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}
