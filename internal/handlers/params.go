package handlers

import (
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/dpup/fireproof/server/internal/lib/geo"
	"github.com/dpup/fireproof/server/internal/lib/routing"
)

// floatParam reads an optional bounded float query parameter.
func floatParam(c *gin.Context, name string, def, lo, hi float64) (float64, error) {
	raw, ok := c.GetQuery(name)
	if !ok || raw == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number", name)
	}
	if v < lo || v > hi {
		return 0, fmt.Errorf("%s must be between %g and %g", name, lo, hi)
	}
	return v, nil
}

// intParam reads an optional bounded integer query parameter.
func intParam(c *gin.Context, name string, def, lo, hi int) (int, error) {
	raw, ok := c.GetQuery(name)
	if !ok || raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", name)
	}
	if v < lo || v > hi {
		return 0, fmt.Errorf("%s must be between %d and %d", name, lo, hi)
	}
	return v, nil
}

func boolParam(c *gin.Context, name string, def bool) (bool, error) {
	raw, ok := c.GetQuery(name)
	if !ok || raw == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%s must be true or false", name)
	}
	return v, nil
}

// pointParam reads a required coordinate pair.
func pointParam(c *gin.Context, latName, lngName string) (geo.Point, error) {
	latRaw, lngRaw := c.Query(latName), c.Query(lngName)
	if latRaw == "" || lngRaw == "" {
		return geo.Point{}, fmt.Errorf("%s and %s are required", latName, lngName)
	}
	lat, err := strconv.ParseFloat(latRaw, 64)
	if err != nil {
		return geo.Point{}, fmt.Errorf("%s must be a number", latName)
	}
	lng, err := strconv.ParseFloat(lngRaw, 64)
	if err != nil {
		return geo.Point{}, fmt.Errorf("%s must be a number", lngName)
	}
	return geo.NewPoint(lat, lng)
}

// optionalPointParam returns nil when neither coordinate is present.
func optionalPointParam(c *gin.Context, latName, lngName string) (*geo.Point, error) {
	if c.Query(latName) == "" && c.Query(lngName) == "" {
		return nil, nil
	}
	p, err := pointParam(c, latName, lngName)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func profileParam(c *gin.Context, def routing.Profile) (routing.Profile, error) {
	raw := c.Query("profile")
	if raw == "" {
		return def, nil
	}
	p := routing.Profile(raw)
	if !p.Valid() {
		return "", fmt.Errorf("unsupported profile %q", raw)
	}
	return p, nil
}
