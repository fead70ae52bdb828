package handlers

import (
	"bytes"
	"context"
	"fmt"
	"net/http"

	"github.com/dpup/prefab/logging"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dpup/fireproof/server/internal/lib/danger"
	"github.com/dpup/fireproof/server/internal/lib/geo"
	"github.com/dpup/fireproof/server/internal/lib/routing"
	"github.com/dpup/fireproof/server/internal/services"
)

const kmlContentType = "application/vnd.google-earth.kml+xml"

// Navigator is the service surface exposed over HTTP. *services.NavigationService satisfies it.
type Navigator interface {
	Navigate(ctx context.Context, req services.NavigateRequest) (*services.NavigationResponse, error)
	CheckFires(ctx context.Context, p geo.Point, thresholdKm float64) (*services.FireAlert, error)
	PlanRoute(ctx context.Context, req services.RouteRequest) (*routing.Route, error)
	DangerZones(ctx context.Context, center geo.Point, radiusKm float64) ([]danger.Zone, []danger.Observation, error)
	RegionFires(ctx context.Context, region string, limit int, ref *geo.Point) ([]danger.Observation, error)
}

// Handler serves the JSON API
type Handler struct {
	nav     Navigator
	profile routing.Profile
}

// NewHandler creates a Handler. profile is used when a request does not name one.
func NewHandler(nav Navigator, profile routing.Profile) *Handler {
	if profile == "" {
		profile = routing.ProfileDriving
	}
	return &Handler{nav: nav, profile: profile}
}

// RegisterRoutes attaches every endpoint to r
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/", h.homepage)
	r.GET("/health", h.health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	api.GET("/fires/check", h.checkFires)
	api.GET("/fires/region", h.regionFires)
	api.GET("/navigate", h.navigate)
	api.GET("/route", h.route)
	api.GET("/zones.kml", h.zonesKML)
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "fireproof"})
}

func (h *Handler) checkFires(c *gin.Context) {
	p, err := pointParam(c, "latitude", "longitude")
	if err != nil {
		badRequest(c, err)
		return
	}
	threshold, err := floatParam(c, "alert_threshold_km", 10, 1, 100)
	if err != nil {
		badRequest(c, err)
		return
	}

	alert, err := h.nav.CheckFires(c.Request.Context(), p, threshold)
	if err != nil {
		upstreamError(c, "fire check failed", err)
		return
	}
	c.JSON(http.StatusOK, alert)
}

func (h *Handler) regionFires(c *gin.Context) {
	limit, err := intParam(c, "limit", 100, 1, 1000)
	if err != nil {
		badRequest(c, err)
		return
	}
	ref, err := optionalPointParam(c, "latitude", "longitude")
	if err != nil {
		badRequest(c, err)
		return
	}
	region := c.DefaultQuery("region", services.DefaultRegion)

	fires, err := h.nav.RegionFires(c.Request.Context(), region, limit, ref)
	if err != nil {
		upstreamError(c, "regional fire scan failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"region": region, "count": len(fires), "fires": fires})
}

func (h *Handler) navigate(c *gin.Context) {
	p, err := pointParam(c, "latitude", "longitude")
	if err != nil {
		badRequest(c, err)
		return
	}
	req := services.NavigateRequest{Origin: p}
	if req.FireRadiusKm, err = floatParam(c, "fire_radius_km", 50, 10, 200); err != nil {
		badRequest(c, err)
		return
	}
	if req.SafePlaceRadiusKm, err = floatParam(c, "safe_place_radius_km", 20, 5, 50); err != nil {
		badRequest(c, err)
		return
	}
	if req.IncludeRoute, err = boolParam(c, "include_route", true); err != nil {
		badRequest(c, err)
		return
	}
	if req.Profile, err = profileParam(c, h.profile); err != nil {
		badRequest(c, err)
		return
	}

	resp, err := h.nav.Navigate(c.Request.Context(), req)
	if err != nil {
		upstreamError(c, "navigation failed", err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) route(c *gin.Context) {
	origin, err := pointParam(c, "origin_lat", "origin_lng")
	if err != nil {
		badRequest(c, err)
		return
	}
	dest, err := pointParam(c, "dest_lat", "dest_lng")
	if err != nil {
		badRequest(c, err)
		return
	}
	req := services.RouteRequest{Origin: origin, Destination: dest}
	if req.AvoidFires, err = boolParam(c, "avoid_fires", true); err != nil {
		badRequest(c, err)
		return
	}
	if req.Profile, err = profileParam(c, h.profile); err != nil {
		badRequest(c, err)
		return
	}

	route, err := h.nav.PlanRoute(c.Request.Context(), req)
	if err != nil {
		upstreamError(c, "routing failed", err)
		return
	}
	if route == nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "No route found. The destination may be unreachable due to fire zones.",
		})
		return
	}
	c.JSON(http.StatusOK, route)
}

func (h *Handler) zonesKML(c *gin.Context) {
	p, err := pointParam(c, "latitude", "longitude")
	if err != nil {
		badRequest(c, err)
		return
	}
	radius, err := floatParam(c, "radius_km", 50, 10, 200)
	if err != nil {
		badRequest(c, err)
		return
	}

	zones, fires, err := h.nav.DangerZones(c.Request.Context(), p, radius)
	if err != nil {
		upstreamError(c, "fire data unavailable", err)
		return
	}

	var buf bytes.Buffer
	name := fmt.Sprintf("Fire danger zones near %.4f,%.4f", p.Latitude, p.Longitude)
	if err := danger.WriteKML(&buf, name, zones, fires); err != nil {
		logging.Errorw(logging.EnsureLogger(c.Request.Context()), "handlers: failed to render KML", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to render KML"})
		return
	}
	c.Data(http.StatusOK, kmlContentType, buf.Bytes())
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

func upstreamError(c *gin.Context, msg string, err error) {
	logging.Warnw(logging.EnsureLogger(c.Request.Context()), "handlers: "+msg, "error", err)
	c.JSON(http.StatusBadGateway, gin.H{"error": fmt.Sprintf("%s: %v", msg, err)})
}
