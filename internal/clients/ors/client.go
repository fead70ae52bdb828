package ors

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"

	"golang.org/x/time/rate"

	"github.com/dpup/fireproof/server/internal/clients/transport"
	"github.com/dpup/fireproof/server/internal/lib/geo"
	"github.com/dpup/fireproof/server/internal/lib/routing"
)

// DefaultBaseURL is the public OpenRouteService API root
const DefaultBaseURL = "https://api.openrouteservice.org"

// Client provides access to the OpenRouteService directions API
type Client struct {
	apiKey     string
	baseURL    string
	httpClient transport.HTTPDoer
	limiter    *rate.Limiter
}

// NewClient creates a new OpenRouteService client. A nil limiter disables client-side rate limiting.
func NewClient(apiKey string, httpClient transport.HTTPDoer, limiter *rate.Limiter) *Client {
	return NewClientWithHTTPDoer(apiKey, DefaultBaseURL, httpClient).WithLimiter(limiter)
}

// NewClientWithHTTPDoer creates a client against baseURL
func NewClientWithHTTPDoer(apiKey, baseURL string, httpClient transport.HTTPDoer) *Client {
	return &Client{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// WithLimiter makes every request wait on limiter before it is sent.
func (c *Client) WithLimiter(limiter *rate.Limiter) *Client {
	c.limiter = limiter
	return c
}

// Directions implements routing.Provider
func (c *Client) Directions(ctx context.Context, req routing.DirectionsRequest) (*routing.Directions, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("%w: ORS_API_KEY not configured", routing.ErrFailed)
	}
	profile := req.Profile
	if profile == "" {
		profile = routing.ProfileDriving
	}

	body := directionsRequest{
		Coordinates:  [][2]float64{req.Origin.LngLat(), req.Destination.LngLat()},
		Instructions: true,
		Geometry:     true,
	}
	if req.Avoid != nil && !req.Avoid.Empty() {
		body.Options = &options{AvoidPolygons: &avoidPolygons{
			Type:        "MultiPolygon",
			Coordinates: req.Avoid.GeoJSON(),
		}}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to marshal request: %v", routing.ErrFailed, err)
	}

	if c.limiter != nil {
		// Wait only fails when ctx ends before a token is available
		if err := c.limiter.Wait(ctx); err != nil {
			if errors.Is(err, context.Canceled) {
				return nil, err
			}
			return nil, fmt.Errorf("%w: %v", routing.ErrTimeout, err)
		}
	}

	url := fmt.Sprintf("%s/v2/directions/%s", c.baseURL, profile)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %v", routing.ErrFailed, err)
	}
	httpReq.Header.Set("Authorization", c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json, application/geo+json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, classify(ctx, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s", routing.ErrFailed, errorMessage(resp))
	}

	var response DirectionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("%w: failed to decode response: %v", routing.ErrFailed, err)
	}

	return processDirectionsResponse(response), nil
}

// processDirectionsResponse converts the first ORS route into provider-neutral directions
func processDirectionsResponse(response DirectionsResponse) *routing.Directions {
	if len(response.Routes) == 0 {
		return nil
	}
	route := response.Routes[0]

	dirs := &routing.Directions{
		DistanceM: route.Summary.Distance,
		DurationS: route.Summary.Duration,
		Geometry:  route.Geometry,
		Precision: geo.DefaultPrecision,
	}
	for _, seg := range route.Segments {
		for _, step := range seg.Steps {
			dirs.Steps = append(dirs.Steps, routing.ProviderStep{
				Instruction: step.Instruction,
				DistanceM:   step.Distance,
				DurationS:   step.Duration,
				WayPoints:   step.WayPoints,
			})
		}
	}
	return dirs
}

func errorMessage(resp *http.Response) string {
	body, _ := io.ReadAll(resp.Body)
	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
		return fmt.Sprintf("ORS API error %d: %s", resp.StatusCode, errResp.Error.Message)
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		return "rate limit exceeded"
	}
	return fmt.Sprintf("ORS API error %d: %s", resp.StatusCode, string(body))
}

// classify maps transport errors onto routing's error taxonomy
func classify(ctx context.Context, err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) ||
		(errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%w: %v", routing.ErrTimeout, err)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%w: failed to reach routing service: %v", routing.ErrFailed, err)
}
