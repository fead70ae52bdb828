package opencellid

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/dpup/fireproof/server/internal/clients/transport"
	"github.com/dpup/fireproof/server/internal/lib/coverage"
	"github.com/dpup/fireproof/server/internal/lib/geo"
)

// DefaultBaseURL is the OpenCellID API root
const DefaultBaseURL = "https://opencellid.org"

// ErrMissingAPIKey is returned when no OpenCellID key is configured.
var ErrMissingAPIKey = errors.New("OPENCELLID_API_KEY not configured")

// Client provides access to the OpenCellID area lookup
type Client struct {
	apiKey     string
	baseURL    string
	httpClient transport.HTTPDoer
}

// NewClient creates a new OpenCellID client
func NewClient(apiKey string, httpClient transport.HTTPDoer) *Client {
	return NewClientWithHTTPDoer(apiKey, DefaultBaseURL, httpClient)
}

// NewClientWithHTTPDoer creates a client against baseURL
func NewClientWithHTTPDoer(apiKey, baseURL string, httpClient transport.HTTPDoer) *Client {
	return &Client{apiKey: apiKey, baseURL: strings.TrimRight(baseURL, "/"), httpClient: httpClient}
}

// AreaResponse is the JSON body returned by getInArea
type AreaResponse struct {
	Count int    `json:"count"`
	Cells []Cell `json:"cells"`
}

// Cell is a single registered cell
type Cell struct {
	Lat     *float64 `json:"lat"`
	Lon     *float64 `json:"lon"`
	MCC     int      `json:"mcc"`
	MNC     int      `json:"mnc"`
	LAC     int64    `json:"lac"`
	CellID  int64    `json:"cellid"`
	Radio   string   `json:"radio"`
	Range   *float64 `json:"range"`
	Samples int      `json:"samples"`
}

// TowersInArea returns towers registered inside box. All towers are reported operational.
func (c *Client) TowersInArea(ctx context.Context, box geo.BoundingBox) ([]coverage.Tower, error) {
	if c.apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	params := url.Values{}
	params.Set("key", c.apiKey)
	params.Set("BBOX", fmt.Sprintf("%f,%f,%f,%f", box.MinLat, box.MinLng, box.MaxLat, box.MaxLng))
	params.Set("format", "json")

	requestURL := fmt.Sprintf("%s/cell/getInArea?%s", c.baseURL, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("rate limit exceeded")
	}
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, fmt.Errorf("invalid API key")
	}
	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("API error %d: %s", resp.StatusCode, string(body))
	}

	var response AreaResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return processAreaResponse(response), nil
}

// processAreaResponse converts cells to towers, skipping cells without a position
func processAreaResponse(response AreaResponse) []coverage.Tower {
	towers := make([]coverage.Tower, 0, len(response.Cells))
	for _, cell := range response.Cells {
		if cell.Lat == nil || cell.Lon == nil {
			continue
		}
		loc := geo.Point{Latitude: *cell.Lat, Longitude: *cell.Lon}
		if !loc.Valid() {
			continue
		}
		radio := cell.Radio
		if radio == "" {
			radio = "unknown"
		}
		towers = append(towers, coverage.Tower{
			Location:    loc,
			MCC:         cell.MCC,
			MNC:         cell.MNC,
			LAC:         cell.LAC,
			CellID:      cell.CellID,
			Radio:       radio,
			RangeM:      cell.Range,
			Operational: true,
		})
	}
	return towers
}
