package firms

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/dpup/fireproof/server/internal/clients/transport"
	"github.com/dpup/fireproof/server/internal/lib/danger"
	"github.com/dpup/fireproof/server/internal/lib/geo"
)

// DefaultBaseURL is the NASA FIRMS API root
const DefaultBaseURL = "https://firms.modaps.eosdis.nasa.gov"

// Near-real-time sensors queried by default
var DefaultSensors = []string{"VIIRS_SNPP_NRT", "VIIRS_NOAA20_NRT", "MODIS_NRT"}

var (
	// ErrMissingAPIKey is returned when no FIRMS map key is configured.
	ErrMissingAPIKey = errors.New("FIRMS_API_KEY not configured")

	// ErrInvalidResponse is returned when FIRMS answers 200 with an error message instead of CSV.
	ErrInvalidResponse = errors.New("FIRMS returned an error payload")
)

// Client provides access to the FIRMS area API
type Client struct {
	apiKey     string
	baseURL    string
	httpClient transport.HTTPDoer
}

// NewClient creates a new FIRMS client
func NewClient(apiKey string, httpClient transport.HTTPDoer) *Client {
	return NewClientWithHTTPDoer(apiKey, DefaultBaseURL, httpClient)
}

// NewClientWithHTTPDoer creates a FIRMS client against baseURL
func NewClientWithHTTPDoer(apiKey, baseURL string, httpClient transport.HTTPDoer) *Client {
	return &Client{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// Configured reports whether the client has a map key.
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

// FormatBBox renders a box in the west,south,east,north order FIRMS expects.
func FormatBBox(box geo.BoundingBox) string {
	return fmt.Sprintf("%.4f,%.4f,%.4f,%.4f", box.MinLng, box.MinLat, box.MaxLng, box.MaxLat)
}

// FetchArea retrieves raw detections from one sensor within box over the last days days.
func (c *Client) FetchArea(ctx context.Context, sensor string, box geo.BoundingBox, days int) ([]danger.Record, error) {
	return c.fetch(ctx, sensor, FormatBBox(box), days)
}

// FetchAreaRaw is FetchArea with a preformatted bbox string, for named regions.
func (c *Client) FetchAreaRaw(ctx context.Context, sensor, bbox string, days int) ([]danger.Record, error) {
	return c.fetch(ctx, sensor, bbox, days)
}

func (c *Client) fetch(ctx context.Context, sensor, bbox string, days int) ([]danger.Record, error) {
	if c.apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	if days < 1 {
		days = 1
	}

	requestURL := fmt.Sprintf("%s/api/area/csv/%s/%s/%s/%d", c.baseURL, c.apiKey, sensor, bbox, days)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("rate limit exceeded")
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("invalid API key")
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("API error %d: %s", resp.StatusCode, string(body))
	}

	text := string(body)
	if strings.Contains(text, "Invalid MAP_KEY") || strings.Contains(text, "Error") {
		return nil, fmt.Errorf("%w: %s", ErrInvalidResponse, strings.TrimSpace(text))
	}

	return ParseCSV(strings.NewReader(text))
}

// ParseCSV reads a FIRMS CSV export. Rows shorter than the header are skipped.
func ParseCSV(r io.Reader) ([]danger.Record, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	var records []danger.Record
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV row: %w", err)
		}
		if len(row) < len(header) {
			continue
		}
		rec := make(danger.Record, len(header))
		for i, col := range header {
			rec[col] = row[i]
		}
		records = append(records, rec)
	}
	return records, nil
}
