package overpass

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/dpup/prefab/logging"

	"github.com/dpup/fireproof/server/internal/clients/transport"
	"github.com/dpup/fireproof/server/internal/lib/geo"
)

// DefaultMirrors are public Overpass interpreters tried in order
var DefaultMirrors = []string{
	"https://overpass-api.de/api/interpreter",
	"https://overpass.kumi.systems/api/interpreter",
	"https://maps.mail.ru/osm/tools/overpass/api/interpreter",
}

// ErrAllMirrorsFailed is returned when no mirror produced a usable answer.
var ErrAllMirrorsFailed = errors.New("All Overpass servers failed")

// Client queries Overpass interpreters, failing over between mirrors
type Client struct {
	mirrors    []string
	httpClient transport.HTTPDoer
}

// NewClient creates a new Overpass client. An empty mirror list uses DefaultMirrors.
func NewClient(mirrors []string, httpClient transport.HTTPDoer) *Client {
	if len(mirrors) == 0 {
		mirrors = DefaultMirrors
	}
	return &Client{mirrors: mirrors, httpClient: httpClient}
}

// BuildQuery renders an Overpass QL query for places of the given categories around center.
func BuildQuery(center geo.Point, radiusM int, categories []Category) string {
	var b strings.Builder
	b.WriteString("[out:json][timeout:25];\n(\n")
	for _, cat := range categories {
		tag, ok := categoryTags[cat]
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "  nwr[%q=%q](around:%d,%f,%f);\n", tag[0], tag[1], radiusM, center.Latitude, center.Longitude)
	}
	b.WriteString(");\nout center;\n")
	return b.String()
}

// FetchPlaces returns places of the given categories within radiusM meters of center. Each
// mirror is tried once in order; the first 200 response wins.
func (c *Client) FetchPlaces(ctx context.Context, center geo.Point, radiusM int, categories []Category) ([]Place, error) {
	if len(categories) == 0 {
		categories = AllCategories
	}
	form := url.Values{}
	form.Set("data", BuildQuery(center, radiusM, categories))
	encoded := form.Encode()

	ctx = logging.EnsureLogger(ctx)
	var lastErr error
	for _, mirror := range c.mirrors {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		resp, err := c.query(ctx, mirror, encoded)
		if err != nil {
			logging.Warnw(ctx, "overpass: mirror failed", "mirror", mirror, "error", err)
			lastErr = err
			continue
		}
		return ParseElements(resp.Elements), nil
	}
	return nil, fmt.Errorf("%w. Last error: %v", ErrAllMirrorsFailed, lastErr)
}

func (c *Client) query(ctx context.Context, mirror, form string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, mirror, strings.NewReader(form))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("server %s returned %d", mirror, resp.StatusCode)
	}

	var response Response
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &response, nil
}

// ParseElements converts elements into places, dropping those without a known category or
// without coordinates.
func ParseElements(elements []Element) []Place {
	places := make([]Place, 0, len(elements))
	for _, el := range elements {
		cat, ok := categorize(el.Tags)
		if !ok {
			continue
		}

		var loc geo.Point
		switch {
		case el.Type == "node" && el.Lat != nil && el.Lon != nil:
			loc = geo.Point{Latitude: *el.Lat, Longitude: *el.Lon}
		case el.Type != "node" && el.Center != nil:
			loc = geo.Point{Latitude: el.Center.Lat, Longitude: el.Center.Lon}
		default:
			continue
		}

		name := el.Tags["name"]
		if name == "" {
			name = "Unnamed " + strings.ReplaceAll(string(cat), "_", " ")
		}
		phone := el.Tags["phone"]
		if phone == "" {
			phone = el.Tags["contact:phone"]
		}

		places = append(places, Place{
			ID:       fmt.Sprintf("%s_%d", el.Type, el.ID),
			Name:     name,
			Category: cat,
			Location: loc,
			Address:  address(el.Tags),
			Phone:    phone,
		})
	}
	return places
}

func categorize(tags map[string]string) (Category, bool) {
	for _, cat := range AllCategories {
		tag := categoryTags[cat]
		if tags[tag[0]] == tag[1] {
			return cat, true
		}
	}
	return "", false
}

func address(tags map[string]string) string {
	var parts []string
	for _, key := range []string{"addr:housenumber", "addr:street", "addr:city"} {
		if v := tags[key]; v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, ", ")
}
