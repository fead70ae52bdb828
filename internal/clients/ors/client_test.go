package ors

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/dpup/fireproof/server/internal/lib/geo"
	"github.com/dpup/fireproof/server/internal/lib/routing"
)

// MockHTTPDoer is a mock implementation of transport.HTTPDoer
type MockHTTPDoer struct {
	mock.Mock
}

func (m *MockHTTPDoer) Do(req *http.Request) (*http.Response, error) {
	args := m.Called(req)
	resp, _ := args.Get(0).(*http.Response)
	return resp, args.Error(1)
}

func createMockResponse(statusCode int, body string) *http.Response {
	return &http.Response{
		StatusCode: statusCode,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     make(http.Header),
	}
}

const directionsFixture = `{
  "routes": [{
    "summary": {"distance": 11046.4, "duration": 754.2},
    "geometry": "_p~iF~ps|U_ulLnnqC_mqNvxq` + "`" + `@",
    "segments": [{
      "distance": 11046.4,
      "duration": 754.2,
      "steps": [
        {"distance": 9000.0, "duration": 600.0, "type": 11, "instruction": "Head north on CA-4", "name": "CA-4", "way_points": [0, 1]},
        {"distance": 2046.4, "duration": 154.2, "type": 10, "instruction": "Arrive at Murphys", "name": "-", "way_points": [2, 2]}
      ]
    }]
  }]
}`

var (
	origin      = geo.Point{Latitude: 38.0675, Longitude: -120.5436}
	destination = geo.Point{Latitude: 38.1391, Longitude: -120.4561}
)

func TestDirections_Success(t *testing.T) {
	mockHTTP := &MockHTTPDoer{}
	mockHTTP.On("Do", mock.MatchedBy(func(req *http.Request) bool {
		return req.Method == http.MethodPost &&
			req.URL.String() == "https://ors.example.com/v2/directions/foot-walking" &&
			req.Header.Get("Authorization") == "test-key"
	})).Return(createMockResponse(200, directionsFixture), nil)

	client := NewClientWithHTTPDoer("test-key", "https://ors.example.com/", mockHTTP)
	dirs, err := client.Directions(context.Background(), routing.DirectionsRequest{
		Origin: origin, Destination: destination, Profile: routing.ProfileWalking,
	})
	require.NoError(t, err)
	require.NotNil(t, dirs)

	assert.Equal(t, 11046.4, dirs.DistanceM)
	assert.Equal(t, 754.2, dirs.DurationS)
	assert.Equal(t, geo.DefaultPrecision, dirs.Precision)
	require.Len(t, dirs.Steps, 2)
	assert.Equal(t, "Head north on CA-4", dirs.Steps[0].Instruction)
	assert.Equal(t, []int{2, 2}, dirs.Steps[1].WayPoints)
	mockHTTP.AssertExpectations(t)
}

func TestDirections_RequestBody(t *testing.T) {
	var captured directionsRequest
	mockHTTP := &MockHTTPDoer{}
	mockHTTP.On("Do", mock.AnythingOfType("*http.Request")).Run(func(args mock.Arguments) {
		req := args.Get(0).(*http.Request)
		require.NoError(t, json.NewDecoder(req.Body).Decode(&captured))
	}).Return(createMockResponse(200, directionsFixture), nil)

	avoid := &geo.MultiPolygon{Polygons: [][]geo.Point{
		geo.CirclePolygon(geo.Point{Latitude: 38.1, Longitude: -120.5}, 2, 16),
		geo.CirclePolygon(geo.Point{Latitude: 38.2, Longitude: -120.6}, 1, 16),
	}}

	client := NewClientWithHTTPDoer("test-key", "https://ors.example.com", mockHTTP)
	_, err := client.Directions(context.Background(), routing.DirectionsRequest{
		Origin: origin, Destination: destination, Avoid: avoid,
	})
	require.NoError(t, err)

	assert.Equal(t, [][2]float64{{-120.5436, 38.0675}, {-120.4561, 38.1391}}, captured.Coordinates)
	assert.True(t, captured.Instructions)
	assert.True(t, captured.Geometry)
	require.NotNil(t, captured.Options)
	require.NotNil(t, captured.Options.AvoidPolygons)
	assert.Equal(t, "MultiPolygon", captured.Options.AvoidPolygons.Type)
	require.Len(t, captured.Options.AvoidPolygons.Coordinates, 2)
	assert.Len(t, captured.Options.AvoidPolygons.Coordinates[0][0], 17)
}

func TestDirections_OmitsOptionsWithoutZones(t *testing.T) {
	var raw map[string]any
	mockHTTP := &MockHTTPDoer{}
	mockHTTP.On("Do", mock.AnythingOfType("*http.Request")).Run(func(args mock.Arguments) {
		req := args.Get(0).(*http.Request)
		require.NoError(t, json.NewDecoder(req.Body).Decode(&raw))
	}).Return(createMockResponse(200, directionsFixture), nil)

	client := NewClientWithHTTPDoer("test-key", "https://ors.example.com", mockHTTP)
	_, err := client.Directions(context.Background(), routing.DirectionsRequest{
		Origin: origin, Destination: destination, Avoid: &geo.MultiPolygon{},
	})
	require.NoError(t, err)
	assert.NotContains(t, raw, "options")
}

func TestDirections_NotFound(t *testing.T) {
	mockHTTP := &MockHTTPDoer{}
	mockHTTP.On("Do", mock.Anything).Return(createMockResponse(404,
		`{"error":{"code":2010,"message":"Could not find routable point within a radius of 350.0 meters"}}`), nil)

	client := NewClientWithHTTPDoer("test-key", "https://ors.example.com", mockHTTP)
	dirs, err := client.Directions(context.Background(), routing.DirectionsRequest{Origin: origin, Destination: destination})
	assert.NoError(t, err)
	assert.Nil(t, dirs)
}

func TestDirections_EmptyRoutes(t *testing.T) {
	mockHTTP := &MockHTTPDoer{}
	mockHTTP.On("Do", mock.Anything).Return(createMockResponse(200, `{"routes":[]}`), nil)

	client := NewClientWithHTTPDoer("test-key", "https://ors.example.com", mockHTTP)
	dirs, err := client.Directions(context.Background(), routing.DirectionsRequest{Origin: origin, Destination: destination})
	assert.NoError(t, err)
	assert.Nil(t, dirs)
}

func TestDirections_ServerError(t *testing.T) {
	mockHTTP := &MockHTTPDoer{}
	mockHTTP.On("Do", mock.Anything).Return(createMockResponse(500,
		`{"error":{"code":2099,"message":"Unknown internal error"}}`), nil)

	client := NewClientWithHTTPDoer("test-key", "https://ors.example.com", mockHTTP)
	_, err := client.Directions(context.Background(), routing.DirectionsRequest{Origin: origin, Destination: destination})
	assert.ErrorIs(t, err, routing.ErrFailed)
	assert.Contains(t, err.Error(), "Unknown internal error")
}

func TestDirections_MalformedPayload(t *testing.T) {
	mockHTTP := &MockHTTPDoer{}
	mockHTTP.On("Do", mock.Anything).Return(createMockResponse(200, `{"routes": [`), nil)

	client := NewClientWithHTTPDoer("test-key", "https://ors.example.com", mockHTTP)
	_, err := client.Directions(context.Background(), routing.DirectionsRequest{Origin: origin, Destination: destination})
	assert.ErrorIs(t, err, routing.ErrFailed)
}

func TestDirections_Timeout(t *testing.T) {
	mockHTTP := &MockHTTPDoer{}
	mockHTTP.On("Do", mock.Anything).Return(nil, context.DeadlineExceeded)

	client := NewClientWithHTTPDoer("test-key", "https://ors.example.com", mockHTTP)
	_, err := client.Directions(context.Background(), routing.DirectionsRequest{Origin: origin, Destination: destination})
	assert.ErrorIs(t, err, routing.ErrTimeout)
	assert.NotErrorIs(t, err, routing.ErrFailed)
}

func TestDirections_LimiterHonoursDeadline(t *testing.T) {
	mockHTTP := &MockHTTPDoer{}
	// one request per hour with the single token already spent
	limiter := rate.NewLimiter(rate.Every(time.Hour), 1)
	limiter.Allow()

	client := NewClient("test-key", mockHTTP, limiter)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.Directions(ctx, routing.DirectionsRequest{Origin: origin, Destination: destination})
	assert.ErrorIs(t, err, routing.ErrTimeout)
	mockHTTP.AssertNotCalled(t, "Do", mock.Anything)
}

func TestDirections_MissingKey(t *testing.T) {
	mockHTTP := &MockHTTPDoer{}
	client := NewClientWithHTTPDoer("", "https://ors.example.com", mockHTTP)

	_, err := client.Directions(context.Background(), routing.DirectionsRequest{Origin: origin, Destination: destination})
	assert.ErrorIs(t, err, routing.ErrFailed)
	mockHTTP.AssertNotCalled(t, "Do", mock.Anything)
}

func TestDirections_PlannerIntegration(t *testing.T) {
	mockHTTP := &MockHTTPDoer{}
	mockHTTP.On("Do", mock.Anything).Return(createMockResponse(200, directionsFixture), nil)

	planner := routing.NewPlanner(NewClientWithHTTPDoer("test-key", "https://ors.example.com", mockHTTP))
	route, err := planner.Plan(context.Background(), routing.PlanRequest{Origin: origin, Destination: destination})
	require.NoError(t, err)
	require.NotNil(t, route)

	assert.Equal(t, 11.05, route.DistanceKm)
	assert.Equal(t, 12.6, route.DurationMinutes)
	require.Len(t, route.Steps, 2)
	assert.InDelta(t, 38.5, route.Steps[0].Location.Latitude, 1e-6)
	assert.InDelta(t, 43.252, route.Steps[1].Location.Latitude, 1e-6)
}
