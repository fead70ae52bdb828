package opencellid

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dpup/fireproof/server/internal/lib/geo"
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

const cellsFixture = `{
  "count": 3,
  "cells": [
    {"lat": 38.071, "lon": -120.541, "mcc": 310, "mnc": 410, "lac": 7733, "cellid": 123456789, "radio": "LTE", "range": 1200, "samples": 14},
    {"lat": 38.09, "lon": -120.52, "mcc": 310, "mnc": 260, "lac": 7734, "cellid": 22211, "radio": "", "samples": 2},
    {"mcc": 310, "mnc": 260, "lac": 1, "cellid": 1, "radio": "GSM"}
  ]
}`

var box = geo.BoundingBox{MinLat: 38.0, MinLng: -120.6, MaxLat: 38.2, MaxLng: -120.4}

func TestTowersInArea_Success(t *testing.T) {
	mockHTTP := &MockHTTPDoer{}
	mockHTTP.On("Do", mock.MatchedBy(func(req *http.Request) bool {
		q := req.URL.Query()
		return req.URL.Path == "/cell/getInArea" &&
			q.Get("key") == "test-key" &&
			q.Get("BBOX") == "38.000000,-120.600000,38.200000,-120.400000" &&
			q.Get("format") == "json"
	})).Return(createMockResponse(200, cellsFixture), nil)

	client := NewClientWithHTTPDoer("test-key", "https://cells.example.com", mockHTTP)
	towers, err := client.TowersInArea(context.Background(), box)
	require.NoError(t, err)
	require.Len(t, towers, 2, "cells without coordinates are skipped")

	assert.Equal(t, geo.Point{Latitude: 38.071, Longitude: -120.541}, towers[0].Location)
	assert.Equal(t, 310, towers[0].MCC)
	assert.Equal(t, int64(123456789), towers[0].CellID)
	require.NotNil(t, towers[0].RangeM)
	assert.Equal(t, 1200.0, *towers[0].RangeM)
	assert.True(t, towers[0].Operational)
	assert.Equal(t, "unknown", towers[1].Radio)
	assert.Nil(t, towers[1].RangeM)
	mockHTTP.AssertExpectations(t)
}

func TestTowersInArea_MissingKey(t *testing.T) {
	mockHTTP := &MockHTTPDoer{}
	client := NewClientWithHTTPDoer("", "https://cells.example.com", mockHTTP)

	_, err := client.TowersInArea(context.Background(), box)
	assert.ErrorIs(t, err, ErrMissingAPIKey)
	mockHTTP.AssertNotCalled(t, "Do", mock.Anything)
}

func TestTowersInArea_Errors(t *testing.T) {
	tests := []struct {
		status   int
		body     string
		contains string
	}{
		{401, "", "invalid API key"},
		{429, "", "rate limit exceeded"},
		{500, "oops", "API error 500: oops"},
		{200, "not json", "failed to decode response"},
	}

	for _, tt := range tests {
		mockHTTP := &MockHTTPDoer{}
		mockHTTP.On("Do", mock.Anything).Return(createMockResponse(tt.status, tt.body), nil)

		client := NewClientWithHTTPDoer("test-key", "https://cells.example.com", mockHTTP)
		_, err := client.TowersInArea(context.Background(), box)
		require.Error(t, err)
		assert.Contains(t, err.Error(), tt.contains)
	}
}
