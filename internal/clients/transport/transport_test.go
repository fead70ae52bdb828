package transport

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockHTTPDoer is a mock implementation of HTTPDoer
type MockHTTPDoer struct {
	mock.Mock
}

func (m *MockHTTPDoer) Do(req *http.Request) (*http.Response, error) {
	args := m.Called(req)
	resp, _ := args.Get(0).(*http.Response)
	return resp, args.Error(1)
}

func TestInstrument_PassesThrough(t *testing.T) {
	body := io.NopCloser(strings.NewReader("ok"))
	mockHTTP := &MockHTTPDoer{}
	mockHTTP.On("Do", mock.AnythingOfType("*http.Request")).Return(&http.Response{StatusCode: 404, Body: body}, nil).Once()
	mockHTTP.On("Do", mock.AnythingOfType("*http.Request")).Return(nil, errors.New("dial tcp: refused")).Once()

	doer := Instrument("test", mockHTTP)
	req, err := http.NewRequest(http.MethodGet, "https://example.com", nil)
	require.NoError(t, err)

	resp, err := doer.Do(req)
	require.NoError(t, err)
	assert.Equal(t, 404, resp.StatusCode)

	_, err = doer.Do(req)
	assert.Error(t, err)
	mockHTTP.AssertExpectations(t)
}

func TestNewHTTPClient(t *testing.T) {
	client := NewHTTPClient(15 * time.Second)
	assert.Equal(t, 15*time.Second, client.Timeout)
}
