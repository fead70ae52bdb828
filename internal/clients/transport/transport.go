// Package transport holds the HTTP plumbing shared by the provider clients.
package transport

import (
	"net/http"
	"time"

	"github.com/dpup/fireproof/server/internal/metrics"
)

// HTTPDoer is the subset of *http.Client used by provider clients
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// NewHTTPClient returns the process-wide client. Per-call deadlines come from the request
// context; timeout is the upper bound for any single call.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        50,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}

type instrumented struct {
	provider string
	next     HTTPDoer
}

// Instrument wraps next so every call records provider latency and outcome metrics.
func Instrument(provider string, next HTTPDoer) HTTPDoer {
	return &instrumented{provider: provider, next: next}
}

func (i *instrumented) Do(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := i.next.Do(req)

	outcome := metrics.OutcomeSuccess
	switch {
	case err != nil:
		outcome = metrics.OutcomeError
	case resp.StatusCode == http.StatusNotFound:
		outcome = metrics.OutcomeNotFound
	case resp.StatusCode >= 400:
		outcome = metrics.OutcomeError
	}
	metrics.ObserveProviderRequest(i.provider, outcome, time.Since(start))

	return resp, err
}
