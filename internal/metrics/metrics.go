package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// OutcomeSuccess labels calls that returned a usable answer.
	OutcomeSuccess = "success"
	// OutcomeNotFound labels calls whose answer was a valid empty result.
	OutcomeNotFound = "not_found"
	// OutcomeError labels transport failures and upstream errors.
	OutcomeError = "error"

	// ResultConstrained labels navigations that found a route avoiding all zones.
	ResultConstrained = "constrained"
	// ResultFallback labels navigations that fell back to an unconstrained route.
	ResultFallback = "fallback"
	// ResultNone labels navigations without a reachable destination.
	ResultNone = "none"
)

var (
	providerRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fireproof",
			Name:      "provider_requests_total",
			Help:      "Outbound provider requests, partitioned by provider and outcome.",
		},
		[]string{"provider", "outcome"},
	)

	providerRequestSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "fireproof",
			Name:      "provider_request_seconds",
			Help:      "Outbound provider request latency in seconds.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 30},
		},
		[]string{"provider"},
	)

	navigationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fireproof",
			Name:      "navigations_total",
			Help:      "Navigation requests, partitioned by how the destination was chosen.",
		},
		[]string{"result"},
	)
)

// Register attaches collectors to the supplied Prometheus registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		providerRequestsTotal,
		providerRequestSeconds,
		navigationsTotal,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveProviderRequest records an outbound call's latency and outcome.
func ObserveProviderRequest(provider, outcome string, duration time.Duration) {
	switch outcome {
	case OutcomeSuccess, OutcomeNotFound:
	default:
		outcome = OutcomeError
	}
	providerRequestsTotal.WithLabelValues(provider, outcome).Inc()
	if duration < 0 {
		duration = 0
	}
	providerRequestSeconds.WithLabelValues(provider).Observe(duration.Seconds())
}

// ObserveNavigation records how a navigation request was resolved.
func ObserveNavigation(result string) {
	switch result {
	case ResultConstrained, ResultFallback:
	default:
		result = ResultNone
	}
	navigationsTotal.WithLabelValues(result).Inc()
}
