package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister_Idempotent(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, Register(reg))
	require.NoError(t, Register(reg))
}

func TestObserveProviderRequest(t *testing.T) {
	before := testutil.ToFloat64(providerRequestsTotal.WithLabelValues("ors", OutcomeError))

	ObserveProviderRequest("ors", "exploded", -time.Second)
	ObserveProviderRequest("ors", OutcomeSuccess, 200*time.Millisecond)

	assert.Equal(t, before+1, testutil.ToFloat64(providerRequestsTotal.WithLabelValues("ors", OutcomeError)))
	assert.GreaterOrEqual(t, testutil.ToFloat64(providerRequestsTotal.WithLabelValues("ors", OutcomeSuccess)), 1.0)
}

func TestObserveNavigation(t *testing.T) {
	before := testutil.ToFloat64(navigationsTotal.WithLabelValues(ResultNone))
	ObserveNavigation("unexpected")
	assert.Equal(t, before+1, testutil.ToFloat64(navigationsTotal.WithLabelValues(ResultNone)))
}
