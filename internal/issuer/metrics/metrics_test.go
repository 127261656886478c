package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

func value(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

func TestCounters(t *testing.T) {
	m := New()

	m.Offers.WithLabelValues("loyalty", OutcomeOK).Inc()
	m.RateLimitHook("token")(nil)
	m.RateLimitHook("token")(nil)
	m.ObserveSweep(3, 2, 1)

	require.Equal(t, 1.0, value(t, m.Offers.WithLabelValues("loyalty", OutcomeOK)))
	require.Equal(t, 2.0, value(t, m.RateLimited.WithLabelValues("token")))
	require.Equal(t, 3.0, value(t, m.Swept.WithLabelValues("expired")))
	require.Equal(t, 1.0, value(t, m.Swept.WithLabelValues("codes_deleted")))
}

func TestInstancesAreIndependent(t *testing.T) {
	a, b := New(), New()
	a.Tokens.WithLabelValues(OutcomeOK, "").Inc()
	require.Zero(t, value(t, b.Tokens.WithLabelValues(OutcomeOK, "")))
}

func TestRegistryGathersIssuerFamilies(t *testing.T) {
	m := New()
	m.Credentials.WithLabelValues(OutcomeOK, "").Inc()

	families, err := m.Registry().Gather()
	require.NoError(t, err)

	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}
	require.True(t, names["vcissuer_credential_requests_total"])
	require.True(t, names["go_goroutines"])
}

func TestHandler(t *testing.T) {
	m := New()
	m.Credentials.WithLabelValues(OutcomeRejected, "invalid_proof").Inc()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `vcissuer_credential_requests_total{error="invalid_proof",outcome="rejected"} 1`)
	require.Contains(t, rec.Body.String(), "go_goroutines")
}
