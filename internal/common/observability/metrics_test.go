package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddleware_RecordsRequests(t *testing.T) {
	reg := prometheus.NewRegistry()
	obs, err := NewWithRegisterer("collision-site-test", reg)
	require.NoError(t, err)
	defer obs.Shutdown(context.Background())

	h := obs.Middleware("notify", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/notify", nil))

	families, err := reg.Gather()
	require.NoError(t, err)

	byName := map[string]*dto.MetricFamily{}
	for _, mf := range families {
		byName[mf.GetName()] = mf
	}

	requests, ok := byName["site_requests_total"]
	require.True(t, ok, "exported families: %v", familyNames(families))
	require.Len(t, requests.GetMetric(), 1)
	assert.Equal(t, 1.0, requests.GetMetric()[0].GetCounter().GetValue())
	assert.Contains(t, byName, "site_request_duration_milliseconds")
}

func TestRecordRelay_ExportsHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	obs, err := NewWithRegisterer("collision-site-test", reg)
	require.NoError(t, err)
	defer obs.Shutdown(context.Background())

	obs.RecordRelay(context.Background(), "relayed", 0)

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.Contains(t, familyNames(families), "site_webhook_relay_duration_milliseconds")
}

func familyNames(families []*dto.MetricFamily) []string {
	names := make([]string, 0, len(families))
	for _, mf := range families {
		names = append(names, mf.GetName())
	}
	return names
}

func TestNilObservabilityIsSafe(t *testing.T) {
	var obs *Observability
	obs.RecordRequest(context.Background(), "x", 200, 0)
	obs.RecordRelay(context.Background(), "relayed", 0)
	assert.NoError(t, obs.Shutdown(context.Background()))

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	assert.NotNil(t, obs.Middleware("x", next))
}

func TestStatusClass(t *testing.T) {
	assert.Equal(t, "2xx", statusClass(200))
	assert.Equal(t, "3xx", statusClass(303))
	assert.Equal(t, "4xx", statusClass(422))
	assert.Equal(t, "5xx", statusClass(502))
}
