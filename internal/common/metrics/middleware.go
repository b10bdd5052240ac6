package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTPMiddleware instruments the site's route handlers.
type HTTPMiddleware struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	inFlight prometheus.Gauge
}

// NewHTTPMiddleware registers the HTTP collectors with reg.
func NewHTTPMiddleware(reg prometheus.Registerer) *HTTPMiddleware {
	f := promauto.With(reg)
	return &HTTPMiddleware{
		requests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "site_http_requests_total",
				Help: "HTTP requests by route, method and status code",
			},
			[]string{"route", "method", "code"},
		),
		duration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "site_http_request_duration_seconds",
				Help:    "HTTP request latency by route",
				Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
			},
			[]string{"route", "method", "code"},
		),
		inFlight: f.NewGauge(prometheus.GaugeOpts{
			Name: "site_http_requests_in_flight",
			Help: "Requests currently being served",
		}),
	}
}

// Wrap instruments handler under the given route label.
func (m *HTTPMiddleware) Wrap(route string, handler http.Handler) http.Handler {
	labels := prometheus.Labels{"route": route}
	return promhttp.InstrumentHandlerInFlight(m.inFlight,
		promhttp.InstrumentHandlerCounter(m.requests.MustCurryWith(labels),
			promhttp.InstrumentHandlerDuration(m.duration.MustCurryWith(labels), handler),
		),
	)
}
