// internal/server/server.go
package server

import (
	"context"
	"net/http"
	"time"

	"collision-site/internal/common/errors"
	"collision-site/internal/common/logger"
	"collision-site/internal/common/metrics"
	"collision-site/internal/common/observability"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Routes served by the site backend.
const (
	RouteNotify       = "/api/notify"
	RouteCalendly     = "/api/webhooks/calendly"
	RouteApplications = "/api/careers/applications"
	RouteValidate     = "/api/careers/validate"
)

// Pinger is a dependency checked by /ready.
type Pinger interface {
	Ping(ctx context.Context) error
}

type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

type Handlers struct {
	Notify       http.Handler
	Calendly     http.Handler
	Applications http.Handler
	Validate     http.Handler
}

type Options struct {
	Registerer    prometheus.Registerer
	Gatherer      prometheus.Gatherer
	Observability *observability.Observability
	// Checks are pinged by /ready, keyed by name.
	Checks  map[string]Pinger
	Version string
}

// NewMux registers the API handlers plus health, readiness and metrics.
func NewMux(h Handlers, opts Options, log logger.Logger) *http.ServeMux {
	if opts.Registerer == nil {
		opts.Registerer = prometheus.DefaultRegisterer
	}
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}
	instrument := metrics.NewHTTPMiddleware(opts.Registerer)

	mux := http.NewServeMux()
	route := func(path string, handler http.Handler) {
		if handler == nil {
			return
		}
		handler = opts.Observability.Middleware(path, postOnly(handler))
		mux.Handle(path, instrument.Wrap(path, handler))
	}
	route(RouteNotify, h.Notify)
	route(RouteCalendly, h.Calendly)
	route(RouteApplications, h.Applications)
	route(RouteValidate, h.Validate)

	mux.Handle("/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		errors.WriteJSON(w, http.StatusOK, map[string]string{
			"status":  "healthy",
			"version": opts.Version,
		})
	})

	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		checks := make(map[string]string, len(opts.Checks))
		for name, p := range opts.Checks {
			if err := p.Ping(ctx); err != nil {
				log.Warn("readiness check failed", map[string]interface{}{
					"dependency": name,
					"error":      err.Error(),
				})
				checks[name] = "unavailable"
				status = http.StatusServiceUnavailable
				continue
			}
			checks[name] = "ok"
		}

		body := map[string]interface{}{"status": "ready", "checks": checks}
		if status != http.StatusOK {
			body["status"] = "not_ready"
		}
		errors.WriteJSON(w, status, body)
	})

	return mux
}

func postOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			errors.WriteJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "Method not allowed"})
			return
		}
		next.ServeHTTP(w, r)
	})
}
