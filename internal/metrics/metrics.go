package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Fetch outcomes recorded by list views.
const (
	OutcomeApplied = "applied"
	OutcomeStale   = "stale"
	OutcomeError   = "error"
	OutcomeClamped = "clamped"
)

// Recorder owns the console's collectors. A nil *Recorder is valid and
// records nothing.
type Recorder struct {
	registry *prometheus.Registry

	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
	fleetRequests *prometheus.CounterVec
	fleetDuration *prometheus.HistogramVec
	listFetches   *prometheus.CounterVec
	uploads       *prometheus.CounterVec
	exports       *prometheus.CounterVec
	sessions      prometheus.Gauge
}

func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flota_console",
			Name:      "http_requests_total",
			Help:      "Console HTTP requests by route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "flota_console",
			Name:      "http_request_duration_seconds",
			Help:      "Console HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		fleetRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flota_console",
			Name:      "fleet_api_requests_total",
			Help:      "Calls to the fleet REST API by method and status (0 = transport failure).",
		}, []string{"method", "status"}),
		fleetDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "flota_console",
			Name:      "fleet_api_request_duration_seconds",
			Help:      "Fleet REST API latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		listFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flota_console",
			Name:      "list_fetches_total",
			Help:      "List view fetches by resource and outcome.",
		}, []string{"resource", "outcome"}),
		uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flota_console",
			Name:      "attachment_uploads_total",
			Help:      "Attachment uploads by resource and outcome.",
		}, []string{"resource", "outcome"}),
		exports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flota_console",
			Name:      "exports_total",
			Help:      "List exports by resource and format.",
		}, []string{"resource", "format"}),
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "flota_console",
			Name:      "live_sessions",
			Help:      "Sessions with a live workspace.",
		}),
	}

	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.httpRequests, r.httpDuration,
		r.fleetRequests, r.fleetDuration,
		r.listFetches, r.uploads, r.exports, r.sessions,
	)
	return r
}

// Handler serves the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// Registry exposes the underlying registry for tests.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

func (r *Recorder) ObserveHTTP(method, route string, status int, d time.Duration) {
	if r == nil {
		return
	}
	r.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	r.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// ObserveFleetCall records one fleet API call.
func (r *Recorder) ObserveFleetCall(method string, status int, d time.Duration) {
	if r == nil {
		return
	}
	r.fleetRequests.WithLabelValues(method, strconv.Itoa(status)).Inc()
	r.fleetDuration.WithLabelValues(method).Observe(d.Seconds())
}

func (r *Recorder) ListFetch(resource, outcome string) {
	if r == nil {
		return
	}
	r.listFetches.WithLabelValues(resource, outcome).Inc()
}

func (r *Recorder) Upload(resource, outcome string) {
	if r == nil {
		return
	}
	r.uploads.WithLabelValues(resource, outcome).Inc()
}

func (r *Recorder) Export(resource, format string) {
	if r == nil {
		return
	}
	r.exports.WithLabelValues(resource, format).Inc()
}

func (r *Recorder) SessionOpened() {
	if r == nil {
		return
	}
	r.sessions.Inc()
}

func (r *Recorder) SessionClosed() {
	if r == nil {
		return
	}
	r.sessions.Dec()
}
