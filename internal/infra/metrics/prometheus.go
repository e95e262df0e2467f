// Package metrics holds the Prometheus collectors of the service on a
// private registry.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "triangle"

var (
	httpDurationBuckets       = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}
	activationDurationBuckets = []float64{.01, .05, .1, .25, .5, 1, 2, 5}
)

type Registry struct {
	reg *prometheus.Registry

	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
	httpInFlight   prometheus.Gauge
	activations    *prometheus.HistogramVec
	fallbacks      *prometheus.CounterVec
	outboxResults  *prometheus.CounterVec
	outboxPending  prometheus.Gauge
	cacheLookups   *prometheus.CounterVec
	reportsCreated *prometheus.CounterVec
}

func New() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "http_requests_total",
			Help: "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "http_request_duration_seconds",
			Help: "HTTP request latency.", Buckets: httpDurationBuckets,
		}, []string{"route", "method"}),
		httpInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "http_requests_in_flight",
			Help: "Requests currently being served.",
		}),
		activations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "beast_activation_duration_seconds",
			Help: "Orchestrator activation latency by outcome.", Buckets: activationDurationBuckets,
		}, []string{"status"}),
		fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "beast_analyzer_fallbacks_total",
			Help: "Analyzer runs that substituted a fallback result.",
		}, []string{"analyzer"}),
		outboxResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "outbox_dispatch_total",
			Help: "Outbox dispatch attempts by kind and result.",
		}, []string{"kind", "result"}),
		outboxPending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "outbox_pending_messages",
			Help: "Messages waiting in the outbox.",
		}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "cache_lookups_total",
			Help: "Cache lookups by result.",
		}, []string{"result"}),
		reportsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "reports_generated_total",
			Help: "Generated reports by kind and generator.",
		}, []string{"kind", "generator"}),
	}
	r.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.httpRequests, r.httpDuration, r.httpInFlight,
		r.activations, r.fallbacks,
		r.outboxResults, r.outboxPending,
		r.cacheLookups, r.reportsCreated,
	)
	return r
}

func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{Registry: r.reg})
}

// Gatherer exposes the registry to tests.
func (r *Registry) Gatherer() prometheus.Gatherer { return r.reg }

func (r *Registry) RequestStarted()  { r.httpInFlight.Inc() }
func (r *Registry) RequestFinished() { r.httpInFlight.Dec() }

func (r *Registry) ObserveRequest(route, method string, status int, d time.Duration) {
	r.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	r.httpDuration.WithLabelValues(route, method).Observe(d.Seconds())
}

func (r *Registry) ObserveActivation(status string, d time.Duration) {
	r.activations.WithLabelValues(status).Observe(d.Seconds())
}

func (r *Registry) AnalyzerFallback(analyzer string) {
	r.fallbacks.WithLabelValues(analyzer).Inc()
}

func (r *Registry) Dispatched(kind, result string) {
	r.outboxResults.WithLabelValues(kind, result).Inc()
}

func (r *Registry) Pending(n int) { r.outboxPending.Set(float64(n)) }

func (r *Registry) CacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	r.cacheLookups.WithLabelValues(result).Inc()
}

func (r *Registry) ReportGenerated(kind, generator string) {
	r.reportsCreated.WithLabelValues(kind, generator).Inc()
}
