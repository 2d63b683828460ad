// Package metrics exposes the sync state and request counts to Prometheus.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/skmethodistpj/laporan/core/appstate"
	"github.com/skmethodistpj/laporan/core/report"
)

const namespace = "laporan"

var statuses = []appstate.SyncStatus{appstate.StatusIdle, appstate.StatusLoading, appstate.StatusSuccess, appstate.StatusError}

// Metrics is an appstate.Observer. Each instance has its own registry.
type Metrics struct {
	registry    *prometheus.Registry
	syncStatus  *prometheus.GaugeVec
	writes      *prometheus.CounterVec
	unconfirmed prometheus.Gauge
	requests    *prometheus.CounterVec
	latency     *prometheus.HistogramVec
}

var _ appstate.Observer = (*Metrics)(nil)

func New(build string) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		syncStatus: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sync_status",
			Help:      "1 for the current sync status, 0 for the others.",
		}, []string{"status"}),
		writes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "report_writes_total",
			Help:      "Remote report writes by kind and result.",
		}, []string{"kind", "result"}),
		unconfirmed: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "unconfirmed_reports",
			Help:      "Local report changes whose remote write failed.",
		}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "code"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}
	buildInfo := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace:   namespace,
		Name:        "build_info",
		Help:        "Build of the running binary.",
		ConstLabels: prometheus.Labels{"build": build},
	})
	buildInfo.Set(1)

	m.registry.MustRegister(
		m.syncStatus, m.writes, m.unconfirmed, m.requests, m.latency, buildInfo,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	m.StatusChanged(appstate.StatusIdle)
	return m
}

func (m *Metrics) StatusChanged(status appstate.SyncStatus) {
	for _, s := range statuses {
		v := 0.0
		if s == status {
			v = 1
		}
		m.syncStatus.WithLabelValues(string(s)).Set(v)
	}
}

func (m *Metrics) WriteFinished(kind report.Kind, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.writes.WithLabelValues(string(kind), result).Inc()
}

func (m *Metrics) UnconfirmedChanged(n int) {
	m.unconfirmed.Set(float64(n))
}

// ObserveRequest counts one served request.
func (m *Metrics) ObserveRequest(method, route string, code int, took time.Duration) {
	m.requests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	m.latency.WithLabelValues(route).Observe(took.Seconds())
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry is exposed for tests and extra collectors.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }
