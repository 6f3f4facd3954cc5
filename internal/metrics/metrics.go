// Package metrics exposes Prometheus counters for tracking activity.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "sitetime"

// Discard reasons reported by the recorder.
const (
	ReasonEmptyURL   = "empty_url"
	ReasonNotHTTP    = "not_http"
	ReasonTooShort   = "too_short"
	ReasonStoreError = "store_error"
)

// Collector holds all Prometheus metrics for the daemon. Each collector owns
// its registry so tests can create as many as they like.
type Collector struct {
	registry *prometheus.Registry

	Transitions     *prometheus.CounterVec
	RecordedMs      *prometheus.CounterVec
	VisitsRecorded  *prometheus.CounterVec
	VisitsDiscarded *prometheus.CounterVec
	Rollups         *prometheus.CounterVec
	EventClients    prometheus.Gauge
}

// New creates a collector registered on a fresh registry.
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tracker_transitions_total",
			Help:      "Tracker events applied, by event kind.",
		}, []string{"kind"}),
		RecordedMs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recorded_milliseconds_total",
			Help:      "Milliseconds attributed to sites, by category.",
		}, []string{"category"}),
		VisitsRecorded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "visits_recorded_total",
			Help:      "Visits merged into storage, by category.",
		}, []string{"category"}),
		VisitsDiscarded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "visits_discarded_total",
			Help:      "Visits dropped before storage, by reason.",
		}, []string{"reason"}),
		Rollups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rollups_total",
			Help:      "Daily rollups run, by status.",
		}, []string{"status"}),
		EventClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "event_clients",
			Help:      "Currently connected event websocket clients.",
		}),
	}

	c.registry.MustRegister(
		c.Transitions,
		c.RecordedMs,
		c.VisitsRecorded,
		c.VisitsDiscarded,
		c.Rollups,
		c.EventClients,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// Registry returns the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the exposition format for this collector.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// The helpers below accept a nil receiver so components can run without metrics.

// Transition counts one tracker event.
func (c *Collector) Transition(kind string) {
	if c == nil {
		return
	}
	c.Transitions.WithLabelValues(kind).Inc()
}

// Recorded counts a merged visit.
func (c *Collector) Recorded(category string, ms int64) {
	if c == nil {
		return
	}
	c.VisitsRecorded.WithLabelValues(category).Inc()
	c.RecordedMs.WithLabelValues(category).Add(float64(ms))
}

// Discarded counts a dropped visit.
func (c *Collector) Discarded(reason string) {
	if c == nil {
		return
	}
	c.VisitsDiscarded.WithLabelValues(reason).Inc()
}

// Rollup counts a rollup run.
func (c *Collector) Rollup(err error) {
	if c == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	c.Rollups.WithLabelValues(status).Inc()
}

// ClientConnected adjusts the connected-client gauge by delta.
func (c *Collector) ClientConnected(delta float64) {
	if c == nil {
		return
	}
	c.EventClients.Add(delta)
}
