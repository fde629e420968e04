// Package metrics holds the Prometheus collectors shared by pollers,
// actions and the web server.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the application collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	registry *prometheus.Registry

	pollCycles       *prometheus.CounterVec
	pollFailures     *prometheus.CounterVec
	subFetchFailures *prometheus.CounterVec
	pollDuration     *prometheus.HistogramVec
	lastSuccess      *prometheus.GaugeVec
	actions          *prometheus.CounterVec
}

// New creates a registry with the nocview collectors and the Go runtime
// collectors registered.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		pollCycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nocview",
			Name:      "poll_cycles_total",
			Help:      "Completed poll cycles by poller.",
		}, []string{"poller"}),
		pollFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nocview",
			Name:      "poll_failures_total",
			Help:      "Poll cycles whose fetch returned an error.",
		}, []string{"poller"}),
		subFetchFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nocview",
			Name:      "subfetch_failures_total",
			Help:      "Failed sub-requests inside a poll cycle.",
		}, []string{"poller", "task"}),
		pollDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "nocview",
			Name:      "poll_duration_seconds",
			Help:      "Poll cycle duration.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"poller"}),
		lastSuccess: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "nocview",
			Name:      "poll_last_success_timestamp_seconds",
			Help:      "Unix time of the last successful poll cycle.",
		}, []string{"poller"}),
		actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nocview",
			Name:      "actions_total",
			Help:      "Mutation actions by action and outcome.",
		}, []string{"action", "outcome"}),
	}

	reg.MustRegister(
		m.pollCycles,
		m.pollFailures,
		m.subFetchFailures,
		m.pollDuration,
		m.lastSuccess,
		m.actions,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// PollSucceeded records a successful cycle.
func (m *Metrics) PollSucceeded(poller string, took time.Duration) {
	if m == nil {
		return
	}
	m.pollCycles.WithLabelValues(poller).Inc()
	m.pollDuration.WithLabelValues(poller).Observe(took.Seconds())
	m.lastSuccess.WithLabelValues(poller).SetToCurrentTime()
}

// PollFailed records a failed cycle.
func (m *Metrics) PollFailed(poller string, took time.Duration) {
	if m == nil {
		return
	}
	m.pollCycles.WithLabelValues(poller).Inc()
	m.pollFailures.WithLabelValues(poller).Inc()
	m.pollDuration.WithLabelValues(poller).Observe(took.Seconds())
}

// SubFetchFailed records a failed sub-request.
func (m *Metrics) SubFetchFailed(poller, task string) {
	if m == nil {
		return
	}
	m.subFetchFailures.WithLabelValues(poller, task).Inc()
}

// Action records the outcome of a mutation.
func (m *Metrics) Action(action string, ok bool) {
	if m == nil {
		return
	}
	outcome := "ok"
	if !ok {
		outcome = "error"
	}
	m.actions.WithLabelValues(action, outcome).Inc()
}
