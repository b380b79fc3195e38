// File: internal/platform/metrics/metrics.go

// Package metrics exposes the service's Prometheus instruments.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is what the auth, guard and transport layers report into.
type Recorder interface {
	RecordGuardDecision(state string)
	RecordAuthEvent(kind string)
	RecordProfileFetch(outcome string, d time.Duration)
	RecordStaleProfileDiscarded()
	RecordBootstrapFailure()
	RecordEventDropped(topic string)
	RecordPublishFailure(kind string)
	RecordHTTPRequest(method, route string, status int, d time.Duration)
	SetActiveAuthStates(n int)
}

// Collector is the Prometheus-backed Recorder.
type Collector struct {
	guardDecisions   *prometheus.CounterVec
	authEvents       *prometheus.CounterVec
	profileFetches   *prometheus.HistogramVec
	staleDiscarded   prometheus.Counter
	bootstrapFailed  prometheus.Counter
	eventsDropped    prometheus.Counter
	publishFailures  *prometheus.CounterVec
	httpRequests     *prometheus.CounterVec
	httpLatency      *prometheus.HistogramVec
	activeAuthStates prometheus.Gauge
}

// NewCollector builds a Collector and registers its instruments on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		guardDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fitcoach_guard_decisions_total",
			Help: "Route guard decisions by resulting state.",
		}, []string{"state"}),
		authEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fitcoach_auth_events_total",
			Help: "Auth state events applied, by kind.",
		}, []string{"kind"}),
		profileFetches: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "fitcoach_profile_fetch_seconds",
			Help:    "Profile fetch latency by outcome.",
			Buckets: prometheus.DefBuckets,
		}, []string{"outcome"}),
		staleDiscarded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fitcoach_profile_fetch_discarded_total",
			Help: "Profile fetch results dropped because a newer session superseded them.",
		}),
		bootstrapFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fitcoach_session_bootstrap_failures_total",
			Help: "Initial session reads that failed and fell back to signed out.",
		}),
		eventsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fitcoach_pubsub_dropped_total",
			Help: "Queued events replaced by newer ones on a full subscriber buffer.",
		}),
		publishFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fitcoach_auth_event_publish_failures_total",
			Help: "Auth events the broker refused, by kind.",
		}, []string{"kind"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fitcoach_http_requests_total",
			Help: "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "fitcoach_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		activeAuthStates: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fitcoach_auth_states_active",
			Help: "Client auth states currently held in memory.",
		}),
	}

	reg.MustRegister(
		c.guardDecisions,
		c.authEvents,
		c.profileFetches,
		c.staleDiscarded,
		c.bootstrapFailed,
		c.eventsDropped,
		c.publishFailures,
		c.httpRequests,
		c.httpLatency,
		c.activeAuthStates,
	)
	return c
}

func (c *Collector) RecordGuardDecision(state string) {
	c.guardDecisions.WithLabelValues(state).Inc()
}

func (c *Collector) RecordAuthEvent(kind string) {
	c.authEvents.WithLabelValues(kind).Inc()
}

func (c *Collector) RecordProfileFetch(outcome string, d time.Duration) {
	c.profileFetches.WithLabelValues(outcome).Observe(d.Seconds())
}

func (c *Collector) RecordStaleProfileDiscarded() {
	c.staleDiscarded.Inc()
}

func (c *Collector) RecordBootstrapFailure() {
	c.bootstrapFailed.Inc()
}

// RecordEventDropped ignores the topic as a label; topics are per client and unbounded.
func (c *Collector) RecordEventDropped(string) {
	c.eventsDropped.Inc()
}

func (c *Collector) RecordPublishFailure(kind string) {
	c.publishFailures.WithLabelValues(kind).Inc()
}

func (c *Collector) RecordHTTPRequest(method, route string, status int, d time.Duration) {
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.httpLatency.WithLabelValues(method, route).Observe(d.Seconds())
}

func (c *Collector) SetActiveAuthStates(n int) {
	c.activeAuthStates.Set(float64(n))
}

// Handler serves the registry in the Prometheus exposition format.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// NewRegistry returns a registry with the Go and process collectors attached.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// nop discards everything.
type nop struct{}

// Nop returns a Recorder that records nothing.
func Nop() Recorder { return nop{} }

func (nop) RecordGuardDecision(string)                           {}
func (nop) RecordAuthEvent(string)                               {}
func (nop) RecordProfileFetch(string, time.Duration)             {}
func (nop) RecordStaleProfileDiscarded()                         {}
func (nop) RecordBootstrapFailure()                              {}
func (nop) RecordEventDropped(string)                            {}
func (nop) RecordPublishFailure(string)                          {}
func (nop) RecordHTTPRequest(string, string, int, time.Duration) {}
func (nop) SetActiveAuthStates(int)                              {}
