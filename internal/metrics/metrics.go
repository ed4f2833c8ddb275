// Package metrics exposes Prometheus metrics for the gateway and its conversations.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector owns its own registry so tests can create as many as they like
type Collector struct {
	registry *prometheus.Registry

	Answers             *prometheus.CounterVec
	FollowUps           *prometheus.CounterVec
	Completions         *prometheus.CounterVec
	SubmitFailures      *prometheus.CounterVec
	ActiveSessions      *prometheus.GaugeVec
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// New creates a collector under the given namespace
func New(namespace string) *Collector {
	reg := prometheus.NewRegistry()
	c := &Collector{
		registry: reg,
		Answers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "answers_total",
			Help:      "Answers submitted by respondents",
		}, []string{"skin"}),
		FollowUps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "followups_total",
			Help:      "Follow-up questions asked",
		}, []string{"skin"}),
		Completions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "completions_total",
			Help:      "Responses completed",
		}, []string{"skin"}),
		SubmitFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submit_failures_total",
			Help:      "Submissions that failed against the backend",
		}, []string{"skin"}),
		ActiveSessions: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Conversations held in memory",
		}, []string{"skin"}),
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "path", "status_code"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
	}
	reg.MustRegister(
		c.Answers,
		c.FollowUps,
		c.Completions,
		c.SubmitFailures,
		c.ActiveSessions,
		c.HTTPRequestsTotal,
		c.HTTPRequestDuration,
	)
	return c
}

// Handler serves the registry in the Prometheus text format
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Registry is exposed for tests
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

func (c *Collector) RecordAnswer(skin string) {
	if c == nil {
		return
	}
	c.Answers.WithLabelValues(skin).Inc()
}

func (c *Collector) RecordFollowUp(skin string) {
	if c == nil {
		return
	}
	c.FollowUps.WithLabelValues(skin).Inc()
}

func (c *Collector) RecordCompletion(skin string) {
	if c == nil {
		return
	}
	c.Completions.WithLabelValues(skin).Inc()
}

func (c *Collector) RecordSubmitFailure(skin string) {
	if c == nil {
		return
	}
	c.SubmitFailures.WithLabelValues(skin).Inc()
}

func (c *Collector) SessionOpened(skin string) {
	if c == nil {
		return
	}
	c.ActiveSessions.WithLabelValues(skin).Inc()
}

func (c *Collector) SessionClosed(skin string) {
	if c == nil {
		return
	}
	c.ActiveSessions.WithLabelValues(skin).Dec()
}

// RecordHTTPRequest records one served request. path should be the route template, not the raw URL.
func (c *Collector) RecordHTTPRequest(method, path string, statusCode int, duration time.Duration) {
	if c == nil {
		return
	}
	c.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(statusCode)).Inc()
	c.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}
