// internal/utils/metrics.go
package utils

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "content_creator"

// MetricsCollector groups the Prometheus collectors reported by the server.
type MetricsCollector struct {
	generations     *prometheus.CounterVec
	translations    *prometheus.CounterVec
	topicRequests   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	activeSessions  prometheus.Gauge
	wsClients       prometheus.Gauge
}

var (
	globalMetrics *MetricsCollector
	metricsOnce   sync.Once
)

// GetMetricsCollector returns the collector registered on the default registry.
// Created once so repeated server construction in tests does not double-register.
func GetMetricsCollector() *MetricsCollector {
	metricsOnce.Do(func() {
		globalMetrics = MustNewMetrics(prometheus.DefaultRegisterer)
	})
	return globalMetrics
}

// MustNewMetrics registers a fresh set of collectors on reg and panics on
// duplicate registration.
func MustNewMetrics(reg prometheus.Registerer) *MetricsCollector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &MetricsCollector{
		generations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "generations_total",
			Help:      "Content generations by origin, platform and outcome.",
		}, []string{"origin", "platform", "status"}),
		translations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "translations_total",
			Help:      "Translations by path taken (remote, cache, fallback, identity).",
		}, []string{"path"}),
		topicRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "topic_requests_total",
			Help:      "Topic discovery requests by answer source.",
		}, []string{"source"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "wizard_sessions_active",
			Help:      "Wizard sessions currently held in memory.",
		}),
		wsClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "websocket_clients",
			Help:      "Connected websocket clients.",
		}),
	}

	reg.MustRegister(
		m.generations, m.translations, m.topicRequests,
		m.requestDuration, m.activeSessions, m.wsClients,
	)
	return m
}

// RecordGeneration counts one generation attempt.
func (m *MetricsCollector) RecordGeneration(origin, platform, status string) {
	if m == nil {
		return
	}
	m.generations.WithLabelValues(origin, platform, status).Inc()
}

// RecordTranslation counts one translation by the path that produced it.
func (m *MetricsCollector) RecordTranslation(path string) {
	if m == nil {
		return
	}
	m.translations.WithLabelValues(path).Inc()
}

// RecordTopicRequest counts one topic discovery answer.
func (m *MetricsCollector) RecordTopicRequest(source string) {
	if m == nil {
		return
	}
	m.topicRequests.WithLabelValues(source).Inc()
}

// ObserveRequest records an HTTP request latency.
func (m *MetricsCollector) ObserveRequest(method, route, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.requestDuration.WithLabelValues(method, route, status).Observe(d.Seconds())
}

// SetActiveSessions sets the wizard session gauge.
func (m *MetricsCollector) SetActiveSessions(n int) {
	if m == nil {
		return
	}
	m.activeSessions.Set(float64(n))
}

// AddWSClients moves the websocket client gauge by delta.
func (m *MetricsCollector) AddWSClients(delta int) {
	if m == nil {
		return
	}
	m.wsClients.Add(float64(delta))
}
