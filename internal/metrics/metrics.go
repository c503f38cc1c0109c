// Package metrics exposes Prometheus instrumentation for outline extraction.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

// Metrics holds the process-wide collectors.
type Metrics struct {
	DocumentsTotal   *prometheus.CounterVec
	DocumentDuration *prometheus.HistogramVec
	DemotionsTotal   *prometheus.CounterVec
	SemanticLatency  prometheus.Histogram
	CacheHitsTotal   prometheus.Counter
	CacheMissesTotal prometheus.Counter
}

// Get returns the registered metrics, registering them on first use.
//
// Metrics:
//   - outline_documents_total{tier,status}
//   - outline_document_duration_seconds{tier}
//   - outline_tier_demotions_total{reason}
//   - outline_semantic_latency_seconds
//   - outline_cache_hits_total
//   - outline_cache_misses_total
func Get() *Metrics {
	metricsOnce.Do(func() {
		globalMetrics = &Metrics{
			DocumentsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "outline_documents_total",
					Help: "Documents processed, by tier and status",
				},
				[]string{"tier", "status"},
			),
			DocumentDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "outline_document_duration_seconds",
					Help:    "Outline extraction time per document",
					Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~10s
				},
				[]string{"tier"},
			),
			DemotionsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "outline_tier_demotions_total",
					Help: "Documents that fell back to a lower tier",
				},
				[]string{"reason"},
			),
			SemanticLatency: promauto.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "outline_semantic_latency_seconds",
					Help:    "Heading classifier call latency",
					Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
				},
			),
			CacheHitsTotal: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "outline_cache_hits_total",
					Help: "Outline cache hits",
				},
			),
			CacheMissesTotal: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "outline_cache_misses_total",
					Help: "Outline cache misses",
				},
			),
		}
	})
	return globalMetrics
}

// RecordDocument records one finished document.
func (m *Metrics) RecordDocument(tier, status string, seconds float64) {
	m.DocumentsTotal.WithLabelValues(tier, status).Inc()
	if status == "completed" {
		m.DocumentDuration.WithLabelValues(tier).Observe(seconds)
	}
}

// RecordDemotion records a tier demotion.
func (m *Metrics) RecordDemotion(reason string) {
	m.DemotionsTotal.WithLabelValues(reason).Inc()
}

// RecordCache records a cache lookup.
func (m *Metrics) RecordCache(hit bool) {
	if hit {
		m.CacheHitsTotal.Inc()
		return
	}
	m.CacheMissesTotal.Inc()
}
