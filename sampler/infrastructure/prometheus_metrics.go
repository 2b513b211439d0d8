package infrastructure

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/samoilenko/sensorlog/sampler/domain"
)

const metricsNamespace = "sensorlog"

// PrometheusMetrics records pipeline events as prometheus series.
type PrometheusMetrics struct {
	reads         *prometheus.CounterVec
	enqueued      *prometheus.CounterVec
	queueDepth    prometheus.Gauge
	flushed       *prometheus.CounterVec
	dropped       *prometheus.CounterVec
	discarded     prometheus.Counter
	flushDuration prometheus.Histogram
}

// ReadSucceeded implements domain.Metrics.
func (m *PrometheusMetrics) ReadSucceeded(kind domain.SensorKind) {
	m.reads.WithLabelValues(kind.String(), "ok").Inc()
}

// ReadFailed implements domain.Metrics.
func (m *PrometheusMetrics) ReadFailed(kind domain.SensorKind) {
	m.reads.WithLabelValues(kind.String(), "error").Inc()
}

// RecordEnqueued implements domain.Metrics.
func (m *PrometheusMetrics) RecordEnqueued(kind domain.SensorKind, depth int) {
	m.enqueued.WithLabelValues(kind.String()).Inc()
	m.queueDepth.Set(float64(depth))
}

// RecordFlushed implements domain.Metrics.
func (m *PrometheusMetrics) RecordFlushed(kind domain.SensorKind) {
	m.flushed.WithLabelValues(kind.String()).Inc()
	m.queueDepth.Dec()
}

// RecordDropped implements domain.Metrics.
func (m *PrometheusMetrics) RecordDropped(kind domain.SensorKind) {
	m.dropped.WithLabelValues(kind.String()).Inc()
	m.queueDepth.Dec()
}

// RecordsDiscarded implements domain.Metrics.
func (m *PrometheusMetrics) RecordsDiscarded(n int) {
	m.discarded.Add(float64(n))
	m.queueDepth.Set(0)
}

// FlushCompleted implements domain.Metrics.
func (m *PrometheusMetrics) FlushCompleted(elapsed time.Duration) {
	m.flushDuration.Observe(elapsed.Seconds())
}

// NewPrometheusMetrics registers the pipeline series with reg.
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	factory := promauto.With(reg)
	return &PrometheusMetrics{
		reads: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "sensor_reads_total",
			Help:      "Sensor read attempts by kind and result.",
		}, []string{"kind", "result"}),
		enqueued: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "records_enqueued_total",
			Help:      "Records put on the flush queue.",
		}, []string{"kind"}),
		queueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "queue_depth",
			Help:      "Records waiting for the next flush.",
		}),
		flushed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "records_flushed_total",
			Help:      "Records appended to the log.",
		}, []string{"kind"}),
		dropped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "records_dropped_total",
			Help:      "Records lost because the log append failed.",
		}, []string{"kind"}),
		discarded: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "records_discarded_total",
			Help:      "Queued records discarded by stop.",
		}),
		flushDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "flush_duration_seconds",
			Help:      "Time spent draining the queue.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
		}),
	}
}

// MetricsHandler serves the series gathered by g.
func MetricsHandler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
