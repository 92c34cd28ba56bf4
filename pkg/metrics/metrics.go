// Package metrics exposes Prometheus metrics for export runs.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Export outcomes used as the "result" label.
const (
	ResultSuccess = "success"
	ResultPartial = "partial"
	ResultFailed  = "failed"
)

// Collector owns the export metrics and the registry they live in.
type Collector struct {
	registry *prometheus.Registry

	exports     *prometheus.CounterVec
	records     prometheus.Counter
	bytes       prometheus.Counter
	duration    prometheus.Histogram
	lastSuccess prometheus.Gauge
}

// New creates a collector registered on registry. A nil registry gets a
// fresh private one.
func New(registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	c := &Collector{
		registry: registry,
		exports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dropboxlog",
			Name:      "exports_total",
			Help:      "Export runs by result.",
		}, []string{"result"}),
		records: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "dropboxlog",
			Name:      "records_exported_total",
			Help:      "DropBox records written to export files.",
		}),
		bytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "dropboxlog",
			Name:      "bytes_written_total",
			Help:      "Bytes written to export files.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "dropboxlog",
			Name:      "export_duration_seconds",
			Help:      "Wall time of export runs.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
		}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "dropboxlog",
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last fully successful export.",
		}),
	}

	registry.MustRegister(c.exports, c.records, c.bytes, c.duration, c.lastSuccess)

	// Pre-create label values so all outcomes show up at zero.
	for _, r := range []string{ResultSuccess, ResultPartial, ResultFailed} {
		c.exports.WithLabelValues(r)
	}

	return c
}

// ObserveExport records one export run.
func (c *Collector) ObserveExport(result string, records int, bytes int64, d time.Duration, at time.Time) {
	if c == nil {
		return
	}
	c.exports.WithLabelValues(result).Inc()
	c.records.Add(float64(records))
	c.bytes.Add(float64(bytes))
	c.duration.Observe(d.Seconds())
	if result == ResultSuccess {
		c.lastSuccess.Set(float64(at.Unix()))
	}
}

// Registry returns the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// WriteTextfile writes the current metrics for node_exporter's textfile
// collector. The file is replaced atomically.
func (c *Collector) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, c.registry)
}
