// Package metrics exposes Prometheus counters for the import pipeline and
// the read-side cache.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "hm"

// Outcome labels for imported files.
const (
	OutcomeImported = "imported"
	OutcomeSkipped  = "skipped"
	OutcomeFailed   = "failed"
)

// Recorder owns a private registry so several instances can coexist in tests.
type Recorder struct {
	registry       *prometheus.Registry
	files          *prometheus.CounterVec
	rowsImported   prometheus.Counter
	rowsDropped    prometheus.Counter
	cacheLookups   *prometheus.CounterVec
	importDuration prometheus.Histogram
}

// New creates a Recorder with every collector registered.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		files: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "import_files_total",
			Help:      "Uploaded files by outcome.",
		}, []string{"outcome"}),
		rowsImported: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "import_rows_total",
			Help:      "Transactions written by imports.",
		}),
		rowsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "import_rows_dropped_total",
			Help:      "Rows dropped because a date or amount could not be parsed.",
		}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Read cache lookups by key namespace and result.",
		}, []string{"namespace", "result"}),
		importDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "import_batch_duration_seconds",
			Help:      "Wall time of a whole import batch.",
			Buckets:   prometheus.DefBuckets,
		}),
	}

	r.registry.MustRegister(
		r.files,
		r.rowsImported,
		r.rowsDropped,
		r.cacheLookups,
		r.importDuration,
		prometheus.NewGoCollector(),
	)
	return r
}

// FileImported records a committed file and its row counts.
func (r *Recorder) FileImported(rows, dropped int) {
	if r == nil {
		return
	}
	r.files.WithLabelValues(OutcomeImported).Inc()
	r.rowsImported.Add(float64(rows))
	r.rowsDropped.Add(float64(dropped))
}

// FileSkipped records a duplicate upload.
func (r *Recorder) FileSkipped() {
	if r == nil {
		return
	}
	r.files.WithLabelValues(OutcomeSkipped).Inc()
}

// FileFailed records a file that could not be imported.
func (r *Recorder) FileFailed() {
	if r == nil {
		return
	}
	r.files.WithLabelValues(OutcomeFailed).Inc()
}

// BatchFinished records how long a batch took.
func (r *Recorder) BatchFinished(elapsed time.Duration) {
	if r == nil {
		return
	}
	r.importDuration.Observe(elapsed.Seconds())
}

// ObserveCacheLookup implements cache.Observer.
func (r *Recorder) ObserveCacheLookup(ns string, hit bool) {
	if r == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	r.cacheLookups.WithLabelValues(ns, result).Inc()
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
