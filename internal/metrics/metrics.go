// Package metrics exposes Prometheus instruments for protocol exports and
// lifecycle lock rejections.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder owns the service's collectors on its own registry
type Recorder struct {
	registry        *prometheus.Registry
	exports         *prometheus.CounterVec
	exportDuration  prometheus.Histogram
	letterheadFalls prometheus.Counter
	lockRejections  *prometheus.CounterVec
}

// New registers all collectors on a fresh registry
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		exports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "grpprotocol",
			Name:      "protocol_exports_total",
			Help:      "Protocol PDF renderings by mode (export, preview) and result.",
		}, []string{"mode", "result"}),
		exportDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "grpprotocol",
			Name:      "protocol_export_duration_seconds",
			Help:      "Time spent rendering a protocol PDF.",
			Buckets:   prometheus.DefBuckets,
		}),
		letterheadFalls: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "grpprotocol",
			Name:      "letterhead_fallbacks_total",
			Help:      "Exports that fell back to the plain rendering because the letterhead merge failed.",
		}),
		lockRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "grpprotocol",
			Name:      "protocol_lock_rejections_total",
			Help:      "Mutations rejected because the protocol is exported.",
		}, []string{"target"}),
	}
	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.exports, r.exportDuration, r.letterheadFalls, r.lockRejections,
	)
	return r
}

// ObserveExport records one rendering
func (r *Recorder) ObserveExport(mode string, started time.Time, err error) {
	if r == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.exports.WithLabelValues(mode, result).Inc()
	r.exportDuration.Observe(time.Since(started).Seconds())
}

// LetterheadFallback counts a failed letterhead merge
func (r *Recorder) LetterheadFallback() {
	if r == nil {
		return
	}
	r.letterheadFalls.Inc()
}

// LockRejected counts a mutation refused on an exported protocol. target is
// the entity the caller tried to change (protocol, item, todo, presence).
func (r *Recorder) LockRejected(target string) {
	if r == nil {
		return
	}
	r.lockRejections.WithLabelValues(target).Inc()
}

// Handler serves the registry in the Prometheus text format
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for tests
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}
