package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/inkwell/portfolio/internal/fallback"
)

const namespace = "portfolio"

// Recorder translates loading telemetry into Prometheus metrics on a dedicated registry.
type Recorder struct {
	registry *prometheus.Registry

	loads    *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	probes   *prometheus.CounterVec
	probeDur prometheus.Histogram
	syncs    *prometheus.CounterVec
}

// NewRecorder builds a Recorder and registers its metrics.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		loads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "content_loads_total",
			Help:      "Content loads by strategy and serving tier.",
		}, []string{"strategy", "source"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "content_load_seconds",
			Help:      "Time to serve a content load.",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 1.5, 3, 5},
		}, []string{"strategy", "source"}),
		probes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backend_health_probes_total",
			Help:      "Backend health probes by outcome.",
		}, []string{"healthy"}),
		probeDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "backend_health_probe_seconds",
			Help:      "Duration of backend health probes.",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1},
		}),
		syncs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "background_syncs_total",
			Help:      "Client-first background syncs by outcome.",
		}, []string{"outcome"}),
	}
	r.registry.MustRegister(r.loads, r.latency, r.probes, r.probeDur, r.syncs)
	return r
}

// ObserveLoad implements fallback.Recorder.
func (r *Recorder) ObserveLoad(strategy string, source fallback.Source, elapsed time.Duration) {
	r.loads.WithLabelValues(strategy, string(source)).Inc()
	r.latency.WithLabelValues(strategy, string(source)).Observe(elapsed.Seconds())
}

// ObserveProbe implements fallback.Recorder.
func (r *Recorder) ObserveProbe(healthy bool, elapsed time.Duration) {
	r.probes.WithLabelValues(strconv.FormatBool(healthy)).Inc()
	r.probeDur.Observe(elapsed.Seconds())
}

// ObserveBackgroundSync implements fallback.Recorder.
func (r *Recorder) ObserveBackgroundSync(outcome string) {
	r.syncs.WithLabelValues(outcome).Inc()
}

// Register adds extra collectors, such as the SystemCollector, to the registry.
func (r *Recorder) Register(collectors ...prometheus.Collector) error {
	for _, c := range collectors {
		if err := r.registry.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler exposes the registry over HTTP.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

var _ fallback.Recorder = (*Recorder)(nil)
