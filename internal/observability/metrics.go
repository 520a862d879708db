package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "iasi_l2"

// Metrics holds the Prometheus counters, histograms, and gauges for the
// granule conversion pipeline.
type Metrics struct {
	NotificationsReceived prometheus.Counter
	NotificationsRejected *prometheus.CounterVec // labels: reason={kind,host,fields,window,decode}
	Duplicates            prometheus.Counter
	GranulesAdmitted      prometheus.Counter
	GranulesOutsideArea   prometheus.Counter
	PipelineRunning       prometheus.Gauge

	// Transform metrics.
	TransformErrors    *prometheus.CounterVec // labels: class={validation,geometry,format,io,unknown}
	TransformDuration  prometheus.Histogram
	TasksInFlight      prometheus.Gauge
	ArtifactsPublished *prometheus.CounterVec // labels: product={iasi_l2_vprof,iasi_l2_vcross}
	PublishErrors      prometheus.Counter
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.NotificationsReceived,
		m.NotificationsRejected,
		m.Duplicates,
		m.GranulesAdmitted,
		m.GranulesOutsideArea,
		m.PipelineRunning,
		m.TransformErrors,
		m.TransformDuration,
		m.TasksInFlight,
		m.ArtifactsPublished,
		m.PublishErrors,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		NotificationsReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_received_total",
			Help:      "Total granule notifications read from the source.",
		}),
		NotificationsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_rejected_total",
			Help:      "Notifications discarded before admission, by reason.",
		}, []string{"reason"}),
		Duplicates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "duplicates_total",
			Help:      "Notifications dropped because the granule is already in flight.",
		}),
		GranulesAdmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "granules_admitted_total",
			Help:      "Granules admitted to the worker pool.",
		}),
		GranulesOutsideArea: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "granules_outside_area_total",
			Help:      "Granules skipped because the pass misses the area of interest.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 when the pipeline is active, 0 when shut down.",
		}),
		TransformErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transform_errors_total",
			Help:      "Granule transforms that failed, by error class.",
		}, []string{"class"}),
		TransformDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "transform_duration_seconds",
			Help:      "Wall time to convert one granule into both products.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60, 120},
		}),
		TasksInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tasks_in_flight",
			Help:      "Granule tasks currently executing in the worker pool.",
		}),
		ArtifactsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "artifacts_published_total",
			Help:      "Product notifications published, by product.",
		}, []string{"product"}),
		PublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_errors_total",
			Help:      "Failed attempts to publish a product notification.",
		}),
	}
}
