// Package metrics exports Prometheus metrics for the change pipeline.
// Registries are per-instance so independent pipelines (and tests) never
// collide on registration.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds the pipeline metrics on its own Prometheus registry.
type Registry struct {
	reg *prometheus.Registry

	applies    *prometheus.CounterVec
	rejections *prometheus.CounterVec
	duration   prometheus.Histogram
}

// NewRegistry creates a registry with all pipeline metrics registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		reg: reg,
		applies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "selfgate",
			Name:      "applies_total",
			Help:      "Change applications by result.",
		}, []string{"result"}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "selfgate",
			Name:      "rejections_total",
			Help:      "Rejected change applications by pipeline stage.",
		}, []string{"stage"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "selfgate",
			Name:      "apply_duration_seconds",
			Help:      "Wall time of apply calls, success or failure.",
			Buckets:   prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(r.applies, r.rejections, r.duration)
	return r
}

// RecordApply records a completed apply call.
func (r *Registry) RecordApply(success bool, elapsed time.Duration) {
	result := "success"
	if !success {
		result = "failure"
	}
	r.applies.WithLabelValues(result).Inc()
	r.duration.Observe(elapsed.Seconds())
}

// RecordRejection records which stage rejected a change.
func (r *Registry) RecordRejection(stage string) {
	r.rejections.WithLabelValues(stage).Inc()
}

// Gatherer exposes the underlying registry for scraping or test assertions.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}
