// Package prommetrics exports scurry migration runs as Prometheus metrics.
package prommetrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/scurrydb/scurry"
)

// Observer is a scurry.Observer that records migration runs in Prometheus metrics.
type Observer struct {
	applied  prometheus.Counter
	failed   prometheus.Counter
	runs     *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

var _ scurry.Observer = (*Observer)(nil)

// New creates an Observer and registers its metrics with reg.
func New(reg prometheus.Registerer) (*Observer, error) {
	o := &Observer{
		applied: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scurry_migrations_applied_total",
			Help: "Total number of migration scripts applied.",
		}),
		failed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scurry_migrations_failed_total",
			Help: "Total number of migration scripts that failed.",
		}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scurry_runs_total",
			Help: "Total number of migration runs by result.",
		}, []string{"result"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "scurry_migration_duration_seconds",
			Help:    "Duration of individual migration scripts.",
			Buckets: prometheus.DefBuckets,
		}, []string{"status"}),
	}
	for _, c := range []prometheus.Collector{o.applied, o.failed, o.runs, o.duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// Observe implements scurry.Observer.
func (o *Observer) Observe(_ context.Context, e scurry.Event) {
	switch e.Type {
	case scurry.ScriptApplied:
		o.applied.Inc()
		o.duration.WithLabelValues("success").Observe(e.Duration.Seconds())
	case scurry.ScriptFailed:
		o.failed.Inc()
		o.duration.WithLabelValues("failure").Observe(e.Duration.Seconds())
	case scurry.RunFinished:
		result := "success"
		if e.Err != nil {
			result = "failure"
		}
		o.runs.WithLabelValues(result).Inc()
	}
}
