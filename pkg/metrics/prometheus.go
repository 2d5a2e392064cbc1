package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	fetches   *prometheus.CounterVec
	cacheHits *prometheus.CounterVec
	problems  *prometheus.CounterVec
	errors    *prometheus.CounterVec
	latency   *prometheus.HistogramVec
}

// New creates a recorder registered on reg. A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Recorder{
		fetches: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "alphakit_fetch_total",
				Help: "Provider retrievals by source and outcome",
			},
			[]string{"source", "outcome"},
		),
		cacheHits: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "alphakit_cache_hits_total",
				Help: "Ensure calls satisfied by an existing artifact",
			},
			[]string{"source"},
		),
		problems: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "alphakit_problems_total",
				Help: "Scenario problems recorded by kind",
			},
			[]string{"kind"},
		),
		errors: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "alphakit_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "alphakit_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordFetch records one provider retrieval attempt outcome.
func (r *Recorder) RecordFetch(source, outcome string) {
	r.fetches.WithLabelValues(source, outcome).Inc()
}

// RecordCacheHit records an ensure answered from the backing store.
func (r *Recorder) RecordCacheHit(source string) {
	r.cacheHits.WithLabelValues(source).Inc()
}

// RecordProblem records a scenario problem.
func (r *Recorder) RecordProblem(kind string) {
	r.problems.WithLabelValues(kind).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errors.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// Nop discards every measurement.
type Nop struct{}

func (Nop) RecordFetch(string, string)    {}
func (Nop) RecordCacheHit(string)         {}
func (Nop) RecordProblem(string)          {}
func (Nop) RecordError(string)            {}
func (Nop) RecordLatency(string, float64) {}
