// Package metrics exposes Prometheus instrumentation for merge jobs, retention
// sweeps, and HTTP traffic.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"avmerge/internal/job"
	"avmerge/internal/services"
)

const namespace = "avmerge"

// Recorder owns a private registry so tests and multiple servers do not
// collide on the global one.
type Recorder struct {
	registry     *prometheus.Registry
	jobs         *prometheus.CounterVec
	jobDuration  prometheus.Histogram
	stages       *prometheus.CounterVec
	sweeps       *prometheus.CounterVec
	sweptFiles   prometheus.Counter
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// New registers the avmerge collectors along with the Go runtime and process
// collectors.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		jobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_total",
			Help:      "Merge jobs by outcome (success or error kind).",
		}, []string{"outcome"}),
		jobDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_duration_seconds",
			Help:      "Wall time of merge jobs from request to result.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}),
		stages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_entries_total",
			Help:      "Pipeline stages entered.",
		}, []string{"stage"}),
		sweeps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweeps_total",
			Help:      "Retention sweeps by result (completed or skipped).",
		}, []string{"result"}),
		sweptFiles: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "swept_files_total",
			Help:      "Output files deleted by retention sweeps.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"route", "code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}
	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.jobs,
		r.jobDuration,
		r.stages,
		r.sweeps,
		r.sweptFiles,
		r.httpRequests,
		r.httpDuration,
	)
	return r
}

// Registry exposes the underlying registry for gathering.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the exposition format for this recorder's registry.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// StageStarted implements job.Observer.
func (r *Recorder) StageStarted(stage job.Stage) {
	r.stages.WithLabelValues(string(stage)).Inc()
}

// JobFinished implements job.Observer.
func (r *Recorder) JobFinished(kind services.Kind, elapsed time.Duration) {
	outcome := "success"
	if kind != "" {
		outcome = string(kind)
	}
	r.jobs.WithLabelValues(outcome).Inc()
	r.jobDuration.Observe(elapsed.Seconds())
}

// SweepFinished implements retention.Observer.
func (r *Recorder) SweepFinished(deleted int, skipped bool) {
	if skipped {
		r.sweeps.WithLabelValues("skipped").Inc()
		return
	}
	r.sweeps.WithLabelValues("completed").Inc()
	r.sweptFiles.Add(float64(deleted))
}

// ObserveRequest records one HTTP request. route should be the mux pattern,
// not the raw path, to keep label cardinality bounded.
func (r *Recorder) ObserveRequest(route string, status int, elapsed time.Duration) {
	r.httpRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
	r.httpDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}
