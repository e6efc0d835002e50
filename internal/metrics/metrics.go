// Package metrics exposes loader, lookup and job counters to Prometheus.
package metrics

import (
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	promcollect "github.com/prometheus/client_golang/prometheus/collectors"
	promhttp "github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "docnav"

// Recorder holds the docnav collectors. A nil *Recorder is a no-op, so
// packages can record unconditionally.
type Recorder struct {
	reg          *prom.Registry
	loadDuration *prom.HistogramVec
	lookups      *prom.CounterVec
	jobs         *prom.CounterVec
	issues       *prom.GaugeVec
	projects     prom.Gauge
}

// New registers the collectors, plus the Go and process collectors, on a
// fresh registry.
func New() *Recorder {
	r := &Recorder{reg: prom.NewRegistry()}
	r.loadDuration = prom.NewHistogramVec(prom.HistogramOpts{
		Namespace: namespace,
		Name:      "load_duration_seconds",
		Help:      "Time to load and check one project",
		Buckets:   prom.DefBuckets,
	}, []string{"project", "result"})
	r.lookups = prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "lookups_total",
		Help:      "Navigation lookups by operation and outcome",
	}, []string{"op", "result"})
	r.jobs = prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "jobs_total",
		Help:      "Load jobs by final status",
	}, []string{"status"})
	r.issues = prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: namespace,
		Name:      "validation_issues",
		Help:      "Issues in the latest report of each project",
	}, []string{"project", "severity"})
	r.projects = prom.NewGauge(prom.GaugeOpts{
		Namespace: namespace,
		Name:      "projects_loaded",
		Help:      "Projects currently served",
	})
	r.reg.MustRegister(r.loadDuration, r.lookups, r.jobs, r.issues, r.projects)
	r.reg.MustRegister(promcollect.NewGoCollector(), promcollect.NewProcessCollector(promcollect.ProcessCollectorOpts{}))
	return r
}

func (r *Recorder) ObserveLoad(project string, d time.Duration, success bool) {
	if r == nil {
		return
	}
	r.loadDuration.WithLabelValues(project, result(success)).Observe(d.Seconds())
}

// IncLookup counts one lookup; outcome is e.g. "hit", "fallback" or "error".
func (r *Recorder) IncLookup(op, outcome string) {
	if r == nil {
		return
	}
	r.lookups.WithLabelValues(op, outcome).Inc()
}

func (r *Recorder) IncJob(status string) {
	if r == nil {
		return
	}
	r.jobs.WithLabelValues(status).Inc()
}

func (r *Recorder) SetIssues(project string, errors, warnings int) {
	if r == nil {
		return
	}
	r.issues.WithLabelValues(project, "error").Set(float64(errors))
	r.issues.WithLabelValues(project, "warning").Set(float64(warnings))
}

// ForgetProject drops the per-project series of a removed project.
func (r *Recorder) ForgetProject(project string) {
	if r == nil {
		return
	}
	r.issues.DeletePartialMatch(prom.Labels{"project": project})
	r.loadDuration.DeletePartialMatch(prom.Labels{"project": project})
}

func (r *Recorder) SetProjects(n int) {
	if r == nil {
		return
	}
	r.projects.Set(float64(n))
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

func result(success bool) string {
	if success {
		return "success"
	}
	return "failed"
}
