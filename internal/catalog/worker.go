package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgallion1/docnav/internal/loader"
	"github.com/dgallion1/docnav/internal/metrics"
	"github.com/dgallion1/docnav/internal/stats"
	"github.com/dgallion1/docnav/internal/validate"
)

// Worker loads and checks one project per job.
type Worker struct {
	cat     *Catalog
	opts    validate.Options
	stats   *stats.Loads
	metrics *metrics.Recorder
	log     *slog.Logger
}

func NewWorker(cat *Catalog, opts validate.Options, st *stats.Loads, rec *metrics.Recorder, log *slog.Logger) *Worker {
	return &Worker{
		cat:     cat,
		opts:    opts,
		stats:   st,
		metrics: rec,
		log:     log,
	}
}

// Process loads the job's project, checks it and swaps it into the
// catalog. A failed load leaves the previous entry in place.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "project", job.Project, "reason", job.Reason)
	start := time.Now()

	target, ok := w.cat.Target(job.Project)
	if !ok {
		w.fail(job, log, start, "lookup", fmt.Errorf("unknown project %q", job.Project))
		return
	}

	job.SetStatus(StatusLoading, "reading navigation files")
	p, err := loader.Load(ctx, target.Name, target.Source)
	if err != nil {
		w.fail(job, log, start, "loading", err)
		return
	}

	job.SetStatus(StatusValidating, "checking structure")
	report, err := validate.Check(ctx, p, w.opts)
	if err != nil {
		w.fail(job, log, start, "validating", err)
		return
	}
	validate.SortIssues(report.Issues)

	took := time.Since(start)
	w.cat.Put(target.Name, &Entry{Project: p, Report: report, LoadedAt: time.Now(), Took: took})
	job.SetIssues(report.Errors(), report.Warnings())

	w.stats.Record(target.Name, took, false)
	w.metrics.ObserveLoad(target.Name, took, true)
	w.metrics.SetIssues(target.Name, report.Errors(), report.Warnings())
	w.metrics.SetProjects(w.cat.Len())
	w.metrics.IncJob(string(StatusCompleted))

	if report.Errors() > 0 {
		log.Warn("project loaded with errors",
			"nodes", report.Nodes, "errors", report.Errors(), "warnings", report.Warnings(), "first", report.Issues[0].String())
	} else {
		log.Info("project loaded",
			"nodes", report.Nodes, "shards", p.Tree().Index().Len(), "warnings", report.Warnings(), "duration_ms", took.Milliseconds())
	}
	job.SetStatus(StatusCompleted, "done")
}

func (w *Worker) fail(job *Job, log *slog.Logger, start time.Time, phase string, err error) {
	took := time.Since(start)
	log.Error("load failed", "phase", phase, "error", err)
	job.AddError(err.Error())
	w.cat.SetError(job.Project, err)
	w.stats.Record(job.Project, took, true)
	w.metrics.ObserveLoad(job.Project, took, false)
	w.metrics.IncJob(string(StatusFailed))
	job.SetStatus(StatusFailed, phase)
}
