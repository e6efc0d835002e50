package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dgallion1/docnav/internal/metrics"
	"github.com/dgallion1/docnav/internal/stats"
	"github.com/dgallion1/docnav/internal/validate"
)

// Options sizes the worker pool.
type Options struct {
	Workers   int
	QueueSize int
	JobTTL    time.Duration
	Validate  validate.Options
}

// Orchestrator runs load jobs on a fixed pool of workers.
type Orchestrator struct {
	cat     *Catalog
	jobs    *JobStore
	queue   chan *Job
	worker  *Worker
	metrics *metrics.Recorder
	log     *slog.Logger
	opts    Options

	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex // guards stopped and sends on queue
	stopped bool
}

func NewOrchestrator(cat *Catalog, opts Options, st *stats.Loads, rec *metrics.Recorder, log *slog.Logger) *Orchestrator {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 100
	}
	if opts.JobTTL <= 0 {
		opts.JobTTL = time.Hour
	}
	return &Orchestrator{
		cat:     cat,
		jobs:    NewJobStore(opts.JobTTL),
		queue:   make(chan *Job, opts.QueueSize),
		worker:  NewWorker(cat, opts.Validate, st, rec, log),
		metrics: rec,
		log:     log,
		opts:    opts,
	}
}

// Start launches worker goroutines.
func (o *Orchestrator) Start(ctx context.Context) {
	workerCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel

	for range o.opts.Workers {
		o.wg.Add(1)
		go func() {
			defer o.wg.Done()
			for {
				select {
				case <-workerCtx.Done():
					return
				case job, ok := <-o.queue:
					if !ok {
						return
					}
					o.worker.Process(workerCtx, job)
				}
			}
		}()
	}

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-workerCtx.Done():
				return
			case <-ticker.C:
				o.jobs.Cleanup()
			}
		}
	}()
}

// Stop cancels running jobs and waits for the workers to exit.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	if o.stopped {
		o.mu.Unlock()
		return
	}
	o.stopped = true
	if o.cancel != nil {
		o.cancel()
	}
	close(o.queue)
	o.mu.Unlock()
	o.wg.Wait()
}

// Submit queues a job. It never blocks; a full queue or a stopped
// orchestrator fails the job.
func (o *Orchestrator) Submit(job *Job) error {
	o.jobs.Put(job)
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.stopped {
		job.AddError("orchestrator stopped")
		job.SetStatus(StatusFailed, "stopped")
		o.metrics.IncJob("rejected")
		return errors.New("orchestrator is stopped")
	}
	select {
	case o.queue <- job:
		return nil
	default:
		job.AddError("queue full")
		job.SetStatus(StatusFailed, "queue_full")
		o.metrics.IncJob("rejected")
		return fmt.Errorf("job queue is full (%d)", o.opts.QueueSize)
	}
}

// Enqueue creates and submits a load job for a known project.
func (o *Orchestrator) Enqueue(project, reason string) (*Job, error) {
	if _, ok := o.cat.Target(project); !ok {
		return nil, fmt.Errorf("unknown project %q", project)
	}
	job := NewJob(project, reason)
	if err := o.Submit(job); err != nil {
		return job, err
	}
	return job, nil
}

// LoadAll enqueues every target of the catalog.
func (o *Orchestrator) LoadAll(reason string) []*Job {
	var jobs []*Job
	for _, t := range o.cat.Targets() {
		job, err := o.Enqueue(t.Name, reason)
		if err != nil {
			o.log.Warn("could not queue project", "project", t.Name, "error", err)
		}
		if job != nil {
			jobs = append(jobs, job)
		}
	}
	return jobs
}

// GetJob returns a job by ID.
func (o *Orchestrator) GetJob(id string) *Job {
	return o.jobs.Get(id)
}

// QueueDepth returns current queue depth.
func (o *Orchestrator) QueueDepth() int {
	return len(o.queue)
}

func (o *Orchestrator) Catalog() *Catalog {
	return o.cat
}
