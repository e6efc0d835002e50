package catalog

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// JobStatus represents the state of a load job.
type JobStatus string

const (
	StatusQueued     JobStatus = "queued"
	StatusLoading    JobStatus = "loading"
	StatusValidating JobStatus = "validating"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
)

// Finished reports whether s is terminal.
func (s JobStatus) Finished() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Job tracks one load of one project.
type Job struct {
	mu sync.Mutex

	ID      string
	Project string
	Reason  string // startup, watch or api

	Status JobStatus
	Phase  string

	Errors   []string
	Issues   int
	Warnings int

	CreatedAt time.Time
	UpdatedAt time.Time

	done chan struct{}
}

// NewJob returns a queued job with a fresh ID.
func NewJob(project, reason string) *Job {
	now := time.Now()
	return &Job{
		ID:        uuid.NewString(),
		Project:   project,
		Reason:    reason,
		Status:    StatusQueued,
		Phase:     "queued",
		CreatedAt: now,
		UpdatedAt: now,
		done:      make(chan struct{}),
	}
}

// SetStatus updates job status atomically. Reaching a terminal status
// releases Wait.
func (j *Job) SetStatus(status JobStatus, phase string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.Status.Finished() {
		return
	}
	j.Status = status
	j.Phase = phase
	j.UpdatedAt = time.Now()
	if status.Finished() && j.done != nil {
		close(j.done)
	}
}

// AddError records an error.
func (j *Job) AddError(err string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Errors = append(j.Errors, err)
	j.UpdatedAt = time.Now()
}

// SetIssues records the counts of the project's validation report.
func (j *Job) SetIssues(errors, warnings int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Issues = errors
	j.Warnings = warnings
	j.UpdatedAt = time.Now()
}

// Wait blocks until the job finishes or ctx is done.
func (j *Job) Wait(ctx context.Context) (JobSnapshot, error) {
	select {
	case <-j.done:
		return j.Snapshot(), nil
	case <-ctx.Done():
		return j.Snapshot(), ctx.Err()
	}
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID        string    `json:"job_id"`
	Project   string    `json:"project"`
	Reason    string    `json:"reason"`
	Status    JobStatus `json:"status"`
	Phase     string    `json:"phase"`
	Errors    []string  `json:"errors"`
	Issues    int       `json:"issues"`
	Warnings  int       `json:"warnings"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	errs := make([]string, len(j.Errors))
	copy(errs, j.Errors)
	return JobSnapshot{
		ID:        j.ID,
		Project:   j.Project,
		Reason:    j.Reason,
		Status:    j.Status,
		Phase:     j.Phase,
		Errors:    errs,
		Issues:    j.Issues,
		Warnings:  j.Warnings,
		CreatedAt: j.CreatedAt,
		UpdatedAt: j.UpdatedAt,
	}
}

// JobStore is a thread-safe in-memory job registry with TTL eviction.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
	ttl  time.Duration
}

func NewJobStore(ttl time.Duration) *JobStore {
	return &JobStore{
		jobs: make(map[string]*Job),
		ttl:  ttl,
	}
}

func (s *JobStore) Put(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

func (s *JobStore) Get(id string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id]
}

func (s *JobStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// Cleanup removes finished jobs not updated within the TTL.
func (s *JobStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, job := range s.jobs {
		snap := job.Snapshot()
		if snap.Status.Finished() && now.Sub(snap.UpdatedAt) > s.ttl {
			delete(s.jobs, id)
		}
	}
}
