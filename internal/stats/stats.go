// Package stats keeps a rolling window of project load timings for the
// /api/stats/loads endpoint.
package stats

import (
	"slices"
	"sync"
	"time"
)

type load struct {
	at      time.Time
	project string
	took    time.Duration
	failed  bool
}

// Snapshot aggregates the loads still inside the window.
type Snapshot struct {
	Window   string         `json:"window"`
	Count    int            `json:"count"`
	Failures int            `json:"failures"`
	MinMs    float64        `json:"min_ms"`
	MaxMs    float64        `json:"max_ms"`
	AvgMs    float64        `json:"avg_ms"`
	P50Ms    float64        `json:"p50_ms"`
	P95Ms    float64        `json:"p95_ms"`
	P99Ms    float64        `json:"p99_ms"`
	Projects map[string]int `json:"projects"`
}

// Loads tracks load durations within a rolling window.
type Loads struct {
	mu     sync.Mutex
	loads  []load
	window time.Duration
	now    func() time.Time
}

// NewLoads keeps samples for window, one hour when window is not positive.
func NewLoads(window time.Duration) *Loads {
	if window <= 0 {
		window = time.Hour
	}
	return &Loads{
		loads:  make([]load, 0, 64),
		window: window,
		now:    time.Now,
	}
}

// Record adds one load of project that took d.
func (s *Loads) Record(project string, d time.Duration, failed bool) {
	d = max(d, 0)
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.pruneLocked(now)
	s.loads = append(s.loads, load{at: now, project: project, took: d, failed: failed})
}

func (s *Loads) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pruneLocked(s.now())
	snap := Snapshot{Window: s.window.String(), Projects: make(map[string]int)}
	if len(s.loads) == 0 {
		return snap
	}

	ms := make([]float64, 0, len(s.loads))
	var sum float64
	for _, l := range s.loads {
		v := float64(l.took) / float64(time.Millisecond)
		ms = append(ms, v)
		sum += v
		snap.Projects[l.project]++
		if l.failed {
			snap.Failures++
		}
	}
	slices.Sort(ms)

	snap.Count = len(ms)
	snap.MinMs = ms[0]
	snap.MaxMs = ms[len(ms)-1]
	snap.AvgMs = sum / float64(len(ms))
	snap.P50Ms = percentile(ms, 50)
	snap.P95Ms = percentile(ms, 95)
	snap.P99Ms = percentile(ms, 99)
	return snap
}

func (s *Loads) pruneLocked(now time.Time) {
	cutoff := now.Add(-s.window)
	s.loads = slices.DeleteFunc(s.loads, func(l load) bool { return l.at.Before(cutoff) })
}

// percentile interpolates linearly between the closest ranks of sorted.
func percentile(sorted []float64, pct float64) float64 {
	switch {
	case len(sorted) == 0:
		return 0
	case pct <= 0:
		return sorted[0]
	case pct >= 100:
		return sorted[len(sorted)-1]
	}
	rank := float64(len(sorted)-1) * pct / 100
	lo := int(rank)
	if lo+1 >= len(sorted) {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo] + (sorted[lo+1]-sorted[lo])*frac
}
