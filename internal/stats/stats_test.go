package stats

import (
	"testing"
	"time"
)

func TestLoadsSnapshotPercentiles(t *testing.T) {
	s := NewLoads(time.Hour)
	for i, ms := range []int{100, 200, 300, 400, 500} {
		s.Record("examen", time.Duration(ms)*time.Millisecond, i == 4)
	}

	snap := s.Snapshot()
	if snap.Count != 5 || snap.Failures != 1 {
		t.Fatalf("expected count=5 failures=1, got %d %d", snap.Count, snap.Failures)
	}
	if snap.MinMs != 100 || snap.MaxMs != 500 {
		t.Fatalf("expected min=100 max=500, got %f %f", snap.MinMs, snap.MaxMs)
	}
	if snap.AvgMs != 300 {
		t.Fatalf("expected avg=300, got %f", snap.AvgMs)
	}
	if snap.P50Ms != 300 {
		t.Fatalf("expected p50=300, got %f", snap.P50Ms)
	}
	if snap.P95Ms != 480 {
		t.Fatalf("expected p95=480, got %f", snap.P95Ms)
	}
	if snap.P99Ms != 496 {
		t.Fatalf("expected p99=496, got %f", snap.P99Ms)
	}
	if snap.Projects["examen"] != 5 {
		t.Fatalf("expected 5 loads for examen, got %v", snap.Projects)
	}
}

func TestLoadsPrunesOutsideWindow(t *testing.T) {
	s := NewLoads(time.Minute)
	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return clock }

	s.Record("old", 10*time.Millisecond, false)
	clock = clock.Add(2 * time.Minute)

	if snap := s.Snapshot(); snap.Count != 0 || len(snap.Projects) != 0 {
		t.Fatalf("expected empty snapshot after window, got %+v", snap)
	}

	s.Record("fresh", 20*time.Millisecond, false)
	snap := s.Snapshot()
	if snap.Count != 1 || snap.MinMs != 20 || snap.MaxMs != 20 {
		t.Fatalf("expected one 20ms sample, got %+v", snap)
	}
}

func TestLoadsClampsNegativeDuration(t *testing.T) {
	s := NewLoads(0)
	s.Record("examen", -time.Second, false)
	snap := s.Snapshot()
	if snap.Count != 1 || snap.MaxMs != 0 {
		t.Fatalf("expected one clamped sample, got %+v", snap)
	}
	if snap.Window != "1h0m0s" {
		t.Errorf("expected default window, got %s", snap.Window)
	}
}
