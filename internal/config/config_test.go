package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"PORT", "DOCNAV_ROOT", "DOCNAV_REMOTE_URL", "WORKER_COUNT", "JOB_TTL", "WATCH", "VALIDATE_DEEP"} {
		t.Setenv(k, "")
	}
	cfg := Load()
	if cfg.Port != "8091" || cfg.Root != "./docs" {
		t.Errorf("unexpected defaults %+v", cfg)
	}
	if cfg.WorkerCount != 4 || cfg.MaxQueueSize != 100 || cfg.JobTTL != time.Hour {
		t.Errorf("unexpected pool defaults %+v", cfg)
	}
	if !cfg.Watch || !cfg.ValidateDeep || cfg.ValidatePages {
		t.Errorf("unexpected toggles %+v", cfg)
	}
}

func TestLoad_RemoteOnly(t *testing.T) {
	t.Setenv("DOCNAV_ROOT", "")
	t.Setenv("DOCNAV_REMOTE_NAME", "")
	t.Setenv("DOCNAV_REMOTE_URL", "https://docs.example.com/html")
	cfg := Load()
	if cfg.Root != "" {
		t.Errorf("expected no default root with a remote source, got %q", cfg.Root)
	}
	if cfg.RemoteName != "remote" {
		t.Errorf("expected default remote name, got %q", cfg.RemoteName)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("WORKER_COUNT", "-1")
	t.Setenv("JOB_TTL", "90s")
	t.Setenv("WATCH", "false")
	t.Setenv("WATCH_DEBOUNCE", "not-a-duration")
	t.Setenv("OUTLINE_DEPTH", "3")
	cfg := Load()
	if cfg.WorkerCount != 4 {
		t.Errorf("expected invalid worker count to fall back, got %d", cfg.WorkerCount)
	}
	if cfg.JobTTL != 90*time.Second || cfg.Watch || cfg.WatchDebounce != 500*time.Millisecond {
		t.Errorf("unexpected overrides %+v", cfg)
	}
	if cfg.OutlineDepth != 3 {
		t.Errorf("expected outline depth 3, got %d", cfg.OutlineDepth)
	}
}

func TestValidate(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name string
		cfg  Config
		ok   bool
	}{
		{"root", Config{Port: "8091", Root: dir}, true},
		{"remote only", Config{Port: "8091", RemoteURL: "https://docs.example.com/html"}, true},
		{"nothing", Config{Port: "8091"}, false},
		{"missing root", Config{Port: "8091", Root: dir + "/nope"}, false},
		{"bad port", Config{Port: "http", Root: dir}, false},
	}
	for _, tt := range tests {
		if err := tt.cfg.Validate(); (err == nil) != tt.ok {
			t.Errorf("%s: Validate() = %v, want ok=%v", tt.name, err, tt.ok)
		}
	}
}
