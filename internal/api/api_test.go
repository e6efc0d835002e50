package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/dgallion1/docnav/internal/catalog"
	"github.com/dgallion1/docnav/internal/config"
	"github.com/dgallion1/docnav/internal/loader"
	"github.com/dgallion1/docnav/internal/metrics"
	"github.com/dgallion1/docnav/internal/stats"
	"github.com/dgallion1/docnav/internal/validate"
)

func fixtureFS() fstest.MapFS {
	return fstest.MapFS{
		"navtreedata.js": {Data: []byte(`var NAVTREE =
[
  [ "Examen", "index.html", [
    [ "Template", "index.html", "index" ],
    [ "Archivos", "files.html", [
      [ "Lista de archivos", "files.html", "files_dup" ],
      [ "Globales", "globals.html", null ]
    ] ]
  ] ]
];
var NAVTREEINDEX = [ "annotated.html", "led_8c.html" ];`)},
		"index.js":     {Data: []byte(`var index = [ [ "Conexiones de Hardware", "index.html#hardConn", null ] ];`)},
		"files_dup.js": {Data: []byte(`var files_dup = [ [ "main", "dir_abc.html", null ], [ "led.c", "led_8c.html", "led_8c" ] ];`)},
		"led_8c.js":    {Data: []byte(`var led_8c = [ [ "LedOn", "led_8c.html#a4d27", null ] ];`)},
		"navtreeindex0.js": {Data: []byte(`var NAVTREEINDEX0 =
{
"annotated.html":[1],
"files.html":[1,0],
"globals.html":[1,1],
"index.html":[],
"index.html#hardConn":[0,0]
};`)},
		"navtreeindex1.js": {Data: []byte(`var NAVTREEINDEX1 =
{
"led_8c.html":[1,0,1],
"led_8c.html#a4d27":[1,0,1,0]
};`)},
	}
}

type testEnv struct {
	srv  *httptest.Server
	orch *catalog.Orchestrator
	key  string
}

func newTestEnv(t *testing.T, apiKey string) *testEnv {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	cat := catalog.New()
	cat.AddTarget(catalog.Target{Name: "examen", Source: loader.NewFSSource(fixtureFS(), "fixture")})
	cat.AddTarget(catalog.Target{Name: "pending", Source: loader.NewFSSource(fstest.MapFS{}, "empty")})

	st := stats.NewLoads(time.Hour)
	rec := metrics.New()
	orch := catalog.NewOrchestrator(cat, catalog.Options{Workers: 1, QueueSize: 10, Validate: validate.Options{Deep: true}}, st, rec, log)
	orch.Start(context.Background())
	t.Cleanup(orch.Stop)

	job, err := orch.Enqueue("examen", "startup")
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if snap, err := job.Wait(ctx); err != nil || snap.Status != catalog.StatusCompleted {
		t.Fatalf("initial load: %+v %v", snap, err)
	}

	srv := httptest.NewServer(NewServer(orch, st, rec, log, config.Config{APIKey: apiKey}))
	t.Cleanup(srv.Close)
	return &testEnv{srv: srv, orch: orch, key: apiKey}
}

func (e *testEnv) do(t *testing.T, method, path string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, e.srv.URL+path, nil)
	if err != nil {
		t.Fatal(err)
	}
	if e.key != "" {
		req.Header.Set("Authorization", "Bearer "+e.key)
	}
	resp, err := e.srv.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp, body
}

func decode(t *testing.T, body []byte) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("decode %s: %v", body, err)
	}
	return out
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, "secret")
	resp, err := http.Get(env.srv.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestAuth(t *testing.T) {
	env := newTestEnv(t, "secret")
	tests := []struct {
		header string
		want   int
	}{
		{"", http.StatusUnauthorized},
		{"Bearer wrong", http.StatusUnauthorized},
		{"Basic secret", http.StatusUnauthorized},
		{"Bearer secret", http.StatusOK},
	}
	for _, tt := range tests {
		req, _ := http.NewRequest(http.MethodGet, env.srv.URL+"/api/projects", nil)
		if tt.header != "" {
			req.Header.Set("Authorization", tt.header)
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != tt.want {
			t.Errorf("Authorization %q: expected %d, got %d", tt.header, tt.want, resp.StatusCode)
		}
	}
}

func TestListAndGetProject(t *testing.T) {
	env := newTestEnv(t, "")

	resp, body := env.do(t, http.MethodGet, "/api/projects")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list: %d %s", resp.StatusCode, body)
	}
	projects := decode(t, body)["projects"].([]any)
	if len(projects) != 2 {
		t.Fatalf("expected 2 projects, got %v", projects)
	}
	first := projects[0].(map[string]any)
	if first["name"] != "examen" || first["loaded"] != true || first["title"] != "Examen" {
		t.Errorf("unexpected summary %v", first)
	}

	resp, body = env.do(t, http.MethodGet, "/api/projects/examen")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get: %d %s", resp.StatusCode, body)
	}
	tree := decode(t, body)["tree"].(map[string]any)
	if roots := tree["roots"].([]any); len(roots) != 1 {
		t.Errorf("unexpected roots %v", roots)
	}

	if resp, _ := env.do(t, http.MethodGet, "/api/projects/pending"); resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("expected 503 for unloaded project, got %d", resp.StatusCode)
	}
	if resp, _ := env.do(t, http.MethodGet, "/api/projects/missing"); resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 for unknown project, got %d", resp.StatusCode)
	}
}

func TestShard(t *testing.T) {
	env := newTestEnv(t, "")
	tests := []struct {
		id       string
		shard    float64
		fallback bool
	}{
		{"led_8c.html%23a4d27", 1, false},
		{"globals.html", 0, false},
		{"Aaa.html", 0, true},
	}
	for _, tt := range tests {
		resp, body := env.do(t, http.MethodGet, "/api/projects/examen/shard?id="+tt.id)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("shard %s: %d %s", tt.id, resp.StatusCode, body)
		}
		got := decode(t, body)
		if got["shard"] != tt.shard || got["fallback"] != tt.fallback {
			t.Errorf("shard %s: got %v", tt.id, got)
		}
	}
	if resp, _ := env.do(t, http.MethodGet, "/api/projects/examen/shard"); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 without id, got %d", resp.StatusCode)
	}
}

func TestResolve(t *testing.T) {
	env := newTestEnv(t, "")
	resp, body := env.do(t, http.MethodGet, "/api/projects/examen/resolve?url=led_8c.html%23a4d27")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("resolve: %d %s", resp.StatusCode, body)
	}
	var loc loader.Location
	if err := json.Unmarshal(body, &loc); err != nil {
		t.Fatal(err)
	}
	if len(loc.Path) != 5 || loc.Trail[4].Label != "LedOn" || loc.Fallback {
		t.Errorf("unexpected location %+v", loc)
	}
}

func TestChildren(t *testing.T) {
	env := newTestEnv(t, "")

	resp, body := env.do(t, http.MethodGet, "/api/projects/examen/children?path=0.1.0")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("children: %d %s", resp.StatusCode, body)
	}
	got := decode(t, body)
	kids := got["children"].([]any)
	if got["label"] != "Lista de archivos" || len(kids) != 2 {
		t.Fatalf("unexpected children %v", got)
	}
	if led := kids[1].(map[string]any); led["kind"] != "lazy" || led["lazy"] != "led_8c" {
		t.Errorf("unexpected child %v", led)
	}

	resp, body = env.do(t, http.MethodGet, "/api/projects/examen/children")
	if resp.StatusCode != http.StatusOK || len(decode(t, body)["children"].([]any)) != 1 {
		t.Errorf("expected the single root, got %d %s", resp.StatusCode, body)
	}

	tests := []struct {
		path string
		want int
	}{
		{"0.9", http.StatusNotFound},
		{"x.1", http.StatusBadRequest},
		{"0.-1", http.StatusBadRequest},
	}
	for _, tt := range tests {
		if resp, _ := env.do(t, http.MethodGet, "/api/projects/examen/children?path="+tt.path); resp.StatusCode != tt.want {
			t.Errorf("path %s: expected %d, got %d", tt.path, tt.want, resp.StatusCode)
		}
	}
}

func TestReportAndOutline(t *testing.T) {
	env := newTestEnv(t, "")

	resp, body := env.do(t, http.MethodGet, "/api/projects/examen/report")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("report: %d %s", resp.StatusCode, body)
	}
	if got := decode(t, body); got["project"] != "examen" || got["shards"] != float64(2) {
		t.Errorf("unexpected report %v", got)
	}

	resp, body = env.do(t, http.MethodGet, "/api/projects/examen/outline")
	if resp.StatusCode != http.StatusOK || !strings.HasPrefix(resp.Header.Get("Content-Type"), "text/html") {
		t.Fatalf("outline: %d %s", resp.StatusCode, resp.Header.Get("Content-Type"))
	}
	if !strings.Contains(string(body), `<a href="led_8c.html#a4d27">LedOn</a>`) {
		t.Errorf("expected LedOn link in outline:\n%s", body)
	}

	resp, body = env.do(t, http.MethodGet, "/api/projects/examen/outline?format=markdown&depth=1")
	if resp.StatusCode != http.StatusOK || strings.Contains(string(body), "Archivos") {
		t.Errorf("expected a one-level markdown outline, got %d:\n%s", resp.StatusCode, body)
	}
	if resp, _ := env.do(t, http.MethodGet, "/api/projects/examen/outline?depth=-2"); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for negative depth, got %d", resp.StatusCode)
	}
}

func TestReloadAndJobStatus(t *testing.T) {
	env := newTestEnv(t, "")

	resp, body := env.do(t, http.MethodPost, "/api/projects/examen/reload?wait=true")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("reload: %d %s", resp.StatusCode, body)
	}
	job := decode(t, body)
	if job["status"] != "completed" || job["reason"] != "api" {
		t.Fatalf("unexpected job %v", job)
	}

	resp, body = env.do(t, http.MethodGet, "/api/jobs/"+job["job_id"].(string))
	if resp.StatusCode != http.StatusOK || decode(t, body)["project"] != "examen" {
		t.Errorf("job status: %d %s", resp.StatusCode, body)
	}
	if resp, _ := env.do(t, http.MethodGet, "/api/jobs/nope"); resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 for unknown job, got %d", resp.StatusCode)
	}
	if resp, _ := env.do(t, http.MethodPost, "/api/projects/missing/reload"); resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 reloading unknown project, got %d", resp.StatusCode)
	}

	resp, body = env.do(t, http.MethodPost, "/api/projects/pending/reload?wait=true")
	if resp.StatusCode != http.StatusOK || decode(t, body)["status"] != "failed" {
		t.Errorf("expected failed reload of empty project, got %d %s", resp.StatusCode, body)
	}
}

func TestLoadStatsAndMetrics(t *testing.T) {
	env := newTestEnv(t, "")
	env.do(t, http.MethodGet, "/api/projects/examen/resolve?url=index.html")

	resp, body := env.do(t, http.MethodGet, "/api/stats/loads")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("stats: %d %s", resp.StatusCode, body)
	}
	loads := decode(t, body)["loads"].(map[string]any)
	if loads["count"] != float64(1) {
		t.Errorf("expected one recorded load, got %v", loads)
	}

	resp, body = env.do(t, http.MethodGet, "/metrics")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("metrics: %d", resp.StatusCode)
	}
	if !strings.Contains(string(body), `docnav_lookups_total{op="resolve",result="hit"} 1`) {
		t.Errorf("expected resolve lookup in metrics output")
	}
}

func TestRequestLevel(t *testing.T) {
	tests := []struct {
		path   string
		status int
		want   slog.Level
	}{
		{"/health", http.StatusOK, slog.LevelDebug},
		{"/metrics", http.StatusOK, slog.LevelDebug},
		{"/api/projects", http.StatusOK, slog.LevelInfo},
		{"/api/projects/x", http.StatusNotFound, slog.LevelWarn},
		{"/health", http.StatusServiceUnavailable, slog.LevelError},
	}
	for _, tt := range tests {
		if got := requestLevel(tt.path, tt.status); got != tt.want {
			t.Errorf("requestLevel(%q, %d) = %v, want %v", tt.path, tt.status, got, tt.want)
		}
	}
}
