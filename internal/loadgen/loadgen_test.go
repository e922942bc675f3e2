package loadgen

import (
	"context"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/studiowebux/loadreport/internal/ingest"
)

func TestResolve_RandintInclusive(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	seen := make(map[int]bool)

	for i := 0; i < 500; i++ {
		out := resolve("/owners/{{randint 1 3}}", rng)
		n, err := strconv.Atoi(strings.TrimPrefix(out, "/owners/"))
		if err != nil {
			t.Fatalf("unexpected output %q", out)
		}
		if n < 1 || n > 3 {
			t.Fatalf("value %d out of range", n)
		}
		seen[n] = true
	}

	for _, n := range []int{1, 2, 3} {
		if !seen[n] {
			t.Errorf("value %d never produced", n)
		}
	}
}

func TestResolve_NoPlaceholder(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	if got := resolve(`{"name":"x"}`, rng); got != `{"name":"x"}` {
		t.Errorf("expected unchanged input, got %q", got)
	}
}

func TestCheckTemplate(t *testing.T) {
	tests := []struct {
		in      string
		wantErr bool
	}{
		{"/owners", false},
		{"/owners/{{randint 1 10}}", false},
		{"User{{ randint 5 5 }}", false},
		{"/owners/{{id}}", true},
		{"/owners/{{randint 10 1}}", true},
		{"/owners/{{randint a 1}}", true},
		{"/owners/{{randint 1}}", true},
	}

	for _, tt := range tests {
		err := checkTemplate(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("checkTemplate(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
	}
}

func TestProfile_PickFollowsWeights(t *testing.T) {
	p := DefaultProfile()
	if err := p.Validate(); err != nil {
		t.Fatalf("default profile invalid: %v", err)
	}

	rng := rand.New(rand.NewPCG(42, 42))
	counts := make(map[string]int)
	const n = 20000
	for i := 0; i < n; i++ {
		counts[p.pick(rng).Name]++
	}

	for _, task := range p.Tasks {
		want := float64(task.Weight) / float64(p.totalWeight())
		got := float64(counts[task.Name]) / n
		if got < want-0.02 || got > want+0.02 {
			t.Errorf("task %s picked %.3f of the time, want about %.3f", task.Name, got, want)
		}
	}
}

func TestProfile_Wait(t *testing.T) {
	p := &Profile{WaitTime: WaitTime{Min: 1, Max: 3}}
	rng := rand.New(rand.NewPCG(7, 7))

	for i := 0; i < 100; i++ {
		d := p.wait(rng)
		if d < time.Second || d > 3*time.Second {
			t.Fatalf("wait %v outside [1s, 3s]", d)
		}
	}
}

func TestLoadProfile(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "profile.yaml")
	yamlContent := `
host: http://localhost:9000
wait_time:
  min: 0.5
  max: 1
tasks:
  - name: list
    weight: 2
    url: /items
  - weight: 1
    method: post
    url: /items
    body: '{"n": {{randint 1 5}}}'
`
	if err := os.WriteFile(yamlPath, []byte(yamlContent), 0644); err != nil {
		t.Fatal(err)
	}

	p, err := LoadProfile(yamlPath)
	if err != nil {
		t.Fatalf("LoadProfile returned error: %v", err)
	}
	if p.Host != "http://localhost:9000" || len(p.Tasks) != 2 {
		t.Fatalf("unexpected profile: %+v", p)
	}
	if p.Tasks[0].Method != http.MethodGet {
		t.Errorf("expected default GET, got %s", p.Tasks[0].Method)
	}
	if p.Tasks[1].Method != http.MethodPost || p.Tasks[1].Name != "/items" {
		t.Errorf("unexpected second task: %+v", p.Tasks[1])
	}

	jsoncPath := filepath.Join(dir, "profile.jsonc")
	jsoncContent := `{
		// trailing commas and comments are fine
		"wait_time": {"min": 1, "max": 2},
		"tasks": [
			{"name": "vets", "weight": 1, "url": "http://localhost:8083/vets"},
		],
	}`
	if err := os.WriteFile(jsoncPath, []byte(jsoncContent), 0644); err != nil {
		t.Fatal(err)
	}

	p, err = LoadProfile(jsoncPath)
	if err != nil {
		t.Fatalf("LoadProfile jsonc returned error: %v", err)
	}
	if len(p.Tasks) != 1 || p.Tasks[0].Name != "vets" {
		t.Errorf("unexpected jsonc profile: %+v", p)
	}
}

func TestLoadProfile_Invalid(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"no tasks", "a.yaml", "wait_time: {min: 1, max: 2}\n"},
		{"zero weight", "b.yaml", "tasks:\n  - url: /x\n    weight: 0\n"},
		{"reversed wait", "c.yaml", "wait_time: {min: 3, max: 1}\ntasks:\n  - url: /x\n    weight: 1\n"},
		{"bad placeholder", "d.yaml", "tasks:\n  - url: /x/{{uuid}}\n    weight: 1\n"},
		{"unknown format", "e.toml", "tasks = []\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.file)
			if err := os.WriteFile(path, []byte(tt.content), 0644); err != nil {
				t.Fatal(err)
			}
			if _, err := LoadProfile(path); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestStats_Percentile(t *testing.T) {
	s := NewStats("GET", "/x")
	for _, d := range []float64{10, 20, 30, 40, 50} {
		s.AddResult(d, 100, false)
	}
	s.AddResult(60, 0, true)

	if s.NumRequests != 6 || s.NumFailures != 1 {
		t.Errorf("unexpected counts: %d requests, %d failures", s.NumRequests, s.NumFailures)
	}
	if got := s.Percentile(50); got != 35 {
		t.Errorf("expected median 35, got %v", got)
	}
	if got := s.Percentile(100); got != 60 {
		t.Errorf("expected p100 60, got %v", got)
	}
	if s.Min() != 10 || s.Max() != 60 {
		t.Errorf("unexpected min/max: %v/%v", s.Min(), s.Max())
	}
	if s.AvgDurationMs() != 35 {
		t.Errorf("expected avg 35, got %v", s.AvgDurationMs())
	}
	if got := s.RequestsPerSecond(2 * time.Second); got != 3 {
		t.Errorf("expected 3 req/s, got %v", got)
	}
}

func TestCollector_Snapshot(t *testing.T) {
	c := NewCollector()
	c.Record("GET", "/b", 10, 1, false)
	c.Record("GET", "/a", 20, 1, true)
	c.Record("POST", "/a", 30, 1, false)
	c.Record("GET", "/a", 40, 1, false)

	entries, total := c.Snapshot()
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if entries[0].Name != "/a" || entries[0].Method != "GET" || entries[1].Method != "POST" || entries[2].Name != "/b" {
		t.Errorf("unexpected order: %s %s, %s %s, %s %s",
			entries[0].Method, entries[0].Name, entries[1].Method, entries[1].Name, entries[2].Method, entries[2].Name)
	}
	if total.Name != AggregatedName || total.NumRequests != 4 || total.NumFailures != 1 {
		t.Errorf("unexpected total: %+v", total)
	}
	if total.Min() != 10 || total.Max() != 40 {
		t.Errorf("unexpected total min/max: %v/%v", total.Min(), total.Max())
	}
}

func TestTargetURL(t *testing.T) {
	tests := []struct {
		host    string
		raw     string
		want    string
		wantErr bool
	}{
		{"", "http://localhost:8081/owners", "http://localhost:8081/owners", false},
		{"http://h:1", "/owners/3", "http://h:1/owners/3", false},
		{"http://h:1/api/", "owners?x=1", "http://h:1/api/owners?x=1", false},
		{"", "/owners", "", true},
		{"not a host", "/owners", "", true},
	}

	for _, tt := range tests {
		got, err := targetURL(tt.host, tt.raw)
		if (err != nil) != tt.wantErr {
			t.Errorf("targetURL(%q, %q) error = %v, wantErr %v", tt.host, tt.raw, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("targetURL(%q, %q) = %q, want %q", tt.host, tt.raw, got, tt.want)
		}
	}
}

func TestRunner_Run(t *testing.T) {
	var created atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/owners":
			if r.Header.Get("Content-Type") != "application/json" {
				w.WriteHeader(http.StatusUnsupportedMediaType)
				return
			}
			created.Add(1)
			w.WriteHeader(http.StatusCreated)
		case r.URL.Path == "/owners" || strings.HasPrefix(r.URL.Path, "/owners/"):
			w.Write([]byte(`[{"id":1}]`))
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer server.Close()

	profile := &Profile{
		WaitTime: WaitTime{Min: 0, Max: 0.01},
		Tasks: []Task{
			{Name: "/owners", Weight: 3, URL: "/owners"},
			{Name: "/owners/[id]", Weight: 3, URL: "/owners/{{randint 1 10}}"},
			{Name: "/owners [create]", Weight: 2, Method: http.MethodPost, URL: "/owners",
				Body: `{"lastName":"User{{randint 1 10000}}"}`, Headers: map[string]string{"Content-Type": "application/json"}},
			{Name: "/broken", Weight: 2, URL: "/broken"},
		},
	}

	prefix := filepath.Join(t.TempDir(), "out", "res1")
	runner, err := NewRunner(profile, Options{
		Users:     3,
		SpawnRate: 100,
		Duration:  400 * time.Millisecond,
		Host:      server.URL,
		CSVPrefix: prefix,
		Seed:      1,
	}, nil)
	if err != nil {
		t.Fatalf("NewRunner returned error: %v", err)
	}

	result, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if result.Total.NumRequests == 0 {
		t.Fatal("expected requests to be issued")
	}
	if result.Total.NumFailures == 0 {
		t.Error("expected /broken to produce failures")
	}
	if created.Load() == 0 {
		t.Error("expected at least one POST with JSON content type")
	}

	for _, e := range result.Entries {
		if e.Name == "/broken" && e.NumFailures != e.NumRequests {
			t.Errorf("every /broken request should fail: %d of %d", e.NumFailures, e.NumRequests)
		}
		if e.Name == "/owners" && e.NumFailures != 0 {
			t.Errorf("/owners should not fail, got %d failures", e.NumFailures)
		}
	}

	// The stats file is directly ingestible
	if result.StatsPath != prefix+StatsFileSuffix {
		t.Fatalf("unexpected stats path %s", result.StatsPath)
	}
	record, err := ingest.ParseFile(result.StatsPath)
	if err != nil {
		t.Fatalf("failed to ingest stats file: %v", err)
	}
	if record.RequestCount != result.Total.NumRequests || record.FailureCount != result.Total.NumFailures {
		t.Errorf("ingested %d/%d, want %d/%d",
			record.RequestCount, record.FailureCount, result.Total.NumRequests, result.Total.NumFailures)
	}

	if got := testutil.CollectAndCount(runner.Metrics().requestsTotal); got == 0 {
		t.Error("expected request counters to be recorded")
	}
	if got := testutil.ToFloat64(runner.Metrics().activeUsers); got != 0 {
		t.Errorf("expected no active users after run, got %v", got)
	}
}

func TestRunner_CancelStops(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	profile := &Profile{
		WaitTime: WaitTime{Min: 0.05, Max: 0.05},
		Tasks:    []Task{{Name: "root", Weight: 1, URL: server.URL + "/"}},
	}
	runner, err := NewRunner(profile, Options{Users: 2, SpawnRate: 50, Seed: 3}, nil)
	if err != nil {
		t.Fatalf("NewRunner returned error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(200*time.Millisecond, cancel)

	start := time.Now()
	result, err := runner.Run(ctx)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if time.Since(start) > 2*time.Second {
		t.Errorf("run did not stop promptly after cancel")
	}
	if result.StatsPath != "" {
		t.Errorf("expected no stats file without prefix, got %s", result.StatsPath)
	}
	if result.Total.NumRequests == 0 {
		t.Error("expected requests before cancel")
	}
}

func TestNewRunner_Invalid(t *testing.T) {
	profile := &Profile{Tasks: []Task{{Weight: 1, URL: "/relative"}}}

	if _, err := NewRunner(profile, Options{Users: 1, SpawnRate: 1}, nil); err == nil {
		t.Error("expected error for relative URL without host")
	}
	if _, err := NewRunner(DefaultProfile(), Options{Users: 0, SpawnRate: 1}, nil); err == nil {
		t.Error("expected error for zero users")
	}
	if _, err := NewRunner(DefaultProfile(), Options{Users: 1, SpawnRate: 0}, nil); err == nil {
		t.Error("expected error for zero spawn rate")
	}
}

func TestWriteStats_Header(t *testing.T) {
	path := filepath.Join(t.TempDir(), "res2_stats.csv")
	c := NewCollector()
	c.Record("GET", "/owners", 12.4, 10, false)
	entries, total := c.Snapshot()

	if err := WriteStats(path, entries, total, time.Second); err != nil {
		t.Fatalf("WriteStats returned error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header, entry and aggregated rows, got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[0], "Type,Name,Request Count,Failure Count,Median Response Time,Average Response Time") {
		t.Errorf("unexpected header: %s", lines[0])
	}
	if !strings.HasSuffix(lines[0], "99%,99.9%,99.99%,100%") {
		t.Errorf("unexpected header tail: %s", lines[0])
	}
	if !strings.HasPrefix(lines[2], ",Aggregated,1,0,12,12.4,12,12,10,1,0,") {
		t.Errorf("unexpected aggregated row: %s", lines[2])
	}
}
