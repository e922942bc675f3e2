package ingest

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/studiowebux/loadreport/internal/types"
)

const locustHeader = "Type,Name,Request Count,Failure Count,Median Response Time,Average Response Time,Min Response Time,Max Response Time,Average Content Size,Requests/s,Failures/s,50%,66%,75%,80%,90%,95%,98%,99%,99.9%,99.99%,100%"

// locustStats builds a stats file with one endpoint row and the Aggregated row
func locustStats(requests, failures int, avg float64) string {
	return locustHeader + "\n" +
		"GET,/owners,10,1,12,13.5,2,80,512,1.5,0.1,12,14,16,18,25,30,40,60,80,80,80\n" +
		",Aggregated," + strconv.Itoa(requests) + "," + strconv.Itoa(failures) + ",12," + strconv.FormatFloat(avg, 'f', -1, 64) + ",1.5,120.25,512,2.5,0.25,12,14,16,18,25,30,40,60,80,80,120\n"
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("failed to create directory: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

func TestLoader_Load(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "execucao2", "res1_stats.csv"), locustStats(200, 10, 20))
	writeFile(t, filepath.Join(root, "execucao1", "res2_stats.csv"), locustStats(300, 3, 40))
	writeFile(t, filepath.Join(root, "execucao1", "res1_stats.csv"), locustStats(100, 5, 10))
	// Ignored: wrong directory prefix and wrong file suffix
	writeFile(t, filepath.Join(root, "other", "res1_stats.csv"), locustStats(1, 0, 1))
	writeFile(t, filepath.Join(root, "execucao1", "res1_failures.csv"), "x\n")

	records, err := NewLoader(Options{}, nil).Load(root)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}

	want := []struct {
		execution string
		code      string
		requests  int64
	}{
		{"execucao1", "res1", 100},
		{"execucao1", "res2", 300},
		{"execucao2", "res1", 200},
	}
	for i, w := range want {
		r := records[i]
		if r.Execution != w.execution || r.ScenarioCode != w.code || r.RequestCount != w.requests {
			t.Errorf("record %d: got (%s, %s, %d), want (%s, %s, %d)",
				i, r.Execution, r.ScenarioCode, r.RequestCount, w.execution, w.code, w.requests)
		}
		if r.Scenario != "" {
			t.Errorf("record %d: scenario label should be empty before normalization, got %q", i, r.Scenario)
		}
	}
}

func TestParse_UsesAggregatedRow(t *testing.T) {
	record, err := Parse(strings.NewReader(locustStats(120, 6, 33.25)), "res1_stats.csv")
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}

	if record.RequestCount != 120 {
		t.Errorf("expected 120 requests, got %d", record.RequestCount)
	}
	if record.FailureCount != 6 {
		t.Errorf("expected 6 failures, got %d", record.FailureCount)
	}
	if record.AvgResponseTime != 33.25 {
		t.Errorf("expected avg 33.25, got %v", record.AvgResponseTime)
	}
	if record.MaxResponseTime != 120.25 {
		t.Errorf("expected max 120.25, got %v", record.MaxResponseTime)
	}
	if record.RequestsPerSecond != 2.5 || record.FailuresPerSecond != 0.25 {
		t.Errorf("unexpected throughput: %v / %v", record.RequestsPerSecond, record.FailuresPerSecond)
	}
	wantP := types.Percentiles{P50: 12, P66: 14, P75: 16, P90: 25, P95: 30, P99: 60}
	if record.Percentiles != wantP {
		t.Errorf("expected percentiles %+v, got %+v", wantP, record.Percentiles)
	}
}

func TestParse_SingleRowWithoutName(t *testing.T) {
	content := "Request Count,Failure Count,Average Response Time,Min Response Time,Max Response Time,Requests/s,Failures/s,50%,66%,75%,90%,95%,99%\n" +
		"100.0,5,10,1,50,2,0.1,9,10,11,20,30,45\n"

	record, err := Parse(strings.NewReader(content), "res2_stats.csv")
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if record.RequestCount != 100 || record.FailureCount != 5 {
		t.Errorf("unexpected counts: %d/%d", record.RequestCount, record.FailureCount)
	}
}

func TestParse_SchemaErrors(t *testing.T) {
	header := "Request Count,Failure Count,Average Response Time,Min Response Time,Max Response Time,Requests/s,Failures/s,50%,66%,75%,90%,95%,99%"

	tests := []struct {
		name       string
		content    string
		wantColumn string
		wantReason string
	}{
		{
			name:       "empty file",
			content:    "",
			wantReason: "file is empty",
		},
		{
			name:       "header only",
			content:    header + "\n",
			wantReason: "no data rows",
		},
		{
			name:       "missing column",
			content:    "Request Count,Failure Count\n1,0\n",
			wantColumn: "Average Response Time",
			wantReason: "missing required column",
		},
		{
			name:       "non numeric cell",
			content:    header + "\n100,5,abc,1,50,2,0.1,9,10,11,20,30,45\n",
			wantColumn: "Average Response Time",
			wantReason: "not a number",
		},
		{
			name:       "N/A percentile",
			content:    header + "\n100,5,10,1,50,2,0.1,N/A,10,11,20,30,45\n",
			wantColumn: "50%",
			wantReason: "not a number",
		},
		{
			name:       "fractional count",
			content:    header + "\n100.5,5,10,1,50,2,0.1,9,10,11,20,30,45\n",
			wantColumn: "Request Count",
			wantReason: "not an integer count",
		},
		{
			name:       "negative value",
			content:    header + "\n100,5,10,1,50,-2,0.1,9,10,11,20,30,45\n",
			wantColumn: "Requests/s",
			wantReason: "negative value",
		},
		{
			name:       "failures exceed requests",
			content:    header + "\n10,11,10,1,50,2,0.1,9,10,11,20,30,45\n",
			wantColumn: "Failure Count",
			wantReason: "exceeds request count",
		},
		{
			name:       "percentiles decrease",
			content:    header + "\n100,5,10,1,50,2,0.1,9,10,8,20,30,45\n",
			wantReason: "percentiles decrease",
		},
		{
			name:       "several rows without aggregated row",
			content:    header + "\n100,5,10,1,50,2,0.1,9,10,11,20,30,45\n100,5,10,1,50,2,0.1,9,10,11,20,30,45\n",
			wantReason: "cannot pick one record",
		},
		{
			name:       "ragged row",
			content:    header + "\n100,5\n",
			wantReason: "malformed CSV",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.content), "res1_stats.csv")
			if err == nil {
				t.Fatal("expected error, got nil")
			}

			var schemaErr *SchemaError
			if !errors.As(err, &schemaErr) {
				t.Fatalf("expected SchemaError, got %T: %v", err, err)
			}
			if schemaErr.Column != tt.wantColumn {
				t.Errorf("expected column %q, got %q", tt.wantColumn, schemaErr.Column)
			}
			if !strings.Contains(schemaErr.Error(), tt.wantReason) {
				t.Errorf("expected error to contain %q, got %q", tt.wantReason, schemaErr.Error())
			}
		})
	}
}

func TestLoader_MissingData(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "execucao1"), 0755); err != nil {
		t.Fatal(err)
	}

	_, err := NewLoader(Options{}, nil).Load(root)
	if !errors.Is(err, ErrMissingData) {
		t.Fatalf("expected ErrMissingData, got %v", err)
	}
}

func TestLoader_MissingRoot(t *testing.T) {
	_, err := NewLoader(Options{}, nil).Load(filepath.Join(t.TempDir(), "does-not-exist"))

	var ioErr *IOError
	if !errors.As(err, &ioErr) {
		t.Fatalf("expected IOError, got %T: %v", err, err)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected wrapped os.ErrNotExist, got %v", err)
	}
}

func TestLoader_AbortsOnFirstBadFile(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "execucao1", "res1_stats.csv"), locustStats(100, 5, 10))
	writeFile(t, filepath.Join(root, "execucao1", "res2_stats.csv"), "Request Count\n1\n")

	records, err := NewLoader(Options{}, nil).Load(root)
	if err == nil {
		t.Fatal("expected error")
	}
	if records != nil {
		t.Errorf("expected no partial records, got %d", len(records))
	}
}

func TestLoader_CustomGlobs(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "run-a", "light_stats.csv"), locustStats(10, 0, 5))

	records, err := NewLoader(Options{ExecutionGlob: "run-*", ScenarioGlob: "*_stats.csv"}, nil).Load(root)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if len(records) != 1 || records[0].ScenarioCode != "light" || records[0].Execution != "run-a" {
		t.Fatalf("unexpected records: %+v", records)
	}
}

func TestLoader_Manifest(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "data", "first.csv"), locustStats(100, 1, 10))
	writeFile(t, filepath.Join(root, "data", "second.csv"), locustStats(200, 2, 20))
	// Present but not listed in the manifest, must be ignored
	writeFile(t, filepath.Join(root, "execucao1", "res3_stats.csv"), locustStats(1, 0, 1))
	writeFile(t, filepath.Join(root, ManifestFile), `
executions:
  - name: baseline
    files:
      - scenario: res2
        path: data/second.csv
      - scenario: res1
        path: data/first.csv
`)

	records, err := NewLoader(Options{}, nil).Load(root)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].ScenarioCode != "res2" || records[0].RequestCount != 200 || records[0].Execution != "baseline" {
		t.Errorf("unexpected first record: %+v", records[0])
	}
	if records[1].ScenarioCode != "res1" || records[1].RequestCount != 100 {
		t.Errorf("unexpected second record: %+v", records[1])
	}
}

func TestLoader_InvalidManifest(t *testing.T) {
	tests := []struct {
		name     string
		manifest string
	}{
		{"unparsable", "executions: [\n"},
		{"missing name", "executions:\n  - files:\n      - {scenario: res1, path: a.csv}\n"},
		{"bad scenario code", "executions:\n  - name: a\n    files:\n      - {scenario: 'res 1', path: a.csv}\n"},
		{"missing path", "executions:\n  - name: a\n    files:\n      - {scenario: res1}\n"},
		{"duplicate execution", "executions:\n  - name: a\n  - name: a\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			writeFile(t, filepath.Join(root, ManifestFile), tt.manifest)

			_, err := NewLoader(Options{}, nil).Load(root)
			var schemaErr *SchemaError
			if !errors.As(err, &schemaErr) {
				t.Fatalf("expected SchemaError, got %T: %v", err, err)
			}
		})
	}
}

func TestScenarioCodeFromPath(t *testing.T) {
	tests := []struct {
		path    string
		want    string
		wantErr bool
	}{
		{"results/execucao1/res1_stats.csv", "res1", false},
		{"res2_stats_history.csv", "res2", false},
		{"res3.csv", "res3", false},
		{"_stats.csv", "", true},
		{"res 1_stats.csv", "", true},
	}

	for _, tt := range tests {
		got, err := ScenarioCodeFromPath(tt.path)
		if (err != nil) != tt.wantErr {
			t.Errorf("ScenarioCodeFromPath(%q) error = %v, wantErr %v", tt.path, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ScenarioCodeFromPath(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}
