package scenario

import (
	"errors"
	"testing"

	"github.com/studiowebux/loadreport/internal/types"
)

func TestLookup(t *testing.T) {
	tests := []struct {
		code  string
		label string
		ok    bool
	}{
		{"res1", "Leve", true},
		{"res2", "Moderado", true},
		{"res3", "Pico", true},
		{"res4", "", false},
		{"RES1", "", false},
	}

	for _, tt := range tests {
		label, ok := Lookup(tt.code)
		if ok != tt.ok || label != tt.label {
			t.Errorf("Lookup(%q) = (%q, %v), want (%q, %v)", tt.code, label, ok, tt.label, tt.ok)
		}
	}
}

func TestNormalize_PassThrough(t *testing.T) {
	records := []types.RunRecord{
		{ScenarioCode: "res1"},
		{ScenarioCode: "res9"},
		{ScenarioCode: "res3"},
	}

	normalized, err := Normalize(records, PassThrough)
	if err != nil {
		t.Fatalf("Normalize returned error: %v", err)
	}

	want := []string{"Leve", "res9", "Pico"}
	for i, record := range normalized {
		if record.Scenario != want[i] {
			t.Errorf("record %d: expected scenario %q, got %q", i, want[i], record.Scenario)
		}
	}

	// Input must stay untouched
	if records[0].Scenario != "" {
		t.Errorf("Normalize modified its input: %+v", records[0])
	}
}

func TestNormalize_Reject(t *testing.T) {
	records := []types.RunRecord{
		{ScenarioCode: "res1"},
		{ScenarioCode: "resX", SourcePath: "execucao1/resX_stats.csv"},
	}

	_, err := Normalize(records, Reject)
	if err == nil {
		t.Fatal("expected error for unknown scenario code")
	}

	var unknown *UnknownScenarioError
	if !errors.As(err, &unknown) {
		t.Fatalf("expected UnknownScenarioError, got %T", err)
	}
	if unknown.Code != "resX" {
		t.Errorf("expected code resX, got %q", unknown.Code)
	}
}

func TestNormalize_RejectAcceptsKnownCodes(t *testing.T) {
	records := []types.RunRecord{{ScenarioCode: "res2"}}

	normalized, err := Normalize(records, Reject)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if normalized[0].Scenario != "Moderado" {
		t.Errorf("expected Moderado, got %q", normalized[0].Scenario)
	}
}

func TestParsePolicy(t *testing.T) {
	tests := []struct {
		input   string
		want    Policy
		wantErr bool
	}{
		{"", PassThrough, false},
		{"passthrough", PassThrough, false},
		{" Reject ", Reject, false},
		{"drop", "", true},
	}

	for _, tt := range tests {
		got, err := ParsePolicy(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParsePolicy(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParsePolicy(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestSortExecutive(t *testing.T) {
	labels := []string{"res9", "Pico", "Leve", "abc", "Moderado"}
	SortExecutive(labels)

	want := []string{"Leve", "Moderado", "Pico", "abc", "res9"}
	for i := range want {
		if labels[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, labels)
		}
	}
}
