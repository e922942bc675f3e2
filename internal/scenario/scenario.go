package scenario

import (
	"fmt"
	"sort"
	"strings"

	"github.com/studiowebux/loadreport/internal/types"
)

// Scenario labels
const (
	LabelLight    = "Leve"
	LabelModerate = "Moderado"
	LabelPeak     = "Pico"
)

// labels maps scenario codes (file name prefixes) to their labels
var labels = map[string]string{
	"res1": LabelLight,
	"res2": LabelModerate,
	"res3": LabelPeak,
}

// ExecutiveOrder is the fixed row order of the executive summary
var ExecutiveOrder = []string{LabelLight, LabelModerate, LabelPeak}

// Policy decides what happens to scenario codes missing from the mapping
type Policy string

const (
	// PassThrough keeps the raw code as the label
	PassThrough Policy = "passthrough"
	// Reject fails normalization
	Reject Policy = "reject"
)

// ParsePolicy parses a policy name, defaulting to PassThrough when empty
func ParsePolicy(name string) (Policy, error) {
	switch Policy(strings.ToLower(strings.TrimSpace(name))) {
	case "", PassThrough:
		return PassThrough, nil
	case Reject:
		return Reject, nil
	default:
		return "", fmt.Errorf("unknown scenario policy %q (expected passthrough or reject)", name)
	}
}

// UnknownScenarioError is returned by Normalize under the Reject policy
type UnknownScenarioError struct {
	Code       string
	SourcePath string
}

func (e *UnknownScenarioError) Error() string {
	if e.SourcePath != "" {
		return fmt.Sprintf("unknown scenario code %q in %s", e.Code, e.SourcePath)
	}
	return fmt.Sprintf("unknown scenario code %q", e.Code)
}

// Lookup returns the label for a scenario code
func Lookup(code string) (string, bool) {
	label, ok := labels[code]
	return label, ok
}

// Codes returns the known scenario codes in sorted order
func Codes() []string {
	codes := make([]string, 0, len(labels))
	for code := range labels {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// Normalize returns a copy of records with Scenario set from the mapping.
// The input slice is not modified.
func Normalize(records []types.RunRecord, policy Policy) ([]types.RunRecord, error) {
	normalized := make([]types.RunRecord, len(records))
	for i, record := range records {
		label, ok := Lookup(record.ScenarioCode)
		if !ok {
			if policy == Reject {
				return nil, &UnknownScenarioError{Code: record.ScenarioCode, SourcePath: record.SourcePath}
			}
			label = record.ScenarioCode
		}
		record.Scenario = label
		normalized[i] = record
	}
	return normalized, nil
}

// ExecutiveRank orders labels for the executive summary: known labels first in
// their fixed order, then everything else.
func ExecutiveRank(label string) int {
	for i, known := range ExecutiveOrder {
		if known == label {
			return i
		}
	}
	return len(ExecutiveOrder)
}

// SortExecutive sorts labels in executive summary order; unknown labels are
// sorted lexicographically after the known ones.
func SortExecutive(labels []string) {
	sort.SliceStable(labels, func(i, j int) bool {
		ri, rj := ExecutiveRank(labels[i]), ExecutiveRank(labels[j])
		if ri != rj {
			return ri < rj
		}
		return labels[i] < labels[j]
	})
}
