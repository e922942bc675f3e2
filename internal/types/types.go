package types

import "math"

// Input column names as written by the load-testing tool
const (
	ColType              = "Type"
	ColName              = "Name"
	ColRequestCount      = "Request Count"
	ColFailureCount      = "Failure Count"
	ColAvgResponseTime   = "Average Response Time"
	ColMinResponseTime   = "Min Response Time"
	ColMaxResponseTime   = "Max Response Time"
	ColRequestsPerSecond = "Requests/s"
	ColFailuresPerSecond = "Failures/s"
	ColP50               = "50%"
	ColP66               = "66%"
	ColP75               = "75%"
	ColP90               = "90%"
	ColP95               = "95%"
	ColP99               = "99%"
	AggregatedRowName    = "Aggregated"
)

// RequiredColumns lists the columns every scenario file must carry
var RequiredColumns = []string{
	ColRequestCount,
	ColFailureCount,
	ColAvgResponseTime,
	ColMinResponseTime,
	ColMaxResponseTime,
	ColRequestsPerSecond,
	ColFailuresPerSecond,
	ColP50,
	ColP66,
	ColP75,
	ColP90,
	ColP95,
	ColP99,
}

// PercentileColumns lists the latency percentile columns in ascending rank
var PercentileColumns = []string{ColP50, ColP66, ColP75, ColP90, ColP95, ColP99}

// Percentiles holds latency percentile values in milliseconds
type Percentiles struct {
	P50 float64 `json:"p50" yaml:"p50"`
	P66 float64 `json:"p66" yaml:"p66"`
	P75 float64 `json:"p75" yaml:"p75"`
	P90 float64 `json:"p90" yaml:"p90"`
	P95 float64 `json:"p95" yaml:"p95"`
	P99 float64 `json:"p99" yaml:"p99"`
}

// Values returns the percentiles in ascending rank order
func (p Percentiles) Values() []float64 {
	return []float64{p.P50, p.P66, p.P75, p.P90, p.P95, p.P99}
}

// IsMonotonic reports whether the percentiles never decrease as rank increases
func (p Percentiles) IsMonotonic() bool {
	values := p.Values()
	for i := 1; i < len(values); i++ {
		if values[i] < values[i-1] {
			return false
		}
	}
	return true
}

// RunRecord is one scenario's statistics from one execution
type RunRecord struct {
	Execution         string      `json:"execution" yaml:"execution"`
	ScenarioCode      string      `json:"scenarioCode" yaml:"scenarioCode"`
	Scenario          string      `json:"scenario,omitempty" yaml:"scenario,omitempty"` // Label after normalization
	SourcePath        string      `json:"sourcePath,omitempty" yaml:"sourcePath,omitempty"`
	RequestCount      int64       `json:"requestCount" yaml:"requestCount"`
	FailureCount      int64       `json:"failureCount" yaml:"failureCount"`
	AvgResponseTime   float64     `json:"avgResponseTime" yaml:"avgResponseTime"`
	MinResponseTime   float64     `json:"minResponseTime" yaml:"minResponseTime"`
	MaxResponseTime   float64     `json:"maxResponseTime" yaml:"maxResponseTime"`
	RequestsPerSecond float64     `json:"requestsPerSecond" yaml:"requestsPerSecond"`
	FailuresPerSecond float64     `json:"failuresPerSecond" yaml:"failuresPerSecond"`
	Percentiles       Percentiles `json:"percentiles" yaml:"percentiles"`
}

// Label returns the normalized scenario label, falling back to the raw code
func (r RunRecord) Label() string {
	if r.Scenario != "" {
		return r.Scenario
	}
	return r.ScenarioCode
}

// MeanStd is a mean with its sample standard deviation
type MeanStd struct {
	Mean float64 `json:"mean"`
	Std  float64 `json:"std"` // NaN when fewer than two samples
}

// ScenarioAggregate summarizes every record of one scenario
type ScenarioAggregate struct {
	Scenario          string      `json:"scenario"`
	RecordCount       int         `json:"recordCount"`
	TotalRequests     int64       `json:"totalRequests"`
	TotalFailures     int64       `json:"totalFailures"`
	FailureRate       float64     `json:"failureRate"` // Percent, NaN when TotalRequests is 0
	AvgResponseTime   MeanStd     `json:"avgResponseTime"`
	RequestsPerSecond MeanStd     `json:"requestsPerSecond"`
	FailuresPerSecond MeanStd     `json:"failuresPerSecond"`
	MinResponseTime   float64     `json:"minResponseTime"` // Mean across records
	MaxResponseTime   float64     `json:"maxResponseTime"` // Mean across records
	Percentiles       Percentiles `json:"percentiles"`     // Mean across records
}

// SuccessCount returns the number of requests that did not fail
func (a ScenarioAggregate) SuccessCount() int64 {
	return a.TotalRequests - a.TotalFailures
}

// HasFailureRate reports whether the failure rate is defined
func (a ScenarioAggregate) HasFailureRate() bool {
	return !math.IsNaN(a.FailureRate)
}
