package aggregate

import (
	"math"
	"sort"

	"github.com/studiowebux/loadreport/internal/types"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"
)

// Aggregator groups normalized run records by scenario label
type Aggregator struct {
	logger *zap.Logger
}

// New creates an aggregator; a nil logger discards log output
func New(logger *zap.Logger) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{logger: logger.With(zap.String("mod", "aggregate"))}
}

// Aggregate computes one ScenarioAggregate per scenario label, sorted by label.
// Records are grouped by value; their input order does not matter.
func (a *Aggregator) Aggregate(records []types.RunRecord) []types.ScenarioAggregate {
	groups := make(map[string][]types.RunRecord)
	for _, record := range records {
		label := record.Label()
		groups[label] = append(groups[label], record)
	}

	labels := make([]string, 0, len(groups))
	for label := range groups {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	aggregates := make([]types.ScenarioAggregate, 0, len(labels))
	for _, label := range labels {
		agg := Scenario(label, groups[label])
		if !agg.HasFailureRate() {
			a.logger.Warn("scenario has no requests, failure rate is undefined",
				zap.String("scenario", label),
				zap.Int("records", agg.RecordCount))
		}
		aggregates = append(aggregates, agg)
	}
	return aggregates
}

// Scenario aggregates the records of a single scenario group
func Scenario(label string, records []types.RunRecord) types.ScenarioAggregate {
	agg := types.ScenarioAggregate{
		Scenario:    label,
		RecordCount: len(records),
	}

	n := len(records)
	avg := make([]float64, n)
	minRT := make([]float64, n)
	maxRT := make([]float64, n)
	rps := make([]float64, n)
	fps := make([]float64, n)
	pct := make([][]float64, len(types.PercentileColumns))
	for i := range pct {
		pct[i] = make([]float64, n)
	}

	for i, r := range records {
		agg.TotalRequests += r.RequestCount
		agg.TotalFailures += r.FailureCount
		avg[i] = r.AvgResponseTime
		minRT[i] = r.MinResponseTime
		maxRT[i] = r.MaxResponseTime
		rps[i] = r.RequestsPerSecond
		fps[i] = r.FailuresPerSecond
		for j, v := range r.Percentiles.Values() {
			pct[j][i] = v
		}
	}

	agg.FailureRate = FailureRate(agg.TotalFailures, agg.TotalRequests)
	agg.AvgResponseTime = MeanStd(avg)
	agg.RequestsPerSecond = MeanStd(rps)
	agg.FailuresPerSecond = MeanStd(fps)
	agg.MinResponseTime = Mean(minRT)
	agg.MaxResponseTime = Mean(maxRT)
	agg.Percentiles = types.Percentiles{
		P50: Mean(pct[0]),
		P66: Mean(pct[1]),
		P75: Mean(pct[2]),
		P90: Mean(pct[3]),
		P95: Mean(pct[4]),
		P99: Mean(pct[5]),
	}
	return agg
}

// FailureRate returns 100 * failures / requests, or NaN when there are no requests
func FailureRate(failures, requests int64) float64 {
	if requests == 0 {
		return math.NaN()
	}
	return 100 * float64(failures) / float64(requests)
}

// Mean returns the arithmetic mean, or NaN for an empty sample
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	return stat.Mean(values, nil)
}

// MeanStd returns the mean and the sample (n-1) standard deviation.
// The deviation is NaN when there are fewer than two values.
func MeanStd(values []float64) types.MeanStd {
	switch len(values) {
	case 0:
		return types.MeanStd{Mean: math.NaN(), Std: math.NaN()}
	case 1:
		return types.MeanStd{Mean: values[0], Std: math.NaN()}
	}
	mean, std := stat.MeanStdDev(values, nil)
	return types.MeanStd{Mean: mean, Std: std}
}
