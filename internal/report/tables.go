package report

import (
	"github.com/studiowebux/loadreport/internal/scenario"
	"github.com/studiowebux/loadreport/internal/types"
)

// Output file names
const (
	SummaryFile    = "resumo_metricas.csv"
	PercentileFile = "tabela_percentis.csv"
	StabilityFile  = "tabela_estabilidade.csv"
	ExecutiveFile  = "resumo_executivo.csv"
)

// Rounding digits per table
const (
	summaryDigits    = 3
	percentileDigits = 2
	stabilityDigits  = 3
	executiveDigits  = 2
)

const scenarioColumn = "Cenario"

// Table is one derived report table, already formatted
type Table struct {
	Title  string
	Sheet  string // Workbook sheet name
	File   string
	Header []string
	Rows   [][]string
}

// Build derives all report tables from the scenario aggregates, in export order
func Build(aggs []types.ScenarioAggregate) []Table {
	return []Table{
		SummaryTable(aggs),
		PercentileTable(aggs),
		StabilityTable(aggs),
		ExecutiveTable(aggs),
	}
}

// SummaryTable has one row per scenario with every aggregate field
func SummaryTable(aggs []types.ScenarioAggregate) Table {
	t := Table{
		Title: "Summary metrics by scenario",
		Sheet: "Resumo",
		File:  SummaryFile,
		Header: []string{
			scenarioColumn,
			types.ColRequestCount + "_sum",
			types.ColFailureCount + "_sum",
			types.ColAvgResponseTime + "_mean",
			types.ColAvgResponseTime + "_std",
			types.ColRequestsPerSecond + "_mean",
			types.ColRequestsPerSecond + "_std",
			types.ColFailuresPerSecond + "_mean",
			types.ColFailuresPerSecond + "_std",
			"Failure Rate (%)",
		},
	}
	for _, col := range types.PercentileColumns {
		t.Header = append(t.Header, col+"_mean")
	}

	for _, a := range aggs {
		row := []string{
			a.Scenario,
			FormatCount(a.TotalRequests),
			FormatCount(a.TotalFailures),
			FormatFloat(a.AvgResponseTime.Mean, summaryDigits),
			FormatFloat(a.AvgResponseTime.Std, summaryDigits),
			FormatFloat(a.RequestsPerSecond.Mean, summaryDigits),
			FormatFloat(a.RequestsPerSecond.Std, summaryDigits),
			FormatFloat(a.FailuresPerSecond.Mean, summaryDigits),
			FormatFloat(a.FailuresPerSecond.Std, summaryDigits),
			FormatFloat(a.FailureRate, summaryDigits),
		}
		for _, v := range a.Percentiles.Values() {
			row = append(row, FormatFloat(v, summaryDigits))
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// PercentileTable compares the mean latency percentiles of each scenario
func PercentileTable(aggs []types.ScenarioAggregate) Table {
	t := Table{
		Title:  "Latency percentiles (ms)",
		Sheet:  "Percentis",
		File:   PercentileFile,
		Header: append([]string{scenarioColumn}, types.PercentileColumns...),
	}
	for _, a := range aggs {
		row := []string{a.Scenario}
		for _, v := range a.Percentiles.Values() {
			row = append(row, FormatFloat(v, percentileDigits))
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// StabilityTable shows mean and standard deviation of the run-to-run metrics
func StabilityTable(aggs []types.ScenarioAggregate) Table {
	t := Table{
		Title: "Stability (mean ± standard deviation)",
		Sheet: "Estabilidade",
		File:  StabilityFile,
		Header: []string{
			scenarioColumn,
			types.ColAvgResponseTime + "_mean",
			types.ColAvgResponseTime + "_std",
			types.ColRequestsPerSecond + "_mean",
			types.ColRequestsPerSecond + "_std",
			types.ColFailuresPerSecond + "_mean",
			types.ColFailuresPerSecond + "_std",
		},
	}
	for _, a := range aggs {
		t.Rows = append(t.Rows, []string{
			a.Scenario,
			FormatFloat(a.AvgResponseTime.Mean, stabilityDigits),
			FormatFloat(a.AvgResponseTime.Std, stabilityDigits),
			FormatFloat(a.RequestsPerSecond.Mean, stabilityDigits),
			FormatFloat(a.RequestsPerSecond.Std, stabilityDigits),
			FormatFloat(a.FailuresPerSecond.Mean, stabilityDigits),
			FormatFloat(a.FailuresPerSecond.Std, stabilityDigits),
		})
	}
	return t
}

// ExecutiveTable lists the headline numbers in the fixed Leve, Moderado, Pico
// order, followed by any other scenario in label order.
func ExecutiveTable(aggs []types.ScenarioAggregate) Table {
	t := Table{
		Title: "Executive summary",
		Sheet: "Executivo",
		File:  ExecutiveFile,
		Header: []string{
			"Cenário",
			"Total Requisições",
			"Taxa de Falhas (%)",
			"Tempo Médio (ms)",
			"P95 (ms)",
			"P99 (ms)",
			"Throughput (req/s)",
		},
	}

	for _, a := range ExecutiveOrder(aggs) {
		t.Rows = append(t.Rows, []string{
			a.Scenario,
			FormatCount(a.TotalRequests),
			FormatFloat(a.FailureRate, executiveDigits),
			FormatFloat(a.AvgResponseTime.Mean, executiveDigits),
			FormatFloat(a.Percentiles.P95, executiveDigits),
			FormatFloat(a.Percentiles.P99, executiveDigits),
			FormatFloat(a.RequestsPerSecond.Mean, executiveDigits),
		})
	}
	return t
}

// ExecutiveOrder returns the aggregates sorted for the executive summary
func ExecutiveOrder(aggs []types.ScenarioAggregate) []types.ScenarioAggregate {
	byLabel := make(map[string]types.ScenarioAggregate, len(aggs))
	labels := make([]string, 0, len(aggs))
	for _, a := range aggs {
		byLabel[a.Scenario] = a
		labels = append(labels, a.Scenario)
	}
	scenario.SortExecutive(labels)

	ordered := make([]types.ScenarioAggregate, 0, len(labels))
	for _, label := range labels {
		ordered = append(ordered, byLabel[label])
	}
	return ordered
}
