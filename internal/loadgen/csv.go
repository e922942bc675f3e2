package loadgen

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"strconv"
	"time"

	"github.com/studiowebux/loadreport/internal/config"
	"github.com/studiowebux/loadreport/internal/types"
)

// AggregatedName is the Name of the total row
const AggregatedName = types.AggregatedRowName

// StatsFileSuffix is appended to the CSV prefix
const StatsFileSuffix = "_stats.csv"

// statsPercentiles are the percentile columns of the stats file, in order
var statsPercentiles = []struct {
	header string
	p      float64
}{
	{"50%", 50},
	{"66%", 66},
	{"75%", 75},
	{"80%", 80},
	{"90%", 90},
	{"95%", 95},
	{"98%", 98},
	{"99%", 99},
	{"99.9%", 99.9},
	{"99.99%", 99.99},
	{"100%", 100},
}

// StatsHeader returns the stats file header
func StatsHeader() []string {
	header := []string{
		types.ColType,
		types.ColName,
		types.ColRequestCount,
		types.ColFailureCount,
		"Median Response Time",
		types.ColAvgResponseTime,
		types.ColMinResponseTime,
		types.ColMaxResponseTime,
		"Average Content Size",
		types.ColRequestsPerSecond,
		types.ColFailuresPerSecond,
	}
	for _, col := range statsPercentiles {
		header = append(header, col.header)
	}
	return header
}

// statsRow formats one entry; response times are whole milliseconds
func statsRow(s *Stats, elapsed time.Duration) []string {
	row := []string{
		s.Method,
		s.Name,
		strconv.FormatInt(s.NumRequests, 10),
		strconv.FormatInt(s.NumFailures, 10),
		formatMs(s.Percentile(50)),
		strconv.FormatFloat(s.AvgDurationMs(), 'f', -1, 64),
		formatMs(s.Min()),
		formatMs(s.Max()),
		strconv.FormatFloat(s.AvgContentSize(), 'f', -1, 64),
		strconv.FormatFloat(s.RequestsPerSecond(elapsed), 'f', -1, 64),
		strconv.FormatFloat(s.FailuresPerSecond(elapsed), 'f', -1, 64),
	}
	for _, col := range statsPercentiles {
		row = append(row, formatMs(s.Percentile(col.p)))
	}
	return row
}

func formatMs(v float64) string {
	return strconv.FormatInt(int64(math.Round(v)), 10)
}

// WriteStats writes the per-entry rows followed by the Aggregated row
func WriteStats(path string, entries []*Stats, total *Stats, elapsed time.Duration) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, config.FilePermissions)
	if err != nil {
		return fmt.Errorf("failed to create stats file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(StatsHeader()); err != nil {
		return fmt.Errorf("failed to write stats header: %w", err)
	}
	for _, s := range entries {
		if err := w.Write(statsRow(s, elapsed)); err != nil {
			return fmt.Errorf("failed to write stats row %s: %w", s.Name, err)
		}
	}
	if err := w.Write(statsRow(total, elapsed)); err != nil {
		return fmt.Errorf("failed to write aggregated row: %w", err)
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush stats file: %w", err)
	}
	return f.Close()
}
