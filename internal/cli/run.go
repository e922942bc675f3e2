package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/studiowebux/loadreport/internal/loadgen"
	"github.com/studiowebux/loadreport/internal/report"
)

// LoadOptions contains options for the built-in load generator
type LoadOptions struct {
	ProfilePath string // Empty uses the built-in PetClinic profile
	loadgen.Options
	Out io.Writer
}

// Load runs the load generator until the duration elapses or Ctrl+C
func Load(ctx context.Context, opts LoadOptions, logger *zap.Logger) (*loadgen.Result, error) {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}

	profile := loadgen.DefaultProfile()
	if opts.ProfilePath != "" {
		var err error
		profile, err = loadgen.LoadProfile(opts.ProfilePath)
		if err != nil {
			return nil, err
		}
	}

	runner, err := loadgen.NewRunner(profile, opts.Options, logger)
	if err != nil {
		return nil, err
	}

	// Handle Ctrl+C for graceful stop
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	result, err := runner.Run(ctx)
	if err != nil {
		return result, err
	}

	report.Print(opts.Out, []report.Table{loadTable(result)}, nil)
	if result.StatsPath != "" {
		fmt.Fprintf(opts.Out, "Stats saved to %s\n", result.StatsPath)
	}
	return result, nil
}

// loadTable summarizes a load run per entry plus the aggregated row
func loadTable(result *loadgen.Result) report.Table {
	t := report.Table{
		Title:  fmt.Sprintf("Load run (%s)", result.Elapsed.Round(time.Second)),
		Header: []string{"Type", "Name", "Requests", "Failures", "Avg (ms)", "P95 (ms)", "P99 (ms)", "Req/s"},
	}
	add := func(s *loadgen.Stats) {
		t.Rows = append(t.Rows, []string{
			s.Method,
			s.Name,
			strconv.FormatInt(s.NumRequests, 10),
			strconv.FormatInt(s.NumFailures, 10),
			report.FormatFloat(s.AvgDurationMs(), 2),
			report.FormatFloat(s.Percentile(95), 2),
			report.FormatFloat(s.Percentile(99), 2),
			report.FormatFloat(s.RequestsPerSecond(result.Elapsed), 2),
		})
	}
	for _, s := range result.Entries {
		add(s)
	}
	add(result.Total)
	return t
}
