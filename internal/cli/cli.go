package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/studiowebux/loadreport/internal/aggregate"
	"github.com/studiowebux/loadreport/internal/archive"
	"github.com/studiowebux/loadreport/internal/charts"
	"github.com/studiowebux/loadreport/internal/config"
	"github.com/studiowebux/loadreport/internal/ingest"
	"github.com/studiowebux/loadreport/internal/report"
	"github.com/studiowebux/loadreport/internal/scenario"
	"github.com/studiowebux/loadreport/internal/types"
)

// isInteractive checks if stdin is a terminal (not piped)
func isInteractive() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) != 0
}

// AnalyzeOptions selects and interprets the input files
type AnalyzeOptions struct {
	Root             string
	ExecutionGlob    string
	ScenarioGlob     string
	UnknownScenarios string // passthrough, reject
}

// Analysis is the in-memory result of ingestion, normalization and aggregation
type Analysis struct {
	Root       string
	Policy     scenario.Policy
	Records    []types.RunRecord
	Aggregates []types.ScenarioAggregate // Label order
	Tables     []report.Table
}

// Analyze runs every stage that does not touch the output directory.
// Any error aborts before a single output is written.
func Analyze(opts AnalyzeOptions, logger *zap.Logger) (*Analysis, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	policy, err := scenario.ParsePolicy(opts.UnknownScenarios)
	if err != nil {
		return nil, err
	}

	loader := ingest.NewLoader(ingest.Options{
		ExecutionGlob: opts.ExecutionGlob,
		ScenarioGlob:  opts.ScenarioGlob,
	}, logger)
	records, err := loader.Load(opts.Root)
	if err != nil {
		return nil, fmt.Errorf("failed to load results: %w", err)
	}

	records, err = scenario.Normalize(records, policy)
	if err != nil {
		return nil, err
	}

	aggs := aggregate.New(logger).Aggregate(records)
	return &Analysis{
		Root:       opts.Root,
		Policy:     policy,
		Records:    records,
		Aggregates: aggs,
		Tables:     report.Build(aggs),
	}, nil
}

// ReportOptions contains options for the report command
type ReportOptions struct {
	AnalyzeOptions
	OutputDir   string
	Charts      bool
	XLSXPath    string // Empty skips the workbook
	Archive     bool
	ArchivePath string
	Quiet       bool      // Skip printing tables
	Out         io.Writer // Defaults to stdout
}

// ReportResult lists what a report run produced
type ReportResult struct {
	Analysis *Analysis
	CSVFiles []string
	Charts   []string
	XLSXFile string
	ReportID string // Empty when archiving is disabled or failed
}

// Report runs the full pipeline: analyze, write tables and charts, archive, print
func Report(opts ReportOptions, logger *zap.Logger) (*ReportResult, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("mod", "report"))
	if opts.Out == nil {
		opts.Out = os.Stdout
	}

	analysis, err := Analyze(opts.AnalyzeOptions, logger)
	if err != nil {
		return nil, err
	}
	logger.Info("results aggregated",
		zap.Int("records", len(analysis.Records)),
		zap.Int("scenarios", len(analysis.Aggregates)))

	result := &ReportResult{Analysis: analysis}

	result.CSVFiles, err = report.WriteCSV(opts.OutputDir, analysis.Tables)
	if err != nil {
		return result, err
	}

	if opts.Charts {
		r := charts.NewRenderer(logger)
		result.Charts, err = r.Render(opts.OutputDir, report.ExecutiveOrder(analysis.Aggregates))
		if err != nil {
			return result, fmt.Errorf("failed to render charts: %w", err)
		}
	}

	if opts.XLSXPath != "" {
		if dir := filepath.Dir(opts.XLSXPath); dir != "." {
			if err := os.MkdirAll(dir, config.DirPermissions); err != nil {
				return result, fmt.Errorf("failed to create workbook directory: %w", err)
			}
		}
		if err := report.WriteWorkbook(opts.XLSXPath, analysis.Tables); err != nil {
			return result, err
		}
		result.XLSXFile = opts.XLSXPath
	}

	if opts.Archive {
		id, err := archiveReport(opts, analysis)
		if err != nil {
			// Outputs are already on disk, keep going
			logger.Warn("failed to archive report", zap.Error(err))
		} else {
			result.ReportID = id
			logger.Info("report archived", zap.String("id", id))
		}
	}

	if !opts.Quiet {
		saved := make(map[string]string, len(analysis.Tables))
		for i, t := range analysis.Tables {
			saved[t.File] = result.CSVFiles[i]
		}
		report.Print(opts.Out, analysis.Tables, saved)
		for _, path := range result.Charts {
			fmt.Fprintf(opts.Out, "Chart saved to %s\n", path)
		}
		if result.XLSXFile != "" {
			fmt.Fprintf(opts.Out, "Workbook saved to %s\n", result.XLSXFile)
		}
		if result.ReportID != "" {
			fmt.Fprintf(opts.Out, "Archived as %s\n", result.ReportID)
		}
	}

	return result, nil
}

func archiveReport(opts ReportOptions, analysis *Analysis) (string, error) {
	mgr, err := archive.NewManager(opts.ArchivePath)
	if err != nil {
		return "", err
	}
	defer mgr.Close()

	rep := &archive.Report{
		SourceRoot:    analysis.Root,
		OutputDir:     opts.OutputDir,
		UnknownPolicy: string(analysis.Policy),
	}
	if abs, err := filepath.Abs(analysis.Root); err == nil {
		rep.SourceRoot = abs
	}
	if err := mgr.SaveReport(rep, analysis.Records, analysis.Aggregates); err != nil {
		return "", err
	}
	return rep.ID, nil
}
