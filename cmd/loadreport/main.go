package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/studiowebux/loadreport/internal/cli"
	"github.com/studiowebux/loadreport/internal/config"
	"github.com/studiowebux/loadreport/internal/loadgen"
	"github.com/studiowebux/loadreport/internal/logging"
	"github.com/studiowebux/loadreport/internal/tui"
)

var (
	version = "0.1.0"
)

// Set by the root command before any subcommand runs
var (
	cfg    *config.Config
	logger = zap.NewNop()
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "loadreport",
	Short: "Load test metrics aggregator",
	Long: `loadreport aggregates load test statistics by scenario and exports
summary tables and charts.

Results are read from <root>/<execution>/<scenario>_stats.csv. Scenario codes
res1, res2 and res3 are reported as Leve, Moderado and Pico.

Examples:
  loadreport report                      # Aggregate ./results into the current directory
  loadreport report runs -o out --xlsx out/report.xlsx
  loadreport view runs                   # Browse the tables interactively
  loadreport history list                # Archived reports
  loadreport run --users 20 --csv res2   # Generate load and write res2_stats.csv`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Initialize(); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		var err error
		cfg, err = config.Load(flagConfig)
		if err != nil {
			return err
		}

		if cmd.Flags().Changed("log-level") {
			cfg.Logger.Level = flagLogLevel
		}
		if cmd.Flags().Changed("log-format") {
			cfg.Logger.Format = flagLogFormat
		}

		logger, err = logging.New(cfg.Logger.Level, cfg.Logger.Format)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

var reportCmd = &cobra.Command{
	Use:   "report [root]",
	Short: "Aggregate results and write tables and charts",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := cli.ReportOptions{
			AnalyzeOptions: analyzeOptions(cmd, args),
			OutputDir:      cfg.Output.Dir,
			Charts:         cfg.Output.Charts && !flagNoCharts,
			XLSXPath:       cfg.Output.XLSX,
			Archive:        cfg.Archive.Enabled && !flagNoArchive,
			ArchivePath:    cfg.Archive.Path,
			Quiet:          flagQuiet,
		}
		if cmd.Flags().Changed("output-dir") {
			opts.OutputDir = flagOutputDir
		}
		if cmd.Flags().Changed("xlsx") {
			opts.XLSXPath = flagXLSX
		}

		_, err := cli.Report(opts, logger)
		return err
	},
}

var viewCmd = &cobra.Command{
	Use:   "view [root]",
	Short: "Browse the aggregated tables interactively",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := analyzeOptions(cmd, args)
		analysis, err := cli.Analyze(opts, logger)
		if err != nil {
			return err
		}
		return tui.Run(analysis.Tables, opts.Root)
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Manage archived reports",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List archived reports, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cli.HistoryList(historyOptions())
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Show the executive summary of an archived report",
	Long: `Show the executive summary of an archived report.

The id may be any unique prefix. Without an id an interactive selector opens.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var id string
		if len(args) > 0 {
			id = args[0]
		}
		return cli.HistoryShow(historyOptions(), id)
	},
}

var historyDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete an archived report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return cli.HistoryDelete(historyOptions(), args[0], flagForce)
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Generate load and write a stats file",
	Long: `Generate HTTP load with a fixed number of users and write the statistics
in the layout the report command reads.

Without --profile the built-in PetClinic task set is used.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := cli.LoadOptions{
			ProfilePath: cfg.Run.Profile,
			Options: loadgen.Options{
				Users:       cfg.Run.Users,
				SpawnRate:   cfg.Run.SpawnRate,
				Duration:    cfg.Run.Duration,
				Host:        cfg.Run.Host,
				CSVPrefix:   cfg.Run.CSVPrefix,
				MetricsAddr: cfg.Run.MetricsAddr,
			},
		}

		flags := cmd.Flags()
		if flags.Changed("profile") {
			opts.ProfilePath = flagRunProfile
		}
		if flags.Changed("users") {
			opts.Users = flagUsers
		}
		if flags.Changed("spawn-rate") {
			opts.SpawnRate = flagSpawnRate
		}
		if flags.Changed("duration") {
			opts.Duration = flagDuration
		}
		if flags.Changed("host") {
			opts.Host = flagHost
		}
		if flags.Changed("csv") {
			opts.CSVPrefix = flagCSVPrefix
		}
		if flags.Changed("metrics-addr") {
			opts.MetricsAddr = flagMetricsAddr
		}

		_, err := cli.Load(context.Background(), opts, logger)
		return err
	},
}

// Global flags
var (
	flagConfig    string
	flagLogLevel  string
	flagLogFormat string
)

// Flags for report and view
var (
	flagOutputDir        string
	flagNoCharts         bool
	flagXLSX             string
	flagUnknownScenarios string
	flagNoArchive        bool
	flagQuiet            bool
)

// Flags for history
var (
	flagLimit int
	flagForce bool
)

// Flags for run
var (
	flagRunProfile  string
	flagUsers       int
	flagSpawnRate   float64
	flagDuration    time.Duration
	flagHost        string
	flagCSVPrefix   string
	flagMetricsAddr string
)

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "Config file (default loadreport.yaml in . or ~/.loadreport)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "Log level (debug/info/warn/error)")
	rootCmd.PersistentFlags().StringVar(&flagLogFormat, "log-format", "console", "Log format (console/json)")

	// report flags
	reportCmd.Flags().StringVarP(&flagOutputDir, "output-dir", "o", "", "Directory for CSV files and charts")
	reportCmd.Flags().BoolVar(&flagNoCharts, "no-charts", false, "Skip chart rendering")
	reportCmd.Flags().StringVar(&flagXLSX, "xlsx", "", "Also write the tables to this workbook")
	reportCmd.Flags().StringVar(&flagUnknownScenarios, "unknown-scenarios", "", "Unknown scenario codes: passthrough or reject")
	reportCmd.Flags().BoolVar(&flagNoArchive, "no-archive", false, "Do not store the report in the archive")
	reportCmd.Flags().BoolVarP(&flagQuiet, "quiet", "q", false, "Do not print the tables")

	// view flags
	viewCmd.Flags().StringVar(&flagUnknownScenarios, "unknown-scenarios", "", "Unknown scenario codes: passthrough or reject")

	// history flags
	historyListCmd.Flags().IntVarP(&flagLimit, "limit", "n", 20, "Maximum number of reports to list")
	historyShowCmd.Flags().IntVarP(&flagLimit, "limit", "n", 20, "Maximum number of reports offered by the selector")
	historyDeleteCmd.Flags().BoolVarP(&flagForce, "force", "f", false, "Delete without confirmation")

	// run flags
	runCmd.Flags().StringVarP(&flagRunProfile, "profile", "p", "", "Load profile (yaml, json or jsonc)")
	runCmd.Flags().IntVarP(&flagUsers, "users", "u", 10, "Number of concurrent users")
	runCmd.Flags().Float64VarP(&flagSpawnRate, "spawn-rate", "r", 1, "Users started per second")
	runCmd.Flags().DurationVarP(&flagDuration, "duration", "d", time.Minute, "Run duration, 0 runs until Ctrl+C")
	runCmd.Flags().StringVar(&flagHost, "host", "", "Base URL for relative task URLs")
	runCmd.Flags().StringVar(&flagCSVPrefix, "csv", "", "Write <prefix>_stats.csv")
	runCmd.Flags().StringVar(&flagMetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9646)")

	// Add subcommands
	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyDeleteCmd)

	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(viewCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(runCmd)
}

// analyzeOptions merges the positional root and flags over the config
func analyzeOptions(cmd *cobra.Command, args []string) cli.AnalyzeOptions {
	opts := cli.AnalyzeOptions{
		Root:             cfg.Input.Root,
		ExecutionGlob:    cfg.Input.ExecutionGlob,
		ScenarioGlob:     cfg.Input.ScenarioGlob,
		UnknownScenarios: cfg.Input.UnknownScenarios,
	}
	if len(args) > 0 {
		opts.Root = args[0]
	}
	if cmd.Flags().Changed("unknown-scenarios") {
		opts.UnknownScenarios = flagUnknownScenarios
	}
	return opts
}

func historyOptions() cli.HistoryOptions {
	return cli.HistoryOptions{
		DatabasePath: cfg.Archive.Path,
		Limit:        flagLimit,
		Out:          os.Stdout,
	}
}
