package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	// FilePermissions is the default permission mode for regular files (read/write for owner, read for others)
	FilePermissions = 0644
	// DirPermissions is the default permission mode for directories (rwxr-xr-x)
	DirPermissions = 0755
)

// EnvPrefix prefixes environment overrides: LOADREPORT_OUTPUT_DIR overrides output.dir
const EnvPrefix = "LOADREPORT"

// FileName is the config file name searched without extension
const FileName = "loadreport"

var (
	// ConfigDir is the global configuration directory (~/.loadreport)
	ConfigDir string

	// DatabasePath is the SQLite database file for the report archive
	DatabasePath string
)

// Initialize sets up the configuration directory
// It creates ~/.loadreport/ if it doesn't exist
func Initialize() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}

	ConfigDir = filepath.Join(homeDir, ".loadreport")
	DatabasePath = filepath.Join(ConfigDir, "loadreport.db")

	if err := os.MkdirAll(ConfigDir, DirPermissions); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", ConfigDir, err)
	}

	return nil
}

// Config is the full application configuration
type Config struct {
	Input   InputConfig   `mapstructure:"input"`
	Output  OutputConfig  `mapstructure:"output"`
	Archive ArchiveConfig `mapstructure:"archive"`
	Logger  LoggerConfig  `mapstructure:"logger"`
	Run     RunConfig     `mapstructure:"run"`
}

// InputConfig controls discovery of the result files
type InputConfig struct {
	Root             string `mapstructure:"root"`
	ExecutionGlob    string `mapstructure:"execution_glob"`
	ScenarioGlob     string `mapstructure:"scenario_glob"`
	UnknownScenarios string `mapstructure:"unknown_scenarios"` // passthrough, reject
}

// OutputConfig controls where and what the report writes
type OutputConfig struct {
	Dir    string `mapstructure:"dir"`
	Charts bool   `mapstructure:"charts"`
	XLSX   string `mapstructure:"xlsx"` // Workbook path, empty disables it
}

// ArchiveConfig controls the SQLite report archive
type ArchiveConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"` // Defaults to DatabasePath
}

// LoggerConfig configures the zap logger
type LoggerConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // console, json
}

// RunConfig holds defaults of the built-in load generator
type RunConfig struct {
	Profile     string        `mapstructure:"profile"`
	Users       int           `mapstructure:"users"`
	SpawnRate   float64       `mapstructure:"spawn_rate"`
	Duration    time.Duration `mapstructure:"duration"`
	CSVPrefix   string        `mapstructure:"csv_prefix"`
	MetricsAddr string        `mapstructure:"metrics_addr"`
	Host        string        `mapstructure:"host"`
}

// Load reads the configuration from path, or from loadreport.yaml in the
// working directory or ConfigDir when path is empty. A missing file in the
// search path is not an error; defaults and environment still apply.
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(FileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if ConfigDir != "" {
			v.AddConfigPath(ConfigDir)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if cfg.Archive.Path == "" {
		cfg.Archive.Path = DatabasePath
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("input.root", "results")
	v.SetDefault("input.execution_glob", "execucao*")
	v.SetDefault("input.scenario_glob", "res*_stats.csv")
	v.SetDefault("input.unknown_scenarios", "passthrough")
	v.SetDefault("output.dir", ".")
	v.SetDefault("output.charts", true)
	v.SetDefault("output.xlsx", "")
	v.SetDefault("archive.enabled", true)
	v.SetDefault("archive.path", "")
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("run.profile", "")
	v.SetDefault("run.users", 10)
	v.SetDefault("run.spawn_rate", 1.0)
	v.SetDefault("run.duration", time.Minute)
	v.SetDefault("run.csv_prefix", "res1")
	v.SetDefault("run.metrics_addr", "")
	v.SetDefault("run.host", "")
}

// Validate checks values that cannot be caught by decoding
func (c *Config) Validate() error {
	if c.Input.ExecutionGlob == "" || c.Input.ScenarioGlob == "" {
		return fmt.Errorf("input globs must not be empty")
	}
	if _, err := filepath.Match(c.Input.ExecutionGlob, ""); err != nil {
		return fmt.Errorf("invalid execution glob %q: %w", c.Input.ExecutionGlob, err)
	}
	if _, err := filepath.Match(c.Input.ScenarioGlob, ""); err != nil {
		return fmt.Errorf("invalid scenario glob %q: %w", c.Input.ScenarioGlob, err)
	}
	switch strings.ToLower(c.Logger.Format) {
	case "console", "json":
	default:
		return fmt.Errorf("invalid log format %q (expected console or json)", c.Logger.Format)
	}
	if c.Run.Users < 1 {
		return fmt.Errorf("run.users must be at least 1")
	}
	if c.Run.SpawnRate <= 0 {
		return fmt.Errorf("run.spawn_rate must be positive")
	}
	return nil
}
