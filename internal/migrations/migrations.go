package migrations

import (
	"database/sql"
	"fmt"
)

// Migration represents a single database migration
type Migration struct {
	Version int
	Name    string
	Up      string
	Down    string
}

// AllMigrations contains all database migrations in order
var AllMigrations = []Migration{
	{
		Version: 1,
		Name:    "Add report lookup indices",
		Up: `
			CREATE INDEX IF NOT EXISTS idx_reports_created_at ON reports(created_at DESC);
			CREATE INDEX IF NOT EXISTS idx_run_records_report ON run_records(report_id);
			CREATE INDEX IF NOT EXISTS idx_scenario_aggregates_report ON scenario_aggregates(report_id);
		`,
		Down: `
			DROP INDEX IF EXISTS idx_reports_created_at;
			DROP INDEX IF EXISTS idx_run_records_report;
			DROP INDEX IF EXISTS idx_scenario_aggregates_report;
		`,
	},
	{
		Version: 2,
		Name:    "Add scenario indices for cross-report comparison",
		Up: `
			CREATE INDEX IF NOT EXISTS idx_run_records_scenario ON run_records(scenario, execution);
			CREATE INDEX IF NOT EXISTS idx_scenario_aggregates_scenario ON scenario_aggregates(scenario, report_id);
		`,
		Down: `
			DROP INDEX IF EXISTS idx_run_records_scenario;
			DROP INDEX IF EXISTS idx_scenario_aggregates_scenario;
		`,
	},
}

// InitSchema creates all tables of the report archive
// This must be called before running migrations to ensure all tables exist
func InitSchema(db *sql.DB) error {
	schema := `
	-- One row per report run
	CREATE TABLE IF NOT EXISTS reports (
		id TEXT PRIMARY KEY,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		source_root TEXT NOT NULL,
		output_dir TEXT NOT NULL DEFAULT '',
		unknown_policy TEXT NOT NULL DEFAULT 'passthrough',
		record_count INTEGER NOT NULL,
		scenario_count INTEGER NOT NULL
	);

	-- Ingested records, one per execution and scenario
	CREATE TABLE IF NOT EXISTS run_records (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		report_id TEXT NOT NULL,
		execution TEXT NOT NULL,
		scenario_code TEXT NOT NULL,
		scenario TEXT NOT NULL,
		source_path TEXT NOT NULL DEFAULT '',
		request_count INTEGER NOT NULL,
		failure_count INTEGER NOT NULL,
		avg_response_time REAL NOT NULL,
		min_response_time REAL NOT NULL,
		max_response_time REAL NOT NULL,
		requests_per_second REAL NOT NULL,
		failures_per_second REAL NOT NULL,
		p50 REAL NOT NULL,
		p66 REAL NOT NULL,
		p75 REAL NOT NULL,
		p90 REAL NOT NULL,
		p95 REAL NOT NULL,
		p99 REAL NOT NULL,
		FOREIGN KEY (report_id) REFERENCES reports(id) ON DELETE CASCADE
	);

	-- Aggregates per scenario; undefined values (NaN) are stored as NULL
	CREATE TABLE IF NOT EXISTS scenario_aggregates (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		report_id TEXT NOT NULL,
		scenario TEXT NOT NULL,
		record_count INTEGER NOT NULL,
		total_requests INTEGER NOT NULL,
		total_failures INTEGER NOT NULL,
		failure_rate REAL,
		avg_response_time_mean REAL,
		avg_response_time_std REAL,
		requests_per_second_mean REAL,
		requests_per_second_std REAL,
		failures_per_second_mean REAL,
		failures_per_second_std REAL,
		min_response_time REAL,
		max_response_time REAL,
		p50 REAL,
		p66 REAL,
		p75 REAL,
		p90 REAL,
		p95 REAL,
		p99 REAL,
		FOREIGN KEY (report_id) REFERENCES reports(id) ON DELETE CASCADE
	);
	`

	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	return nil
}

// Run executes all pending migrations on the database
func Run(db *sql.DB) error {
	// Initialize schema first to ensure all tables exist
	if err := InitSchema(db); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	// Create migrations tracking table if it doesn't exist
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	currentVersion, err := GetCurrentVersion(db)
	if err != nil {
		return fmt.Errorf("failed to get current migration version: %w", err)
	}

	// Apply pending migrations
	for _, migration := range AllMigrations {
		if migration.Version <= currentVersion {
			continue
		}

		_, err := db.Exec(migration.Up)
		if err != nil {
			return fmt.Errorf("failed to apply migration %d (%s): %w", migration.Version, migration.Name, err)
		}

		_, err = db.Exec(
			"INSERT INTO schema_migrations (version, name) VALUES (?, ?)",
			migration.Version,
			migration.Name,
		)
		if err != nil {
			return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
		}
	}

	return nil
}

// GetCurrentVersion returns the current database schema version
func GetCurrentVersion(db *sql.DB) (int, error) {
	var version int
	err := db.QueryRow(`
		SELECT COALESCE(MAX(version), 0)
		FROM schema_migrations
	`).Scan(&version)
	if err != nil && err != sql.ErrNoRows {
		return 0, err
	}
	return version, nil
}
