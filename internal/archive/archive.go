package archive

import (
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/studiowebux/loadreport/internal/migrations"
	"github.com/studiowebux/loadreport/internal/types"
)

// ErrNotFound is returned when no report matches an ID
var ErrNotFound = errors.New("report not found")

// Report is the header row of one archived report run
type Report struct {
	ID            string
	CreatedAt     time.Time
	SourceRoot    string
	OutputDir     string
	UnknownPolicy string
	RecordCount   int
	ScenarioCount int
}

// Manager handles report archive persistence
type Manager struct {
	db *sql.DB
}

// NewManager opens the archive database and applies migrations
func NewManager(dbPath string) (*Manager, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and serializes writes
	db.SetMaxOpenConns(1)

	// Run database migrations (includes schema initialization)
	if err := migrations.Run(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Manager{db: db}, nil
}

// Close closes the database connection
func (m *Manager) Close() error {
	return m.db.Close()
}

// SaveReport stores a report with its records and aggregates in one transaction.
// ID and CreatedAt are filled in when empty.
func (m *Manager) SaveReport(report *Report, records []types.RunRecord, aggs []types.ScenarioAggregate) error {
	if report.ID == "" {
		report.ID = uuid.NewString()
	}
	if report.CreatedAt.IsZero() {
		report.CreatedAt = time.Now().UTC()
	}
	report.RecordCount = len(records)
	report.ScenarioCount = len(aggs)

	tx, err := m.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO reports (id, created_at, source_root, output_dir, unknown_policy, record_count, scenario_count)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, report.ID, report.CreatedAt, report.SourceRoot, report.OutputDir, report.UnknownPolicy,
		report.RecordCount, report.ScenarioCount)
	if err != nil {
		return fmt.Errorf("failed to insert report: %w", err)
	}

	for _, r := range records {
		p := r.Percentiles
		_, err := tx.Exec(`
			INSERT INTO run_records
			(report_id, execution, scenario_code, scenario, source_path, request_count, failure_count,
			 avg_response_time, min_response_time, max_response_time, requests_per_second, failures_per_second,
			 p50, p66, p75, p90, p95, p99)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, report.ID, r.Execution, r.ScenarioCode, r.Label(), r.SourcePath, r.RequestCount, r.FailureCount,
			r.AvgResponseTime, r.MinResponseTime, r.MaxResponseTime, r.RequestsPerSecond, r.FailuresPerSecond,
			p.P50, p.P66, p.P75, p.P90, p.P95, p.P99)
		if err != nil {
			return fmt.Errorf("failed to insert record %s/%s: %w", r.Execution, r.ScenarioCode, err)
		}
	}

	for _, a := range aggs {
		p := a.Percentiles
		_, err := tx.Exec(`
			INSERT INTO scenario_aggregates
			(report_id, scenario, record_count, total_requests, total_failures, failure_rate,
			 avg_response_time_mean, avg_response_time_std, requests_per_second_mean, requests_per_second_std,
			 failures_per_second_mean, failures_per_second_std, min_response_time, max_response_time,
			 p50, p66, p75, p90, p95, p99)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, report.ID, a.Scenario, a.RecordCount, a.TotalRequests, a.TotalFailures, nullFloat(a.FailureRate),
			nullFloat(a.AvgResponseTime.Mean), nullFloat(a.AvgResponseTime.Std),
			nullFloat(a.RequestsPerSecond.Mean), nullFloat(a.RequestsPerSecond.Std),
			nullFloat(a.FailuresPerSecond.Mean), nullFloat(a.FailuresPerSecond.Std),
			nullFloat(a.MinResponseTime), nullFloat(a.MaxResponseTime),
			nullFloat(p.P50), nullFloat(p.P66), nullFloat(p.P75), nullFloat(p.P90), nullFloat(p.P95), nullFloat(p.P99))
		if err != nil {
			return fmt.Errorf("failed to insert aggregate %s: %w", a.Scenario, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit report: %w", err)
	}
	return nil
}

const reportColumns = `id, created_at, source_root, output_dir, unknown_policy, record_count, scenario_count`

func scanReport(row interface{ Scan(...any) error }) (*Report, error) {
	r := &Report{}
	err := row.Scan(&r.ID, &r.CreatedAt, &r.SourceRoot, &r.OutputDir, &r.UnknownPolicy, &r.RecordCount, &r.ScenarioCount)
	if err != nil {
		return nil, err
	}
	return r, nil
}

// ListReports returns archived reports, newest first
func (m *Manager) ListReports(limit int) ([]*Report, error) {
	query := `SELECT ` + reportColumns + ` FROM reports ORDER BY created_at DESC, id`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := m.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	defer rows.Close()

	var reports []*Report
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, r)
	}
	return reports, rows.Err()
}

// GetReport retrieves a report by ID or by a unique ID prefix
func (m *Manager) GetReport(id string) (*Report, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrNotFound
	}

	rows, err := m.db.Query(`SELECT `+reportColumns+` FROM reports WHERE id = ? OR id LIKE ? ORDER BY id LIMIT 2`,
		id, stripWildcards(id)+"%")
	if err != nil {
		return nil, fmt.Errorf("failed to get report: %w", err)
	}
	defer rows.Close()

	var matches []*Report
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		if r.ID == id {
			return r, nil
		}
		matches = append(matches, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("%s: %w", id, ErrNotFound)
	case 1:
		return matches[0], nil
	default:
		return nil, fmt.Errorf("report ID prefix %q is ambiguous", id)
	}
}

// GetAggregates returns the scenario aggregates of a report, ordered by scenario
func (m *Manager) GetAggregates(reportID string) ([]types.ScenarioAggregate, error) {
	rows, err := m.db.Query(`
		SELECT scenario, record_count, total_requests, total_failures, failure_rate,
		       avg_response_time_mean, avg_response_time_std, requests_per_second_mean, requests_per_second_std,
		       failures_per_second_mean, failures_per_second_std, min_response_time, max_response_time,
		       p50, p66, p75, p90, p95, p99
		FROM scenario_aggregates WHERE report_id = ? ORDER BY scenario
	`, reportID)
	if err != nil {
		return nil, fmt.Errorf("failed to get aggregates: %w", err)
	}
	defer rows.Close()

	var aggs []types.ScenarioAggregate
	for rows.Next() {
		var a types.ScenarioAggregate
		var n [15]sql.NullFloat64
		err := rows.Scan(&a.Scenario, &a.RecordCount, &a.TotalRequests, &a.TotalFailures,
			&n[0], &n[1], &n[2], &n[3], &n[4], &n[5], &n[6], &n[7], &n[8],
			&n[9], &n[10], &n[11], &n[12], &n[13], &n[14])
		if err != nil {
			return nil, err
		}

		a.FailureRate = fromNull(n[0])
		a.AvgResponseTime = types.MeanStd{Mean: fromNull(n[1]), Std: fromNull(n[2])}
		a.RequestsPerSecond = types.MeanStd{Mean: fromNull(n[3]), Std: fromNull(n[4])}
		a.FailuresPerSecond = types.MeanStd{Mean: fromNull(n[5]), Std: fromNull(n[6])}
		a.MinResponseTime = fromNull(n[7])
		a.MaxResponseTime = fromNull(n[8])
		a.Percentiles = types.Percentiles{
			P50: fromNull(n[9]),
			P66: fromNull(n[10]),
			P75: fromNull(n[11]),
			P90: fromNull(n[12]),
			P95: fromNull(n[13]),
			P99: fromNull(n[14]),
		}
		aggs = append(aggs, a)
	}
	return aggs, rows.Err()
}

// GetRecords returns the run records of a report in execution, scenario order
func (m *Manager) GetRecords(reportID string) ([]types.RunRecord, error) {
	rows, err := m.db.Query(`
		SELECT execution, scenario_code, scenario, source_path, request_count, failure_count,
		       avg_response_time, min_response_time, max_response_time, requests_per_second, failures_per_second,
		       p50, p66, p75, p90, p95, p99
		FROM run_records WHERE report_id = ? ORDER BY execution, scenario_code
	`, reportID)
	if err != nil {
		return nil, fmt.Errorf("failed to get records: %w", err)
	}
	defer rows.Close()

	var records []types.RunRecord
	for rows.Next() {
		var r types.RunRecord
		p := &r.Percentiles
		err := rows.Scan(&r.Execution, &r.ScenarioCode, &r.Scenario, &r.SourcePath, &r.RequestCount, &r.FailureCount,
			&r.AvgResponseTime, &r.MinResponseTime, &r.MaxResponseTime, &r.RequestsPerSecond, &r.FailuresPerSecond,
			&p.P50, &p.P66, &p.P75, &p.P90, &p.P95, &p.P99)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// DeleteReport deletes a report with its records and aggregates
func (m *Manager) DeleteReport(id string) error {
	tx, err := m.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec("DELETE FROM reports WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete report: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", id, ErrNotFound)
	}

	for _, table := range []string{"run_records", "scenario_aggregates"} {
		if _, err := tx.Exec("DELETE FROM "+table+" WHERE report_id = ?", id); err != nil {
			return fmt.Errorf("failed to delete %s of report: %w", table, err)
		}
	}

	return tx.Commit()
}

func nullFloat(v float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: v, Valid: !math.IsNaN(v) && !math.IsInf(v, 0)}
}

func fromNull(n sql.NullFloat64) float64 {
	if !n.Valid {
		return math.NaN()
	}
	return n.Float64
}

// stripWildcards removes LIKE wildcards from a user supplied prefix
func stripWildcards(s string) string {
	return strings.NewReplacer(`%`, ``, `_`, ``).Replace(s)
}
