package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/studiowebux/loadreport/internal/types"
	"go.uber.org/zap"
)

const (
	// DefaultExecutionGlob matches execution directories under the input root
	DefaultExecutionGlob = "execucao*"
	// DefaultScenarioGlob matches scenario files inside an execution directory
	DefaultScenarioGlob = "res*_stats.csv"
)

// scenarioCodePattern validates the leading token of a scenario file name
var scenarioCodePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9-]*$`)

// Options controls how input files are discovered
type Options struct {
	ExecutionGlob string
	ScenarioGlob  string
}

func (o Options) withDefaults() Options {
	if o.ExecutionGlob == "" {
		o.ExecutionGlob = DefaultExecutionGlob
	}
	if o.ScenarioGlob == "" {
		o.ScenarioGlob = DefaultScenarioGlob
	}
	return o
}

// Source is one scenario file with the identity encoded in its location
type Source struct {
	Execution    string
	ScenarioCode string
	Path         string
}

// Loader discovers and parses scenario files
type Loader struct {
	opts   Options
	logger *zap.Logger
}

// NewLoader creates a loader; a nil logger discards log output
func NewLoader(opts Options, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{
		opts:   opts.withDefaults(),
		logger: logger.With(zap.String("mod", "ingest")),
	}
}

// Load reads every scenario file under root. Any failure aborts the whole load.
func (l *Loader) Load(root string) ([]types.RunRecord, error) {
	sources, err := l.Discover(root)
	if err != nil {
		return nil, err
	}

	records := make([]types.RunRecord, 0, len(sources))
	for _, src := range sources {
		record, err := ParseFile(src.Path)
		if err != nil {
			return nil, err
		}
		record.Execution = src.Execution
		record.ScenarioCode = src.ScenarioCode
		records = append(records, record)

		l.logger.Debug("loaded scenario file",
			zap.String("execution", src.Execution),
			zap.String("scenario", src.ScenarioCode),
			zap.String("path", src.Path),
			zap.Int64("requests", record.RequestCount))
	}

	l.logger.Info("ingested scenario files", zap.Int("files", len(records)), zap.String("root", root))
	return records, nil
}

// Discover lists scenario files under root, either from the manifest or by
// scanning <root>/<execution>/<scenario>_stats.csv. Results are sorted by
// execution, then file name.
func (l *Loader) Discover(root string) ([]Source, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, &IOError{Path: root, Err: err}
	}
	if !info.IsDir() {
		return nil, &IOError{Path: root, Err: fmt.Errorf("not a directory")}
	}

	manifest, err := loadManifest(root)
	if err != nil {
		return nil, err
	}
	if manifest != nil {
		sources := manifest.sources(root)
		if len(sources) == 0 {
			return nil, fmt.Errorf("%s lists no files: %w", filepath.Join(root, ManifestFile), ErrMissingData)
		}
		l.logger.Debug("using manifest", zap.Int("files", len(sources)))
		return sources, nil
	}

	execDirs, err := filepath.Glob(filepath.Join(root, l.opts.ExecutionGlob))
	if err != nil {
		return nil, fmt.Errorf("invalid execution pattern %q: %w", l.opts.ExecutionGlob, err)
	}
	sort.Strings(execDirs)

	var sources []Source
	for _, dir := range execDirs {
		info, err := os.Stat(dir)
		if err != nil {
			return nil, &IOError{Path: dir, Err: err}
		}
		if !info.IsDir() {
			continue
		}

		files, err := filepath.Glob(filepath.Join(dir, l.opts.ScenarioGlob))
		if err != nil {
			return nil, fmt.Errorf("invalid scenario pattern %q: %w", l.opts.ScenarioGlob, err)
		}
		sort.Strings(files)

		for _, file := range files {
			code, err := ScenarioCodeFromPath(file)
			if err != nil {
				return nil, err
			}
			sources = append(sources, Source{
				Execution:    filepath.Base(dir),
				ScenarioCode: code,
				Path:         file,
			})
		}
	}

	if len(sources) == 0 {
		return nil, fmt.Errorf("%s: %w", root, ErrMissingData)
	}
	return sources, nil
}

// ScenarioCodeFromPath returns the file name's leading token before the first underscore
func ScenarioCodeFromPath(path string) (string, error) {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	code, _, _ := strings.Cut(stem, "_")
	if !scenarioCodePattern.MatchString(code) {
		return "", &SchemaError{Path: path, Reason: fmt.Sprintf("cannot derive scenario code from file name (got %q)", code)}
	}
	return code, nil
}

// ParseFile parses one scenario file into a run record
func ParseFile(path string) (types.RunRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return types.RunRecord{}, &IOError{Path: path, Err: err}
	}
	defer f.Close()

	return Parse(f, path)
}

// Parse reads one scenario table. The record comes from the "Aggregated" row
// when the table has a Name column, otherwise from its single data row.
func Parse(r io.Reader, path string) (types.RunRecord, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			return types.RunRecord{}, &SchemaError{Path: path, Reason: "malformed CSV", Err: err}
		}
		return types.RunRecord{}, &IOError{Path: path, Err: err}
	}
	if len(rows) == 0 {
		return types.RunRecord{}, &SchemaError{Path: path, Reason: "file is empty"}
	}

	header := rows[0]
	index := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		index[name] = i
	}
	for _, col := range types.RequiredColumns {
		if _, ok := index[col]; !ok {
			return types.RunRecord{}, &SchemaError{Path: path, Column: col, Reason: "missing required column"}
		}
	}

	data := rows[1:]
	rowNum, err := selectRow(data, index, path)
	if err != nil {
		return types.RunRecord{}, err
	}

	p := rowParser{path: path, row: rowNum + 1, cells: data[rowNum], index: index}
	record := types.RunRecord{
		SourcePath:        path,
		RequestCount:      p.count(types.ColRequestCount),
		FailureCount:      p.count(types.ColFailureCount),
		AvgResponseTime:   p.number(types.ColAvgResponseTime),
		MinResponseTime:   p.number(types.ColMinResponseTime),
		MaxResponseTime:   p.number(types.ColMaxResponseTime),
		RequestsPerSecond: p.number(types.ColRequestsPerSecond),
		FailuresPerSecond: p.number(types.ColFailuresPerSecond),
		Percentiles: types.Percentiles{
			P50: p.number(types.ColP50),
			P66: p.number(types.ColP66),
			P75: p.number(types.ColP75),
			P90: p.number(types.ColP90),
			P95: p.number(types.ColP95),
			P99: p.number(types.ColP99),
		},
	}
	if p.err != nil {
		return types.RunRecord{}, p.err
	}

	if err := validate(record, path, rowNum+1); err != nil {
		return types.RunRecord{}, err
	}
	return record, nil
}

// selectRow picks the data row that represents the whole file
func selectRow(data [][]string, index map[string]int, path string) (int, error) {
	if len(data) == 0 {
		return 0, &SchemaError{Path: path, Reason: "no data rows"}
	}

	if nameCol, ok := index[types.ColName]; ok {
		for i, row := range data {
			if strings.TrimSpace(row[nameCol]) == types.AggregatedRowName {
				return i, nil
			}
		}
	}

	if len(data) != 1 {
		return 0, &SchemaError{
			Path:   path,
			Reason: fmt.Sprintf("%d data rows and no %q row; cannot pick one record", len(data), types.AggregatedRowName),
		}
	}
	return 0, nil
}

func validate(record types.RunRecord, path string, row int) error {
	if record.FailureCount > record.RequestCount {
		return &SchemaError{
			Path:   path,
			Row:    row,
			Column: types.ColFailureCount,
			Reason: fmt.Sprintf("failure count %d exceeds request count %d", record.FailureCount, record.RequestCount),
		}
	}
	if !record.Percentiles.IsMonotonic() {
		return &SchemaError{
			Path:   path,
			Row:    row,
			Reason: fmt.Sprintf("latency percentiles decrease with rank: %v", record.Percentiles.Values()),
		}
	}
	return nil
}

// rowParser converts cells of one row, keeping the first error
type rowParser struct {
	path  string
	row   int
	cells []string
	index map[string]int
	err   error
}

func (p *rowParser) cell(col string) string {
	return strings.TrimSpace(p.cells[p.index[col]])
}

func (p *rowParser) fail(col, reason string, err error) {
	if p.err == nil {
		p.err = &SchemaError{Path: p.path, Row: p.row, Column: col, Reason: reason, Err: err}
	}
}

// number parses a non-negative finite float
func (p *rowParser) number(col string) float64 {
	raw := p.cell(col)
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		p.fail(col, fmt.Sprintf("not a number: %q", raw), nil)
		return 0
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		p.fail(col, fmt.Sprintf("not a finite number: %q", raw), nil)
		return 0
	}
	if v < 0 {
		p.fail(col, fmt.Sprintf("negative value %v", v), nil)
		return 0
	}
	return v
}

// count parses a non-negative integer, accepting integral floats such as "100.0"
func (p *rowParser) count(col string) int64 {
	raw := p.cell(col)
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		if n < 0 {
			p.fail(col, fmt.Sprintf("negative count %d", n), nil)
			return 0
		}
		return n
	}

	v := p.number(col)
	if p.err != nil {
		return 0
	}
	if v != math.Trunc(v) || v > math.MaxInt64 {
		p.fail(col, fmt.Sprintf("not an integer count: %q", raw), nil)
		return 0
	}
	return int64(v)
}
