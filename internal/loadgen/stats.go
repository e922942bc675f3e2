package loadgen

import (
	"sort"
	"sync"
	"time"
)

// Stats holds the results of one request entry (method and name)
type Stats struct {
	Method           string
	Name             string
	NumRequests      int64
	NumFailures      int64
	Durations        []float64 // Milliseconds, for percentile calculation
	TotalDurationMs  float64
	MinDurationMs    float64
	MaxDurationMs    float64
	TotalContentSize int64
}

// NewStats creates a new Stats instance
func NewStats(method, name string) *Stats {
	return &Stats{
		Method:        method,
		Name:          name,
		Durations:     make([]float64, 0, 1000),
		MinDurationMs: -1,
		MaxDurationMs: -1,
	}
}

// AddResult adds a request result to the statistics
func (s *Stats) AddResult(durationMs float64, contentSize int64, failed bool) {
	s.NumRequests++
	if failed {
		s.NumFailures++
	}
	s.TotalDurationMs += durationMs
	s.TotalContentSize += contentSize
	s.Durations = append(s.Durations, durationMs)

	if s.MinDurationMs == -1 || durationMs < s.MinDurationMs {
		s.MinDurationMs = durationMs
	}
	if s.MaxDurationMs == -1 || durationMs > s.MaxDurationMs {
		s.MaxDurationMs = durationMs
	}
}

// merge folds other into s
func (s *Stats) merge(other *Stats) {
	s.NumRequests += other.NumRequests
	s.NumFailures += other.NumFailures
	s.TotalDurationMs += other.TotalDurationMs
	s.TotalContentSize += other.TotalContentSize
	s.Durations = append(s.Durations, other.Durations...)

	if other.MinDurationMs != -1 && (s.MinDurationMs == -1 || other.MinDurationMs < s.MinDurationMs) {
		s.MinDurationMs = other.MinDurationMs
	}
	if other.MaxDurationMs > s.MaxDurationMs {
		s.MaxDurationMs = other.MaxDurationMs
	}
}

// AvgDurationMs returns the average duration in milliseconds
func (s *Stats) AvgDurationMs() float64 {
	if s.NumRequests == 0 {
		return 0
	}
	return s.TotalDurationMs / float64(s.NumRequests)
}

// AvgContentSize returns the average response size in bytes
func (s *Stats) AvgContentSize() float64 {
	if s.NumRequests == 0 {
		return 0
	}
	return float64(s.TotalContentSize) / float64(s.NumRequests)
}

// Min returns the minimum duration, or 0 if no results
func (s *Stats) Min() float64 {
	if s.MinDurationMs == -1 {
		return 0
	}
	return s.MinDurationMs
}

// Max returns the maximum duration, or 0 if no results
func (s *Stats) Max() float64 {
	if s.MaxDurationMs == -1 {
		return 0
	}
	return s.MaxDurationMs
}

// Percentile calculates the percentile value (p should be between 0 and 100)
func (s *Stats) Percentile(p float64) float64 {
	if len(s.Durations) == 0 {
		return 0
	}

	sorted := make([]float64, len(s.Durations))
	copy(sorted, s.Durations)
	sort.Float64s(sorted)

	index := (p / 100.0) * float64(len(sorted)-1)
	lower := int(index)
	upper := lower + 1

	if upper >= len(sorted) {
		return sorted[len(sorted)-1]
	}

	// Linear interpolation between lower and upper
	weight := index - float64(lower)
	return sorted[lower]*(1-weight) + sorted[upper]*weight
}

// RequestsPerSecond returns the request rate over elapsed
func (s *Stats) RequestsPerSecond(elapsed time.Duration) float64 {
	if elapsed <= 0 {
		return 0
	}
	return float64(s.NumRequests) / elapsed.Seconds()
}

// FailuresPerSecond returns the failure rate over elapsed
func (s *Stats) FailuresPerSecond(elapsed time.Duration) float64 {
	if elapsed <= 0 {
		return 0
	}
	return float64(s.NumFailures) / elapsed.Seconds()
}

// clone returns a deep copy
func (s *Stats) clone() *Stats {
	c := *s
	c.Durations = make([]float64, len(s.Durations))
	copy(c.Durations, s.Durations)
	return &c
}

type entryKey struct {
	method string
	name   string
}

// Collector gathers per-entry statistics from concurrent users
type Collector struct {
	mu      sync.Mutex
	entries map[entryKey]*Stats
}

// NewCollector creates an empty collector
func NewCollector() *Collector {
	return &Collector{entries: make(map[entryKey]*Stats)}
}

// Record adds one request result
func (c *Collector) Record(method, name string, durationMs float64, contentSize int64, failed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := entryKey{method: method, name: name}
	s, ok := c.entries[key]
	if !ok {
		s = NewStats(method, name)
		c.entries[key] = s
	}
	s.AddResult(durationMs, contentSize, failed)
}

// Snapshot returns a copy of every entry sorted by name then method,
// followed by the aggregate of all entries.
func (c *Collector) Snapshot() ([]*Stats, *Stats) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entries := make([]*Stats, 0, len(c.entries))
	total := NewStats("", AggregatedName)
	for _, s := range c.entries {
		entries = append(entries, s.clone())
		total.merge(s)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Name != entries[j].Name {
			return entries[i].Name < entries[j].Name
		}
		return entries[i].Method < entries[j].Method
	})
	return entries, total
}
