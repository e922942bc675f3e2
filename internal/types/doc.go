/*
Package types defines the data structures shared by the ingest, aggregation,
report and archive packages.

# Records

RunRecord:
  - One scenario's statistics from one execution
  - Parsed from a <scenario>_stats.csv file
  - Immutable after ingestion; only aggregated away

Percentiles:
  - Latency percentiles p50, p66, p75, p90, p95, p99 (ms)
  - Non-decreasing as the rank increases

# Aggregates

ScenarioAggregate:
  - Totals (requests, failures) and failure rate
  - Mean and sample standard deviation of response time and throughput
  - Mean of every latency percentile

Standard deviations and the failure rate are NaN when undefined (single
record groups, zero requests). Report writers render NaN as an empty cell.

# Columns

The Col* constants name the CSV columns written by the load-testing tool.
RequiredColumns lists the ones a scenario file must carry.
*/
package types
