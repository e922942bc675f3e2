/*
Package loadgen provides a small built-in load generator whose output the
report pipeline can ingest directly.

# Overview

A run simulates a fixed number of users. Each user repeatedly:
  - Picks a task with probability proportional to its weight
  - Resolves {{randint MIN MAX}} placeholders in the task URL and body
  - Issues the request and records duration, content size and outcome
  - Sleeps for a uniform wait time between wait_time.min and wait_time.max

Users are started at the spawn rate (users per second) and all stop when the
duration elapses or the context is cancelled.

# Architecture

  1. Profile (profile.go): Tasks and wait time, loaded from YAML or JSONC
  2. Runner (runner.go): User goroutines under an errgroup, rate-limited spawn
  3. Collector (stats.go): Mutex-guarded per-entry statistics
  4. Metrics (metrics.go): Optional Prometheus endpoint with live counters
  5. Stats file (csv.go): Per-entry rows plus the Aggregated row

# Failures

A request fails on a transport error or a response status of 400 and above.
Requests interrupted by shutdown are dropped rather than counted.

# Stats File

<prefix>_stats.csv uses the column layout of Locust stats files:

	Type,Name,Request Count,Failure Count,Median Response Time,
	Average Response Time,Min Response Time,Max Response Time,
	Average Content Size,Requests/s,Failures/s,50%,...,100%

Median, min, max and percentiles are whole milliseconds.
*/
package loadgen
