/*
Package archive stores generated reports in SQLite.

Each report keeps the run records it was computed from and one row per
scenario aggregate, so a past report can be shown again without the
original result files.

# Schema

  - reports: one row per report run (id, source root, output dir, policy)
  - run_records: the normalized input records of a report
  - scenario_aggregates: the computed aggregates of a report

Undefined values (NaN failure rate or standard deviation) are stored as
NULL and read back as NaN.

# Usage

	mgr, err := archive.NewManager(config.DatabasePath)
	if err != nil {
		return err
	}
	defer mgr.Close()

	rep := &archive.Report{SourceRoot: root}
	if err := mgr.SaveReport(rep, records, aggs); err != nil {
		return err
	}

Reports can be looked up by full ID or by any unique ID prefix.
*/
package archive
