package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/studiowebux/loadreport/internal/archive"
	"github.com/studiowebux/loadreport/internal/report"
)

const timeLayout = "2006-01-02 15:04:05"

// HistoryOptions selects the archive and where output goes
type HistoryOptions struct {
	DatabasePath string
	Limit        int
	Out          io.Writer
}

// HistoryList prints archived reports, newest first
func HistoryList(opts HistoryOptions) error {
	mgr, err := archive.NewManager(opts.DatabasePath)
	if err != nil {
		return err
	}
	defer mgr.Close()

	reports, err := mgr.ListReports(opts.Limit)
	if err != nil {
		return err
	}
	if len(reports) == 0 {
		fmt.Fprintln(opts.Out, "No archived reports")
		return nil
	}

	fmt.Fprintln(opts.Out, report.RenderTable(reportListTable(reports)))
	return nil
}

func reportListTable(reports []*archive.Report) report.Table {
	t := report.Table{
		Title:  "Archived reports",
		Header: []string{"ID", "Created", "Source", "Records", "Scenarios", "Unknown scenarios"},
	}
	for _, r := range reports {
		t.Rows = append(t.Rows, []string{
			r.ID,
			r.CreatedAt.Local().Format(timeLayout),
			r.SourceRoot,
			strconv.Itoa(r.RecordCount),
			strconv.Itoa(r.ScenarioCount),
			r.UnknownPolicy,
		})
	}
	return t
}

// HistoryShow prints the executive summary of an archived report. With an
// empty id on a terminal, the report is picked from a list.
func HistoryShow(opts HistoryOptions, id string) error {
	mgr, err := archive.NewManager(opts.DatabasePath)
	if err != nil {
		return err
	}
	defer mgr.Close()

	if id == "" {
		if !isInteractive() {
			return fmt.Errorf("report ID is required")
		}
		reports, err := mgr.ListReports(opts.Limit)
		if err != nil {
			return err
		}
		if id, err = selectReport(reports); err != nil {
			return err
		}
	}

	rep, err := mgr.GetReport(id)
	if err != nil {
		return err
	}
	aggs, err := mgr.GetAggregates(rep.ID)
	if err != nil {
		return err
	}

	fmt.Fprintf(opts.Out, "Report %s\n", rep.ID)
	fmt.Fprintf(opts.Out, "Created: %s\n", rep.CreatedAt.Local().Format(timeLayout))
	fmt.Fprintf(opts.Out, "Source:  %s\n", rep.SourceRoot)
	if rep.OutputDir != "" {
		fmt.Fprintf(opts.Out, "Output:  %s\n", rep.OutputDir)
	}
	fmt.Fprintln(opts.Out)
	report.Print(opts.Out, []report.Table{report.ExecutiveTable(aggs)}, nil)
	return nil
}

// HistoryDelete removes an archived report, asking first on a terminal unless force is set
func HistoryDelete(opts HistoryOptions, id string, force bool) error {
	mgr, err := archive.NewManager(opts.DatabasePath)
	if err != nil {
		return err
	}
	defer mgr.Close()

	rep, err := mgr.GetReport(id)
	if err != nil {
		return err
	}

	if !force && isInteractive() {
		fmt.Fprintf(opts.Out, "Delete report %s (%s)? [y/N]: ", rep.ID, rep.CreatedAt.Local().Format(timeLayout))
		var response string
		fmt.Scanln(&response)
		response = strings.ToLower(strings.TrimSpace(response))
		if response != "y" && response != "yes" {
			return fmt.Errorf("deletion cancelled by user")
		}
	}

	if err := mgr.DeleteReport(rep.ID); err != nil {
		return err
	}
	fmt.Fprintf(opts.Out, "Deleted report %s\n", rep.ID)
	return nil
}
