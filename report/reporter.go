package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"team-metrics/jira"
	"team-metrics/metrics"
)

// WriteInventoryCSV writes the column names and the counts as two CSV rows.
func WriteInventoryCSV(w io.Writer, inv metrics.Inventory) error {
	writer := csv.NewWriter(w)

	values := inv.Values()
	row := make([]string, len(values))
	for i, v := range values {
		row[i] = strconv.Itoa(v)
	}

	if err := writer.Write(inv.Columns); err != nil {
		return err
	}
	if err := writer.Write(row); err != nil {
		return err
	}
	writer.Flush()
	return writer.Error()
}

// WriteIssuesJSON writes issues as an indented JSON array.
func WriteIssuesJSON(w io.Writer, issues []jira.Issue) error {
	if issues == nil {
		issues = []jira.Issue{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(issues)
}

// ExportIssuesJSON saves issues to a JSON file
func ExportIssuesJSON(issues []jira.Issue, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	if err := WriteIssuesJSON(file, issues); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// ReadIssuesJSON reads issues written by WriteIssuesJSON.
func ReadIssuesJSON(r io.Reader) ([]jira.Issue, error) {
	var issues []jira.Issue
	if err := json.NewDecoder(r).Decode(&issues); err != nil {
		return nil, fmt.Errorf("error parsing issues: %w", err)
	}
	return issues, nil
}

// WriteIssuesCSV writes one row per issue with its derived timings in days.
// Absent values are left empty.
func WriteIssuesCSV(w io.Writer, issues []jira.Issue) error {
	writer := csv.NewWriter(w)
	header := []string{"Key", "Type", "Status", "Points", "Fast Track", "First Status", "Last Status",
		"Flow Time (days)", "Extended Flow Time (days)", "First-Last Transition (days)"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, i := range issues {
		points := ""
		if p, ok := i.Points(); ok {
			points = strconv.Itoa(p)
		}
		first, _ := i.FirstStatus()
		last, _ := i.LastStatus()
		row := []string{
			i.Key(), i.Type(), i.Status(), points, strconv.FormatBool(i.IsFastTrack()), first, last,
			optDays(i.FlowTime()), optDays(i.ExtendedFlowTime()), optDays(i.TimeFirstLastTransitions()),
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func optDays(d time.Duration, ok bool) string {
	if !ok {
		return ""
	}
	return fmt.Sprintf("%.2f", d.Hours()/24)
}

// PrintFlowSummary displays a formatted summary
func PrintFlowSummary(w io.Writer, fm metrics.FlowMetrics) {
	fmt.Fprintln(w, "\n"+strings.Repeat("=", 60))
	fmt.Fprintln(w, "ISSUE FLOW REPORT")
	fmt.Fprintln(w, strings.Repeat("=", 60))

	fmt.Fprintf(w, "Total Issues: %d (Completed: %d, Fast Track: %d)\n",
		fm.TotalIssues, fm.CompletedIssues, fm.FastTrackIssues)
	fmt.Fprintf(w, "Avg Flow Time: %.2f days\n", fm.AvgFlowTimeDays)
	fmt.Fprintf(w, "Avg Extended Flow Time: %.2f days\n", fm.AvgExtendedFlowTimeDays)

	fmt.Fprintln(w, "\nAvg Time in Status:")
	for _, status := range metrics.TrackedStatuses {
		if d, ok := fm.AvgTimeInStatusDays[status]; ok {
			fmt.Fprintf(w, "  - %s: %.2f days\n", status, d)
		}
	}

	fmt.Fprintln(w, "\nIssues by Type:")
	types := make([]string, 0, len(fm.IssuesByType))
	for t := range fm.IssuesByType {
		types = append(types, t)
	}
	sort.Strings(types)
	for _, t := range types {
		fmt.Fprintf(w, "  - %s: %d\n", t, fm.IssuesByType[t])
	}

	fmt.Fprintln(w, "\n"+strings.Repeat("=", 60))
}
