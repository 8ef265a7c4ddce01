package report

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"team-metrics/jira"
	"team-metrics/metrics"
)

var start = time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC)

func sampleIssues() []jira.Issue {
	points := 3
	return []jira.Issue{
		jira.NewIssue(jira.IssueFields{
			Key: "SVP-1", Type: "Story", Status: "Done", StatusCategory: "Done",
			Created: start, Points: &points, Labels: []string{"FT"},
			StartSprint: &jira.Sprint{Name: "S1", StartDate: start.AddDate(0, 0, 2)},
			Transitions: []jira.Transition{
				{When: start.AddDate(0, 0, 3), To: jira.StatusInDev},
				{When: start.AddDate(0, 0, 5), To: jira.StatusDone},
			},
		}),
		jira.NewIssue(jira.IssueFields{
			Key: "SVP-2", Type: "Bug", Status: "To Do", StatusCategory: "To Do", Created: start,
		}),
	}
}

func TestWriteInventoryCSV(t *testing.T) {
	inv := metrics.Inventory{
		Columns: []string{metrics.ColReadyFor3A, metrics.ColTodo, metrics.ColDone},
		Counts:  map[string]int{metrics.ColReadyFor3A: 2, metrics.ColDone: 7},
	}

	var buf bytes.Buffer
	if err := WriteInventoryCSV(&buf, inv); err != nil {
		t.Fatalf("WriteInventoryCSV error: %v", err)
	}

	want := "READY FOR 3A,TO DO,DONE\n2,0,7\n"
	if buf.String() != want {
		t.Errorf("output = %q, want %q", buf.String(), want)
	}
}

func TestIssuesJSON_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "issues.json")
	if err := ExportIssuesJSON(sampleIssues(), path); err != nil {
		t.Fatalf("ExportIssuesJSON error: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	issues, err := ReadIssuesJSON(f)
	if err != nil {
		t.Fatalf("ReadIssuesJSON error: %v", err)
	}
	if len(issues) != 2 || issues[0].Key() != "SVP-1" {
		t.Fatalf("issues = %v", issues)
	}
	if d, ok := issues[0].FlowTime(); !ok || d != 3*24*time.Hour {
		t.Errorf("FlowTime() = %v, %v; want 72h", d, ok)
	}
}

func TestWriteIssuesJSON_Empty(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteIssuesJSON(&buf, nil); err != nil {
		t.Fatalf("WriteIssuesJSON error: %v", err)
	}
	if strings.TrimSpace(buf.String()) != "[]" {
		t.Errorf("output = %q, want []", buf.String())
	}
}

func TestReadIssuesJSON_Invalid(t *testing.T) {
	if _, err := ReadIssuesJSON(strings.NewReader("{")); err == nil {
		t.Error("expected error")
	}
}

func TestWriteIssuesCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteIssuesCSV(&buf, sampleIssues()); err != nil {
		t.Fatalf("WriteIssuesCSV error: %v", err)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(rows))
	}

	done := rows[1]
	if done[0] != "SVP-1" || done[3] != "3" || done[4] != "true" || done[5] != jira.StatusInDev || done[6] != jira.StatusDone {
		t.Errorf("row = %v", done)
	}
	if done[7] != "3.00" || done[8] != "5.00" || done[9] != "2.00" {
		t.Errorf("timings = %v", done[7:])
	}

	open := rows[2]
	if open[3] != "" || open[5] != "" || open[7] != "" || open[8] != "" || open[9] != "" {
		t.Errorf("absent values should be empty: %v", open)
	}
}

func TestPrintFlowSummary(t *testing.T) {
	var buf bytes.Buffer
	PrintFlowSummary(&buf, metrics.CalculateFlowMetrics(sampleIssues(), start))

	out := buf.String()
	for _, want := range []string{"Total Issues: 2 (Completed: 1, Fast Track: 1)", "Avg Flow Time: 3.00 days", "In Dev: 2.00 days", "Bug: 1"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
}
