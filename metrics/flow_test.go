package metrics

import (
	"math"
	"testing"
	"time"

	"team-metrics/jira"
)

var base = time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC)

func at(days int) time.Time { return base.AddDate(0, 0, days) }

func TestCalculateFlowMetrics_Empty(t *testing.T) {
	fm := CalculateFlowMetrics(nil, base)
	if fm.TotalIssues != 0 || fm.AvgFlowTimeDays != 0 {
		t.Errorf("empty metrics = %+v", fm)
	}
	if fm.AvgTimeInStatusDays == nil || fm.IssuesByType == nil {
		t.Error("maps should be initialised")
	}
}

func TestCalculateFlowMetrics(t *testing.T) {
	sprint := &jira.Sprint{Name: "S1", StartDate: at(10)}
	issues := []jira.Issue{
		jira.NewIssue(jira.IssueFields{
			Key: "SVP-1", Type: "Story", Created: at(0), StartSprint: sprint,
			Transitions: []jira.Transition{
				{When: at(11), To: jira.StatusInDev},
				{When: at(13), To: jira.StatusInQA},
				{When: at(14), To: jira.StatusDone},
			},
		}),
		jira.NewIssue(jira.IssueFields{
			Key: "SVP-2", Type: "Bug", Summary: "FT crash", Created: at(6),
			Transitions: []jira.Transition{
				{When: at(7), To: jira.StatusInDev},
				{When: at(11), To: jira.StatusDone},
			},
		}),
		jira.NewIssue(jira.IssueFields{
			Key: "SVP-3", Type: "Story", Created: at(8), StartSprint: sprint,
			Transitions: []jira.Transition{{When: at(12), To: jira.StatusInQA}},
		}),
	}

	fm := CalculateFlowMetrics(issues, base)

	if fm.TotalIssues != 3 || fm.CompletedIssues != 2 || fm.FastTrackIssues != 1 {
		t.Errorf("counts = %d/%d/%d, want 3/2/1", fm.TotalIssues, fm.CompletedIssues, fm.FastTrackIssues)
	}
	// only SVP-1 has both a sprint and a Done transition
	if !approx(fm.AvgFlowTimeDays, 4) {
		t.Errorf("AvgFlowTimeDays = %v, want 4", fm.AvgFlowTimeDays)
	}
	// SVP-1: 14 days, SVP-2: 5 days
	if !approx(fm.AvgExtendedFlowTimeDays, 9.5) {
		t.Errorf("AvgExtendedFlowTimeDays = %v, want 9.5", fm.AvgExtendedFlowTimeDays)
	}
	// In Dev: SVP-1 2 days, SVP-2 4 days
	if !approx(fm.AvgTimeInStatusDays[jira.StatusInDev], 3) {
		t.Errorf("avg In Dev = %v, want 3", fm.AvgTimeInStatusDays[jira.StatusInDev])
	}
	// SVP-3 is still in QA and does not count
	if !approx(fm.AvgTimeInStatusDays[jira.StatusInQA], 1) {
		t.Errorf("avg In QA = %v, want 1", fm.AvgTimeInStatusDays[jira.StatusInQA])
	}
	if _, ok := fm.AvgTimeInStatusDays[jira.StatusCodeReview]; ok {
		t.Error("Code Review average present, no issue left it")
	}
	if fm.IssuesByType["Story"] != 2 || fm.IssuesByType["Bug"] != 1 {
		t.Errorf("IssuesByType = %v", fm.IssuesByType)
	}
	if fm.IssuesByLastStatus[jira.StatusDone] != 2 || fm.IssuesByLastStatus[jira.StatusInQA] != 1 {
		t.Errorf("IssuesByLastStatus = %v", fm.IssuesByLastStatus)
	}
}

func approx(got, want float64) bool {
	return math.Abs(got-want) < 1e-9
}
