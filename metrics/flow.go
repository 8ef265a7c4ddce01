package metrics

import (
	"time"

	"team-metrics/jira"
)

// FlowMetrics summarises the timelines of a set of issues.
type FlowMetrics struct {
	TotalIssues             int                `json:"total_issues"`
	CompletedIssues         int                `json:"completed_issues"`
	FastTrackIssues         int                `json:"fast_track_issues"`
	AvgFlowTimeDays         float64            `json:"avg_flow_time_days"`
	AvgExtendedFlowTimeDays float64            `json:"avg_extended_flow_time_days"`
	AvgTimeInStatusDays     map[string]float64 `json:"avg_time_in_status_days"`
	IssuesByType            map[string]int     `json:"issues_by_type"`
	IssuesByLastStatus      map[string]int     `json:"issues_by_last_status"`
	GeneratedAt             time.Time          `json:"generated_at"`
}

// TrackedStatuses is the workflow order used for time-in-status averages.
var TrackedStatuses = []string{
	jira.StatusSelectedForDevelopment,
	jira.StatusInDev,
	jira.StatusInProgress,
	jira.StatusCodeReview,
	jira.StatusInQA,
	jira.StatusInUAT,
}

// CalculateFlowMetrics computes flow averages from issue timelines. Time in
// a status is averaged over the issues that left it; a zero TimeIn means the
// issue never entered the status or is still in it, and is not counted.
func CalculateFlowMetrics(issues []jira.Issue, now time.Time) FlowMetrics {
	metrics := FlowMetrics{
		AvgTimeInStatusDays: make(map[string]float64),
		IssuesByType:        make(map[string]int),
		IssuesByLastStatus:  make(map[string]int),
		GeneratedAt:         now,
	}

	if len(issues) == 0 {
		return metrics
	}

	metrics.TotalIssues = len(issues)
	var totalFlow, totalExtended float64
	var flowCount, extendedCount int
	statusTotals := make(map[string]float64)
	statusCounts := make(map[string]int)

	for _, issue := range issues {
		metrics.IssuesByType[issue.Type()]++
		if last, ok := issue.LastStatus(); ok {
			metrics.IssuesByLastStatus[last]++
		}
		if issue.IsFastTrack() {
			metrics.FastTrackIssues++
		}

		if d, ok := issue.ExtendedFlowTime(); ok {
			metrics.CompletedIssues++
			totalExtended += days(d)
			extendedCount++
		}
		if d, ok := issue.FlowTime(); ok {
			totalFlow += days(d)
			flowCount++
		}

		for _, status := range TrackedStatuses {
			if d := issue.TimeIn(status); d > 0 {
				statusTotals[status] += days(d)
				statusCounts[status]++
			}
		}
	}

	if flowCount > 0 {
		metrics.AvgFlowTimeDays = totalFlow / float64(flowCount)
	}
	if extendedCount > 0 {
		metrics.AvgExtendedFlowTimeDays = totalExtended / float64(extendedCount)
	}
	for status, n := range statusCounts {
		metrics.AvgTimeInStatusDays[status] = statusTotals[status] / float64(n)
	}

	return metrics
}

func days(d time.Duration) float64 {
	return d.Hours() / 24
}
