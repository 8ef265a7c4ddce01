package metrics

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"team-metrics/jira"
)

// Board columns, in display order.
const (
	ColTodo           = "TO DO"
	ColReadyForDev    = "READY FOR DEV"
	ColInProgress     = "IN PROGRESS"
	ColInQA           = "IN QA"
	ColInSignOff      = "IN SIGN OFF"
	ColDone           = "DONE"
	ColReadyFor3A     = "READY FOR 3A"
	ColReadyForSprint = "READY FOR SPRINT"
	OneStar           = "*"
	TwoStars          = "**"
)

var (
	StatusColumnNames  = []string{ColTodo, ColReadyForDev, ColInProgress, ColInQA, ColInSignOff, ColDone}
	BacklogColumnNames = []string{ColReadyFor3A, ColReadyForSprint}
)

// ErrUnknownStatus is returned when a status has no board column.
var ErrUnknownStatus = errors.New("status has no column")

// statusColumns maps upper-cased Jira status names to board columns.
var statusColumns = map[string]string{
	"TO DO":                    ColTodo,
	"BACKLOG":                  ColTodo,
	"ANALYSIS":                 ColTodo,
	"IN REVIEW":                ColTodo,
	"PO REVIEW":                ColTodo,
	"READY FOR 3 AMIGOS":       ColTodo,
	"CONCEPT DEVELOPMENT":      ColTodo,
	"READY FOR SPRINT":         ColTodo,
	"SELECTED FOR DEVELOPMENT": ColReadyForDev,
	"DELETE ME":                ColInProgress,
	"CODE REVIEW":              ColInProgress,
	"IN QA":                    ColInQA,
	"PO APPROVAL":              ColInSignOff,
	"LIVE":                     ColDone,
	"DONE":                     ColDone,
}

var backlogColumns = map[string]string{
	OneStar:  ColReadyFor3A,
	TwoStars: ColReadyForSprint,
}

// A star rating is a run of exactly one or two asterisks not at the start
// of the summary.
var (
	oneStar  = regexp.MustCompile(`[^*]\*([^*]|$)`)
	twoStars = regexp.MustCompile(`[^*]\*\*([^*]|$)`)
)

// CountStatuses counts issues per current status name.
func CountStatuses(issues []jira.RawIssue) map[string]int {
	res := make(map[string]int)
	for _, i := range issues {
		res[i.Fields.Status.Name]++
	}
	return res
}

// CountStars counts backlog issues rated * and ** in their summary. An
// issue matching both patterns counts once, as *.
func CountStars(issues []jira.RawIssue) map[string]int {
	res := map[string]int{OneStar: 0, TwoStars: 0}
	for _, i := range issues {
		summary := i.Fields.Summary
		switch {
		case oneStar.MatchString(summary):
			res[OneStar]++
		case twoStars.MatchString(summary):
			res[TwoStars]++
		}
	}
	return res
}

// StatusColumns folds per-status counts into the board's status columns.
func StatusColumns(counts map[string]int) (map[string]int, error) {
	columns := zeroColumns(StatusColumnNames)
	for status, n := range counts {
		col, ok := statusColumns[strings.ToUpper(status)]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownStatus, status)
		}
		columns[col] += n
	}
	return columns, nil
}

// BacklogColumns folds star counts into the backlog columns.
func BacklogColumns(counts map[string]int) (map[string]int, error) {
	columns := zeroColumns(BacklogColumnNames)
	for stars, n := range counts {
		col, ok := backlogColumns[stars]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownStatus, stars)
		}
		columns[col] += n
	}
	return columns, nil
}

func zeroColumns(names []string) map[string]int {
	columns := make(map[string]int, len(names))
	for _, n := range names {
		columns[n] = 0
	}
	return columns
}

// Inventory is the column count line of the daily board report.
type Inventory struct {
	Columns []string       `json:"columns"`
	Counts  map[string]int `json:"counts"`
}

// Values returns the counts in column order.
func (inv Inventory) Values() []int {
	out := make([]int, len(inv.Columns))
	for i, c := range inv.Columns {
		out[i] = inv.Counts[c]
	}
	return out
}

// CalculateInventory counts sprint issues into status columns and backlog
// issues into star columns.
func CalculateInventory(sprint, backlog []jira.RawIssue) (Inventory, error) {
	statusCounts, err := StatusColumns(CountStatuses(sprint))
	if err != nil {
		return Inventory{}, err
	}
	backlogCounts, err := BacklogColumns(CountStars(backlog))
	if err != nil {
		return Inventory{}, err
	}

	inv := Inventory{
		Columns: append(append([]string{}, BacklogColumnNames...), StatusColumnNames...),
		Counts:  make(map[string]int, len(statusCounts)+len(backlogCounts)),
	}
	for k, v := range statusCounts {
		inv.Counts[k] = v
	}
	for k, v := range backlogCounts {
		inv.Counts[k] = v
	}
	return inv, nil
}
