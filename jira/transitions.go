package jira

import (
	"sort"
	"time"
)

// Transition is a single recorded change of an issue's workflow status.
type Transition struct {
	When time.Time
	To   string
}

// Workflow statuses kept in an issue's timeline.
const (
	StatusSelectedForDevelopment = "Selected for Development"
	StatusInDev                  = "In Dev"
	StatusInProgress             = "In_Progress"
	StatusCodeReview             = "Code Review"
	StatusInQA                   = "In QA"
	StatusInUAT                  = "In UAT"
	StatusDone                   = "Done"
)

var trackedStatuses = map[string]bool{
	StatusSelectedForDevelopment: true,
	StatusInDev:                  true,
	StatusInProgress:             true,
	StatusCodeReview:             true,
	StatusInQA:                   true,
	StatusInUAT:                  true,
	StatusDone:                   true,
}

// IsTrackedStatus reports whether transitions into status are kept.
func IsTrackedStatus(status string) bool {
	return trackedStatuses[status]
}

// ExtractTransitions collects the status changes into tracked statuses,
// oldest first. A nil changelog means the issue was fetched without
// expand=changelog and yields a *ConfigurationError; an empty one yields no
// transitions.
func ExtractTransitions(changelog *Changelog) ([]Transition, error) {
	if changelog == nil {
		return nil, &ConfigurationError{Reason: "issue has no changelog, search with expand=changelog"}
	}

	res := []Transition{}
	for _, history := range changelog.Histories {
		for _, item := range history.Items {
			if item.Field != "status" || !IsTrackedStatus(item.ToString) {
				continue
			}
			when, err := ParseDate(history.Created)
			if err != nil {
				return nil, err
			}
			res = append(res, Transition{When: when, To: item.ToString})
		}
	}
	sortTransitions(res)
	return res, nil
}

func sortTransitions(ts []Transition) {
	sort.SliceStable(ts, func(i, j int) bool {
		return ts[i].When.Before(ts[j].When)
	})
}
