package jira

import (
	"regexp"
	"sort"
	"time"
)

// Sprint is one sprint an issue was placed in.
type Sprint struct {
	Name      string
	StartDate time.Time
}

var (
	sprintNamePattern  = regexp.MustCompile(`name=([^,]+)`)
	sprintStartPattern = regexp.MustCompile(`startDate=([^,]+)`)
)

// ParseSprint extracts the name and start date from the greenhopper
// descriptor string Jira Server puts in the sprint field, e.g.
//
//	com.atlassian.greenhopper.service.sprint.Sprint@2deedb28[id=904,...,name=SVP Sprint 28,goal=,startDate=2018-12-12T13:24:22.249Z,...]
//
// The enclosing format is Java's toString output and is not documented, so
// only the two fragments are searched for. A sprint name containing a comma
// is cut at the comma.
func ParseSprint(s string) (Sprint, error) {
	name := sprintNamePattern.FindStringSubmatch(s)
	if name == nil {
		return Sprint{}, &FormatError{Field: "sprint", Value: s, Reason: "no name= fragment"}
	}
	start := sprintStartPattern.FindStringSubmatch(s)
	if start == nil {
		return Sprint{}, &FormatError{Field: "sprint", Value: s, Reason: "no startDate= fragment"}
	}
	when, err := ParseDate(start[1])
	if err != nil {
		return Sprint{}, err
	}
	return Sprint{Name: name[1], StartDate: when}, nil
}

// ResolveSprints returns the earliest- and latest-starting sprint among raws,
// or nil, nil when the issue was never in a sprint.
func ResolveSprints(raws []RawSprint) (*Sprint, *Sprint, error) {
	if len(raws) == 0 {
		return nil, nil, nil
	}
	sprints := make([]Sprint, 0, len(raws))
	for _, raw := range raws {
		s, err := raw.Parse()
		if err != nil {
			return nil, nil, err
		}
		sprints = append(sprints, s)
	}
	sort.SliceStable(sprints, func(i, j int) bool {
		return sprints[i].StartDate.Before(sprints[j].StartDate)
	})
	first, last := sprints[0], sprints[len(sprints)-1]
	return &first, &last, nil
}
