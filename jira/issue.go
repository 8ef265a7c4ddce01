package jira

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// IssueFields is the explicit field list an Issue is built from.
type IssueFields struct {
	Key            string
	Summary        string
	Created        time.Time
	Type           string
	Status         string
	StatusCategory string
	Resolution     *string
	Points         *int
	Labels         []string
	StartSprint    *Sprint
	EndSprint      *Sprint
	Transitions    []Transition
}

// Issue is one tracked work item and its status timeline. It is immutable:
// NewIssue copies its input and no method changes the stored state.
type Issue struct {
	f IssueFields
}

// NewIssue builds an Issue from f. Labels are deduplicated and sorted,
// transitions are ordered by time with ties kept in input order.
func NewIssue(f IssueFields) Issue {
	c := f.clone()
	c.Labels = labelSet(c.Labels)
	sortTransitions(c.Transitions)
	return Issue{f: c}
}

func (f IssueFields) clone() IssueFields {
	c := f
	if f.Resolution != nil {
		r := *f.Resolution
		c.Resolution = &r
	}
	if f.Points != nil {
		p := *f.Points
		c.Points = &p
	}
	if f.StartSprint != nil {
		s := *f.StartSprint
		c.StartSprint = &s
	}
	if f.EndSprint != nil {
		s := *f.EndSprint
		c.EndSprint = &s
	}
	c.Labels = append([]string(nil), f.Labels...)
	c.Transitions = append([]Transition(nil), f.Transitions...)
	return c
}

func labelSet(labels []string) []string {
	seen := make(map[string]bool, len(labels))
	out := make([]string, 0, len(labels))
	for _, l := range labels {
		if seen[l] {
			continue
		}
		seen[l] = true
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}

// Fields returns a copy of the issue's fields.
func (i Issue) Fields() IssueFields { return i.f.clone() }

// Plain field accessors. Key is the Jira issue key, e.g. SVP-101.
func (i Issue) Key() string            { return i.f.Key }
func (i Issue) Summary() string        { return i.f.Summary }
func (i Issue) Created() time.Time     { return i.f.Created }
func (i Issue) Type() string           { return i.f.Type }
func (i Issue) Status() string         { return i.f.Status }
func (i Issue) StatusCategory() string { return i.f.StatusCategory }

// Resolution returns the resolution name, if the issue has one.
func (i Issue) Resolution() (string, bool) {
	if i.f.Resolution == nil {
		return "", false
	}
	return *i.f.Resolution, true
}

// Points returns the story points, if estimated.
func (i Issue) Points() (int, bool) {
	if i.f.Points == nil {
		return 0, false
	}
	return *i.f.Points, true
}

// StartSprint returns the earliest sprint the issue was placed in.
func (i Issue) StartSprint() (Sprint, bool) {
	if i.f.StartSprint == nil {
		return Sprint{}, false
	}
	return *i.f.StartSprint, true
}

// EndSprint returns the latest sprint the issue was placed in.
func (i Issue) EndSprint() (Sprint, bool) {
	if i.f.EndSprint == nil {
		return Sprint{}, false
	}
	return *i.f.EndSprint, true
}

// HasLabel reports whether label is in the issue's label set.
func (i Issue) HasLabel(label string) bool {
	n := sort.SearchStrings(i.f.Labels, label)
	return n < len(i.f.Labels) && i.f.Labels[n] == label
}

// Labels returns a sorted copy of the label set.
func (i Issue) Labels() []string {
	return append([]string(nil), i.f.Labels...)
}

// Transitions returns a copy of the status transitions in time order.
func (i Issue) Transitions() []Transition {
	return append([]Transition(nil), i.f.Transitions...)
}

// WhenTransitionedTo returns the time of the first transition into status.
// A status entered again later (a reopened issue) does not move it.
func (i Issue) WhenTransitionedTo(status string) (time.Time, bool) {
	for _, t := range i.f.Transitions {
		if t.To == status {
			return t.When, true
		}
	}
	return time.Time{}, false
}

// FlowTime is the time from the start of the issue's first sprint to its
// first Done transition.
func (i Issue) FlowTime() (time.Duration, bool) {
	if i.f.StartSprint == nil {
		return 0, false
	}
	done, ok := i.WhenTransitionedTo(StatusDone)
	if !ok {
		return 0, false
	}
	return done.Sub(i.f.StartSprint.StartDate), true
}

// ExtendedFlowTime is the time from creation to the first Done transition.
func (i Issue) ExtendedFlowTime() (time.Duration, bool) {
	done, ok := i.WhenTransitionedTo(StatusDone)
	if !ok {
		return 0, false
	}
	return done.Sub(i.f.Created), true
}

// TimeIn returns how long the issue stayed in status after first entering
// it, measured to the next transition. It is zero both when status was never
// entered and when it is the last transition; callers cannot tell those apart.
func (i Issue) TimeIn(status string) time.Duration {
	ts := i.f.Transitions
	for idx, t := range ts {
		if t.To != status {
			continue
		}
		if idx >= len(ts)-1 {
			return 0
		}
		return ts[idx+1].When.Sub(t.When)
	}
	return 0
}

func (i Issue) FirstStatus() (string, bool) {
	if len(i.f.Transitions) == 0 {
		return "", false
	}
	return i.f.Transitions[0].To, true
}

func (i Issue) LastStatus() (string, bool) {
	if len(i.f.Transitions) == 0 {
		return "", false
	}
	return i.f.Transitions[len(i.f.Transitions)-1].To, true
}

func (i Issue) TimeFirstLastTransitions() (time.Duration, bool) {
	ts := i.f.Transitions
	if len(ts) == 0 {
		return 0, false
	}
	return ts[len(ts)-1].When.Sub(ts[0].When), true
}

// IsFastTrack reports whether the issue is flagged for expedited handling,
// by an FT label or a summary starting with FT.
func (i Issue) IsFastTrack() bool {
	return i.HasLabel("FT") || strings.HasPrefix(i.f.Summary, "FT")
}

// Wire form: snake_case keys, every timestamp in whole epoch seconds.

type sprintJSON struct {
	Name      string `json:"name"`
	StartDate int64  `json:"start_date"`
}

type transitionJSON struct {
	When int64  `json:"when"`
	To   string `json:"to"`
}

type issueJSON struct {
	Key            string           `json:"key"`
	Summary        string           `json:"summary"`
	Created        int64            `json:"created"`
	Type           string           `json:"type"`
	Status         string           `json:"status"`
	StatusCategory string           `json:"status_category"`
	Resolution     *string          `json:"resolution"`
	Points         *int             `json:"points"`
	Transitions    []transitionJSON `json:"transitions"`
	StartSprint    *sprintJSON      `json:"start_sprint"`
	EndSprint      *sprintJSON      `json:"end_sprint"`
	Labels         []string         `json:"labels"`
}

func sprintToJSON(s *Sprint) *sprintJSON {
	if s == nil {
		return nil
	}
	return &sprintJSON{Name: s.Name, StartDate: s.StartDate.Unix()}
}

func sprintFromJSON(s *sprintJSON) *Sprint {
	if s == nil {
		return nil
	}
	return &Sprint{Name: s.Name, StartDate: time.Unix(s.StartDate, 0).UTC()}
}

func (i Issue) MarshalJSON() ([]byte, error) {
	out := issueJSON{
		Key:            i.f.Key,
		Summary:        i.f.Summary,
		Created:        i.f.Created.Unix(),
		Type:           i.f.Type,
		Status:         i.f.Status,
		StatusCategory: i.f.StatusCategory,
		Resolution:     i.f.Resolution,
		Points:         i.f.Points,
		Transitions:    make([]transitionJSON, 0, len(i.f.Transitions)),
		StartSprint:    sprintToJSON(i.f.StartSprint),
		EndSprint:      sprintToJSON(i.f.EndSprint),
		Labels:         append([]string{}, i.f.Labels...),
	}
	for _, t := range i.f.Transitions {
		out.Transitions = append(out.Transitions, transitionJSON{When: t.When.Unix(), To: t.To})
	}
	return json.Marshal(out)
}

// UnmarshalJSON reads the form written by MarshalJSON. Times come back in UTC
// truncated to the second.
func (i *Issue) UnmarshalJSON(data []byte) error {
	var in issueJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return fmt.Errorf("decode issue: %w", err)
	}
	f := IssueFields{
		Key:            in.Key,
		Summary:        in.Summary,
		Created:        time.Unix(in.Created, 0).UTC(),
		Type:           in.Type,
		Status:         in.Status,
		StatusCategory: in.StatusCategory,
		Resolution:     in.Resolution,
		Points:         in.Points,
		Labels:         in.Labels,
		StartSprint:    sprintFromJSON(in.StartSprint),
		EndSprint:      sprintFromJSON(in.EndSprint),
	}
	for _, t := range in.Transitions {
		f.Transitions = append(f.Transitions, Transition{When: time.Unix(t.When, 0).UTC(), To: t.To})
	}
	*i = NewIssue(f)
	return nil
}

// ToJSON serializes the issue in its wire form.
func (i Issue) ToJSON() ([]byte, error) {
	return json.Marshal(i)
}
