package jira

import (
	"encoding/json"
	"strings"
)

// types.go - Raw Jira REST structures consumed by the timeline parser

// RawIssue is one issue as returned by /rest/api/2/search.
type RawIssue struct {
	Key       string     `json:"key"`
	Fields    RawFields  `json:"fields"`
	Changelog *Changelog `json:"changelog,omitempty"`
}

type NamedField struct {
	Name string `json:"name"`
}

type RawStatus struct {
	Name           string     `json:"name"`
	StatusCategory NamedField `json:"statusCategory"`
}

// RawFields holds the standard fields the report needs. Custom fields
// (story points, sprints) are kept undecoded in Custom, keyed by field id.
type RawFields struct {
	Summary    string      `json:"summary"`
	Created    string      `json:"created"`
	IssueType  NamedField  `json:"issuetype"`
	Status     RawStatus   `json:"status"`
	Resolution *NamedField `json:"resolution"`
	Labels     []string    `json:"labels"`

	Custom map[string]json.RawMessage `json:"-"`
}

func (f *RawFields) UnmarshalJSON(data []byte) error {
	type plain RawFields
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	p.Custom = make(map[string]json.RawMessage)
	for k, v := range all {
		if strings.HasPrefix(k, "customfield_") {
			p.Custom[k] = v
		}
	}
	*f = RawFields(p)
	return nil
}

// Changelog is present only when the search ran with expand=changelog.
type Changelog struct {
	Histories []History `json:"histories"`
}

type History struct {
	Created string       `json:"created"`
	Items   []ChangeItem `json:"items"`
}

type ChangeItem struct {
	Field      string `json:"field"`
	FromString string `json:"fromString"`
	ToString   string `json:"toString"`
}

// RawSprint is one entry of the sprint custom field. Jira Server sends the
// greenhopper toString form ("...Sprint@2deedb28[id=904,...,name=...]"),
// Jira Cloud sends an object; both decode into this type.
type RawSprint struct {
	Descriptor string
	Name       string
	StartDate  string
	Structured bool
}

func (s *RawSprint) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		*s = RawSprint{}
		return json.Unmarshal(data, &s.Descriptor)
	}
	var obj struct {
		Name      string `json:"name"`
		StartDate string `json:"startDate"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	*s = RawSprint{Name: obj.Name, StartDate: obj.StartDate, Structured: true}
	return nil
}

// Parse turns the raw entry into a Sprint.
func (s RawSprint) Parse() (Sprint, error) {
	if !s.Structured {
		return ParseSprint(s.Descriptor)
	}
	if s.Name == "" {
		return Sprint{}, &FormatError{Field: "sprint", Value: s.StartDate, Reason: "missing name"}
	}
	if s.StartDate == "" {
		return Sprint{}, &FormatError{Field: "sprint", Value: s.Name, Reason: "missing startDate"}
	}
	start, err := ParseDate(s.StartDate)
	if err != nil {
		return Sprint{}, err
	}
	return Sprint{Name: s.Name, StartDate: start}, nil
}

// FieldIDs names the instance-specific custom fields.
type FieldIDs struct {
	Points string
	Sprint string
}

// DefaultFieldIDs are the ids used by the SVP Jira instance.
var DefaultFieldIDs = FieldIDs{
	Points: "customfield_10004",
	Sprint: "customfield_10007",
}
