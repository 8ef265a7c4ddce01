package jira

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

// BuildIssue turns a raw search record into an Issue. Any malformed date,
// sprint or points value aborts the whole record.
func BuildIssue(raw RawIssue, ids FieldIDs) (Issue, error) {
	created, err := ParseDate(raw.Fields.Created)
	if err != nil {
		return Issue{}, fmt.Errorf("issue %s: created: %w", raw.Key, err)
	}

	points, err := rawPoints(raw.Fields.Custom[ids.Points])
	if err != nil {
		return Issue{}, fmt.Errorf("issue %s: points: %w", raw.Key, err)
	}

	sprints, err := rawSprints(raw.Fields.Custom[ids.Sprint])
	if err != nil {
		return Issue{}, fmt.Errorf("issue %s: sprints: %w", raw.Key, err)
	}
	start, end, err := ResolveSprints(sprints)
	if err != nil {
		return Issue{}, fmt.Errorf("issue %s: sprints: %w", raw.Key, err)
	}

	transitions, err := ExtractTransitions(raw.Changelog)
	if err != nil {
		var ce *ConfigurationError
		if errors.As(err, &ce) {
			ce.Key = raw.Key
			return Issue{}, ce
		}
		return Issue{}, fmt.Errorf("issue %s: changelog: %w", raw.Key, err)
	}

	var resolution *string
	if raw.Fields.Resolution != nil {
		name := raw.Fields.Resolution.Name
		resolution = &name
	}

	return NewIssue(IssueFields{
		Key:            raw.Key,
		Summary:        raw.Fields.Summary,
		Created:        created,
		Type:           raw.Fields.IssueType.Name,
		Status:         raw.Fields.Status.Name,
		StatusCategory: raw.Fields.Status.StatusCategory.Name,
		Resolution:     resolution,
		Points:         points,
		Labels:         raw.Fields.Labels,
		StartSprint:    start,
		EndSprint:      end,
		Transitions:    transitions,
	}), nil
}

func isNull(v json.RawMessage) bool {
	return len(v) == 0 || bytes.Equal(bytes.TrimSpace(v), []byte("null"))
}

func rawPoints(v json.RawMessage) (*int, error) {
	if isNull(v) {
		return nil, nil
	}
	var f float64
	if err := json.Unmarshal(v, &f); err != nil {
		return nil, &FormatError{Field: "points", Value: string(v), Reason: "not a number"}
	}
	if f < math.MinInt || f >= math.MaxInt {
		return nil, &FormatError{Field: "points", Value: string(v), Reason: "out of range"}
	}
	p := int(f)
	return &p, nil
}

func rawSprints(v json.RawMessage) ([]RawSprint, error) {
	if isNull(v) {
		return nil, nil
	}
	var sprints []RawSprint
	if err := json.Unmarshal(v, &sprints); err != nil {
		return nil, &FormatError{Field: "sprint", Value: string(v), Reason: err.Error()}
	}
	return sprints, nil
}
