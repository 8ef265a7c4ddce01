package jira

import (
	"regexp"
	"strings"
	"time"
)

// dateLayout matches Jira's REST timestamps, e.g. 2019-01-09T10:20:40.495+0000.
const dateLayout = "2006-01-02T15:04:05.999999-0700"

var datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}\.\d{1,6}(?:[+-]\d{4}|Z)$`)

// ParseDate parses a Jira timestamp into a time carrying the explicit offset.
// A trailing Z is read as +0000; any other deviation is a *FormatError.
func ParseDate(s string) (time.Time, error) {
	if !datePattern.MatchString(s) {
		return time.Time{}, &FormatError{Field: "date", Value: s, Reason: "want YYYY-MM-DDTHH:MM:SS.ffffff+HHMM"}
	}
	normalized := s
	if strings.HasSuffix(s, "Z") {
		normalized = strings.TrimSuffix(s, "Z") + "+0000"
	}
	t, err := time.Parse(dateLayout, normalized)
	if err != nil {
		return time.Time{}, &FormatError{Field: "date", Value: s, Reason: err.Error()}
	}
	return t, nil
}

// FormatDate renders t in the layout ParseDate accepts.
func FormatDate(t time.Time) string {
	return t.Format("2006-01-02T15:04:05.000000-0700")
}
