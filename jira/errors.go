package jira

import "fmt"

// FormatError reports a timestamp or sprint descriptor that does not match
// the format Jira is expected to send.
type FormatError struct {
	Field  string
	Value  string
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("jira: malformed %s %q: %s", e.Field, e.Value, e.Reason)
}

// ConfigurationError reports structural data missing from a raw record,
// usually because the search was not run with the right expand option.
type ConfigurationError struct {
	Key    string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Key == "" {
		return "jira: " + e.Reason
	}
	return fmt.Sprintf("jira: issue %s: %s", e.Key, e.Reason)
}
