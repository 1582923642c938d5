package siri

import "time"

// Iso8601Now returns the current time in ISO8601 format
func Iso8601Now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// Iso8601 formats a time in ISO8601 format
func Iso8601(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// ParseIso8601 parses an ISO8601 timestamp, returning nil on empty input
func ParseIso8601(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// TimePtr returns a pointer to t. Convenience for building test fixtures
// and literals with optional timestamps.
func TimePtr(t time.Time) *time.Time {
	return &t
}

// BoolPtr returns a pointer to b.
func BoolPtr(b bool) *bool {
	return &b
}

// IntPtr returns a pointer to i.
func IntPtr(i int) *int {
	return &i
}
