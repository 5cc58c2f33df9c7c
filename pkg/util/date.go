package util

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006/01/02",
	"01/02/2006",
}

// ParseDate accepts ISO dates, RFC3339 timestamps, a few common CSV layouts
// and unix seconds. Layouts without a zone are read as UTC.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("parse date: empty value")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
		return time.Unix(ts, 0).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("parse date: unrecognized value %q", s)
}

// ParseDateDefault parses s or returns def if s is empty or invalid.
func ParseDateDefault(s string, def time.Time) time.Time {
	if t, err := ParseDate(s); err == nil {
		return t
	}
	return def
}

// InRange reports whether t lies in [from, to]; zero bounds are open.
func InRange(t, from, to time.Time) bool {
	if !from.IsZero() && t.Before(from) {
		return false
	}
	if !to.IsZero() && t.After(to) {
		return false
	}
	return true
}
