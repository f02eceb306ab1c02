package extract

import (
	"strings"
	"time"
)

// layouts accepted by Parse8601. Layouts without a zone are read as UTC.
var layouts = []string{
	"2006-01-02T15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02T15:04:05.999999999Z0700",
	"2006-01-02 15:04:05.999999999Z0700",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// Parse8601 converts an ISO-8601 timestamp to Unix milliseconds.
func Parse8601(s string) *int64 {
	s = strings.TrimSpace(s)
	if s == "" || !strings.Contains(s, "-") || !strings.Contains(s, ":") {
		return nil
	}
	for _, layout := range layouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		ms := t.UnixMilli()
		return &ms
	}
	return nil
}

// ParseWithOffset parses a venue-local timestamp after appending the offset
// the venue leaves implicit (for example "+00:00").
func ParseWithOffset(s, offset string) *int64 {
	if s == "" {
		return nil
	}
	return Parse8601(s + offset)
}

// ISO8601 renders Unix milliseconds as a UTC timestamp with millisecond
// precision. A nil timestamp renders as the empty string.
func ISO8601(ms *int64) string {
	if ms == nil {
		return ""
	}
	return time.UnixMilli(*ms).UTC().Format("2006-01-02T15:04:05.000Z")
}
