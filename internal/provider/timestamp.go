package provider

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Layouts without a zone are read in the supplied location.
var localLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
}

// ParseTimestamp parses an ISO-8601 timestamp with or without a zone
// designator, or the "YYYY-MM-DD HH:MM:SS" form, and returns it in UTC.
// Timestamps without a zone are interpreted in loc (UTC when nil).
func ParseTimestamp(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty timestamp", ErrUnrecognizedPayload)
	}
	if loc == nil {
		loc = time.UTC
	}

	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), nil
	}
	// Offset without a colon, e.g. 2024-01-15T10:00:00+0500
	if t, err := time.Parse("2006-01-02T15:04:05Z0700", s); err == nil {
		return t.UTC(), nil
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: bad timestamp %q", ErrUnrecognizedPayload, s)
}

// ParseOffset parses a "+05:00" / "-0300" style UTC offset into a fixed zone
func ParseOffset(tz string) (*time.Location, error) {
	tz = strings.TrimSpace(tz)
	if tz == "" || tz == "Z" {
		return time.UTC, nil
	}
	if len(tz) < 3 || (tz[0] != '+' && tz[0] != '-') {
		return nil, fmt.Errorf("bad utc offset %q", tz)
	}

	sign := 1
	if tz[0] == '-' {
		sign = -1
	}
	digits := strings.ReplaceAll(tz[1:], ":", "")

	var hours, minutes int
	var err error
	switch len(digits) {
	case 2:
		hours, err = strconv.Atoi(digits)
	case 4:
		hours, err = strconv.Atoi(digits[:2])
		if err == nil {
			minutes, err = strconv.Atoi(digits[2:])
		}
	default:
		return nil, fmt.Errorf("bad utc offset %q", tz)
	}
	if err != nil || hours > 14 || minutes > 59 {
		return nil, fmt.Errorf("bad utc offset %q", tz)
	}

	return time.FixedZone(tz, sign*(hours*3600+minutes*60)), nil
}
