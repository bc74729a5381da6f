// Package cli holds small parsing helpers shared by commands.
package cli

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/chatwoot/inboxq/internal/inbox"
)

// Matches: "3d ago", "2w ago", "1mo ago", "1y ago"
var relativeAgoRegex = regexp.MustCompile(`^(\d+)\s*(y|mo|w|d)\s*ago$`)

// ParseDay parses a date range bound into a calendar day, returned as UTC
// midnight. Accepted forms are ISO dates ("2024-03-01"), RFC3339 timestamps,
// "today", "yesterday", weekday names meaning the most recent such day
// ("mon", "last friday"), and "N{d,w,mo,y} ago". An empty value, "none" or
// "any" clears the bound and returns nil.
func ParseDay(s string, now time.Time) (*time.Time, error) {
	raw := strings.TrimSpace(s)
	input := strings.ToLower(raw)

	switch input {
	case "", "none", "any":
		return nil, nil
	case "today":
		return day(now), nil
	case "yesterday":
		return day(now.AddDate(0, 0, -1)), nil
	}

	if weekday, ok := weekdayMap[strings.TrimPrefix(input, "last ")]; ok {
		delta := (int(now.Weekday()) - int(weekday) + 7) % 7
		if delta == 0 && strings.HasPrefix(input, "last ") {
			delta = 7
		}
		return day(now.AddDate(0, 0, -delta)), nil
	}

	if matches := relativeAgoRegex.FindStringSubmatch(input); len(matches) == 3 {
		value, err := strconv.Atoi(matches[1])
		if err != nil || value < 1 {
			return nil, fmt.Errorf("invalid relative date %q", raw)
		}
		switch matches[2] {
		case "y":
			return day(now.AddDate(-value, 0, 0)), nil
		case "mo":
			return day(now.AddDate(0, -value, 0)), nil
		case "w":
			return day(now.AddDate(0, 0, -7*value)), nil
		default:
			return day(now.AddDate(0, 0, -value)), nil
		}
	}

	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return day(t), nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return day(t), nil
	}

	return nil, fmt.Errorf("invalid date %q (use YYYY-MM-DD, today, yesterday, a weekday, or 3d ago)", raw)
}

func day(t time.Time) *time.Time {
	d := inbox.Day(t)
	return &d
}

var weekdayMap = map[string]time.Weekday{
	"sun":       time.Sunday,
	"sunday":    time.Sunday,
	"mon":       time.Monday,
	"monday":    time.Monday,
	"tue":       time.Tuesday,
	"tues":      time.Tuesday,
	"tuesday":   time.Tuesday,
	"wed":       time.Wednesday,
	"wednesday": time.Wednesday,
	"thu":       time.Thursday,
	"thurs":     time.Thursday,
	"thursday":  time.Thursday,
	"fri":       time.Friday,
	"friday":    time.Friday,
	"sat":       time.Saturday,
	"saturday":  time.Saturday,
}

// FormatDay renders an optional day for display; nil is "-".
func FormatDay(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format("2006-01-02")
}
