package normalize

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/wolfman30/clinic-occupancy-maps/internal/schedule"
)

var (
	dayFirstDate = regexp.MustCompile(`^(\d{1,2})[-/.](\d{1,2})[-/.](\d{4})(?:$|[ T])`)
	isoDate      = regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})(?:$|[ T])`)
	exactClock   = regexp.MustCompile(`^(\d{1,2}):(\d{2})(?::(\d{2}))?$`)
	embedClock   = regexp.MustCompile(`(\d{1,2}):(\d{2})(?::(\d{2}))?`)
	hourMarkClk  = regexp.MustCompile(`(?i)(\d{1,2})\s*h\s*(\d{2})`)
)

// ParseDate parses a calendar date, day-first (DD-MM-YYYY, DD/MM/YYYY) first and ISO
// (YYYY-MM-DD, optionally followed by a time component) as fallback.
func ParseDate(s string) (schedule.Date, bool) {
	s = strings.TrimSpace(s)
	if IsNullToken(s) {
		return schedule.Date{}, false
	}
	if m := dayFirstDate.FindStringSubmatch(s); m != nil {
		if d, ok := buildDate(m[3], m[2], m[1]); ok {
			return d, true
		}
	}
	if m := isoDate.FindStringSubmatch(s); m != nil {
		if d, ok := buildDate(m[1], m[2], m[3]); ok {
			return d, true
		}
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return schedule.DateOf(t), true
	}
	return schedule.Date{}, false
}

func buildDate(year, month, day string) (schedule.Date, bool) {
	y, err1 := strconv.Atoi(year)
	m, err2 := strconv.Atoi(month)
	d, err3 := strconv.Atoi(day)
	if err1 != nil || err2 != nil || err3 != nil {
		return schedule.Date{}, false
	}
	if m < 1 || m > 12 || d < 1 || d > 31 {
		return schedule.Date{}, false
	}
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	// time.Date normalizes 31-02 into March; reject instead.
	if t.Day() != d || int(t.Month()) != m {
		return schedule.Date{}, false
	}
	return schedule.DateOf(t), true
}

// ParseClock accepts HH:MM:SS, HH:MM, HHhMM and a time embedded in a longer
// date-time string.
func ParseClock(s string) (schedule.Clock, bool) {
	s = strings.TrimSpace(s)
	if IsNullToken(s) {
		return schedule.Clock{}, false
	}
	if m := exactClock.FindStringSubmatch(s); m != nil {
		return buildClock(m[1], m[2], m[3])
	}
	if m := embedClock.FindStringSubmatch(s); m != nil {
		return buildClock(m[1], m[2], m[3])
	}
	if m := hourMarkClk.FindStringSubmatch(s); m != nil {
		return buildClock(m[1], m[2], "")
	}
	return schedule.Clock{}, false
}

func buildClock(hour, minute, second string) (schedule.Clock, bool) {
	h, err := strconv.Atoi(hour)
	if err != nil {
		return schedule.Clock{}, false
	}
	m, err := strconv.Atoi(minute)
	if err != nil {
		return schedule.Clock{}, false
	}
	sec := 0
	if second != "" {
		if sec, err = strconv.Atoi(second); err != nil {
			return schedule.Clock{}, false
		}
	}
	return schedule.NewClock(h, m, sec)
}
