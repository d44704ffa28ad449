package journal

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata" // zones resolve without a system zoneinfo
)

const DayLayout = "2006-01-02"

// Calendar maps instants onto reporting days. Every day boundary in the
// journal comes from one Calendar so fingerprints and aggregates agree on
// which day a trade belongs to. The zero value reports in UTC.
type Calendar struct {
	loc *time.Location
}

// NewCalendar loads the named IANA zone. An empty name means UTC.
func NewCalendar(zone string) (Calendar, error) {
	zone = strings.TrimSpace(zone)
	if zone == "" || strings.EqualFold(zone, "UTC") {
		return Calendar{loc: time.UTC}, nil
	}
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return Calendar{}, fmt.Errorf("load timezone %q: %w", zone, err)
	}
	return Calendar{loc: loc}, nil
}

func (c Calendar) Location() *time.Location {
	if c.loc == nil {
		return time.UTC
	}
	return c.loc
}

// Day returns the reporting date t falls on.
func (c Calendar) Day(t time.Time) string {
	return t.In(c.Location()).Format(DayLayout)
}

// Bounds returns the half-open interval [start, end) of day. The end is the
// next local midnight, so DST transition days are 23 or 25 hours long.
func (c Calendar) Bounds(day string) (time.Time, time.Time, error) {
	loc := c.Location()
	t, err := time.ParseInLocation(DayLayout, strings.TrimSpace(day), loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("bad day %q: %w", day, err)
	}
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	end := time.Date(t.Year(), t.Month(), t.Day()+1, 0, 0, 0, 0, loc)
	return start, end, nil
}

// Today returns the current reporting date.
func (c Calendar) Today() string {
	return c.Day(time.Now())
}

// ParseDay validates a YYYY-MM-DD string and returns it normalized.
func ParseDay(s string) (string, error) {
	t, err := time.Parse(DayLayout, strings.TrimSpace(s))
	if err != nil {
		return "", fmt.Errorf("bad day %q (want YYYY-MM-DD): %w", s, err)
	}
	return t.Format(DayLayout), nil
}
