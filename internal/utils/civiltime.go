package utils

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata" // embed the zone database so containers without /usr/share/zoneinfo still resolve Europe/Amsterdam
)

// DefaultTimezone is the zone in which slot dates and start times are
// entered by the venue.
const DefaultTimezone = "Europe/Amsterdam"

// LoadLocation resolves a zone name, falling back to DefaultTimezone when
// the name is empty.
func LoadLocation(name string) (*time.Location, error) {
	if strings.TrimSpace(name) == "" {
		name = DefaultTimezone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", name, err)
	}
	return loc, nil
}

// CivilToInstant interprets a civil date ("2006-01-02") and wall clock
// time ("15:04" or "15:04:05") in loc and returns the absolute instant in
// UTC.  No offset heuristics are applied: the zone database alone decides
// whether CET or CEST is in effect.
func CivilToInstant(date, clock string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		return time.Time{}, fmt.Errorf("civil time: nil location")
	}
	date = strings.TrimSpace(date)
	clock = strings.TrimSpace(clock)
	layout := "2006-01-02 15:04"
	if strings.Count(clock, ":") == 2 {
		layout = "2006-01-02 15:04:05"
	}
	t, err := time.ParseInLocation(layout, date+" "+clock, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("civil time %q %q: %w", date, clock, err)
	}
	return t.UTC(), nil
}
