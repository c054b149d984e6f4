// Package timewindow computes timezone-anchored day boundaries.
//
// All streak decisions are made against calendar days in a fixed UTC
// offset (WIB, UTC+7, for production deployments). Functions here are
// pure: they take the instant to evaluate as an argument and never read
// the wall clock themselves.
package timewindow

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// WIBOffsetMinutes is the fixed UTC offset for Western Indonesia Time.
const WIBOffsetMinutes = 7 * 60

const (
	secondsPerMinute = 60
	secondsPerDay    = 24 * 60 * 60
)

// StartOfDay returns the instant corresponding to 00:00:00 local time of
// the calendar day containing t in the given fixed UTC offset.
//
// The function is total: any representable instant maps to exactly one
// local day. An instant at 23:30 UTC with a +420 offset belongs to the
// next local day.
func StartOfDay(t time.Time, offsetMinutes int) time.Time {
	loc := time.FixedZone("", offsetMinutes*secondsPerMinute)
	lt := t.In(loc)
	return time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, loc)
}

// DayIndex returns the number of whole local days between the Unix epoch
// and t in the given fixed UTC offset. Two instants share a DayIndex iff
// they fall on the same local calendar day, so streak arithmetic reduces
// to integer differences of indexes.
func DayIndex(t time.Time, offsetMinutes int) int64 {
	local := t.Unix() + int64(offsetMinutes)*secondsPerMinute
	return floorDiv(local, secondsPerDay)
}

// SameDay reports whether a and b fall on the same local calendar day.
func SameDay(a, b time.Time, offsetMinutes int) bool {
	return DayIndex(a, offsetMinutes) == DayIndex(b, offsetMinutes)
}

// DayDelta returns the signed number of local calendar days from "from"
// to "to". Consecutive days yield 1.
func DayDelta(from, to time.Time, offsetMinutes int) int64 {
	return DayIndex(to, offsetMinutes) - DayIndex(from, offsetMinutes)
}

// CutoffAt returns the instant of the hh:mm wall-clock cutoff within t's
// local calendar day.
func CutoffAt(t time.Time, offsetMinutes, hour, minute int) time.Time {
	start := StartOfDay(t, offsetMinutes)
	return start.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

// ParseClock parses a "HH:MM" wall-clock string into hour and minute
// components. Used for the configured reminder cutoff.
func ParseClock(s string) (hour, minute int, err error) {
	parts := strings.SplitN(strings.TrimSpace(s), ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid clock value %q: want HH:MM", s)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid clock hour in %q", s)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid clock minute in %q", s)
	}
	return hour, minute, nil
}

// floorDiv divides rounding toward negative infinity, so pre-epoch
// instants still map to well-ordered day indexes.
func floorDiv(a, b int64) int64 {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}
